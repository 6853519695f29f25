package job

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/estimate"
	"github.com/podforge/podforge/internal/models"
	"github.com/podforge/podforge/internal/script"
)

// Planner produces a fitted script for a request, plus non-fatal warnings.
type Planner interface {
	Plan(ctx context.Context, req models.GenerationRequest) (*models.Script, []string, error)
}

// Synthesizer renders one segment of text with the given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Archiver persists a finished episode. Persistence failures are reported as
// warnings, never as job failures.
type Archiver interface {
	SaveEpisode(ctx context.Context, ep ArchivedEpisode) error
}

// ArchivedEpisode is the durable record written once a job reaches Ready.
type ArchivedEpisode struct {
	JobID                uuid.UUID
	Title                string
	Mode                 models.Mode
	TargetDurationSec    int
	EstimatedDurationSec float64
	ScriptYAML           []byte
	Audio                []byte
}

// Options tunes the orchestrator.
type Options struct {
	// SynthConcurrency caps parallel synthesis calls per job. Defaults to 4;
	// jobs with fewer segments use fewer workers.
	SynthConcurrency int
	// DriftTolerance is the relative gap between the script estimate and the
	// assembled audio duration above which a drift warning is attached.
	// Defaults to 0.03.
	DriftTolerance float64
}

func (o *Options) withDefaults() {
	if o.SynthConcurrency <= 0 {
		o.SynthConcurrency = 4
	}
	if o.DriftTolerance <= 0 {
		o.DriftTolerance = 0.03
	}
}

// Manager owns the full lifecycle of generation jobs. Create registers a job
// in Pending; Start hands it to an orchestrator goroutine that drives it
// through Planning, Synthesizing and Assembling to a terminal state.
type Manager struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job

	planner   Planner
	synth     Synthesizer
	assembler audio.Assembler
	estimator *estimate.Estimator
	archive   Archiver
	opts      Options
}

func NewManager(planner Planner, synth Synthesizer, assembler audio.Assembler, estimator *estimate.Estimator, opts Options) *Manager {
	opts.withDefaults()
	if estimator == nil {
		estimator = estimate.Default()
	}
	return &Manager{
		jobs:      make(map[uuid.UUID]*Job),
		planner:   planner,
		synth:     synth,
		assembler: assembler,
		estimator: estimator,
		opts:      opts,
	}
}

// SetArchiver attaches an optional episode archive.
func (m *Manager) SetArchiver(a Archiver) { m.archive = a }

// Create validates the request and registers a Pending job without starting
// it, so a queue can sit between submission and execution.
func (m *Manager) Create(req models.GenerationRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}
	j := newJob(req)
	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()
	return j.id, nil
}

// Start launches the orchestrator goroutine for a Pending job.
func (m *Manager) Start(id uuid.UUID) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return models.NewError(models.ErrInvalidRequest, "job %s already started", id)
	}
	if j.state.Terminal() {
		j.mu.Unlock()
		return models.NewError(models.ErrInvalidRequest, "job %s is %s", id, j.state)
	}
	j.started = true
	j.mu.Unlock()
	go m.run(j)
	return nil
}

// Submit is Create followed by Start, for deployments without a queue.
func (m *Manager) Submit(req models.GenerationRequest) (uuid.UUID, error) {
	id, err := m.Create(req)
	if err != nil {
		return uuid.Nil, err
	}
	return id, m.Start(id)
}

func (m *Manager) run(j *Job) {
	ctx := j.ctx

	if !j.transition(models.JobStatePlanning, progressPlanningStart) {
		return
	}
	s, warnings, err := m.planner.Plan(ctx, j.req)
	if ctx.Err() != nil {
		j.finishCancelled()
		return
	}
	if err != nil {
		log.Printf("[Job] %s planning failed: %v", j.id, err)
		j.fail(err)
		return
	}
	j.attachScript(s, warnings, m.estimator.EstimateScript(s))

	// Every speaker must resolve to a host with a voice before any
	// synthesis spend happens.
	if err := script.Validate(s); err != nil {
		j.fail(err)
		return
	}

	if !j.transition(models.JobStateSynthesizing, progressPlanningDone) {
		return
	}
	segments, err := m.synthesize(ctx, j, s)
	if ctx.Err() != nil {
		j.finishCancelled()
		return
	}
	if err != nil {
		log.Printf("[Job] %s synthesis failed: %v", j.id, err)
		j.fail(err)
		return
	}

	if !j.transition(models.JobStateAssembling, progressSynthDone) {
		return
	}
	artifact, actualSec, err := m.assembler.Combine(segments)
	if err != nil {
		log.Printf("[Job] %s assembly failed: %v", j.id, err)
		j.fail(err)
		return
	}
	m.checkDrift(j, actualSec)
	j.complete(artifact)
	log.Printf("[Job] %s ready: %d segments, %.1fs audio", j.id, len(s.Segments), actualSec)

	m.archiveEpisode(j, s, artifact)
}

// synthesize renders every segment with bounded concurrency. Results keep
// their script order regardless of completion order. Cancellation is checked
// at each segment boundary so no new provider call starts after a cancel.
func (m *Manager) synthesize(ctx context.Context, j *Job, s *models.Script) ([]audio.SegmentAudio, error) {
	total := len(s.Segments)
	limit := m.opts.SynthConcurrency
	if limit > total {
		limit = total
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, limit)
	results := make([]audio.SegmentAudio, total)
	var done int32
	var doneMu sync.Mutex

	for i := range s.Segments {
		i := i
		seg := s.Segments[i]
		host := s.HostByName(seg.Speaker)
		if host == nil {
			return nil, models.NewError(models.ErrMalformedScript, "segment %d references unknown speaker %q", i, seg.Speaker)
		}
		voice := host.VoiceID
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := m.synth.Synthesize(gctx, seg.Text, voice)
			if err != nil {
				return fmt.Errorf("segment %d (%s): %w", i, seg.Speaker, err)
			}
			results[i] = audio.SegmentAudio{Index: i, Speaker: seg.Speaker, Data: data}
			doneMu.Lock()
			done++
			j.segmentDone(int(done), total)
			doneMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkDrift compares assembled audio length against the estimate recorded
// when the script was published. The published script is read-only from this
// point on, so the drift check must not run the estimator over it again.
func (m *Manager) checkDrift(j *Job, actualSec float64) {
	if actualSec <= 0 {
		return
	}
	est := j.estimate()
	if est <= 0 {
		return
	}
	drift := math.Abs(actualSec-est) / est
	if drift > m.opts.DriftTolerance {
		j.addWarning(fmt.Sprintf("assembled audio is %.1fs, estimate was %.1fs (%.0f%% drift)", actualSec, est, drift*100))
	}
}

func (m *Manager) archiveEpisode(j *Job, s *models.Script, artifact []byte) {
	if m.archive == nil {
		return
	}
	yml, err := script.Serialize(s)
	if err != nil {
		j.addWarning(fmt.Sprintf("episode not archived: %v", err))
		return
	}
	ep := ArchivedEpisode{
		JobID:                j.id,
		Title:                s.Title,
		Mode:                 s.Mode,
		TargetDurationSec:    s.TargetDurationSec,
		EstimatedDurationSec: j.estimate(),
		ScriptYAML:           yml,
		Audio:                artifact,
	}
	if err := m.archive.SaveEpisode(context.Background(), ep); err != nil {
		log.Printf("[Job] %s archive failed: %v", j.id, err)
		j.addWarning(fmt.Sprintf("episode not archived: %v", err))
	}
}

func (m *Manager) get(id uuid.UUID) (*Job, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.NewError(models.ErrNotFound, "job %s not found", id)
	}
	return j, nil
}

// Status returns a point-in-time snapshot of the job.
func (m *Manager) Status(id uuid.UUID) (models.JobStatus, error) {
	j, err := m.get(id)
	if err != nil {
		return models.JobStatus{}, err
	}
	return j.status(), nil
}

// List returns snapshots of every known job.
func (m *Manager) List() []models.JobStatus {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.RUnlock()
	out := make([]models.JobStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.status())
	}
	return out
}

// Script returns the fitted script once the job has one. Only Ready jobs and
// jobs past Planning expose it.
func (m *Manager) Script(id uuid.UUID) (*models.Script, error) {
	j, err := m.get(id)
	if err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.script == nil {
		return nil, models.NewError(models.ErrNotFound, "job %s has no script yet", id)
	}
	return script.Clone(j.script), nil
}

// Audio returns the assembled artifact of a Ready job.
func (m *Manager) Audio(id uuid.UUID) ([]byte, error) {
	j, err := m.get(id)
	if err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != models.JobStateReady {
		return nil, models.NewError(models.ErrNotFound, "job %s is %s, audio requires ready", id, j.state)
	}
	return j.audio, nil
}

// Cancel requests cooperative cancellation. In-flight provider calls are
// abandoned via context; the job settles in Cancelled unless it already
// reached a terminal state.
func (m *Manager) Cancel(id uuid.UUID) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	j.requestCancel()
	return nil
}

// Subscribe returns a channel primed with the job's full event history that
// then receives live events until the job terminates. The returned func
// unsubscribes.
func (m *Manager) Subscribe(id uuid.UUID) (<-chan models.JobEvent, func(), error) {
	j, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, stop := j.subscribe()
	return ch, stop, nil
}

// Events returns the recorded events with sequence numbers greater than seq.
func (m *Manager) Events(id uuid.UUID, seq int) ([]models.JobEvent, error) {
	j, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return j.eventsSince(seq), nil
}

// Purge removes a terminal job and its artifacts from memory.
func (m *Manager) Purge(id uuid.UUID) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	j.mu.Lock()
	terminal := j.state.Terminal()
	j.mu.Unlock()
	if !terminal {
		return models.NewError(models.ErrInvalidRequest, "job %s is still %s", id, j.status().State)
	}
	m.mu.Lock()
	delete(m.jobs, id)
	m.mu.Unlock()
	return nil
}
