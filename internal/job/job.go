package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/podforge/podforge/internal/models"
)

// Progress landmarks for scaling phase-local progress into [0,1].
const (
	progressPlanningStart = 0.02
	progressPlanningDone  = 0.35
	progressSynthDone     = 0.90
)

// Job is one generation job. All mutation happens on the orchestrator
// goroutine that owns it, serialized through the job's own mutex; readers
// get snapshots. Events form a strictly ordered, monotonically increasing
// sequence: no event is ever emitted out of order or for a state the job
// has already left behind.
type Job struct {
	mu sync.Mutex

	id      uuid.UUID
	req     models.GenerationRequest
	state   models.JobState
	started bool

	progress float64
	script   *models.Script
	audio    []byte

	estimatedSec float64
	err          *models.Error
	warnings     []string

	cancelRequested bool
	cancel          context.CancelFunc
	ctx             context.Context

	seq     int
	events  []models.JobEvent
	subs    map[int]chan models.JobEvent
	nextSub int

	createdAt time.Time
	updatedAt time.Time
}

func newJob(req models.GenerationRequest) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC()
	j := &Job{
		id:        uuid.New(),
		req:       req,
		state:     models.JobStatePending,
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[int]chan models.JobEvent),
		createdAt: now,
		updatedAt: now,
	}
	j.mu.Lock()
	j.emitLocked()
	j.mu.Unlock()
	return j
}

// emitLocked appends the next event for the current state/progress and fans
// it out to subscribers. Callers must hold j.mu.
func (j *Job) emitLocked() {
	j.seq++
	j.updatedAt = time.Now().UTC()
	ev := models.JobEvent{Seq: j.seq, State: j.state, Progress: j.progress, Time: j.updatedAt}
	j.events = append(j.events, ev)
	for _, ch := range j.subs {
		// Slow subscribers miss intermediate events rather than stalling the
		// orchestrator; the history remains available for catch-up.
		select {
		case ch <- ev:
		default:
		}
	}
	if j.state.Terminal() {
		for id, ch := range j.subs {
			close(ch)
			delete(j.subs, id)
		}
	}
}

// transition moves the job into state, honoring a pending cancellation
// request first. Returns false when the job is already terminal or was just
// cancelled, in which case the orchestrator must stop.
func (j *Job) transition(state models.JobState, floor float64) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return false
	}
	if j.cancelRequested {
		j.cancelLocked()
		return false
	}
	j.state = state
	if floor > j.progress {
		j.progress = floor
	}
	j.emitLocked()
	return true
}

// fail records the first fatal error and transitions to Failed.
func (j *Job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	if j.err == nil { // first cause wins
		j.err = models.AsError(err, models.ErrProviderUnavailable)
	}
	j.state = models.JobStateFailed
	j.emitLocked()
}

// cancelLocked finalizes a cancellation: partial results are discarded.
// Callers must hold j.mu.
func (j *Job) cancelLocked() {
	j.script = nil
	j.audio = nil
	j.estimatedSec = 0
	j.state = models.JobStateCancelled
	j.emitLocked()
}

// finishCancelled is the cooperative cancellation sink used by the
// orchestrator when it observes a cancelled context at a step boundary.
func (j *Job) finishCancelled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.cancelLocked()
}

// segmentDone advances synthesis-phase progress after one segment completes.
// Progress events are only emitted while the job is still Synthesizing.
func (j *Job) segmentDone(done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != models.JobStateSynthesizing {
		return
	}
	p := progressPlanningDone + (progressSynthDone-progressPlanningDone)*float64(done)/float64(total)
	if p > j.progress {
		j.progress = p
		j.emitLocked()
	}
}

func (j *Job) attachScript(s *models.Script, warnings []string, estimatedSec float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.script = s
	j.warnings = append(j.warnings, warnings...)
	j.estimatedSec = estimatedSec
}

// estimate returns the duration estimate recorded when the script was
// attached.
func (j *Job) estimate() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.estimatedSec
}

func (j *Job) addWarning(w string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.warnings = append(j.warnings, w)
}

// complete attaches the final artifact and transitions to Ready.
func (j *Job) complete(artifact []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	if j.cancelRequested {
		j.cancelLocked()
		return
	}
	j.audio = artifact
	j.state = models.JobStateReady
	j.progress = 1
	j.emitLocked()
}

func (j *Job) requestCancel() {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	j.cancelRequested = true
	started := j.started
	if !started {
		// Never started: no orchestrator goroutine will observe the flag.
		j.cancelLocked()
	}
	j.mu.Unlock()
	j.cancel()
}

func (j *Job) status() models.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return models.JobStatus{
		ID:                   j.id,
		State:                j.state,
		Progress:             j.progress,
		Error:                j.err,
		Warnings:             append([]string(nil), j.warnings...),
		EstimatedDurationSec: j.estimatedSec,
		CreatedAt:            j.createdAt,
		UpdatedAt:            j.updatedAt,
	}
}

// subscribe registers a new event channel primed with the full history.
func (j *Job) subscribe() (<-chan models.JobEvent, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	ch := make(chan models.JobEvent, len(j.events)+64)
	for _, ev := range j.events {
		ch <- ev
	}
	if j.state.Terminal() {
		close(ch)
		return ch, func() {}
	}
	id := j.nextSub
	j.nextSub++
	j.subs[id] = ch
	return ch, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if c, ok := j.subs[id]; ok {
			close(c)
			delete(j.subs, id)
		}
	}
}

func (j *Job) eventsSince(seq int) []models.JobEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []models.JobEvent
	for _, ev := range j.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}
