package planner

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/podforge/podforge/internal/estimate"
	"github.com/podforge/podforge/internal/models"
	"github.com/podforge/podforge/internal/script"
)

// Defaults for the duration-fitting loop.
const (
	DefaultTolerance     = 0.03
	DefaultMaxIterations = 5

	// minSegmentWords is the floor below which mechanical trimming removes a
	// segment entirely instead of shortening it further.
	minSegmentWords = 8
)

// TextGateway is the slice of the provider gateway the planner needs.
type TextGateway interface {
	GenerateText(ctx context.Context, prompt, roleHint string) (string, error)
}

// Coordinator produces a draft script through the multi-agent protocol.
// It may return both a partial script and a coordination_incomplete error.
type Coordinator interface {
	Draft(ctx context.Context, req models.GenerationRequest, hosts []models.Host) (*models.Script, error)
}

// Options tunes the planner.
type Options struct {
	Tolerance     float64 // acceptable deviation fraction around the target (default 0.03)
	MaxIterations int     // fit loop ceiling (default 5)
	// CoordinationStrict escalates coordination_incomplete to a job failure
	// instead of fitting the partial draft.
	CoordinationStrict bool
}

// Planner produces an initial draft and iteratively reshapes it until its
// estimated duration lies within tolerance of the target.
type Planner struct {
	gateway     TextGateway
	estimator   *estimate.Estimator
	coordinator Coordinator
	opts        Options
}

// New builds a planner. coordinator may be nil when multi-agent mode is
// never used.
func New(gateway TextGateway, estimator *estimate.Estimator, coordinator Coordinator, opts Options) *Planner {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if estimator == nil {
		estimator = estimate.Default()
	}
	return &Planner{gateway: gateway, estimator: estimator, coordinator: coordinator, opts: opts}
}

// Plan generates a fitted script for the request. The returned warnings carry
// soft conditions (duration_not_converged, coordination_incomplete) that do
// not fail the job.
func (p *Planner) Plan(ctx context.Context, req models.GenerationRequest) (*models.Script, []string, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	hosts := req.Hosts
	if len(hosts) == 0 {
		hosts = script.DefaultHosts(req.Mode)
	}

	var warnings []string

	title := req.Title
	if title == "" {
		t, err := p.generateTitle(ctx, req.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Printf("[Planner] title generation failed, using fallback: %v", err)
			t = fallbackTitle(req.Text)
		}
		title = t
	}

	draft, draftWarnings, err := p.draft(ctx, req, title, hosts)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, draftWarnings...)

	fitWarnings, err := p.fit(ctx, draft, hosts)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, fitWarnings...)

	log.Printf("[Planner] fitted script %q: %d segments, ~%.1fs (target %ds)",
		draft.Title, len(draft.Segments), p.estimator.EstimateScript(draft), draft.TargetDurationSec)
	return draft, warnings, nil
}

// draft obtains the unfitted script, either directly or through the
// multi-agent coordinator.
func (p *Planner) draft(ctx context.Context, req models.GenerationRequest, title string, hosts []models.Host) (*models.Script, []string, error) {
	if req.Mode == models.ModeMultiAgent {
		if p.coordinator == nil {
			return nil, nil, models.NewError(models.ErrInvalidRequest, "multi-agent mode requires a coordinator")
		}
		s, err := p.coordinator.Draft(ctx, req, hosts)
		if err != nil {
			if !models.IsKind(err, models.ErrCoordinationIncomplete) {
				return nil, nil, err
			}
			if p.opts.CoordinationStrict || s == nil || len(s.Segments) == 0 {
				return nil, nil, err
			}
			// Soft failure: fit whatever partial draft exists. Accepted
			// segments are never dropped.
			s.Title = title
			return s, []string{err.Error()}, nil
		}
		s.Title = title
		return s, nil, nil
	}

	s, err := script.New(title, req.Mode, req.TargetDurationSec, hosts)
	if err != nil {
		return nil, nil, err
	}

	var prompt string
	if req.Mode == models.ModeSolo {
		prompt = buildSoloPrompt(req.Text, hosts[0], req.TargetDurationSec, p.estimator)
	} else {
		prompt = buildDialoguePrompt(req.Text, hosts, req.TargetDurationSec, p.estimator)
	}
	resp, err := p.gateway.GenerateText(ctx, prompt, "draft")
	if err != nil {
		return nil, nil, err
	}

	segments := parseResponse(req.Mode, resp, hosts)
	if len(segments) == 0 {
		return nil, nil, models.NewError(models.ErrProviderRejected, "draft response contained no usable segments")
	}
	for _, seg := range segments {
		if err := script.AppendSegment(s, seg.Speaker, seg.Text); err != nil {
			return nil, nil, err
		}
	}
	return s, nil, nil
}

// fit converges the draft onto the target duration. Each over-target
// iteration strictly reduces the estimate: an LLM trim that fails to reduce
// falls back to the mechanical trim, which always makes progress.
func (p *Planner) fit(ctx context.Context, s *models.Script, hosts []models.Host) ([]string, error) {
	target := float64(s.TargetDurationSec)
	tol := target * p.opts.Tolerance
	current := p.estimator.EstimateScript(s)

	var warnings []string
	for iter := 0; iter < p.opts.MaxIterations; iter++ {
		if math.Abs(current-target) <= tol {
			return warnings, nil
		}
		if err := ctx.Err(); err != nil {
			return warnings, err
		}

		if current > target+tol {
			lastChance := iter == p.opts.MaxIterations-1
			p.trimOnce(ctx, s, current, target, tol, lastChance)
		} else {
			grew := p.expandOnce(ctx, s, hosts, target-current, iter)
			if !grew {
				warnings = append(warnings, "expansion produced no additional material")
				break
			}
		}
		current = p.estimator.EstimateScript(s)
	}

	if math.Abs(current-target) > tol {
		w := models.NewError(models.ErrDurationNotConverged,
			"estimated %.1fs vs target %.0fs after %d iterations", current, target, p.opts.MaxIterations)
		warnings = append(warnings, w.Error())
	}
	return warnings, nil
}

// trimOnce shortens the script. It prefers a generation call sized to the
// overshoot fraction; on the final iteration, on provider failure, or when
// the generated rewrite does not strictly reduce the estimate, it trims
// mechanically.
func (p *Planner) trimOnce(ctx context.Context, s *models.Script, current, target, tol float64, lastChance bool) {
	if !lastChance {
		overshoot := (current - target) / current
		resp, err := p.gateway.GenerateText(ctx, buildTrimPrompt(s, overshoot), "trim")
		if err == nil {
			segments := parseResponse(s.Mode, resp, s.Hosts)
			if len(segments) > 0 {
				candidate := script.Clone(s)
				candidate.Segments = nil
				ok := true
				for _, seg := range segments {
					if script.AppendSegment(candidate, seg.Speaker, seg.Text) != nil {
						ok = false
						break
					}
				}
				if ok && p.estimator.EstimateScript(candidate) < current {
					s.Segments = candidate.Segments
					return
				}
			}
		} else if ctx.Err() != nil {
			return
		}
		log.Printf("[Planner] generated trim unusable, trimming mechanically")
	}
	p.mechanicalTrim(s, target, tol)
}

// mechanicalTrim deterministically brings the script under target+tol,
// preferring the longest segment first (most duration reduction per edit)
// and dropping trailing segments only once every segment is at the floor.
func (p *Planner) mechanicalTrim(s *models.Script, target, tol float64) {
	for p.estimator.EstimateScript(s) > target+tol && len(s.Segments) > 0 {
		li := longestSegmentIndex(s)
		words := strings.Fields(s.Segments[li].Text)
		if len(words) > minSegmentWords {
			over := p.estimator.EstimateScript(s) - (target + tol)
			remove := p.estimator.WordBudget(over)
			if remove < 1 {
				remove = 1
			}
			if max := len(words) - minSegmentWords; remove > max {
				remove = max
			}
			s.Segments[li].Text = strings.Join(words[:len(words)-remove], " ")
			continue
		}
		if len(s.Segments) > 1 {
			s.Segments = s.Segments[:len(s.Segments)-1]
			continue
		}
		// A single minimal segment cannot shrink further.
		return
	}
}

func longestSegmentIndex(s *models.Script) int {
	best, bestWords := 0, -1
	for i, seg := range s.Segments {
		if n := len(strings.Fields(seg.Text)); n > bestWords {
			best, bestWords = i, n
		}
	}
	return best
}

// expandOnce appends one elaboration segment from the expansion host and
// reports whether the script grew. Provider failures end expansion quietly;
// the fit loop records the shortfall as duration_not_converged.
func (p *Planner) expandOnce(ctx context.Context, s *models.Script, hosts []models.Host, deficitSec float64, iter int) bool {
	host := expansionHost(hosts, iter)
	prompt := buildExpandPrompt(s, host, deficitSec, p.estimator)
	resp, err := p.gateway.GenerateText(ctx, prompt, "expand")
	if err != nil {
		log.Printf("[Planner] expansion call failed: %v", err)
		return false
	}
	text := script.StripSpeakerPrefix(resp, host.Name)
	if strings.TrimSpace(text) == "" {
		return false
	}
	if err := script.AppendSegment(s, host.Name, text); err != nil {
		return false
	}
	return true
}

// expansionHost prefers the host marked explanatory/expert, falling back to
// round-robin when none is configured.
func expansionHost(hosts []models.Host, iter int) models.Host {
	for _, h := range hosts {
		if h.Expert {
			return h
		}
	}
	return hosts[iter%len(hosts)]
}

func (p *Planner) generateTitle(ctx context.Context, content string) (string, error) {
	resp, err := p.gateway.GenerateText(ctx, buildTitlePrompt(content), "title")
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(resp)
	title = strings.Trim(title, `"'`)
	if title == "" {
		return "", models.NewError(models.ErrProviderRejected, "empty title response")
	}
	return title, nil
}

// fallbackTitle derives a title from the document's opening words when the
// title call fails.
func fallbackTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > 8 {
		words = words[:8]
	}
	if len(words) == 0 {
		return "Untitled Episode"
	}
	return fmt.Sprintf("Episode: %s", strings.Join(words, " "))
}
