package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/podforge/podforge/internal/estimate"
	"github.com/podforge/podforge/internal/models"
	"github.com/podforge/podforge/internal/script"
)

// ---------------------------------------------------------------------------
// Multi-agent coordinator. One coordinator role owns the outline and the
// final merge; drafter roles produce candidate text per sub-topic; an
// optional fact-checker role reviews each drafted segment before acceptance.
// Turns run strictly sequentially within one job: later turns depend on
// earlier output.
// ---------------------------------------------------------------------------

// Role names used for turn accounting and usage reporting.
const (
	RoleCoordinator = "coordinator"
	RoleDrafter     = "drafter"
	RoleFactChecker = "fact-checker"
)

// TextGateway is the slice of the provider gateway the coordinator needs.
type TextGateway interface {
	GenerateText(ctx context.Context, prompt, roleHint string) (string, error)
}

// Coordinator runs the bounded turn-taking protocol.
type Coordinator struct {
	gateway   TextGateway
	estimator *estimate.Estimator
}

func New(gateway TextGateway, estimator *estimate.Estimator) *Coordinator {
	if estimator == nil {
		estimator = estimate.Default()
	}
	return &Coordinator{gateway: gateway, estimator: estimator}
}

// outlineEntry is one sub-topic the coordinator assigns to a drafter.
type outlineEntry struct {
	Topic   string  `json:"topic"`
	Speaker string  `json:"speaker"`
	Weight  float64 `json:"weight"`
}

type outline struct {
	Entries []outlineEntry `json:"entries"`
}

// Draft produces a draft script via the coordination protocol. When the turn
// budget (2 x outline entries + 2) runs out before the merge completes, Draft
// returns the partial script built from every accepted segment together with
// a coordination_incomplete error; accepted segments are never dropped.
func (c *Coordinator) Draft(ctx context.Context, req models.GenerationRequest, hosts []models.Host) (*models.Script, error) {
	s, err := script.New(req.Title, req.Mode, req.TargetDurationSec, hosts)
	if err != nil {
		return nil, err
	}

	checker := factChecker(hosts)
	drafters := drafterHosts(hosts, checker)
	if len(drafters) == 0 {
		return nil, models.NewError(models.ErrInvalidRequest, "multi-agent mode requires at least one drafting host")
	}

	var turns []models.AgentTurn
	takeTurn := func(role, prompt string) (string, error) {
		out, err := c.gateway.GenerateText(ctx, prompt, role)
		if err != nil {
			return "", err
		}
		turns = append(turns, models.AgentTurn{Role: role, Index: len(turns), Input: prompt, Output: out})
		return out, nil
	}

	// Turn 1: the coordinator produces the outline.
	outlineResp, err := takeTurn(RoleCoordinator, buildOutlinePrompt(req, drafters))
	if err != nil {
		return nil, err
	}
	entries, err := parseOutline(outlineResp, drafters)
	if err != nil {
		return nil, err
	}

	budget := 2*len(entries) + 2
	log.Printf("[Coordinator] outline: %d sub-topics, turn budget %d (fact-checker: %v)",
		len(entries), budget, checker != nil)

	incomplete := func(reason string) error {
		return models.NewError(models.ErrCoordinationIncomplete,
			"turn budget %d exhausted %s (%d segments accepted)", budget, reason, len(s.Segments))
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		if len(turns) >= budget {
			return s, incomplete(fmt.Sprintf("before drafting sub-topic %d", i+1))
		}
		wordBudget := c.estimator.WordBudget(entry.Weight * float64(req.TargetDurationSec))
		draft, err := takeTurn(RoleDrafter, buildDrafterPrompt(req, entry, hostByName(hosts, entry.Speaker), wordBudget))
		if err != nil {
			return s, err
		}
		text := script.StripSpeakerPrefix(draft, entry.Speaker)

		if checker != nil {
			if len(turns) >= budget {
				return s, incomplete(fmt.Sprintf("before reviewing sub-topic %d", i+1))
			}
			review, err := takeTurn(RoleFactChecker, buildReviewPrompt(entry, text))
			if err != nil {
				return s, err
			}
			if amended, changed := parseReview(review); changed {
				text = amended
			}
		}

		if err := script.AppendSegment(s, entry.Speaker, text); err != nil {
			return s, err
		}
	}

	// Final merge turn: the coordinator orders the accepted segments and
	// smooths transitions. Ordering authority stays with the coordinator,
	// but an unusable merge never discards accepted segments.
	if len(turns) >= budget {
		return s, incomplete("before the merge turn")
	}
	mergeResp, err := takeTurn(RoleCoordinator, buildMergePrompt(s))
	if err != nil {
		return s, err
	}
	if merged := script.ParseDialogue(mergeResp, hosts); len(merged) > 0 {
		candidate := script.Clone(s)
		candidate.Segments = nil
		ok := true
		for _, seg := range merged {
			if script.AppendSegment(candidate, seg.Speaker, seg.Text) != nil {
				ok = false
				break
			}
		}
		if ok {
			s.Segments = candidate.Segments
		}
	}

	log.Printf("[Coordinator] draft complete: %d segments in %d turns", len(s.Segments), len(turns))
	return s, nil
}

// parseOutline decodes the coordinator's JSON outline, normalizing weights
// and mapping unknown speakers onto the drafter set round-robin.
func parseOutline(response string, drafters []models.Host) ([]outlineEntry, error) {
	raw := extractJSON(response)
	var o outline
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		log.Printf("[Coordinator] outline parse failed: %v", err)
		return nil, models.WrapError(models.ErrCoordinationIncomplete, err, "coordinator outline is not valid JSON")
	}
	if len(o.Entries) == 0 {
		return nil, models.NewError(models.ErrCoordinationIncomplete, "coordinator outline has no entries")
	}

	total := 0.0
	for i := range o.Entries {
		if strings.TrimSpace(o.Entries[i].Topic) == "" {
			return nil, models.NewError(models.ErrCoordinationIncomplete, "outline entry %d has no topic", i)
		}
		if hostByName(drafters, o.Entries[i].Speaker) == nil {
			o.Entries[i].Speaker = drafters[i%len(drafters)].Name
		}
		if o.Entries[i].Weight <= 0 {
			o.Entries[i].Weight = 1
		}
		total += o.Entries[i].Weight
	}
	for i := range o.Entries {
		o.Entries[i].Weight /= total
	}
	return o.Entries, nil
}

// parseReview interprets a fact-checker response: "APPROVED" keeps the draft,
// anything else is the amended text.
func parseReview(response string) (amended string, changed bool) {
	trimmed := strings.TrimSpace(response)
	if strings.EqualFold(trimmed, "APPROVED") ||
		strings.HasPrefix(strings.ToUpper(trimmed), "APPROVED") && len(trimmed) < 24 {
		return "", false
	}
	return trimmed, true
}

// extractJSON strips markdown code fences some models wrap JSON in.
func extractJSON(s string) string {
	trimmed := strings.TrimSpace(s)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return trimmed[start : end+1]
		}
	}
	return trimmed
}

// factChecker returns the host configured for the fact-checker role, or nil.
func factChecker(hosts []models.Host) *models.Host {
	for i := range hosts {
		if strings.Contains(strings.ToLower(hosts[i].Persona), "fact-check") {
			return &hosts[i]
		}
	}
	return nil
}

// drafterHosts are all hosts except the fact-checker.
func drafterHosts(hosts []models.Host, checker *models.Host) []models.Host {
	var out []models.Host
	for _, h := range hosts {
		if checker != nil && h.Name == checker.Name {
			continue
		}
		out = append(out, h)
	}
	return out
}

func hostByName(hosts []models.Host, name string) *models.Host {
	for i := range hosts {
		if hosts[i].Name == name {
			return &hosts[i]
		}
	}
	return nil
}
