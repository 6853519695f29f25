package planner

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/podforge/podforge/internal/estimate"
	"github.com/podforge/podforge/internal/models"
	"github.com/podforge/podforge/internal/script"
)

// stubGateway answers per role hint; roles without a handler fail.
type stubGateway struct {
	handlers map[string]func(prompt string) (string, error)
	calls    []string
}

func newStubGateway() *stubGateway {
	return &stubGateway{handlers: make(map[string]func(string) (string, error))}
}

func (g *stubGateway) on(role string, fn func(prompt string) (string, error)) {
	g.handlers[role] = fn
}

func (g *stubGateway) GenerateText(ctx context.Context, prompt, roleHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.calls = append(g.calls, roleHint)
	if fn, ok := g.handlers[roleHint]; ok {
		return fn(prompt)
	}
	return "", models.NewError(models.ErrProviderRejected, "no handler for role %q", roleHint)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// dualDraft builds a dual-mode script with the given per-segment word counts.
func dualDraft(t *testing.T, targetSec int, segmentWords ...int) *models.Script {
	t.Helper()
	hosts := script.DefaultHosts(models.ModeDual)
	s, err := script.New("Test Episode", models.ModeDual, targetSec, hosts)
	if err != nil {
		t.Fatalf("script.New: %v", err)
	}
	for i, n := range segmentWords {
		speaker := hosts[i%len(hosts)].Name
		if err := script.AppendSegment(s, speaker, words(n)); err != nil {
			t.Fatalf("AppendSegment: %v", err)
		}
	}
	return s
}

func TestPlanSolo(t *testing.T) {
	gw := newStubGateway()
	gw.on("title", func(string) (string, error) { return `"Fusion Explained"`, nil })
	// Two paragraphs of 73 words each estimate to ~59.4s, inside the 60s band.
	gw.on("draft", func(string) (string, error) {
		return words(73) + "\n\n" + words(73), nil
	})

	p := New(gw, estimate.Default(), nil, Options{})
	s, warnings, err := p.Plan(context.Background(), models.GenerationRequest{
		Text:              "Fusion power is approaching commercial viability.",
		Mode:              models.ModeSolo,
		TargetDurationSec: 60,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if s.Title != "Fusion Explained" {
		t.Errorf("unexpected title %q", s.Title)
	}
	if len(s.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(s.Segments))
	}
	for _, seg := range s.Segments {
		if seg.Speaker != "Alex" {
			t.Errorf("solo segment attributed to %q", seg.Speaker)
		}
	}
}

func TestPlanRejectsInvalidRequest(t *testing.T) {
	p := New(newStubGateway(), nil, nil, Options{})
	_, _, err := p.Plan(context.Background(), models.GenerationRequest{
		Text:              "",
		Mode:              models.ModeSolo,
		TargetDurationSec: 300,
	})
	if !models.IsKind(err, models.ErrInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestFitTrimsOvershoot(t *testing.T) {
	// ~402s of material against a 300s target. No trim handler is installed,
	// so the planner must fall back to the mechanical trim.
	s := dualDraft(t, 300, 200, 200, 200, 200, 200)
	p := New(newStubGateway(), estimate.Default(), nil, Options{})

	warnings, err := p.fit(context.Background(), s, s.Hosts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	got := estimate.Default().EstimateScript(s)
	if math.Abs(got-300) > 300*DefaultTolerance {
		t.Errorf("estimate %.1fs outside tolerance of 300s", got)
	}
}

func TestFitRejectsNonReducingTrim(t *testing.T) {
	s := dualDraft(t, 300, 200, 200, 200, 200, 200)
	initial := estimate.Default().EstimateScript(s)

	// The generated "trim" echoes the script unchanged. Because it does not
	// strictly reduce the estimate, the mechanical trim must take over.
	gw := newStubGateway()
	gw.on("trim", func(string) (string, error) {
		var b strings.Builder
		for _, seg := range s.Segments {
			fmt.Fprintf(&b, "%s: %s\n", seg.Speaker, seg.Text)
		}
		return b.String(), nil
	})

	p := New(gw, estimate.Default(), nil, Options{})
	if _, err := p.fit(context.Background(), s, s.Hosts); err != nil {
		t.Fatalf("fit: %v", err)
	}
	got := estimate.Default().EstimateScript(s)
	if got >= initial {
		t.Errorf("over-target iteration did not reduce the estimate: %.1f -> %.1f", initial, got)
	}
	if got > 300*(1+DefaultTolerance) {
		t.Errorf("estimate %.1fs still above tolerance band", got)
	}
}

func TestFitExpandsShortDraft(t *testing.T) {
	// ~41s of material against a 300s target.
	s := dualDraft(t, 300, 50, 50)
	gw := newStubGateway()
	gw.on("expand", func(string) (string, error) { return words(200), nil })

	p := New(gw, estimate.Default(), nil, Options{})
	warnings, err := p.fit(context.Background(), s, s.Hosts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	got := estimate.Default().EstimateScript(s)
	if math.Abs(got-300) > 300*DefaultTolerance {
		t.Errorf("estimate %.1fs outside tolerance of 300s (warnings: %v)", got, warnings)
	}
	if len(s.Segments) <= 2 {
		t.Error("expansion added no segments")
	}
	// Expansion material goes to the expert host.
	for _, seg := range s.Segments[2:] {
		if seg.Speaker != "Dr. Ada" {
			t.Errorf("expansion attributed to %q, expected the expert host", seg.Speaker)
		}
	}
}

func TestFitWarnsWhenNotConverged(t *testing.T) {
	s := dualDraft(t, 300, 50, 50)
	gw := newStubGateway()
	// Expansion produces nothing usable, so the deficit can never close.
	gw.on("expand", func(string) (string, error) { return "   ", nil })

	p := New(gw, estimate.Default(), nil, Options{})
	warnings, err := p.fit(context.Background(), s, s.Hosts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, string(models.ErrDurationNotConverged)) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a duration_not_converged warning, got %v", warnings)
	}
	if len(s.Segments) != 2 {
		t.Error("failed expansion must not drop existing segments")
	}
}

func TestExpansionHost(t *testing.T) {
	hosts := script.DefaultHosts(models.ModeDual)
	if got := expansionHost(hosts, 3); got.Name != "Dr. Ada" {
		t.Errorf("expected the expert host, got %s", got.Name)
	}

	plain := []models.Host{{Name: "A", VoiceID: "a"}, {Name: "B", VoiceID: "b"}}
	if got := expansionHost(plain, 0); got.Name != "A" {
		t.Errorf("round-robin iter 0: got %s", got.Name)
	}
	if got := expansionHost(plain, 1); got.Name != "B" {
		t.Errorf("round-robin iter 1: got %s", got.Name)
	}
}

// partialCoordinator returns a usable partial script plus the soft
// coordination error.
type partialCoordinator struct {
	strictErr bool
}

func (c *partialCoordinator) Draft(ctx context.Context, req models.GenerationRequest, hosts []models.Host) (*models.Script, error) {
	s, err := script.New(req.Title, req.Mode, req.TargetDurationSec, hosts)
	if err != nil {
		return nil, err
	}
	script.AppendSegment(s, hosts[0].Name, words(73))
	script.AppendSegment(s, hosts[1].Name, words(73))
	return s, models.NewError(models.ErrCoordinationIncomplete, "turn budget exhausted")
}

func TestPlanMultiAgentPartialDraft(t *testing.T) {
	req := models.GenerationRequest{
		Text:              "Some research text.",
		Mode:              models.ModeMultiAgent,
		TargetDurationSec: 60,
		Title:             "Partial Episode",
	}

	p := New(newStubGateway(), estimate.Default(), &partialCoordinator{}, Options{})
	s, warnings, err := p.Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("soft coordination failure should not fail the plan: %v", err)
	}
	if len(s.Segments) != 2 {
		t.Errorf("partial segments dropped: %d", len(s.Segments))
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, string(models.ErrCoordinationIncomplete)) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a coordination_incomplete warning, got %v", warnings)
	}

	strict := New(newStubGateway(), estimate.Default(), &partialCoordinator{}, Options{CoordinationStrict: true})
	if _, _, err := strict.Plan(context.Background(), req); !models.IsKind(err, models.ErrCoordinationIncomplete) {
		t.Errorf("strict mode should fail, got %v", err)
	}
}

func TestFallbackTitle(t *testing.T) {
	if got := fallbackTitle("quantum batteries store energy in excited states of matter"); !strings.HasPrefix(got, "Episode: quantum batteries") {
		t.Errorf("unexpected fallback title %q", got)
	}
	if got := fallbackTitle("   "); got != "Untitled Episode" {
		t.Errorf("unexpected empty-input title %q", got)
	}
}
