package script

import (
	"testing"

	"github.com/podforge/podforge/internal/models"
)

func testHosts() []models.Host {
	return []models.Host{
		{Name: "Dr. Ada", Persona: "expert", VoiceID: "voice-a", Expert: true},
		{Name: "Ben", Persona: "co-host", VoiceID: "voice-b"},
	}
}

func TestNewRejectsMissingVoice(t *testing.T) {
	hosts := testHosts()
	hosts[1].VoiceID = ""
	_, err := New("t", models.ModeDual, 300, hosts)
	if !models.IsKind(err, models.ErrInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestNewRejectsDuplicateHosts(t *testing.T) {
	hosts := testHosts()
	hosts[1].Name = hosts[0].Name
	_, err := New("t", models.ModeDual, 300, hosts)
	if !models.IsKind(err, models.ErrInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestAppendSegmentUnknownSpeaker(t *testing.T) {
	s, err := New("t", models.ModeDual, 300, testHosts())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := AppendSegment(s, "Stranger", "hello"); !models.IsKind(err, models.ErrInvalidRequest) {
		t.Errorf("expected invalid_request, got %v", err)
	}
	if len(s.Segments) != 0 {
		t.Error("rejected segment was appended")
	}
}

func TestAppendSegmentEmptyBody(t *testing.T) {
	s, _ := New("t", models.ModeDual, 300, testHosts())
	if err := AppendSegment(s, "Ben", "  \n "); !models.IsKind(err, models.ErrInvalidRequest) {
		t.Errorf("expected invalid_request, got %v", err)
	}
}

func TestValidateLocatesBadSegment(t *testing.T) {
	s, _ := New("t", models.ModeDual, 300, testHosts())
	if err := AppendSegment(s, "Ben", "fine"); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}
	s.Segments = append(s.Segments, models.Segment{Speaker: "Ghost", Text: "boo"})

	err := Validate(s)
	if err == nil {
		t.Fatal("expected validation error")
	}
	me := models.AsError(err, models.ErrInvalidRequest)
	if me.Locator != "segments[1]" {
		t.Errorf("expected locator segments[1], got %q", me.Locator)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s, _ := New("t", models.ModeDual, 300, testHosts())
	AppendSegment(s, "Ben", "original")

	c := Clone(s)
	c.Segments[0].Text = "mutated"
	c.Hosts[0].VoiceID = "other"

	if s.Segments[0].Text != "original" {
		t.Error("clone shares segment storage")
	}
	if s.Hosts[0].VoiceID != "voice-a" {
		t.Error("clone shares host storage")
	}
}

func TestDefaultHosts(t *testing.T) {
	solo := DefaultHosts(models.ModeSolo)
	if len(solo) != 1 {
		t.Fatalf("expected 1 solo host, got %d", len(solo))
	}

	dual := DefaultHosts(models.ModeDual)
	if len(dual) != 2 {
		t.Fatalf("expected 2 dual hosts, got %d", len(dual))
	}
	if !dual[0].Expert {
		t.Error("dual mode should mark an expert host")
	}

	multi := DefaultHosts(models.ModeMultiAgent)
	if len(multi) != 3 {
		t.Fatalf("expected 3 multi-agent hosts, got %d", len(multi))
	}
	voices := map[string]bool{}
	for _, h := range multi {
		if h.VoiceID == "" {
			t.Errorf("host %s has no voice", h.Name)
		}
		voices[h.VoiceID] = true
	}
	if len(voices) != 3 {
		t.Error("multi-agent hosts should have distinct voices")
	}

	if DefaultHosts("nope") != nil {
		t.Error("unknown mode should have no template")
	}
}
