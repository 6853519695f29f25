package estimate

import (
	"math"
	"strings"
	"testing"

	"github.com/podforge/podforge/internal/models"
)

func TestEstimateSpeakingRate(t *testing.T) {
	e := Default()

	// 150 words at 150 wpm is one minute, plus the segment pause.
	text := strings.TrimSpace(strings.Repeat("word ", 150))
	got := e.Estimate(text)
	want := 60.0 + DefaultSegmentPauseSec
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.2fs, got %.2fs", want, got)
	}
}

func TestEstimateDeterministic(t *testing.T) {
	e := Default()
	text := "The same text must always produce the same estimate."
	if e.Estimate(text) != e.Estimate(text) {
		t.Error("estimate is not deterministic")
	}
}

func TestEstimateMonotonic(t *testing.T) {
	e := Default()
	short := strings.Repeat("word ", 10)
	long := strings.Repeat("word ", 50)
	if e.Estimate(long) <= e.Estimate(short) {
		t.Error("longer text should estimate longer")
	}
}

func TestEstimateScriptSumsAndCaches(t *testing.T) {
	e := Default()
	s := &models.Script{
		Segments: []models.Segment{
			{Speaker: "A", Text: strings.TrimSpace(strings.Repeat("word ", 30))},
			{Speaker: "B", Text: strings.TrimSpace(strings.Repeat("word ", 45))},
		},
	}

	total := e.EstimateScript(s)
	sum := 0.0
	for i, seg := range s.Segments {
		if seg.EstimatedSec <= 0 {
			t.Errorf("segment %d estimate cache not filled", i)
		}
		sum += seg.EstimatedSec
	}
	if math.Abs(total-sum) > 1e-9 {
		t.Errorf("total %.3f does not match per-segment sum %.3f", total, sum)
	}
}

func TestWordBudget(t *testing.T) {
	e := Default()
	if got := e.WordBudget(60); got != 150 {
		t.Errorf("expected 150 words for 60s, got %d", got)
	}
	if got := e.WordBudget(0); got != 0 {
		t.Errorf("expected 0 words for 0s, got %d", got)
	}
	if got := e.WordBudget(-5); got != 0 {
		t.Errorf("expected 0 words for negative duration, got %d", got)
	}
}

func TestNewFallsBackToDefaults(t *testing.T) {
	e := New(0, -1)
	if e.wordsPerMinute != DefaultWordsPerMinute {
		t.Errorf("expected default wpm, got %v", e.wordsPerMinute)
	}
	if e.segmentPauseSec != DefaultSegmentPauseSec {
		t.Errorf("expected default pause, got %v", e.segmentPauseSec)
	}
}
