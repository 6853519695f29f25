package estimate

import (
	"strings"

	"github.com/podforge/podforge/internal/models"
)

// Defaults for the speaking-rate model.
const (
	DefaultWordsPerMinute  = 150.0
	DefaultSegmentPauseSec = 0.5
)

// Estimator maps text to an estimated spoken duration using a speaking-rate
// model. It is a model, not a measurement: deterministic and side-effect-free
// so the planner's convergence loop is reproducible without invoking synthesis.
type Estimator struct {
	wordsPerMinute  float64
	segmentPauseSec float64
}

// New returns an estimator with the given speaking rate and per-segment pause
// allowance. Non-positive arguments fall back to the defaults.
func New(wordsPerMinute, segmentPauseSec float64) *Estimator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	if segmentPauseSec < 0 {
		segmentPauseSec = DefaultSegmentPauseSec
	}
	return &Estimator{wordsPerMinute: wordsPerMinute, segmentPauseSec: segmentPauseSec}
}

// Default returns an estimator with the standard 150 wpm / 0.5s pause model.
func Default() *Estimator {
	return New(DefaultWordsPerMinute, DefaultSegmentPauseSec)
}

// Estimate returns the estimated spoken duration of one segment's text in
// seconds, including the fixed turn-taking pause allowance.
func (e *Estimator) Estimate(text string) float64 {
	words := float64(len(strings.Fields(text)))
	return words/e.wordsPerMinute*60.0 + e.segmentPauseSec
}

// EstimateScript sums per-segment estimates and fills each segment's
// EstimatedSec cache.
func (e *Estimator) EstimateScript(s *models.Script) float64 {
	total := 0.0
	for i := range s.Segments {
		d := e.Estimate(s.Segments[i].Text)
		s.Segments[i].EstimatedSec = d
		total += d
	}
	return total
}

// WordBudget converts a duration in seconds to the word count the speaking
// rate model predicts for it, net of per-segment pauses.
func (e *Estimator) WordBudget(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(seconds * e.wordsPerMinute / 60.0)
}
