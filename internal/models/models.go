package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Enums

type Mode string

const (
	ModeSolo       Mode = "solo"
	ModeDual       Mode = "dual"
	ModeMultiAgent Mode = "multi-agent"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeSolo, ModeDual, ModeMultiAgent:
		return true
	}
	return false
}

type JobState string

const (
	JobStatePending      JobState = "pending"
	JobStatePlanning     JobState = "planning"
	JobStateSynthesizing JobState = "synthesizing"
	JobStateAssembling   JobState = "assembling"
	JobStateReady        JobState = "ready"
	JobStateFailed       JobState = "failed"
	JobStateCancelled    JobState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateReady || s == JobStateFailed || s == JobStateCancelled
}

// Target duration bounds for a GenerationRequest, in seconds.
const (
	MinTargetDurationSec = 60
	MaxTargetDurationSec = 600
)

// Models

// Host is a named speaking persona with an assigned synthesis voice.
type Host struct {
	Name    string `json:"name" yaml:"name"`
	Persona string `json:"persona" yaml:"persona"`
	VoiceID string `json:"voice_id" yaml:"voice_id"`
	// Expert marks the host preferred for expansion segments during
	// duration fitting.
	Expert bool `json:"expert,omitempty" yaml:"expert,omitempty"`
}

// Segment is one contiguous spoken line attributed to a single host.
// Order within a Script defines playback order.
type Segment struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Text    string `json:"text" yaml:"text"`
	// EstimatedSec caches the estimator's output for this segment.
	// Zero means "not yet estimated". Never serialized.
	EstimatedSec float64 `json:"estimated_sec,omitempty" yaml:"-"`
}

// Script is an ordered sequence of Segments plus the hosts that speak them.
type Script struct {
	Title             string    `json:"title"`
	Mode              Mode      `json:"mode"`
	TargetDurationSec int       `json:"target_duration_sec"`
	CreatedAt         time.Time `json:"created_at"`
	Hosts             []Host    `json:"hosts"`
	Segments          []Segment `json:"segments"`
}

// HostByName returns the host with the given name, or nil.
func (s *Script) HostByName(name string) *Host {
	for i := range s.Hosts {
		if s.Hosts[i].Name == name {
			return &s.Hosts[i]
		}
	}
	return nil
}

// WordCount counts words across all segments.
func (s *Script) WordCount() int {
	total := 0
	for _, seg := range s.Segments {
		total += len(strings.Fields(seg.Text))
	}
	return total
}

// GenerationRequest is the immutable input to one generation job.
type GenerationRequest struct {
	Text              string `json:"text"`
	Mode              Mode   `json:"mode"`
	TargetDurationSec int    `json:"target_duration_sec"`
	Title             string `json:"title,omitempty"`
	// Hosts optionally overrides the default persona templates for the mode,
	// including explicit voice assignments.
	Hosts []Host `json:"hosts,omitempty"`
}

// Validate checks the request preconditions. Violations are the caller's
// fault and surface as invalid_request.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return NewError(ErrInvalidRequest, "text is required")
	}
	if !r.Mode.Valid() {
		return NewError(ErrInvalidRequest, "unsupported mode %q", r.Mode)
	}
	if r.TargetDurationSec < MinTargetDurationSec || r.TargetDurationSec > MaxTargetDurationSec {
		return NewError(ErrInvalidRequest, "target duration %ds outside [%d,%d]",
			r.TargetDurationSec, MinTargetDurationSec, MaxTargetDurationSec)
	}
	seen := make(map[string]bool, len(r.Hosts))
	for i, h := range r.Hosts {
		if strings.TrimSpace(h.Name) == "" {
			return NewError(ErrInvalidRequest, "hosts[%d]: name is required", i)
		}
		if seen[h.Name] {
			return NewError(ErrInvalidRequest, "hosts[%d]: duplicate host %q", i, h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}

// AgentTurn is one role's contribution during multi-agent coordination.
// Ephemeral: kept only for debug logging, discarded after the merge.
type AgentTurn struct {
	Role   string `json:"role"`
	Index  int    `json:"index"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// JobEvent is one entry in a job's strictly ordered progress stream.
// Seq increases by one per event; consumers can resume from any sequence
// number without re-deriving ordering.
type JobEvent struct {
	Seq      int       `json:"seq"`
	State    JobState  `json:"state"`
	Progress float64   `json:"progress"`
	Time     time.Time `json:"time"`
}

// JobStatus is the externally visible snapshot of a job.
type JobStatus struct {
	ID                   uuid.UUID `json:"id"`
	State                JobState  `json:"state"`
	Progress             float64   `json:"progress"`
	Error                *Error    `json:"error,omitempty"`
	Warnings             []string  `json:"warnings,omitempty"`
	EstimatedDurationSec float64   `json:"estimated_duration_sec,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DTOs for API responses

type CreateEpisodeResponse struct {
	JobID uuid.UUID `json:"job_id"`
	State JobState  `json:"state"`
}
