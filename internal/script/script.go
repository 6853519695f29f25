package script

import (
	"strings"
	"time"

	"github.com/podforge/podforge/internal/models"
)

// New constructs an empty Script, validating the host set: at least one host,
// unique names, non-empty voice identifiers. An unresolved voice reference is
// a validation error here, never a synthesis-time failure.
func New(title string, mode models.Mode, targetDurationSec int, hosts []models.Host) (*models.Script, error) {
	if len(hosts) == 0 {
		return nil, models.NewError(models.ErrInvalidRequest, "script requires at least one host")
	}
	seen := make(map[string]bool, len(hosts))
	for i, h := range hosts {
		if strings.TrimSpace(h.Name) == "" {
			return nil, models.NewError(models.ErrInvalidRequest, "hosts[%d]: name is required", i)
		}
		if seen[h.Name] {
			return nil, models.NewError(models.ErrInvalidRequest, "hosts[%d]: duplicate host %q", i, h.Name)
		}
		if strings.TrimSpace(h.VoiceID) == "" {
			return nil, models.NewError(models.ErrInvalidRequest, "hosts[%d]: host %q has no voice assigned", i, h.Name)
		}
		seen[h.Name] = true
	}
	return &models.Script{
		Title:             title,
		Mode:              mode,
		TargetDurationSec: targetDurationSec,
		CreatedAt:         time.Now().UTC(),
		Hosts:             hosts,
	}, nil
}

// AppendSegment appends a spoken line, enforcing the script invariants:
// the speaker must match a declared host and the body must be non-empty.
func AppendSegment(s *models.Script, speaker, text string) error {
	if s.HostByName(speaker) == nil {
		return models.NewError(models.ErrInvalidRequest, "segment speaker %q matches no host", speaker)
	}
	if strings.TrimSpace(text) == "" {
		return models.NewError(models.ErrInvalidRequest, "segment body for %q is empty", speaker)
	}
	s.Segments = append(s.Segments, models.Segment{Speaker: speaker, Text: text})
	return nil
}

// Validate re-checks every invariant on a fully built script. Used before
// handing a script to synthesis and after parsing an external document.
func Validate(s *models.Script) error {
	if len(s.Hosts) == 0 {
		return models.NewError(models.ErrInvalidRequest, "script has no hosts")
	}
	for i, h := range s.Hosts {
		if strings.TrimSpace(h.VoiceID) == "" {
			return models.NewError(models.ErrInvalidRequest, "host %q has no voice assigned", h.Name).
				WithLocator("hosts[%d]", i)
		}
	}
	for i, seg := range s.Segments {
		if s.HostByName(seg.Speaker) == nil {
			return models.NewError(models.ErrInvalidRequest, "segment speaker %q matches no host", seg.Speaker).
				WithLocator("segments[%d]", i)
		}
		if strings.TrimSpace(seg.Text) == "" {
			return models.NewError(models.ErrInvalidRequest, "segment body is empty").
				WithLocator("segments[%d]", i)
		}
	}
	return nil
}

// Clone returns a deep copy. The planner mutates drafts freely; everything
// handed to synthesis is a snapshot.
func Clone(s *models.Script) *models.Script {
	out := *s
	out.Hosts = append([]models.Host(nil), s.Hosts...)
	out.Segments = append([]models.Segment(nil), s.Segments...)
	return &out
}
