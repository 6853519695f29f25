package planner

import (
	"github.com/podforge/podforge/internal/models"
	"github.com/podforge/podforge/internal/script"
)

// parseResponse converts a generation response into segments for the mode.
// Dialogue responses that contain no recognizable speaker lines degrade to
// narration attributed to the first host, so a sloppy model answer still
// yields a usable draft.
func parseResponse(mode models.Mode, response string, hosts []models.Host) []models.Segment {
	if mode == models.ModeSolo {
		return script.ParseNarration(response, hosts[0].Name)
	}
	segments := script.ParseDialogue(response, hosts)
	if len(segments) == 0 {
		segments = script.ParseNarration(response, hosts[0].Name)
	}
	return segments
}
