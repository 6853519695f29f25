package script

import (
	"strings"

	"github.com/podforge/podforge/internal/models"
)

// Parsing helpers for the "Speaker Name: text" dialogue format that
// generation backends are instructed to produce.

// ParseNarration splits solo narration into paragraph segments attributed to
// one speaker.
func ParseNarration(response, speaker string) []models.Segment {
	var segments []models.Segment
	for _, para := range strings.Split(response, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		segments = append(segments, models.Segment{Speaker: speaker, Text: para})
	}
	return segments
}

// ParseDialogue parses "Speaker Name: text" formatted conversation.
// Unprefixed lines continue the current speaker's segment; lines before the
// first recognized speaker are dropped.
func ParseDialogue(response string, hosts []models.Host) []models.Segment {
	var segments []models.Segment
	var currentSpeaker string
	var currentText []string

	flush := func() {
		if currentSpeaker != "" && len(currentText) > 0 {
			segments = append(segments, models.Segment{
				Speaker: currentSpeaker,
				Text:    strings.Join(currentText, " "),
			})
		}
		currentText = nil
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if name, rest, ok := matchSpeaker(line, hosts); ok {
			flush()
			currentSpeaker = name
			if rest != "" {
				currentText = []string{rest}
			}
			continue
		}
		if currentSpeaker != "" {
			currentText = append(currentText, line)
		}
	}
	flush()
	return segments
}

// matchSpeaker checks whether a line starts with a known host name followed
// by a colon, tolerating markdown emphasis around the name.
func matchSpeaker(line string, hosts []models.Host) (name, rest string, ok bool) {
	trimmed := strings.TrimLeft(line, "*_ ")
	for _, h := range hosts {
		prefix := h.Name + ":"
		if strings.HasPrefix(trimmed, prefix) {
			rest = strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
			rest = strings.TrimLeft(rest, "*_ ")
			return h.Name, rest, true
		}
	}
	return "", "", false
}

// StripSpeakerPrefix removes a leading "Name:" label a model sometimes adds
// despite instructions.
func StripSpeakerPrefix(text, name string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, name+":") {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, name+":"))
	}
	return trimmed
}
