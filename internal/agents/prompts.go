package agents

import (
	"fmt"
	"strings"

	"github.com/podforge/podforge/internal/models"
)

func buildOutlinePrompt(req models.GenerationRequest, drafters []models.Host) string {
	var speakers []string
	for _, h := range drafters {
		speakers = append(speakers, fmt.Sprintf("%q (%s)", h.Name, h.Persona))
	}
	return fmt.Sprintf(`You are the coordinator of a podcast production team. Break the source material into an ordered outline of 3 to 5 sub-topics for a %d-second episode.

Source material:
%s

Available speakers: %s

Respond with JSON only, matching exactly:
{"entries": [{"topic": "...", "speaker": "...", "weight": 0.3}]}

Rules:
- "speaker" must be one of the available speaker names
- "weight" is the fraction of the episode the sub-topic deserves; weights should sum to 1
- Order the entries in the sequence they should be discussed`,
		req.TargetDurationSec, req.Text, strings.Join(speakers, ", "))
}

func buildDrafterPrompt(req models.GenerationRequest, entry outlineEntry, host *models.Host, wordBudget int) string {
	persona := ""
	if host != nil {
		persona = host.Persona
	}
	return fmt.Sprintf(`You are %s, a podcast host. %s

Draft your spoken contribution covering this sub-topic of the episode:
%s

Source material:
%s

Requirements:
- Roughly %d words
- Conversational spoken delivery, first person
- Respond with the spoken text only, no speaker label`,
		entry.Speaker, persona, entry.Topic, req.Text, wordBudget)
}

func buildReviewPrompt(entry outlineEntry, draft string) string {
	return fmt.Sprintf(`You are the fact-checker on a podcast production team. Review the drafted segment below for factual claims about the sub-topic %q.

Draft:
%s

If every claim is accurate, respond with the single word APPROVED.
Otherwise respond with the full corrected segment text, keeping the speaker's voice and length.`,
		entry.Topic, draft)
}

func buildMergePrompt(s *models.Script) string {
	var b strings.Builder
	for _, seg := range s.Segments {
		b.WriteString(seg.Speaker)
		b.WriteString(": ")
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	var names []string
	for _, h := range s.Hosts {
		names = append(names, h.Name)
	}
	return fmt.Sprintf(`You are the coordinator of a podcast production team. Merge the accepted segments below into one coherent episode: keep their order, lightly smooth the transitions between speakers, and do not remove any segment's substance.

Accepted segments:
%s

Respond using the format "Speaker Name: dialogue text", one line per turn, using only these speakers: %s.`,
		b.String(), strings.Join(names, ", "))
}
