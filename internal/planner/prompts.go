package planner

import (
	"fmt"
	"strings"

	"github.com/podforge/podforge/internal/estimate"
	"github.com/podforge/podforge/internal/models"
)

func buildTitlePrompt(content string) string {
	summary := content
	if len(summary) > 500 {
		summary = summary[:500] + "..."
	}
	return fmt.Sprintf(`You are a podcast title generator. Create an engaging, concise title for a podcast episode based on this content.

Content summary:
%s

Requirements:
- Maximum 8 words
- Engaging and descriptive
- Suitable for a general audience
- No quotation marks in response

Title:`, summary)
}

func buildSoloPrompt(content string, host models.Host, targetSec int, est *estimate.Estimator) string {
	targetWords := est.WordBudget(float64(targetSec))
	return fmt.Sprintf(`You are %s, a podcast host. %s

Transform this content into an engaging %d-second solo podcast narration.

Content:
%s

Requirements:
- Conversational, engaging tone
- Approximately %d words
- Break into natural paragraphs for pacing
- Include smooth transitions
- Make complex topics accessible
- No speaker labels needed (solo narration)

Begin the narration:`, host.Name, host.Persona, targetSec, content, targetWords)
}

func buildDialoguePrompt(content string, hosts []models.Host, targetSec int, est *estimate.Estimator) string {
	targetWords := est.WordBudget(float64(targetSec))
	var descriptions []string
	for _, h := range hosts {
		descriptions = append(descriptions, fmt.Sprintf("%s: %s", h.Name, h.Persona))
	}
	return fmt.Sprintf(`You are creating a %d-second podcast conversation between these hosts:

%s

Transform this content into a natural conversation:

%s

Requirements:
- Approximately %d words total
- Natural back-and-forth dialogue
- Each speaker should have multiple turns
- Use format: "Speaker Name: dialogue text"
- Include questions, explanations, and reactions
- Make complex topics accessible through conversation
- Maintain engaging pace and flow

Begin the conversation:`, targetSec, strings.Join(descriptions, "\n"), content, targetWords)
}

func buildTrimPrompt(s *models.Script, overshoot float64) string {
	return fmt.Sprintf(`The following podcast script runs about %.0f%% too long. Rewrite it so it is shorter by roughly that amount while preserving the flow and every speaker's voice. Cut the longest passages first. Keep the format "Speaker Name: dialogue text", one line per turn, using only these speakers: %s.

Script:
%s

Rewritten shorter script:`, overshoot*100, hostNames(s.Hosts), renderDialogue(s))
}

func buildExpandPrompt(s *models.Script, host models.Host, deficitSec float64, est *estimate.Estimator) string {
	return fmt.Sprintf(`The following podcast script runs about %.0f seconds short. As %s (%s), add one new closing contribution of roughly %d words that elaborates on the discussion so far. Respond with the spoken text only, no speaker label.

Script so far:
%s

Additional contribution:`, deficitSec, host.Name, host.Persona, est.WordBudget(deficitSec), renderDialogue(s))
}

func hostNames(hosts []models.Host) string {
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Name
	}
	return strings.Join(names, ", ")
}

// renderDialogue flattens a script into "Speaker: text" lines for prompts.
func renderDialogue(s *models.Script) string {
	var b strings.Builder
	for _, seg := range s.Segments {
		b.WriteString(seg.Speaker)
		b.WriteString(": ")
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return b.String()
}
