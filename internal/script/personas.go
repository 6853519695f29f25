package script

import "github.com/podforge/podforge/internal/models"

// Default persona templates per mode. Voice identifiers are opaque references
// resolved by the configured synthesis backend; deployments override them via
// the request's host list.

func soloHosts() []models.Host {
	return []models.Host{
		{
			Name:    "Alex",
			Persona: "Single narrator with news-reader style delivery",
			VoiceID: "en-US-Standard-A",
		},
	}
}

func dualHosts() []models.Host {
	return []models.Host{
		{
			Name:    "Dr. Ada",
			Persona: "Expert host — friendly, concise, knowledgeable",
			VoiceID: "en-US-Standard-A",
			Expert:  true,
		},
		{
			Name:    "Ben",
			Persona: "Curious co-host — asks clarifying questions, represents the audience",
			VoiceID: "en-US-Standard-B",
		},
	}
}

func multiAgentHosts() []models.Host {
	return []models.Host{
		{
			Name:    "Dr. Ada",
			Persona: "Expert host — friendly, concise, knowledgeable",
			VoiceID: "en-US-Standard-A",
			Expert:  true,
		},
		{
			Name:    "Ben",
			Persona: "Curious co-host — asks clarifying questions",
			VoiceID: "en-US-Standard-B",
		},
		{
			Name:    "Chloe",
			Persona: "Fact-checker — provides additional context and verification",
			VoiceID: "en-US-Standard-C",
		},
	}
}

// DefaultHosts returns the persona template for a mode. Callers get a fresh
// slice each time; mutating it never affects the templates.
func DefaultHosts(mode models.Mode) []models.Host {
	switch mode {
	case models.ModeSolo:
		return soloHosts()
	case models.ModeDual:
		return dualHosts()
	case models.ModeMultiAgent:
		return multiAgentHosts()
	default:
		return nil
	}
}
