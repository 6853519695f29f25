package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Settings carries the credentials and models the backend factories need.
// Built by the config layer; the provider package never reads the environment
// itself.
type Settings struct {
	OpenAIKey         string
	OpenRouterKey     string
	OpenRouterBaseURL string
	GeminiKey         string
	ElevenLabsKey     string
	TextModel         string
	SpeechModel       string
}

// Backends are registered by name at init time and opened by name at
// configuration time. No runtime type inspection is involved in selection.

type TextFactory func(s Settings) (TextGenerator, error)
type SpeechFactory func(s Settings) (SpeechSynthesizer, error)

var (
	regMu           sync.Mutex
	textFactories   = make(map[string]TextFactory)
	speechFactories = make(map[string]SpeechFactory)
)

// RegisterText registers a text-generation backend factory under name.
func RegisterText(name string, f TextFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := textFactories[name]; dup {
		panic(fmt.Sprintf("provider: duplicate text backend %q", name))
	}
	textFactories[name] = f
}

// RegisterSpeech registers a speech-synthesis backend factory under name.
func RegisterSpeech(name string, f SpeechFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := speechFactories[name]; dup {
		panic(fmt.Sprintf("provider: duplicate speech backend %q", name))
	}
	speechFactories[name] = f
}

// OpenText constructs the named text backend.
func OpenText(name string, s Settings) (TextGenerator, error) {
	regMu.Lock()
	f, ok := textFactories[name]
	regMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown text backend %q (available: %v)", name, textBackendNames())
	}
	return f(s)
}

// OpenSpeech constructs the named speech backend.
func OpenSpeech(name string, s Settings) (SpeechSynthesizer, error) {
	regMu.Lock()
	f, ok := speechFactories[name]
	regMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown speech backend %q (available: %v)", name, speechBackendNames())
	}
	return f(s)
}

func textBackendNames() []string {
	regMu.Lock()
	defer regMu.Unlock()
	names := make([]string, 0, len(textFactories))
	for n := range textFactories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func speechBackendNames() []string {
	regMu.Lock()
	defer regMu.Unlock()
	names := make([]string, 0, len(speechFactories))
	for n := range speechFactories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
