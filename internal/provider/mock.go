package provider

import (
	"context"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Mock backends for tests and MOCK_MODE runs. Deterministic: a mock text
// generator produces dialogue sized to the requested word budget, and the
// mock synthesizer returns bytes proportional to text length at the mock
// bitrate. No network access.
// ---------------------------------------------------------------------------

const (
	// MockBytesPerWord is the synthetic audio payload per word.
	MockBytesPerWord = 64
)

func init() {
	RegisterText("mock", func(Settings) (TextGenerator, error) {
		return NewMockText(), nil
	})
	RegisterSpeech("mock", func(Settings) (SpeechSynthesizer, error) {
		return NewMockSpeech(), nil
	})
}

// MockText fabricates plausible output per role hint. Tests can override
// individual roles with Respond.
type MockText struct {
	handlers map[string]func(prompt string) (string, error)
}

func NewMockText() *MockText {
	return &MockText{handlers: make(map[string]func(string) (string, error))}
}

// Respond installs a canned handler for one role hint.
func (m *MockText) Respond(roleHint string, fn func(prompt string) (string, error)) {
	m.handlers[roleHint] = fn
}

func (m *MockText) Name() string { return "mock" }

func (m *MockText) Generate(ctx context.Context, prompt, roleHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn, ok := m.handlers[roleHint]; ok {
		return fn(prompt)
	}
	switch roleHint {
	case "title":
		return "A Mock Episode About Everything", nil
	default:
		// A paragraph of filler roughly 60 words long.
		return strings.TrimSpace(strings.Repeat("This sentence stands in for generated narration text. ", 8)), nil
	}
}

// MockSpeech returns deterministic pseudo-audio sized by word count.
type MockSpeech struct{}

func NewMockSpeech() *MockSpeech { return &MockSpeech{} }

func (m *MockSpeech) Name() string { return "mock" }

func (m *MockSpeech) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	header := fmt.Sprintf("MOCKAUDIO:%s:", voiceID)
	buf := make([]byte, 0, len(header)+words*MockBytesPerWord)
	buf = append(buf, header...)
	for len(buf) < words*MockBytesPerWord {
		buf = append(buf, 0x55)
	}
	return buf, nil
}
