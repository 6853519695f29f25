package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/podforge/podforge/internal/models"
)

// ---------------------------------------------------------------------------
// Gemini backends via the Google Gen AI SDK: a text-generation backend and a
// speech-synthesis backend using the native audio output modality.
// ---------------------------------------------------------------------------

const (
	geminiDefaultTextModel   = "gemini-2.0-flash"
	geminiDefaultSpeechModel = "gemini-2.5-flash-preview-tts"
)

func init() {
	RegisterText("gemini", func(s Settings) (TextGenerator, error) {
		if s.GeminiKey == "" {
			return nil, fmt.Errorf("gemini backend requires GEMINI_API_KEY")
		}
		model := s.TextModel
		if model == "" {
			model = geminiDefaultTextModel
		}
		return &GeminiText{apiKey: s.GeminiKey, model: model}, nil
	})

	RegisterSpeech("gemini", func(s Settings) (SpeechSynthesizer, error) {
		if s.GeminiKey == "" {
			return nil, fmt.Errorf("gemini speech backend requires GEMINI_API_KEY")
		}
		model := s.SpeechModel
		if model == "" {
			model = geminiDefaultSpeechModel
		}
		return &GeminiSpeech{apiKey: s.GeminiKey, model: model}, nil
	})
}

// GeminiText generates text via the Gemini API.
type GeminiText struct {
	apiKey string
	model  string
}

func (t *GeminiText) Name() string { return "gemini" }

func (t *GeminiText) Generate(ctx context.Context, prompt, roleHint string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  t.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", models.WrapError(models.ErrProviderUnavailable, err, "failed to create genai client")
	}

	full := prompt
	if roleHint != "" {
		full = fmt.Sprintf("Role: %s.\n\n%s", roleHint, prompt)
	}
	resp, err := client.Models.GenerateContent(ctx, t.model, genai.Text(full), nil)
	if err != nil {
		return "", classifyGeminiErr(err)
	}
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", models.NewError(models.ErrProviderUnavailable, "gemini returned empty content")
	}
	log.Printf("[gemini] generated %d chars (role=%s, model=%s)", len(content), roleHint, t.model)
	return content, nil
}

// GeminiSpeech synthesizes speech via Gemini's audio response modality.
type GeminiSpeech struct {
	apiKey string
	model  string
}

func (g *GeminiSpeech) Name() string { return "gemini" }

func (g *GeminiSpeech) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, models.WrapError(models.ErrProviderUnavailable, err, "failed to create genai client")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceID},
			},
		},
	}
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, classifyGeminiErr(err)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("[gemini] synthesized %d bytes (voice=%s)", len(part.InlineData.Data), voiceID)
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, models.NewError(models.ErrProviderUnavailable, "gemini returned no audio data")
}

func classifyGeminiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429, apiErr.Code >= 500:
			return models.WrapError(models.ErrProviderUnavailable, err, "gemini throttled or upstream error")
		default:
			return models.WrapError(models.ErrProviderRejected, err, "gemini rejected request")
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return models.WrapError(models.ErrProviderUnavailable, err, "gemini request failed")
}
