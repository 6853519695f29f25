package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/podforge/podforge/internal/models"
)

// ---------------------------------------------------------------------------
// ElevenLabs speech synthesis backend.
// Plain REST client; the response body is the audio file itself.
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_flash_v2_5"
	elevenLabsOutputFormat = "mp3_44100_128"
)

func init() {
	RegisterSpeech("elevenlabs", func(s Settings) (SpeechSynthesizer, error) {
		if s.ElevenLabsKey == "" {
			return nil, fmt.Errorf("elevenlabs backend requires ELEVENLABS_API_KEY")
		}
		model := s.SpeechModel
		if model == "" {
			model = elevenLabsDefaultModel
		}
		return &ElevenLabsSpeech{
			apiKey:  s.ElevenLabsKey,
			modelID: model,
			client:  &http.Client{Timeout: 90 * time.Second},
		}, nil
	})
}

// ElevenLabsSpeech converts text to speech through the ElevenLabs REST API.
type ElevenLabsSpeech struct {
	apiKey  string
	modelID string
	client  *http.Client
}

var _ SpeechSynthesizer = (*ElevenLabsSpeech)(nil)

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

func (s *ElevenLabsSpeech) Name() string { return "elevenlabs" }

// Synthesize converts text to speech with the given voice.
func (s *ElevenLabsSpeech) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.60,
			SimilarityBoost: 0.80,
			Style:           0.35,
			UseSpeakerBoost: true,
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, models.WrapError(models.ErrProviderRejected, err, "marshal elevenlabs request")
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		elevenLabsBaseURL, voiceID, elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, models.WrapError(models.ErrProviderRejected, err, "build elevenlabs request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, models.WrapError(models.ErrProviderUnavailable, err, "elevenlabs request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, models.NewError(models.ErrProviderUnavailable,
				"elevenlabs returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, models.NewError(models.ErrProviderRejected,
			"elevenlabs returned status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.WrapError(models.ErrProviderUnavailable, err, "read elevenlabs audio response")
	}
	if len(audio) == 0 {
		return nil, models.NewError(models.ErrProviderUnavailable, "elevenlabs returned empty audio")
	}
	log.Printf("[elevenlabs] synthesized %d bytes (voice=%s, model=%s)", len(audio), voiceID, s.modelID)
	return audio, nil
}
