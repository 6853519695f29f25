package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/podforge/podforge/internal/models"
)

// ---------------------------------------------------------------------------
// OpenAI text generation backend. The "openrouter" backend is the same
// client pointed at OpenRouter's OpenAI-compatible endpoint.
// ---------------------------------------------------------------------------

const (
	openAIDefaultModel     = "gpt-4o-mini"
	openRouterDefaultModel = "openai/gpt-4o-mini"
	openRouterBaseURL      = "https://openrouter.ai/api/v1"
)

func init() {
	RegisterText("openai", func(s Settings) (TextGenerator, error) {
		if s.OpenAIKey == "" {
			return nil, fmt.Errorf("openai backend requires OPENAI_API_KEY")
		}
		model := s.TextModel
		if model == "" {
			model = openAIDefaultModel
		}
		return &OpenAIText{name: "openai", client: openai.NewClient(s.OpenAIKey), model: model}, nil
	})

	RegisterText("openrouter", func(s Settings) (TextGenerator, error) {
		if s.OpenRouterKey == "" {
			return nil, fmt.Errorf("openrouter backend requires OPENROUTER_API_KEY")
		}
		cfg := openai.DefaultConfig(s.OpenRouterKey)
		cfg.BaseURL = s.OpenRouterBaseURL
		if cfg.BaseURL == "" {
			cfg.BaseURL = openRouterBaseURL
		}
		model := s.TextModel
		if model == "" {
			model = openRouterDefaultModel
		}
		return &OpenAIText{name: "openrouter", client: openai.NewClientWithConfig(cfg), model: model}, nil
	})
}

// OpenAIText generates text through any OpenAI-compatible chat endpoint.
type OpenAIText struct {
	name   string
	client *openai.Client
	model  string
}

func (t *OpenAIText) Name() string { return t.name }

func (t *OpenAIText) Generate(ctx context.Context, prompt, roleHint string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if roleHint != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf("You are acting in the %q role of a podcast production pipeline.", roleHint),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return "", classifyOpenAIErr(t.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewError(models.ErrProviderUnavailable, "%s returned no choices", t.name)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", models.NewError(models.ErrProviderUnavailable, "%s returned empty content", t.name)
	}
	log.Printf("[%s] generated %d chars (role=%s, model=%s)", t.name, len(content), roleHint, t.model)
	return content, nil
}

// classifyOpenAIErr maps API failures onto the gateway's taxonomy:
// rate limits and 5xx are transient, auth and input rejections are permanent.
func classifyOpenAIErr(name string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return models.WrapError(models.ErrProviderUnavailable, err, "%s request throttled or upstream error", name)
		default:
			return models.WrapError(models.ErrProviderRejected, err, "%s rejected request", name)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Network-level failure: transport errors are transient.
	return models.WrapError(models.ErrProviderUnavailable, err, "%s request failed", name)
}
