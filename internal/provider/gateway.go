package provider

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/podforge/podforge/internal/models"
)

// ---------------------------------------------------------------------------
// Provider gateway — uniform capability interface over interchangeable
// text-generation and speech-synthesis backends, with retry/backoff and
// usage accounting. Backend selection is a static configuration decision
// made before a job starts, never a per-call choice.
// ---------------------------------------------------------------------------

// TextGenerator is the text-generation capability a backend must implement.
// Implementations classify their own failures: transient conditions return
// provider_unavailable, permanent rejections return provider_rejected.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt, roleHint string) (string, error)
}

// SpeechSynthesizer is the speech-synthesis capability.
type SpeechSynthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Options tunes the gateway's retry and precondition behavior.
type Options struct {
	MaxAttempts     int           // retry ceiling per logical call (default 3)
	CallTimeout     time.Duration // per-attempt timeout (default 30s)
	BackoffBase     time.Duration // first backoff interval (default 1s, doubles)
	MaxInputLen     int           // input length ceiling in bytes (default 32768)
	TextCostPer1K   float64       // estimated USD per 1k input chars of text generation
	SpeechCostPer1K float64       // estimated USD per 1k input chars of synthesis
}

func (o *Options) withDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.MaxInputLen <= 0 {
		o.MaxInputLen = 32768
	}
}

// Gateway fronts one text backend and one speech backend.
type Gateway struct {
	text   TextGenerator
	speech SpeechSynthesizer
	usage  *Usage
	opts   Options
}

// NewGateway builds a gateway. Either backend may be nil when the deployment
// only exercises one capability (e.g. script-only CLI runs).
func NewGateway(text TextGenerator, speech SpeechSynthesizer, usage *Usage, opts Options) *Gateway {
	opts.withDefaults()
	if usage == nil {
		usage = NewUsage()
	}
	return &Gateway{text: text, speech: speech, usage: usage, opts: opts}
}

// Usage exposes the gateway's usage accounting.
func (g *Gateway) Usage() *Usage { return g.usage }

// GenerateText runs one text-generation call through the retry policy.
// roleHint names the calling role ("draft", "trim", "coordinator", ...) and
// keys usage accounting alongside the provider name.
func (g *Gateway) GenerateText(ctx context.Context, prompt, roleHint string) (string, error) {
	if g.text == nil {
		return "", models.NewError(models.ErrProviderRejected, "no text generation backend configured")
	}
	if err := g.checkInput(prompt); err != nil {
		return "", err
	}
	var out string
	err := g.withRetry(ctx, g.text.Name(), roleHint, float64(len(prompt))/1000.0*g.opts.TextCostPer1K,
		func(callCtx context.Context) error {
			var err error
			out, err = g.text.Generate(callCtx, prompt, roleHint)
			return err
		})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Synthesize runs one speech-synthesis call through the retry policy.
func (g *Gateway) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if g.speech == nil {
		return nil, models.NewError(models.ErrProviderRejected, "no speech synthesis backend configured")
	}
	if err := g.checkInput(text); err != nil {
		return nil, err
	}
	if voiceID == "" {
		return nil, models.NewError(models.ErrInvalidRequest, "voice id is required")
	}
	var audio []byte
	err := g.withRetry(ctx, g.speech.Name(), "synthesize", float64(len(text))/1000.0*g.opts.SpeechCostPer1K,
		func(callCtx context.Context) error {
			var err error
			audio, err = g.speech.Synthesize(callCtx, text, voiceID)
			return err
		})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (g *Gateway) checkInput(input string) error {
	if input == "" {
		return models.NewError(models.ErrInvalidRequest, "input text is empty")
	}
	if len(input) > g.opts.MaxInputLen {
		return models.NewError(models.ErrInvalidRequest, "input length %d exceeds ceiling %d",
			len(input), g.opts.MaxInputLen)
	}
	return nil
}

// withRetry runs fn with a per-attempt timeout, retrying transient failures
// with exponential backoff up to the attempt ceiling. Every attempt is
// recorded in the usage counters. A per-attempt deadline expiry counts as
// transient; cancellation of the parent context aborts immediately.
func (g *Gateway) withRetry(ctx context.Context, providerName, role string, cost float64, fn func(context.Context) error) error {
	var last error
	backoff := g.opts.BackoffBase
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, g.opts.CallTimeout)
		err := fn(callCtx)
		cancel()
		g.usage.Record(providerName, role, cost)
		if err == nil {
			return nil
		}
		last = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !transient(err) {
			return err
		}
		if attempt < g.opts.MaxAttempts {
			log.Printf("[Gateway] %s/%s attempt %d/%d failed (transient), backing off %s: %v",
				providerName, role, attempt, g.opts.MaxAttempts, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return models.WrapError(models.ErrProviderUnavailable, last,
		"%s/%s failed after %d attempts", providerName, role, g.opts.MaxAttempts)
}

func transient(err error) bool {
	if models.IsKind(err, models.ErrProviderUnavailable) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
