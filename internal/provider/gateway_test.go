package provider

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/podforge/podforge/internal/models"
)

// flakyText fails a fixed number of times before succeeding.
type flakyText struct {
	failures int
	calls    int
	err      error
}

func (f *flakyText) Name() string { return "flaky" }

func (f *flakyText) Generate(ctx context.Context, prompt, roleHint string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

func testOptions() Options {
	return Options{BackoffBase: time.Millisecond, CallTimeout: time.Second}
}

func TestGenerateTextRetriesTransient(t *testing.T) {
	backend := &flakyText{failures: 2, err: models.NewError(models.ErrProviderUnavailable, "rate limited")}
	usage := NewUsage()
	g := NewGateway(backend, nil, usage, testOptions())

	out, err := g.GenerateText(context.Background(), "prompt", "draft")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if out != "ok" {
		t.Errorf("unexpected output %q", out)
	}
	if backend.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", backend.calls)
	}
	// Every attempt is accounted, including the failed ones.
	if got := usage.Count("flaky", "draft"); got != 3 {
		t.Errorf("expected 3 usage records, got %d", got)
	}
}

func TestGenerateTextExhaustsAttempts(t *testing.T) {
	backend := &flakyText{failures: 10, err: models.NewError(models.ErrProviderUnavailable, "down")}
	g := NewGateway(backend, nil, nil, testOptions())

	_, err := g.GenerateText(context.Background(), "prompt", "draft")
	if !models.IsKind(err, models.ErrProviderUnavailable) {
		t.Fatalf("expected provider_unavailable, got %v", err)
	}
	if backend.calls != 3 {
		t.Errorf("expected the default 3 attempts, got %d", backend.calls)
	}
}

func TestGenerateTextDoesNotRetryRejection(t *testing.T) {
	backend := &flakyText{failures: 10, err: models.NewError(models.ErrProviderRejected, "bad key")}
	g := NewGateway(backend, nil, nil, testOptions())

	_, err := g.GenerateText(context.Background(), "prompt", "draft")
	if !models.IsKind(err, models.ErrProviderRejected) {
		t.Fatalf("expected provider_rejected, got %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("rejection must not be retried, got %d attempts", backend.calls)
	}
}

func TestGenerateTextInputPreconditions(t *testing.T) {
	backend := &flakyText{}
	g := NewGateway(backend, nil, nil, Options{MaxInputLen: 16})

	if _, err := g.GenerateText(context.Background(), "", "draft"); !models.IsKind(err, models.ErrInvalidRequest) {
		t.Errorf("empty input: expected invalid_request, got %v", err)
	}
	long := strings.Repeat("x", 17)
	if _, err := g.GenerateText(context.Background(), long, "draft"); !models.IsKind(err, models.ErrInvalidRequest) {
		t.Errorf("oversized input: expected invalid_request, got %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("precondition failures must not reach the backend, got %d calls", backend.calls)
	}
}

func TestGenerateTextHonorsCancellation(t *testing.T) {
	backend := &flakyText{failures: 10, err: models.NewError(models.ErrProviderUnavailable, "down")}
	opts := testOptions()
	opts.BackoffBase = time.Minute // would stall without cancellation
	g := NewGateway(backend, nil, nil, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := g.GenerateText(ctx, "prompt", "draft")
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not interrupt backoff")
	}
}

func TestSynthesizeRequiresVoice(t *testing.T) {
	g := NewGateway(nil, NewMockSpeech(), nil, testOptions())
	if _, err := g.Synthesize(context.Background(), "hello", ""); !models.IsKind(err, models.ErrInvalidRequest) {
		t.Errorf("expected invalid_request, got %v", err)
	}
}

func TestSynthesizeMock(t *testing.T) {
	g := NewGateway(nil, NewMockSpeech(), nil, testOptions())
	data, err := g.Synthesize(context.Background(), "five words of test audio", "voice-a")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(data) != 5*MockBytesPerWord {
		t.Errorf("expected %d bytes, got %d", 5*MockBytesPerWord, len(data))
	}
	if !strings.HasPrefix(string(data), "MOCKAUDIO:voice-a:") {
		t.Errorf("unexpected payload header %q", data[:20])
	}
}

func TestMissingBackend(t *testing.T) {
	g := NewGateway(nil, nil, nil, testOptions())
	if _, err := g.GenerateText(context.Background(), "p", "draft"); !models.IsKind(err, models.ErrProviderRejected) {
		t.Errorf("expected provider_rejected for missing text backend, got %v", err)
	}
	if _, err := g.Synthesize(context.Background(), "t", "v"); !models.IsKind(err, models.ErrProviderRejected) {
		t.Errorf("expected provider_rejected for missing speech backend, got %v", err)
	}
}

func TestUsageSnapshot(t *testing.T) {
	u := NewUsage()
	u.Record("openai", "draft", 0.001)
	u.Record("openai", "draft", 0.001)
	u.Record("gemini", "synthesize", 0.002)

	snap := u.Snapshot()
	if c := snap["openai/draft"]; c.Calls != 2 {
		t.Errorf("expected 2 calls, got %d", c.Calls)
	}
	if c := snap["gemini/synthesize"]; c.Calls != 1 {
		t.Errorf("expected 1 call, got %d", c.Calls)
	}

	u.Reset()
	if len(u.Snapshot()) != 0 {
		t.Error("reset did not clear counters")
	}
}
