package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garyellow/school-records-go/internal/config"
	"github.com/garyellow/school-records-go/internal/metrics"
)

// mockGenerator is a test mock for TextGenerator.
type mockGenerator struct {
	generateFunc func(ctx context.Context, prompt string) (string, error)
	provider     Provider
	model        string
	calls        int
	closeCalled  bool
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt)
	}
	return "", errors.New("not implemented")
}

func (m *mockGenerator) Provider() Provider { return m.provider }
func (m *mockGenerator) Model() string      { return m.model }
func (m *mockGenerator) Close() error {
	m.closeCalled = true
	return nil
}

func replying(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

func failing(msg string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return "", errors.New(msg) }
}

func TestFallbackGenerator_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &mockGenerator{generateFunc: replying(`{"ok":true}`), provider: ProviderGemini, model: "flash"}
	secondary := &mockGenerator{generateFunc: replying("unused"), provider: ProviderGroq}

	gen := NewFallbackGenerator(RetryConfig{MaxAttempts: 2}, nil, primary, secondary)
	got, err := gen.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("Generate() = %q", got)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
	if gen.Provider() != ProviderGemini || gen.Model() != "flash" {
		t.Errorf("identity = %s/%s, want primary", gen.Provider(), gen.Model())
	}
}

func TestFallbackGenerator_RetriesTransientOnce(t *testing.T) {
	t.Parallel()
	attempts := 0
	primary := &mockGenerator{
		provider: ProviderGemini,
		generateFunc: func(context.Context, string) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("connection reset")
			}
			return "second try", nil
		},
	}

	gen := NewFallbackGenerator(RetryConfig{MaxAttempts: 2}, nil, primary)
	got, err := gen.Generate(context.Background(), "prompt")
	if err != nil || got != "second try" {
		t.Fatalf("Generate() = (%q, %v), want second try", got, err)
	}
	if primary.calls != 2 {
		t.Errorf("primary calls = %d, want 2", primary.calls)
	}
}

func TestFallbackGenerator_RetryIsImmediate(t *testing.T) {
	t.Parallel()
	var gaps []time.Duration
	last := time.Now()
	primary := &mockGenerator{
		provider: ProviderGemini,
		generateFunc: func(context.Context, string) (string, error) {
			now := time.Now()
			gaps = append(gaps, now.Sub(last))
			last = now
			if len(gaps) == 1 {
				return "", errors.New("connection reset")
			}
			return "ok", nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gen := NewFallbackGenerator(FromConfig(config.LLMConfig{RetryAttempts: 2}).RetryConfig, nil, primary)
	got, err := gen.Generate(ctx, "prompt")
	if err != nil || got != "ok" {
		t.Fatalf("Generate() = (%q, %v), want ok", got, err)
	}
	if len(gaps) != 2 || gaps[1] > 100*time.Millisecond {
		t.Errorf("retry gaps = %v, want an immediate second call", gaps)
	}
}

func TestFallbackGenerator_FallsBackAfterRetries(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	primary := &mockGenerator{generateFunc: failing("service unavailable"), provider: ProviderGemini}
	secondary := &mockGenerator{generateFunc: replying("from groq"), provider: ProviderGroq}

	gen := NewFallbackGenerator(RetryConfig{MaxAttempts: 2}, m, primary, secondary)
	got, err := gen.Generate(context.Background(), "prompt")
	if err != nil || got != "from groq" {
		t.Fatalf("Generate() = (%q, %v)", got, err)
	}
	if primary.calls != 2 {
		t.Errorf("primary calls = %d, want 2 (one retry)", primary.calls)
	}
	if v := testutil.ToFloat64(m.LLMFallbackTotal.WithLabelValues("gemini", "groq")); v != 1 {
		t.Errorf("fallback counter = %v, want 1", v)
	}
}

func TestFallbackGenerator_QuotaSkipsRetry(t *testing.T) {
	t.Parallel()
	primary := &mockGenerator{generateFunc: failing("quota exceeded"), provider: ProviderGemini}
	secondary := &mockGenerator{generateFunc: replying("ok"), provider: ProviderGemini, model: "lite"}

	gen := NewFallbackGenerator(RetryConfig{MaxAttempts: 3}, nil, primary, secondary)
	if _, err := gen.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1 for quota errors", primary.calls)
	}
}

func TestFallbackGenerator_PermanentSkipsProvider(t *testing.T) {
	t.Parallel()
	first := &mockGenerator{generateFunc: failing("401 unauthorized"), provider: ProviderGemini, model: "a"}
	sameProvider := &mockGenerator{generateFunc: replying("never"), provider: ProviderGemini, model: "b"}
	other := &mockGenerator{generateFunc: replying("groq"), provider: ProviderGroq}

	gen := NewFallbackGenerator(RetryConfig{MaxAttempts: 2}, nil, first, sameProvider, other)
	got, err := gen.Generate(context.Background(), "p")
	if err != nil || got != "groq" {
		t.Fatalf("Generate() = (%q, %v)", got, err)
	}
	if first.calls != 1 || sameProvider.calls != 0 {
		t.Errorf("calls = %d/%d, want 1/0", first.calls, sameProvider.calls)
	}
}

func TestFallbackGenerator_AllFail(t *testing.T) {
	t.Parallel()
	gen := NewFallbackGenerator(RetryConfig{MaxAttempts: 1}, nil,
		&mockGenerator{generateFunc: failing("503"), provider: ProviderGemini},
		&mockGenerator{generateFunc: failing("502"), provider: ProviderGroq},
	)
	if _, err := gen.Generate(context.Background(), "p"); err == nil {
		t.Fatal("Generate() error = nil, want error")
	}
}

func TestFallbackGenerator_RespectsCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &mockGenerator{generateFunc: replying("x"), provider: ProviderGemini}
	gen := NewFallbackGenerator(RetryConfig{MaxAttempts: 2}, nil, primary)
	if _, err := gen.Generate(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
	if primary.calls != 0 {
		t.Errorf("primary calls = %d, want 0", primary.calls)
	}
}

func TestFallbackGenerator_EmptyChain(t *testing.T) {
	t.Parallel()
	var nilGen *FallbackGenerator
	if _, err := nilGen.Generate(context.Background(), "p"); !errors.Is(err, ErrNoGenerator) {
		t.Errorf("nil Generate() error = %v", err)
	}
	gen := NewFallbackGenerator(RetryConfig{}, nil, nil)
	if gen.Len() != 0 {
		t.Errorf("Len() = %d, want 0", gen.Len())
	}
}

func TestFallbackGenerator_Close(t *testing.T) {
	t.Parallel()
	a := &mockGenerator{provider: ProviderGemini}
	b := &mockGenerator{provider: ProviderGroq}
	if err := NewFallbackGenerator(RetryConfig{}, nil, a, b).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closeCalled || !b.closeCalled {
		t.Error("Close() should close every generator")
	}
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()
	if d := CalculateBackoff(1, 0, time.Second); d != 0 {
		t.Errorf("zero initial delay = %v, want immediate", d)
	}
	if d := CalculateBackoff(0, time.Second, time.Second); d != 0 {
		t.Errorf("attempt 0 = %v, want 0", d)
	}
	for range 20 {
		if d := CalculateBackoff(5, 100*time.Millisecond, 300*time.Millisecond); d < 0 || d >= 300*time.Millisecond {
			t.Fatalf("CalculateBackoff() = %v, want [0, 300ms)", d)
		}
	}
}
