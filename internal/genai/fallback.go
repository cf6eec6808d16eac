package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/school-records-go/internal/metrics"
)

// ErrNoGenerator is returned when a chain has nothing to call.
var ErrNoGenerator = errors.New("no text generator configured")

// FallbackGenerator walks an ordered chain of generators:
//  1. each model is retried on transient errors up to RetryConfig.MaxAttempts
//  2. quota or empty replies move to the next model
//  3. permanent errors skip the failing provider's remaining models
//
// It implements TextGenerator, reporting the primary link's identity.
type FallbackGenerator struct {
	chain       []TextGenerator
	retryConfig RetryConfig
	metrics     *metrics.Metrics
}

// NewFallbackGenerator creates a chain. Nil generators are dropped.
func NewFallbackGenerator(cfg RetryConfig, m *metrics.Metrics, generators ...TextGenerator) *FallbackGenerator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxRetryAttempts
	}
	chain := make([]TextGenerator, 0, len(generators))
	for _, g := range generators {
		if g != nil {
			chain = append(chain, g)
		}
	}
	return &FallbackGenerator{chain: chain, retryConfig: cfg, metrics: m}
}

// Generate tries each generator in order until one returns text.
func (f *FallbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if f == nil || len(f.chain) == 0 {
		return "", ErrNoGenerator
	}

	var (
		lastErr      error
		skipProvider Provider
		previous     TextGenerator
	)
	for _, g := range f.chain {
		if g.Provider() == skipProvider {
			continue
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if previous != nil {
			slog.InfoContext(ctx, "falling back to next model",
				"from_provider", previous.Provider(),
				"from_model", previous.Model(),
				"to_provider", g.Provider(),
				"to_model", g.Model())
			f.metrics.RecordLLMFallback(previous.Provider().String(), g.Provider().String())
		}
		previous = g

		start := time.Now()
		text, err := f.generateWithRetry(ctx, g, prompt)
		if err == nil {
			f.metrics.RecordLLMRequest(g.Provider().String(), "success", time.Since(start).Seconds())
			return text, nil
		}
		f.metrics.RecordLLMRequest(g.Provider().String(), "error", time.Since(start).Seconds())
		lastErr = err

		action := ClassifyError(err)
		slog.WarnContext(ctx, "text generator failed",
			"provider", g.Provider(),
			"model", g.Model(),
			"action", action,
			"error", err)
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		if action == ActionFail {
			skipProvider = g.Provider()
		}
	}

	return "", fmt.Errorf("all generators failed: %w", lastErr)
}

// generateWithRetry calls one generator, retrying only transient errors.
func (f *FallbackGenerator) generateWithRetry(ctx context.Context, g TextGenerator, prompt string) (string, error) {
	var lastErr error
	for attempt := range f.retryConfig.MaxAttempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		text, err := g.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry || attempt == f.retryConfig.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, f.retryConfig.InitialDelay, f.retryConfig.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}
		slog.DebugContext(ctx, "retrying generation",
			"provider", g.Provider(),
			"model", g.Model(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)
		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// Len returns the number of generators in the chain.
func (f *FallbackGenerator) Len() int {
	if f == nil {
		return 0
	}
	return len(f.chain)
}

// Provider returns the primary provider type.
func (f *FallbackGenerator) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Model returns the primary model name.
func (f *FallbackGenerator) Model() string {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Model()
}

// Close closes every generator in the chain.
func (f *FallbackGenerator) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, g := range f.chain {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
