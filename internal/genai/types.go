// Package genai provides text generation over LLM APIs (Gemini, Groq, Cerebras
// and any OpenAI-compatible endpoint).
//
// Architecture:
//   - Gemini: uses google.golang.org/genai (official SDK)
//   - Groq/Cerebras/OpenAI: uses github.com/openai/openai-go/v3 (OpenAI-compatible API)
//
// Fallback strategy (2-layer):
//  1. Model retry: the same model is retried immediately on transient errors
//  2. Model chain: next model, then next provider in the configured order
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini represents Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq represents Groq's API (OpenAI-compatible).
	ProviderGroq Provider = "groq"
	// ProviderCerebras represents Cerebras's API (OpenAI-compatible).
	ProviderCerebras Provider = "cerebras"
	// ProviderOpenAI represents any OpenAI-compatible endpoint configured by URL.
	ProviderOpenAI Provider = "openai"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
// ProviderOpenAI has no fixed endpoint; it is taken from configuration.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible returns true if the provider uses the OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok || p == ProviderOpenAI
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// TextGenerator is a single text-in, text-out LLM call.
// The provider identity is opaque to callers; Provider and Model exist for
// logs and metrics only.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() Provider
	Model() string
	Close() error
}

// GenerationConfig controls decoding for every generator in a chain.
type GenerationConfig struct {
	// Temperature is kept low so the JSON reply stays stable between calls.
	Temperature float64
	// MaxOutputTokens bounds the reply length.
	MaxOutputTokens int
	// JSONOutput asks the provider for a JSON-only response when it supports it.
	JSONOutput bool
}

// RetryConfig defines retry behavior for a single model.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per model (including initial).
	// Default: 2 (1 initial + 1 retry)
	MaxAttempts int

	// InitialDelay is the base delay before a retry. Zero retries immediately.
	InitialDelay time.Duration

	// MaxDelay caps the backoff between retries.
	MaxDelay time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	APIKey string
	// Models is the ordered model chain; the first is primary.
	Models []string
	// Endpoint overrides the base URL (required for ProviderOpenAI).
	Endpoint string
}

// LLMConfig holds configuration for all LLM providers.
type LLMConfig struct {
	// Providers is the ordered list of providers to try.
	// Fallback happens in order: first provider's models, then second, etc.
	Providers []Provider

	Gemini   ProviderConfig
	Groq     ProviderConfig
	Cerebras ProviderConfig
	OpenAI   ProviderConfig

	Generation  GenerationConfig
	RetryConfig RetryConfig
}

// Default model configurations.
// First element is primary model, subsequent elements are fallbacks.
var (
	DefaultGeminiModels   = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqModels     = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}

	// DefaultProviders is the default provider order for fallback.
	DefaultProviders = []Provider{ProviderGemini, ProviderGroq}
)

// Generation defaults
const (
	DefaultMaxRetryAttempts = 2
	DefaultTemperature      = 0.1
	DefaultMaxOutputTokens  = 1024
)

// HasAnyProvider returns true if at least one provider is configured.
func (c *LLMConfig) HasAnyProvider() bool {
	for _, p := range []Provider{ProviderGemini, ProviderGroq, ProviderCerebras, ProviderOpenAI} {
		if c.HasProvider(p) {
			return true
		}
	}
	return false
}

// HasProvider returns true if the specified provider is configured with an API key.
// ProviderOpenAI additionally needs an endpoint.
func (c *LLMConfig) HasProvider(p Provider) bool {
	pc := c.GetProviderConfig(p)
	if pc == nil || pc.APIKey == "" {
		return false
	}
	if p == ProviderOpenAI {
		return pc.Endpoint != ""
	}
	return true
}

// GetProviderConfig returns the configuration for a specific provider.
func (c *LLMConfig) GetProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	case ProviderCerebras:
		return &c.Cerebras
	case ProviderOpenAI:
		return &c.OpenAI
	default:
		return nil
	}
}

// ConfiguredProviders returns the providers with credentials, in the order of c.Providers.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
