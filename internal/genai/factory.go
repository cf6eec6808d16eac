package genai

import (
	"context"
	"log/slog"

	"github.com/garyellow/school-records-go/internal/config"
	"github.com/garyellow/school-records-go/internal/metrics"
)

// CreateGenerator builds a FallbackGenerator from cfg.
//
// Provider selection logic:
//  1. Providers are visited in cfg.Providers order; those without credentials are skipped.
//  2. Each provider contributes its models in order.
//  3. Returns nil if no provider/model is configured.
func CreateGenerator(ctx context.Context, cfg LLMConfig, m *metrics.Metrics) (*FallbackGenerator, error) {
	var chain []TextGenerator

	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.GetProviderConfig(provider)
		for _, model := range pc.Models {
			var (
				g   TextGenerator
				err error
			)
			if provider == ProviderGemini {
				g, err = newGeminiGenerator(ctx, pc.APIKey, model, cfg.Generation)
			} else {
				g, err = newOpenAIGenerator(provider, pc.APIKey, model, pc.Endpoint, cfg.Generation)
			}
			if err != nil {
				slog.WarnContext(ctx, "failed to create text generator", "provider", provider, "model", model, "error", err)
				continue
			}
			chain = append(chain, g)
		}
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for text generation")
		return nil, nil //nolint:nilnil // no provider configured
	}

	slog.InfoContext(ctx, "text generator configured",
		"primary", chain[0].Provider(),
		"model", chain[0].Model(),
		"chainSize", len(chain))

	return NewFallbackGenerator(cfg.RetryConfig, m, chain...), nil
}

// FromConfig converts application settings into an LLMConfig.
// Model lists fall back to the provider defaults when empty.
func FromConfig(c config.LLMConfig) LLMConfig {
	providers := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		providers = append(providers, Provider(p))
	}
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	return LLMConfig{
		Providers: providers,
		Gemini:    ProviderConfig{APIKey: c.GeminiAPIKey, Models: orDefault(c.GeminiModels, DefaultGeminiModels)},
		Groq:      ProviderConfig{APIKey: c.GroqAPIKey, Models: orDefault(c.GroqModels, DefaultGroqModels)},
		Cerebras:  ProviderConfig{APIKey: c.CerebrasAPIKey, Models: orDefault(c.CerebrasModels, DefaultCerebrasModels)},
		OpenAI:    ProviderConfig{APIKey: c.OpenAIAPIKey, Models: c.OpenAIModels, Endpoint: c.OpenAIEndpoint},
		Generation: GenerationConfig{
			Temperature:     c.Temperature,
			MaxOutputTokens: c.MaxOutputTokens,
			JSONOutput:      true,
		},
		RetryConfig: RetryConfig{MaxAttempts: c.RetryAttempts},
	}
}

// DefaultLLMConfig returns a default LLM configuration.
// API keys must be provided separately.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers: DefaultProviders,
		Gemini:    ProviderConfig{Models: DefaultGeminiModels},
		Groq:      ProviderConfig{Models: DefaultGroqModels},
		Cerebras:  ProviderConfig{Models: DefaultCerebrasModels},
		Generation: GenerationConfig{
			Temperature:     DefaultTemperature,
			MaxOutputTokens: DefaultMaxOutputTokens,
			JSONOutput:      true,
		},
		RetryConfig: RetryConfig{MaxAttempts: DefaultMaxRetryAttempts},
	}
}

func orDefault(models, defaults []string) []string {
	if len(models) == 0 {
		return defaults
	}
	return models
}
