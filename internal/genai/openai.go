package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiGenerator generates text through an OpenAI-compatible chat API.
// Works with Groq, Cerebras, and any endpoint configured for ProviderOpenAI.
type openaiGenerator struct {
	client   openai.Client
	model    string
	provider Provider
	gen      GenerationConfig
}

// newOpenAIGenerator creates an OpenAI-compatible generator for one model.
// endpoint overrides the provider's default base URL and is required for ProviderOpenAI.
func newOpenAIGenerator(provider Provider, apiKey, model, endpoint string, gen GenerationConfig) (*openaiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is empty", provider)
	}

	baseURL := endpoint
	if baseURL == "" {
		var ok bool
		baseURL, ok = ProviderEndpoint[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}

	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqModels[0]
		case ProviderCerebras:
			model = DefaultCerebrasModels[0]
		default:
			return nil, fmt.Errorf("model is required for provider %s", provider)
		}
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiGenerator{
		client:   client,
		model:    model,
		provider: provider,
		gen:      gen,
	}, nil
}

// Generate sends prompt as a single user message and returns the reply text.
func (g *openaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil {
		return "", errors.New("openai generator is nil")
	}

	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.gen.Temperature),
		MaxTokens:   openai.Int(int64(g.gen.MaxOutputTokens)),
	}
	if g.gen.JSONOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "generation API call failed",
			"provider", g.provider,
			"model", g.model,
			"prompt_length", len(prompt),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", WrapError(fmt.Errorf("chat completion failed: %w", err), g.provider, g.model, status)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", WrapError(ErrEmptyResponse, g.provider, g.model, 0)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", WrapError(ErrEmptyResponse, g.provider, g.model, 0)
	}

	if resp.Usage.TotalTokens > 0 {
		slog.DebugContext(ctx, "generation completed",
			"provider", g.provider,
			"model", g.model,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
			"duration_ms", duration.Milliseconds())
	}
	return text, nil
}

// Provider returns the provider type for this generator.
func (g *openaiGenerator) Provider() Provider {
	if g == nil {
		return ""
	}
	return g.provider
}

// Model returns the model name.
func (g *openaiGenerator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Close releases resources held by the generator.
// The openai-go client doesn't require cleanup.
func (g *openaiGenerator) Close() error {
	return nil
}
