package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// geminiGenerator generates text with the Gemini API.
// It implements the TextGenerator interface.
type geminiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// newGeminiGenerator creates a Gemini-backed generator for one model.
func newGeminiGenerator(ctx context.Context, apiKey, model string, gen GenerationConfig) (*geminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModels[0]
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(gen.Temperature)),
		MaxOutputTokens: int32(gen.MaxOutputTokens), //nolint:gosec // bounded by config validation
	}
	if gen.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	return &geminiGenerator{client: client, model: model, config: config}, nil
}

// Generate sends prompt as a single user message and returns the reply text.
func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini generator is nil")
	}

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "generation API call failed",
			"provider", ProviderGemini,
			"model", g.model,
			"prompt_length", len(prompt),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, g.model, 0)
	}

	if result == nil || len(result.Candidates) == 0 {
		return "", WrapError(ErrEmptyResponse, ProviderGemini, g.model, 0)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", WrapError(ErrEmptyResponse, ProviderGemini, g.model, 0)
	}

	if result.UsageMetadata != nil {
		slog.DebugContext(ctx, "generation completed",
			"provider", ProviderGemini,
			"model", g.model,
			"input_tokens", result.UsageMetadata.PromptTokenCount,
			"output_tokens", result.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds())
	}
	return text, nil
}

// Provider returns the provider type for this generator.
func (g *geminiGenerator) Provider() Provider {
	return ProviderGemini
}

// Model returns the model name.
func (g *geminiGenerator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Close releases resources held by the generator.
// genai.Client does not require explicit cleanup in the current SDK version.
func (g *geminiGenerator) Close() error {
	return nil
}
