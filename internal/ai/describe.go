// Package ai generates marketing copy for products with Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	UnavailableMessage = "AI-powered descriptions are currently unavailable. Please check API key configuration."
	FailedMessage      = "Failed to generate description. Please try again later."
)

const promptTemplate = `Generate a compelling, short e-commerce product description for a product named %q. ` +
	`The description should be exciting, highlight potential benefits, and be around 2-3 sentences long. ` +
	`Do not use markdown or special formatting.`

// TextModel is the slice of the Gemini API the generator needs.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Describer turns a product name into a description. It always returns
// a displayable string: failures become a fixed fallback message.
type Describer struct {
	model TextModel
	log   *slog.Logger
}

func NewDescriber(model TextModel, log *slog.Logger) *Describer {
	return &Describer{model: model, log: log}
}

func (d *Describer) Generate(ctx context.Context, productName string) string {
	if d.model == nil {
		return UnavailableMessage
	}
	text, err := d.model.GenerateText(ctx, fmt.Sprintf(promptTemplate, productName))
	if err != nil {
		d.log.Error("generate product description", "product", productName, "error", err)
		return FailedMessage
	}
	return strings.TrimSpace(text)
}

var errEmptyResponse = errors.New("empty response")

// GeminiModel wraps a genai client for a single model name.
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel returns nil when apiKey is empty so callers fall back to
// the unavailable message.
func NewGeminiModel(ctx context.Context, apiKey, modelName string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiModel{client: client, name: modelName}, nil
}

func (m *GeminiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	res, err := m.client.GenerativeModel(m.name).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}
	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errEmptyResponse
	}
	return sb.String(), nil
}

func (m *GeminiModel) Close() error {
	return m.client.Close()
}
