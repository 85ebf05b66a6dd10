package dna

import (
	"context"
	"encoding/json"
	"net/http"

	genai "google.golang.org/genai"

	"github.com/previewforge/previewforge/pkg/errors"
)

// DefaultModel is the vision model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiVision is the production Vision implementation backed by the
// official genai client. It is a thin wrapper: retries, logging, and
// degradation policy live in the Extractor, not here.
type GeminiVision struct {
	cli   *genai.Client
	model string
}

// NewGeminiVision creates a Gemini-backed vision client. An empty model
// selects DefaultModel; an empty apiKey lets the genai client read it from
// the environment.
func NewGeminiVision(ctx context.Context, apiKey, model string) (*GeminiVision, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "create gemini client")
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiVision{cli: cli, model: model}, nil
}

// Model returns the configured model name.
func (g *GeminiVision) Model() string { return g.model }

// GenerateJSON sends the prompt (and screenshot, when present) to the model
// with application/json response forcing, returning the raw JSON text.
func (g *GeminiVision) GenerateJSON(ctx context.Context, prompt string, screenshot []byte) (json.RawMessage, error) {
	parts := []*genai.Part{{Text: prompt}}
	if len(screenshot) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: http.DetectContentType(screenshot),
				Data:     screenshot,
			},
		})
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New(errors.ErrCodeNetwork, "empty response from %s", g.model)
	}
	return json.RawMessage(resp.Candidates[0].Content.Parts[0].Text), nil
}
