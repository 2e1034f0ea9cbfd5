// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GeminiBackend is a thin wrapper around the official genai client.
type GeminiBackend struct {
	cli       *genai.Client
	model     string
	maxTokens int
}

// NewGeminiBackend creates a genai client for the Gemini API. baseURL is
// optional and replaces the public endpoint.
func NewGeminiBackend(ctx context.Context, apiKey, model, baseURL string, maxTokens int, timeout time.Duration) (*GeminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiBackend{cli: cli, model: model, maxTokens: maxTokens}, nil
}

// Invoke runs one GenerateContent call. Verdict roles are constrained to
// application/json with the verdict schema.
func (g *GeminiBackend) Invoke(ctx context.Context, role Role, input string) (Output, error) {
	cfg, err := geminiConfig(role, g.maxTokens)
	if err != nil {
		return Output{}, err
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: input}}}},
		cfg,
	)
	if err != nil {
		return Output{}, fmt.Errorf("calling Gemini for %s: %w", role.Name, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Output{}, fmt.Errorf("Gemini returned no candidates for %s", role.Name)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return Output{}, fmt.Errorf("Gemini returned empty content for %s", role.Name)
	}
	return Output{Text: b.String()}, nil
}

// geminiConfig builds the generation config for role.
func geminiConfig(role Role, maxTokens int) (*genai.GenerateContentConfig, error) {
	system, err := renderSystemPrompt(role)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		MaxOutputTokens:   int32(maxTokens),
	}
	if role.Shape == ShapeVerdict {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"good_quality": {Type: genai.TypeBoolean},
				"matches_goal": {Type: genai.TypeBoolean},
			},
			Required: []string{"good_quality", "matches_goal"},
		}
	}
	return cfg, nil
}
