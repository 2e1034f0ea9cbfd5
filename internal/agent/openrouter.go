// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/curriculum-tutor/internal/httputil"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterBackend calls an OpenAI-compatible chat completions endpoint.
// Verdict roles request a json_schema response format.
type OpenRouterBackend struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	MaxRetries int
	Client     *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *chatJSONSchema `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// Invoke sends the system prompt and input as a two-message conversation and
// returns the first choice.
func (o *OpenRouterBackend) Invoke(ctx context.Context, role Role, input string) (Output, error) {
	system, err := renderSystemPrompt(role)
	if err != nil {
		return Output{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := chatRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: input},
		},
		MaxTokens: o.MaxTokens,
	}
	if role.Shape == ShapeVerdict {
		reqBody.ResponseFormat = &chatResponseFormat{
			Type: "json_schema",
			JSONSchema: &chatJSONSchema{
				Name:   verdictSchemaName,
				Strict: true,
				Schema: verdictJSONSchema,
			},
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Output{}, fmt.Errorf("marshaling request: %w", err)
	}

	base := openRouterBaseURL
	if o.BaseURL != "" {
		base = strings.TrimSuffix(o.BaseURL, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return Output{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries)
	if err != nil {
		return Output{}, fmt.Errorf("calling OpenRouter for %s: %w", role.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Output{}, fmt.Errorf("OpenRouter returned %d for %s: %s", resp.StatusCode, role.Name, string(body))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Output{}, fmt.Errorf("decoding OpenRouter response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return Output{}, fmt.Errorf("OpenRouter returned no content for %s", role.Name)
	}

	return Output{Text: cr.Choices[0].Message.Content}, nil
}
