// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"github.com/pdiddy/curriculum-tutor/internal/httputil"
	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// --- roles ---

func TestDefaultRoles(t *testing.T) {
	roles := DefaultRoles()
	all := roles.All()
	require.Len(t, all, 3)

	assert.Equal(t, GeneratorName, all[0].Name)
	assert.Equal(t, CheckerName, all[1].Name)
	assert.Equal(t, WriterName, all[2].Name)

	assert.Equal(t, ShapeText, roles.Generator.Shape)
	assert.Equal(t, ShapeVerdict, roles.Checker.Shape)
	assert.Equal(t, ShapeText, roles.Writer.Shape)
	for _, r := range all {
		assert.NotEmpty(t, r.Instructions, r.Name)
	}
}

func TestWithOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]types.RoleOverride
		wantGen   string
		wantErr   string
	}{
		{
			name:    "nil overrides keep defaults",
			wantGen: DefaultRoles().Generator.Instructions,
		},
		{
			name: "replaces instructions",
			overrides: map[string]types.RoleOverride{
				GeneratorName: {Instructions: "  Plan a Go course.  "},
			},
			wantGen: "Plan a Go course.",
		},
		{
			name: "blank override ignored",
			overrides: map[string]types.RoleOverride{
				GeneratorName: {Instructions: "   "},
			},
			wantGen: DefaultRoles().Generator.Instructions,
		},
		{
			name: "unknown role rejected",
			overrides: map[string]types.RoleOverride{
				"zeta_agent":  {Instructions: "x"},
				"alpha_agent": {Instructions: "y"},
			},
			wantErr: "alpha_agent, zeta_agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles, err := DefaultRoles().WithOverrides(tt.overrides)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGen, roles.Generator.Instructions)
			assert.Equal(t, ShapeVerdict, roles.Checker.Shape)
		})
	}
}

func TestRenderSystemPrompt(t *testing.T) {
	roles := DefaultRoles()

	text, err := renderSystemPrompt(roles.Writer)
	require.NoError(t, err)
	assert.Equal(t, roles.Writer.Instructions+"\n", text)

	verdict, err := renderSystemPrompt(roles.Checker)
	require.NoError(t, err)
	assert.Contains(t, verdict, roles.Checker.Instructions)
	assert.Contains(t, verdict, "good_quality")
	assert.Contains(t, verdict, "matches_goal")
}

func TestShapeMarshalText(t *testing.T) {
	data, err := json.Marshal(DefaultRoles().Checker)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"shape":"verdict"`)
	assert.Equal(t, "shape(7)", Shape(7).String())
}

// --- New ---

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, types.AIConfig{Provider: types.ProviderClaude})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(ctx, types.AIConfig{Provider: "bard", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	inv, err := New(ctx, types.AIConfig{Provider: types.ProviderFake})
	require.NoError(t, err)
	assert.IsType(t, &FakeBackend{}, inv)

	inv, err = New(ctx, types.AIConfig{Provider: types.ProviderClaude, APIKey: "k"})
	require.NoError(t, err)
	claude := inv.(*ClaudeBackend)
	assert.Equal(t, DefaultModels[types.ProviderClaude], claude.Model)
	assert.Equal(t, defaultMaxTokens, claude.MaxTokens)
	assert.Equal(t, defaultTimeout, claude.Client.Timeout)

	inv, err = New(ctx, types.AIConfig{Provider: types.ProviderOpenRouter, APIKey: "k", Model: "meta/llama", MaxTokens: 100})
	require.NoError(t, err)
	orb := inv.(*OpenRouterBackend)
	assert.Equal(t, "meta/llama", orb.Model)
	assert.Equal(t, 100, orb.MaxTokens)
}

// --- Claude ---

func TestClaudeBackend_Invoke(t *testing.T) {
	var got claudeRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":[{"type":"text","text":"{\"good_quality\": true,"},{"type":"tool_use"},{"type":"text","text":" \"matches_goal\": true}"}]}`)
	}))
	defer ts.Close()

	c := &ClaudeBackend{APIKey: "test-key", Model: "m", BaseURL: ts.URL, MaxTokens: 50, Client: ts.Client()}
	out, err := c.Invoke(context.Background(), DefaultRoles().Checker, "O1")
	require.NoError(t, err)

	assert.Equal(t, `{"good_quality": true, "matches_goal": true}`, out.Text)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, 50, got.MaxTokens)
	assert.Contains(t, got.System, "good_quality")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, claudeMessage{Role: "user", Content: "O1"}, got.Messages[0])
}

func TestClaudeBackend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: "returned 500"},
		{name: "bad json", status: http.StatusOK, body: "{", wantErr: "decoding"},
		{name: "no text", status: http.StatusOK, body: `{"content":[]}`, wantErr: "no text content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			c := &ClaudeBackend{APIKey: "k", Model: "m", BaseURL: ts.URL, Client: ts.Client()}
			_, err := c.Invoke(context.Background(), DefaultRoles().Generator, "goal")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// --- OpenRouter ---

func TestOpenRouterBackend_Invoke(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		wantFormat bool
	}{
		{name: "text role sends no response format", role: DefaultRoles().Writer},
		{name: "verdict role sends json schema", role: DefaultRoles().Checker, wantFormat: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				io.WriteString(w, `{"id":"x","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"L1"}}]}`)
			}))
			defer ts.Close()

			o := &OpenRouterBackend{APIKey: "k", Model: "m", BaseURL: ts.URL + "/", Client: ts.Client()}
			out, err := o.Invoke(context.Background(), tt.role, "O1")
			require.NoError(t, err)
			assert.Equal(t, "L1", out.Text)

			msgs := got["messages"].([]any)
			require.Len(t, msgs, 2)
			assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
			assert.Equal(t, "O1", msgs[1].(map[string]any)["content"])

			rf, ok := got["response_format"].(map[string]any)
			assert.Equal(t, tt.wantFormat, ok)
			if ok {
				assert.Equal(t, "json_schema", rf["type"])
			}
		})
	}
}

func TestOpenRouterBackend_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	o := &OpenRouterBackend{APIKey: "k", Model: "m", BaseURL: ts.URL, Client: ts.Client()}
	_, err := o.Invoke(context.Background(), DefaultRoles().Generator, "goal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

// --- Gemini ---

func TestGeminiConfig(t *testing.T) {
	roles := DefaultRoles()

	cfg, err := geminiConfig(roles.Generator, 256)
	require.NoError(t, err)
	assert.Equal(t, int32(256), cfg.MaxOutputTokens)
	assert.Empty(t, cfg.ResponseMIMEType)
	assert.Nil(t, cfg.ResponseSchema)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, roles.Generator.Instructions)

	cfg, err = geminiConfig(roles.Checker, 256)
	require.NoError(t, err)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, genai.TypeObject, cfg.ResponseSchema.Type)
	assert.ElementsMatch(t, []string{"good_quality", "matches_goal"}, cfg.ResponseSchema.Required)
	assert.Equal(t, genai.TypeBoolean, cfg.ResponseSchema.Properties["matches_goal"].Type)
}

// --- Fake ---

func TestFakeBackend(t *testing.T) {
	ctx := context.Background()
	roles := DefaultRoles()
	f := NewFakeBackend()

	outline, err := f.Invoke(ctx, roles.Generator, "recursion")
	require.NoError(t, err)
	assert.Contains(t, outline.Text, "Foundations of recursion")

	verdict, err := f.Invoke(ctx, roles.Checker, outline.Text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"good_quality": true, "matches_goal": true}`, verdict.Text)

	lessons, err := f.Invoke(ctx, roles.Writer, outline.Text)
	require.NoError(t, err)
	assert.Contains(t, lessons.Text, "### Lesson: 1. Foundations of recursion")
	assert.Contains(t, lessons.Text, "### Lesson: 3. Review")

	f.Verdict = types.Verdict{IsHighQuality: false, MatchesGoal: true}
	verdict, err = f.Invoke(ctx, roles.Checker, outline.Text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"good_quality": false, "matches_goal": true}`, verdict.Text)
}
