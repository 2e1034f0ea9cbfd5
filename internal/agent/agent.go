// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent invokes a text-generation provider on behalf of one role.
//
// The Invoker interface is the only thing the pipeline sees. Backends for
// Claude, Gemini, and OpenRouter translate a Role and an input string into
// the provider's request format; the fake backend answers deterministically
// without a network. Backends never validate structured output; callers
// parse it themselves.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrMissingAPIKey is returned by New when a provider needs a key and none is set.
var ErrMissingAPIKey = errors.New("missing API key")

const (
	defaultMaxTokens = 4096
	defaultTimeout   = 120 * time.Second
)

// DefaultModels maps each provider to the model used when none is configured.
var DefaultModels = map[types.Provider]string{
	types.ProviderClaude:     "claude-sonnet-4-5-20250929",
	types.ProviderGemini:     "gemini-2.5-flash",
	types.ProviderOpenRouter: "openai/gpt-4o-mini",
	types.ProviderFake:       "fake",
}

// Invoker runs one role against an input and returns the provider's answer.
type Invoker interface {
	Invoke(ctx context.Context, role Role, input string) (Output, error)
}

// Output is the raw text produced by a provider for one invocation.
type Output struct {
	Text string
}

// New returns the backend selected by cfg.Provider.
func New(ctx context.Context, cfg types.AIConfig) (Invoker, error) {
	if cfg.Provider.NeedsAPIKey() && cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, cfg.Provider)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModels[cfg.Provider]
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch cfg.Provider {
	case types.ProviderClaude:
		return &ClaudeBackend{
			APIKey:     cfg.APIKey,
			Model:      model,
			BaseURL:    cfg.BaseURL,
			MaxTokens:  maxTokens,
			MaxRetries: cfg.MaxRetries,
			Client:     &http.Client{Timeout: timeout},
		}, nil
	case types.ProviderOpenRouter:
		return &OpenRouterBackend{
			APIKey:     cfg.APIKey,
			Model:      model,
			BaseURL:    cfg.BaseURL,
			MaxTokens:  maxTokens,
			MaxRetries: cfg.MaxRetries,
			Client:     &http.Client{Timeout: timeout},
		}, nil
	case types.ProviderGemini:
		return NewGeminiBackend(ctx, cfg.APIKey, model, cfg.BaseURL, maxTokens, timeout)
	case types.ProviderFake:
		return NewFakeBackend(), nil
	default:
		return nil, fmt.Errorf("%w %q: use claude, gemini, openrouter, or fake", ErrUnknownProvider, cfg.Provider)
	}
}
