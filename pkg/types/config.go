package types

import "time"

// Provider identifies the text-generation service behind the agents.
type Provider string

const (
	ProviderClaude     Provider = "claude"
	ProviderGemini     Provider = "gemini"
	ProviderOpenRouter Provider = "openrouter"
	ProviderFake       Provider = "fake"
)

// NeedsAPIKey reports whether calls to the provider require a credential.
func (p Provider) NeedsAPIKey() bool {
	return p != ProviderFake
}

// AIConfig holds settings shared by every agent invocation.
type AIConfig struct {
	// Provider selects the backend: claude, gemini, openrouter, or fake.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the provider-specific model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint. Empty means the provider default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps the length of each response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of rate-limit retries the transport performs (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout bounds a single HTTP call to the provider.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// RoleOverride replaces the built-in instructions of one agent role.
type RoleOverride struct {
	Instructions string `json:"instructions" yaml:"instructions"`
}

// OutputConfig controls where finished runs are recorded.
type OutputConfig struct {
	// SaveRuns writes a report directory per run under RunsDir.
	SaveRuns bool `json:"save_runs" yaml:"save_runs"`

	// RunsDir is the base directory for run reports (default "output/runs").
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`

	// History appends every run to the SQLite database at HistoryDB.
	History bool `json:"history" yaml:"history"`

	// HistoryDB is the path of the run history database (default "tutor.db").
	HistoryDB string `json:"history_db" yaml:"history_db"`
}

// Config is the process-wide configuration. It is built once at startup
// and passed to the components that need it.
type Config struct {
	AI AIConfig `json:"ai" yaml:"ai"`

	// Roles maps an agent name to its instruction override.
	Roles map[string]RoleOverride `json:"roles,omitempty" yaml:"roles,omitempty"`

	Output OutputConfig `json:"output" yaml:"output"`

	// StrictExit gives the two controlled stops distinct non-zero exit codes.
	StrictExit bool `json:"strict_exit" yaml:"strict_exit"`
}
