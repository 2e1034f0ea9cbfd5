// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config builds the process-wide types.Config once at startup.
//
// Values are layered, highest first: command-line flags bound into viper,
// the tutor.yaml config file and TUTOR_* environment variables, the
// provider's conventional key variable (ANTHROPIC_API_KEY and friends,
// optionally loaded from .env), and finally the .secrets/ directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/curriculum-tutor/internal/agent"
	"github.com/pdiddy/curriculum-tutor/internal/secrets"
	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// Viper keys.
const (
	KeyProvider   = "provider"
	KeyModel      = "model"
	KeyAPIKey     = "api_key"
	KeyBaseURL    = "base_url"
	KeyMaxTokens  = "max_tokens"
	KeyMaxRetries = "max_retries"
	KeyTimeout    = "timeout"
	KeyRoles      = "roles"
	KeySaveRuns   = "save_runs"
	KeyRunsDir    = "runs_dir"
	KeyHistory    = "history"
	KeyHistoryDB  = "history_db"
	KeyStrictExit = "strict_exit"
)

// EnvPrefix is the prefix viper uses for environment overrides.
const EnvPrefix = "TUTOR"

const (
	defaultProvider   = types.ProviderClaude
	defaultMaxTokens  = 4096
	defaultMaxRetries = 3
	defaultTimeout    = 120 * time.Second
	defaultRunsDir    = "output/runs"
	defaultHistoryDB  = "tutor.db"
)

// providerEnv lists the conventional environment variables holding each
// provider's key, in lookup order.
var providerEnv = map[types.Provider][]string{
	types.ProviderClaude:     {"ANTHROPIC_API_KEY"},
	types.ProviderGemini:     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	types.ProviderOpenRouter: {"OPENROUTER_API_KEY"},
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProvider, string(defaultProvider))
	v.SetDefault(KeyMaxTokens, defaultMaxTokens)
	v.SetDefault(KeyMaxRetries, defaultMaxRetries)
	v.SetDefault(KeyTimeout, defaultTimeout)
	v.SetDefault(KeyRunsDir, defaultRunsDir)
	v.SetDefault(KeyHistoryDB, defaultHistoryDB)
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. It reports whether the file existed.
func LoadDotEnv(path string) (bool, error) {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("loading %s: %w", path, err)
	}
	return true, nil
}

// Load builds a validated Config from v, the environment lookup getenv,
// and loaded secrets.
func Load(v *viper.Viper, getenv func(string) string, sec secrets.Secrets) (types.Config, error) {
	cfg := types.Config{
		AI: types.AIConfig{
			Provider:   types.Provider(v.GetString(KeyProvider)),
			Model:      v.GetString(KeyModel),
			APIKey:     v.GetString(KeyAPIKey),
			BaseURL:    v.GetString(KeyBaseURL),
			MaxTokens:  v.GetInt(KeyMaxTokens),
			MaxRetries: v.GetInt(KeyMaxRetries),
			Timeout:    v.GetDuration(KeyTimeout),
		},
		Output: types.OutputConfig{
			SaveRuns:  v.GetBool(KeySaveRuns),
			RunsDir:   v.GetString(KeyRunsDir),
			History:   v.GetBool(KeyHistory),
			HistoryDB: v.GetString(KeyHistoryDB),
		},
		StrictExit: v.GetBool(KeyStrictExit),
	}

	roles, err := RoleOverrides(v)
	if err != nil {
		return types.Config{}, err
	}
	cfg.Roles = roles

	if cfg.AI.Model == "" {
		cfg.AI.Model = agent.DefaultModels[cfg.AI.Provider]
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = lookupAPIKey(cfg.AI.Provider, getenv, sec)
	}

	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// RoleOverrides decodes the roles section of v. It needs no credentials,
// so commands that only inspect roles can call it without Load.
func RoleOverrides(v *viper.Viper) (map[string]types.RoleOverride, error) {
	if !v.IsSet(KeyRoles) {
		return nil, nil
	}
	var roles map[string]types.RoleOverride
	if err := v.UnmarshalKey(KeyRoles, &roles); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", KeyRoles, err)
	}
	return roles, nil
}

func lookupAPIKey(p types.Provider, getenv func(string) string, sec secrets.Secrets) string {
	for _, name := range providerEnv[p] {
		if val := getenv(name); val != "" {
			return val
		}
	}
	return sec.APIKey(p)
}

// Validate checks that cfg can drive a run.
func Validate(cfg types.Config) error {
	if _, ok := agent.DefaultModels[cfg.AI.Provider]; !ok {
		return fmt.Errorf("%w %q: use claude, gemini, openrouter, or fake", agent.ErrUnknownProvider, cfg.AI.Provider)
	}
	if cfg.AI.Provider.NeedsAPIKey() && cfg.AI.APIKey == "" {
		return fmt.Errorf("%w for provider %s: set %s, TUTOR_API_KEY, or %s/%s",
			agent.ErrMissingAPIKey, cfg.AI.Provider, providerEnv[cfg.AI.Provider][0],
			secrets.DefaultDir, secrets.KeyFile(cfg.AI.Provider))
	}
	if cfg.AI.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", cfg.AI.Timeout)
	}
	if cfg.Output.SaveRuns && cfg.Output.RunsDir == "" {
		return errors.New("save_runs requires runs_dir")
	}
	if cfg.Output.History && cfg.Output.HistoryDB == "" {
		return errors.New("history requires history_db")
	}
	return nil
}
