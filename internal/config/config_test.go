// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/curriculum-tutor/internal/agent"
	"github.com/pdiddy/curriculum-tutor/internal/secrets"
	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

func newViper(t *testing.T, yamlDoc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yamlDoc != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yamlDoc)))
	}
	return v
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	v := newViper(t, "")
	cfg, err := Load(v, envMap(map[string]string{"ANTHROPIC_API_KEY": "env-key"}), secrets.Secrets{})
	require.NoError(t, err)

	assert.Equal(t, types.ProviderClaude, cfg.AI.Provider)
	assert.Equal(t, agent.DefaultModels[types.ProviderClaude], cfg.AI.Model)
	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, 4096, cfg.AI.MaxTokens)
	assert.Equal(t, 3, cfg.AI.MaxRetries)
	assert.Equal(t, 120*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "output/runs", cfg.Output.RunsDir)
	assert.Equal(t, "tutor.db", cfg.Output.HistoryDB)
	assert.False(t, cfg.Output.SaveRuns)
	assert.False(t, cfg.Output.History)
	assert.False(t, cfg.StrictExit)
	assert.Empty(t, cfg.Roles)
}

func TestLoad_ConfigFile(t *testing.T) {
	v := newViper(t, `
provider: gemini
model: gemini-2.5-pro
timeout: 30s
max_tokens: 2048
save_runs: true
runs_dir: runs
history: true
strict_exit: true
roles:
  curriculum_agent:
    instructions: Plan a short Go course.
`)
	cfg, err := Load(v, envMap(map[string]string{"GOOGLE_API_KEY": "g-key"}), secrets.Secrets{})
	require.NoError(t, err)

	assert.Equal(t, types.ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, "g-key", cfg.AI.APIKey)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 2048, cfg.AI.MaxTokens)
	assert.True(t, cfg.Output.SaveRuns)
	assert.Equal(t, "runs", cfg.Output.RunsDir)
	assert.True(t, cfg.Output.History)
	assert.True(t, cfg.StrictExit)
	require.Contains(t, cfg.Roles, agent.GeneratorName)
	assert.Equal(t, "Plan a short Go course.", cfg.Roles[agent.GeneratorName].Instructions)
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	sec := secrets.Secrets{"openrouter-api-key": "from-secrets"}

	tests := []struct {
		name   string
		setKey string
		env    map[string]string
		want   string
	}{
		{name: "secrets file is the fallback", want: "from-secrets"},
		{name: "provider env beats secrets", env: map[string]string{"OPENROUTER_API_KEY": "from-env"}, want: "from-env"},
		{name: "explicit key beats everything", setKey: "from-flag", env: map[string]string{"OPENROUTER_API_KEY": "from-env"}, want: "from-flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t, "provider: openrouter\n")
			if tt.setKey != "" {
				v.Set(KeyAPIKey, tt.setKey)
			}
			cfg, err := Load(v, envMap(tt.env), sec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.AI.APIKey)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantIs  error
		wantMsg string
	}{
		{name: "unknown provider", doc: "provider: bard\n", wantIs: agent.ErrUnknownProvider},
		{name: "missing key", doc: "provider: claude\n", wantIs: agent.ErrMissingAPIKey, wantMsg: ".secrets/anthropic-api-key"},
		{name: "negative max tokens", doc: "provider: fake\nmax_tokens: -1\n", wantMsg: "max_tokens"},
		{name: "history without db", doc: "provider: fake\nhistory: true\nhistory_db: \"\"\n", wantMsg: "history_db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.doc), envMap(nil), secrets.Secrets{})
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoad_FakeNeedsNoKey(t *testing.T) {
	cfg, err := Load(newViper(t, "provider: fake\n"), envMap(nil), secrets.Secrets{})
	require.NoError(t, err)
	assert.Equal(t, "fake", cfg.AI.Model)
	assert.Empty(t, cfg.AI.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	found, err := LoadDotEnv(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.False(t, found)

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TUTOR_TEST_DOTENV=from-file\nTUTOR_TEST_PRESET=from-file\n"), 0o644))
	t.Setenv("TUTOR_TEST_PRESET", "from-shell")
	t.Cleanup(func() { os.Unsetenv("TUTOR_TEST_DOTENV") })

	found, err = LoadDotEnv(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "from-file", os.Getenv("TUTOR_TEST_DOTENV"))
	assert.Equal(t, "from-shell", os.Getenv("TUTOR_TEST_PRESET"))
}
