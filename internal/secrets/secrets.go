// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files: anthropic-api-key, gemini-api-key, openrouter-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// DefaultDir is where the CLI looks for secrets.
const DefaultDir = ".secrets"

// keyFiles maps each provider to the secret file holding its API key.
var keyFiles = map[types.Provider]string{
	types.ProviderClaude:     "anthropic-api-key",
	types.ProviderGemini:     "gemini-api-key",
	types.ProviderOpenRouter: "openrouter-api-key",
}

// Secrets is a set of loaded secret values keyed by filename.
type Secrets map[string]string

// KeyFile returns the secret filename for provider, or "" if it needs none.
func KeyFile(p types.Provider) string {
	return keyFiles[p]
}

// APIKey returns the stored API key for provider, or "".
func (s Secrets) APIKey(p types.Provider) string {
	name := KeyFile(p)
	if name == "" {
		return ""
	}
	return s[name]
}

// Names returns the loaded secret names in sorted order. Values are never
// exposed by this method so it is safe to print.
func (s Secrets) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Load reads all files in dir and returns their trimmed contents.
// A missing directory is not an error; Load returns an empty set.
// Unreadable files produce a warning on warn but do not abort.
func Load(dir string, warn io.Writer) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
