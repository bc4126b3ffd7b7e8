// Package file provides TOML-backed configuration.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigDirName is the directory under the user's home that holds
// configuration, uploads and metadata.
const DefaultConfigDirName = ".kb"

// Settings is the full configuration tree as stored in config.toml.
type Settings struct {
	// DataDir holds the metadata database. Empty means <configDir>/data.
	DataDir string `toml:"data_dir,omitempty"`

	// UploadDir holds raw uploads. Empty means <configDir>/uploads.
	UploadDir string `toml:"upload_dir,omitempty"`

	Embedding EmbeddingSettings `toml:"embedding"`
	Vector    VectorSettings    `toml:"vector"`
	Chunking  ChunkingSettings  `toml:"chunking"`
}

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url,omitempty"`

	// Model overrides the provider's default embedding model.
	Model string `toml:"model,omitempty"`

	// Dimensions overrides the model's default vector size.
	Dimensions int `toml:"dimensions,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	// Keys are never written to the config file itself.
	APIKeyEnv string `toml:"api_key_env,omitempty"`
}

// VectorSettings selects and configures the vector store backend.
type VectorSettings struct {
	// Backend is "qdrant" or "memory".
	Backend string `toml:"backend"`

	// URL is the Qdrant REST endpoint.
	URL string `toml:"url,omitempty"`

	// APIKeyEnv names the environment variable holding the Qdrant API key.
	APIKeyEnv string `toml:"api_key_env,omitempty"`
}

// ChunkingSettings carries the default chunking parameters.
type ChunkingSettings struct {
	MaxTokens     int `toml:"max_tokens,omitempty"`
	OverlapTokens int `toml:"overlap_tokens,omitempty"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider: "ollama",
		},
		Vector: VectorSettings{
			Backend: "qdrant",
			URL:     "http://localhost:6333",
		},
	}
}

// APIKey resolves the provider API key from the configured environment
// variable, falling back to a provider-specific default variable.
func (e EmbeddingSettings) APIKey() string {
	if e.APIKeyEnv != "" {
		return os.Getenv(e.APIKeyEnv)
	}
	if e.Provider == "openai" {
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// APIKey resolves the store API key from the configured environment variable.
func (v VectorSettings) APIKey() string {
	if v.APIKeyEnv != "" {
		return os.Getenv(v.APIKeyEnv)
	}
	return os.Getenv("QDRANT_API_KEY")
}

// ConfigDir returns the configuration directory, honoring an explicit
// override and defaulting to ~/.kb.
func ConfigDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDirName), nil
}

// Load reads settings from <configDir>/config.toml. A missing file yields
// the defaults without error.
func Load(configDir string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(filepath.Join(configDir, "config.toml"))
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing config: %w", err)
	}
	return settings, nil
}

// Save writes settings to <configDir>/config.toml, creating the directory
// if needed.
func Save(configDir string, settings Settings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// Restricted permissions, the file may name key variables.
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ResolveDataDir resolves the metadata directory for the given settings.
func (s Settings) ResolveDataDir(configDir string) string {
	if s.DataDir != "" {
		return s.DataDir
	}
	return filepath.Join(configDir, "data")
}

// ResolveUploadDir resolves the upload directory for the given settings.
func (s Settings) ResolveUploadDir(configDir string) string {
	if s.UploadDir != "" {
		return s.UploadDir
	}
	return filepath.Join(configDir, "uploads")
}
