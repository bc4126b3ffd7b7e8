package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	settings, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "ollama", settings.Embedding.Provider)
	assert.Equal(t, "qdrant", settings.Vector.Backend)
	assert.Equal(t, "http://localhost:6333", settings.Vector.URL)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	settings := DefaultSettings()
	settings.Embedding.Provider = "openai"
	settings.Embedding.Model = "text-embedding-3-small"
	settings.Vector.Backend = "memory"
	settings.Chunking.MaxTokens = 300
	settings.Chunking.OverlapTokens = 40
	require.NoError(t, Save(dir, settings))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSave_RestrictsPermissions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, DefaultSettings()))

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAPIKey_Resolution(t *testing.T) {
	t.Setenv("KB_TEST_KEY", "secret")
	t.Setenv("OPENAI_API_KEY", "fallback")

	custom := EmbeddingSettings{Provider: "openai", APIKeyEnv: "KB_TEST_KEY"}
	assert.Equal(t, "secret", custom.APIKey())

	fallback := EmbeddingSettings{Provider: "openai"}
	assert.Equal(t, "fallback", fallback.APIKey())

	ollama := EmbeddingSettings{Provider: "ollama"}
	assert.Equal(t, "", ollama.APIKey())
}

func TestResolveDirs(t *testing.T) {
	s := Settings{}
	assert.Equal(t, filepath.Join("/cfg", "data"), s.ResolveDataDir("/cfg"))
	assert.Equal(t, filepath.Join("/cfg", "uploads"), s.ResolveUploadDir("/cfg"))

	s.DataDir = "/elsewhere/data"
	s.UploadDir = "/elsewhere/uploads"
	assert.Equal(t, "/elsewhere/data", s.ResolveDataDir("/cfg"))
	assert.Equal(t, "/elsewhere/uploads", s.ResolveUploadDir("/cfg"))
}
