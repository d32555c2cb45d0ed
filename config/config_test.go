package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "sentence", cfg.Chunking.Strategy)
	require.Equal(t, "hash", cfg.Embedding.Provider)
	require.Equal(t, "overlap", cfg.Reranker.Provider)
	require.Equal(t, 0.5, cfg.Query.LexicalWeight)
	require.Equal(t, 0.5, cfg.Query.VectorWeight)
	require.Equal(t, 10, cfg.Vector.Trees)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yosemite.yaml")
	raw := `
chunking:
  strategy: window
  size: 256
  overlap: 32
embedding:
  provider: openai
  model: text-embedding-3-large
  dimension: 3072
query:
  top_k: 10
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "window", cfg.Chunking.Strategy)
	require.Equal(t, 256, cfg.Chunking.Size)
	require.Equal(t, 32, cfg.Chunking.Overlap)
	require.Equal(t, "openai", cfg.Embedding.Provider)
	require.Equal(t, 3072, cfg.Embedding.Dimension)
	require.Equal(t, 10, cfg.Query.TopK)

	// Untouched sections keep their defaults.
	require.Equal(t, "overlap", cfg.Reranker.Provider)
	require.Equal(t, 3, cfg.Query.FanOut)
	require.True(t, cfg.Analyzer.Stemming)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: ["), 0644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yosemite.yaml")

	cfg := DefaultConfig()
	cfg.Query.TopK = 7
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	custom := DefaultConfig()
	custom.Query.TopK = 20
	require.NoError(t, custom.Save(filepath.Join(dir, "yosemite.yaml")))

	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Query.TopK)
}
