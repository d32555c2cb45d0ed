// Package config holds the YAML configuration for the yosemite database
// and its CLI.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the database.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Query     QueryConfig     `yaml:"query"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig selects how document text is split.
type ChunkingConfig struct {
	Strategy string `yaml:"strategy"` // "window" or "sentence"
	Size     int    `yaml:"size"`     // window size / max sentence-group size, in runes
	Overlap  int    `yaml:"overlap"`  // window context overlap, in runes
}

// AnalyzerConfig selects token normalization behavior.
type AnalyzerConfig struct {
	Stemming  bool `yaml:"stemming"`
	Stopwords bool `yaml:"stopwords"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "hash"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
}

// VectorConfig tunes the approximate vector index.
type VectorConfig struct {
	Trees   int   `yaml:"trees"`
	SearchK int   `yaml:"search_k"`
	Seed    int64 `yaml:"seed"`
}

// QueryConfig holds hybrid query defaults.
type QueryConfig struct {
	TopK          int     `yaml:"top_k"`
	FanOut        int     `yaml:"fan_out"`
	LexicalWeight float64 `yaml:"lexical_weight"`
	VectorWeight  float64 `yaml:"vector_weight"`
	PathTimeoutMS int     `yaml:"path_timeout_ms"`
}

// IngestConfig holds ingestion pipeline tuning.
type IngestConfig struct {
	Workers  int      `yaml:"workers"` // 0 means NumCPU
	Retries  int      `yaml:"retries"`
	Includes []string `yaml:"includes"` // glob patterns for directory ingestion
}

// RerankerConfig selects the relevance scorer.
type RerankerConfig struct {
	Provider  string `yaml:"provider"` // "cohere", "overlap"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration: a fully offline database
// using the hash embedder and the overlap scorer.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Strategy: "sentence",
			Size:     512,
			Overlap:  0,
		},
		Analyzer: AnalyzerConfig{
			Stemming:  true,
			Stopwords: true,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 256,
		},
		Vector: VectorConfig{
			Trees: 10,
			Seed:  42,
		},
		Query: QueryConfig{
			TopK:          5,
			FanOut:        3,
			LexicalWeight: 0.5,
			VectorWeight:  0.5,
			PathTimeoutMS: 2000,
		},
		Ingest: IngestConfig{
			Retries:  1,
			Includes: []string{"**/*.txt", "**/*.md"},
		},
		Reranker: RerankerConfig{
			Provider:  "overlap",
			Model:     "rerank-english-v3.0",
			APIKeyEnv: "COHERE_API_KEY",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults if
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a database directory, looking for
// yosemite.yaml.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "yosemite.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
