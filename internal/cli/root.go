package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hsaeed3/yosemite"
	"github.com/hsaeed3/yosemite/config"
	"github.com/hsaeed3/yosemite/internal/adapter/analyzer"
	"github.com/hsaeed3/yosemite/internal/adapter/chunker"
	"github.com/hsaeed3/yosemite/internal/adapter/embedding"
	"github.com/hsaeed3/yosemite/internal/adapter/index"
	"github.com/hsaeed3/yosemite/internal/adapter/scorer"
)

var (
	cfgFile string
	dbDir   string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "yosemite",
	Short: "Yosemite - a unified local document database with hybrid search",
	Long: `Yosemite is an embedded document database that answers queries with both
lexical (TF-IDF) and vector (approximate nearest neighbor) search, fuses the
two result sets, and reranks them with a relevance scorer.

Example usage:
  yosemite ingest ./documents          # Ingest a directory of text files
  yosemite query -q "mountain trails"  # Hybrid search
  yosemite stats                       # Show database contents`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(dbDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		initLogging(cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <db>/yosemite.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dbDir, "db", "d", "./yosemite-db", "database directory")
}

func initLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// openDatabase maps the loaded config onto database options.
func openDatabase() (*yosemite.Database, error) {
	var opts []yosemite.Option

	var analyzerOpts []analyzer.Option
	if cfg.Analyzer.Stemming {
		analyzerOpts = append(analyzerOpts, analyzer.WithStemming())
	}
	if !cfg.Analyzer.Stopwords {
		analyzerOpts = append(analyzerOpts, analyzer.WithoutStopwords())
	}
	opts = append(opts, yosemite.WithAnalyzer(analyzer.New(analyzerOpts...)))

	switch cfg.Embedding.Provider {
	case "openai":
		emb, err := embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.Dimension)
		if err != nil {
			return nil, err
		}
		opts = append(opts, yosemite.WithEmbedder(emb))
	case "ollama":
		opts = append(opts, yosemite.WithEmbedder(
			embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimension)))
	default:
		opts = append(opts, yosemite.WithEmbedder(embedding.NewHashEmbedder(cfg.Embedding.Dimension)))
	}

	if cfg.Reranker.Provider == "cohere" {
		sc, err := scorer.NewCohereScorer(cfg.Reranker.APIKeyEnv, cfg.Reranker.Model)
		if err != nil {
			return nil, err
		}
		opts = append(opts, yosemite.WithScorer(sc))
	}

	switch cfg.Chunking.Strategy {
	case "window":
		opts = append(opts, yosemite.WithChunker(chunker.NewWindow(cfg.Chunking.Size, cfg.Chunking.Overlap)))
	default:
		opts = append(opts, yosemite.WithChunker(chunker.NewSentence(cfg.Chunking.Size)))
	}

	opts = append(opts,
		yosemite.WithVectorConfig(index.VectorConfig{
			Trees:   cfg.Vector.Trees,
			SearchK: cfg.Vector.SearchK,
			Seed:    cfg.Vector.Seed,
		}),
		yosemite.WithWorkers(cfg.Ingest.Workers),
		yosemite.WithRetries(cfg.Ingest.Retries),
	)

	return yosemite.Open(dbDir, opts...)
}

func queryOptions(topK int) yosemite.QueryOptions {
	opts := yosemite.DefaultQueryOptions()
	if cfg.Query.TopK > 0 {
		opts.TopK = cfg.Query.TopK
	}
	if topK > 0 {
		opts.TopK = topK
	}
	if cfg.Query.FanOut > 0 {
		opts.FanOut = cfg.Query.FanOut
	}
	opts.LexicalWeight = cfg.Query.LexicalWeight
	opts.VectorWeight = cfg.Query.VectorWeight
	if cfg.Query.PathTimeoutMS > 0 {
		opts.PathTimeout = time.Duration(cfg.Query.PathTimeoutMS) * time.Millisecond
	}
	return opts
}
