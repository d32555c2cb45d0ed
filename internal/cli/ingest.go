package cli

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hsaeed3/yosemite/internal/adapter/extractor"
	"github.com/hsaeed3/yosemite/internal/usecase"
)

var (
	ingestCSV           string
	ingestIDColumn      string
	ingestContentColumn string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest documents into the database",
	Long: `Ingest a file, a directory of text files, or a CSV dataset.

Examples:
  yosemite ingest notes.txt
  yosemite ingest ./documents
  yosemite ingest --csv data.csv --id-column id --content-column content`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestCSV, "csv", "", "ingest a CSV dataset, one document per row")
	ingestCmd.Flags().StringVar(&ingestIDColumn, "id-column", "id", "CSV column holding the external document id")
	ingestCmd.Flags().StringVar(&ingestContentColumn, "content-column", "content", "CSV column holding the document text")
}

func runIngest(cmd *cobra.Command, args []string) error {
	var sources []usecase.Source

	switch {
	case ingestCSV != "":
		var err error
		sources, err = extractor.FromCSV(ingestCSV, ingestIDColumn, ingestContentColumn)
		if err != nil {
			return fmt.Errorf("failed to read dataset: %w", err)
		}
	case len(args) == 1:
		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("path does not exist: %w", err)
		}
		if info.IsDir() {
			files, err := extractor.Walk(args[0], cfg.Ingest.Includes)
			if err != nil {
				return fmt.Errorf("failed to walk directory: %w", err)
			}
			for _, f := range files {
				src, err := extractor.FromFile(f)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", f, err)
				}
				sources = append(sources, src)
			}
		} else {
			src, err := extractor.FromFile(args[0])
			if err != nil {
				return err
			}
			sources = append(sources, src)
		}
	default:
		return fmt.Errorf("provide a path or --csv")
	}

	if len(sources) == 0 {
		fmt.Println("Nothing to ingest.")
		return nil
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	bar := progressbar.NewOptions(len(sources),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	ingested := 0
	for _, src := range sources {
		if _, err := db.Ingest(cmd.Context(), src); err != nil {
			return fmt.Errorf("failed to ingest %s: %w", src.URI, err)
		}
		ingested++
		bar.Add(1)
	}

	stats, err := db.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d documents (%d total, %d chunks).\n", ingested, stats.TotalDocs, stats.TotalChunks)
	return nil
}
