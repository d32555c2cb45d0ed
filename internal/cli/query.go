package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	queryText     string
	queryTopK     int
	queryJSON     bool
	queryNoRerank bool
	queryLexW     float64
	queryVecW     float64
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the database",
	Long: `Run a hybrid query: lexical and vector search in parallel, fused and
reranked.

Examples:
  yosemite query -q "mountain trails"
  yosemite query -q "mountain trails" --top-k 10 --json
  yosemite query -q "mountain trails" --lexical-weight 1 --vector-weight 0`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryNoRerank, "no-rerank", false, "return the fused order without reranking")
	queryCmd.Flags().Float64Var(&queryLexW, "lexical-weight", -1, "lexical path weight (default from config)")
	queryCmd.Flags().Float64Var(&queryVecW, "vector-weight", -1, "vector path weight (default from config)")
	queryCmd.MarkFlagRequired("query")
}

type queryOutput struct {
	URI   string  `json:"uri"`
	DocID uint64  `json:"doc_id"`
	Chunk uint64  `json:"chunk_id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	opts := queryOptions(queryTopK)
	opts.WithoutRerank = queryNoRerank
	if queryLexW >= 0 {
		opts.LexicalWeight = queryLexW
	}
	if queryVecW >= 0 {
		opts.VectorWeight = queryVecW
	}

	result, err := db.Query(cmd.Context(), queryText, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	for _, path := range result.Degraded {
		fmt.Fprintf(os.Stderr, "warning: %s path timed out, results are degraded\n", path)
	}

	outputs := make([]queryOutput, 0, len(result.Results))
	for _, r := range result.Results {
		doc, err := db.Get(r.Chunk.DocID)
		if err != nil {
			return err
		}
		outputs = append(outputs, queryOutput{
			URI:   doc.URI,
			DocID: r.Chunk.DocID,
			Chunk: r.Chunk.ID,
			Score: r.Score,
			Text:  r.Chunk.Text,
		})
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	}

	if len(outputs) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, out := range outputs {
		fmt.Printf("%d. %s (doc %d, chunk %d, score %.4f)\n", i+1, out.URI, out.DocID, out.Chunk, out.Score)
		fmt.Printf("   %s\n", out.Text)
	}
	return nil
}
