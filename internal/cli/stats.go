package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database contents",
	RunE:  runStats,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Delete a document and all of its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Documents:       %d\n", stats.TotalDocs)
	fmt.Printf("Chunks:          %d\n", stats.TotalChunks)
	fmt.Printf("Avg chunk len:   %.1f tokens\n", stats.AvgChunkLen)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", args[0], err)
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Delete(id); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	fmt.Printf("Deleted document %d.\n", id)
	return nil
}
