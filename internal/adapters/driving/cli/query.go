package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

var (
	queryTopK       int
	queryCollection string
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against the knowledge base",
	Long: `Embeds the question and returns the most similar chunks. By default
all completed collections are searched; --collection restricts the search to
one collection.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top", "n", domain.DefaultTopK, "maximum number of results")
	queryCmd.Flags().StringVar(&queryCollection, "collection", "", "search a single collection")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	matches, err := queryService.Query(context.Background(), domain.QueryRequest{
		Question:     args[0],
		TopK:         queryTopK,
		CollectionID: queryCollection,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputMatchesJSON(cmd, matches)
	}
	return outputMatchesText(cmd, args[0], matches)
}

func outputMatchesJSON(cmd *cobra.Command, matches []domain.Match) error {
	data, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputMatchesText(cmd *cobra.Command, question string, matches []domain.Match) error {
	if len(matches) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Question: %s\n", question)
	cmd.Println()
	for i, m := range matches {
		cmd.Printf("  [%d] %s #%d (%.3f)\n", i+1, m.Metadata.DocumentName, m.Metadata.Index, m.Score)
		cmd.Printf("      Collection: %s\n", m.Collection)
		cmd.Printf("      %s\n", snippet(m.Text, 200))
		cmd.Println()
	}
	return nil
}

// snippet truncates text to at most n runes on a rune boundary.
func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
