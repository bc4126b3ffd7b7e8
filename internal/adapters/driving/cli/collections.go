package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

var collectionsJSON bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage knowledge base collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	Args:  cobra.NoArgs,
	RunE:  runCollectionsList,
}

var collectionsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one collection's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsShow,
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a collection and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDelete,
}

func init() {
	collectionsCmd.PersistentFlags().BoolVar(&collectionsJSON, "json", false, "output as JSON")
	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsShowCmd)
	collectionsCmd.AddCommand(collectionsDeleteCmd)
	rootCmd.AddCommand(collectionsCmd)
}

func runCollectionsList(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	metas, err := collectionService.ListAll(context.Background())
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	if collectionsJSON {
		data, err := json.MarshalIndent(metas, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal collections: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(metas) == 0 {
		cmd.Println("No collections.")
		return nil
	}
	for _, meta := range metas {
		cmd.Printf("  %-40s %-10s %5d chunks  %s\n",
			meta.Name, meta.Status, meta.ChunkCount, meta.EmbeddingModel)
	}
	return nil
}

func runCollectionsShow(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	meta, err := collectionService.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}

	if collectionsJSON {
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal collection: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Name:      %s\n", meta.Name)
	cmd.Printf("Document:  %s\n", meta.DocumentName)
	cmd.Printf("Job:       %s\n", meta.JobID)
	cmd.Printf("Status:    %s\n", meta.Status)
	cmd.Printf("Model:     %s (%d dimensions)\n", meta.EmbeddingModel, meta.Dimension)
	cmd.Printf("Chunks:    %d\n", meta.ChunkCount)
	cmd.Printf("Created:   %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05"))
	if meta.CompletedAt != nil {
		cmd.Printf("Completed: %s\n", meta.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCollectionsDelete(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	name := args[0]
	if err := collectionService.Delete(context.Background(), name); err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return fmt.Errorf("collection %s does not exist", name)
		}
		return fmt.Errorf("deleting collection: %w", err)
	}
	cmd.Printf("Deleted %s\n", name)
	return nil
}
