package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

var indexMembers []string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage combined index collections",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Combine completed collections into one index collection",
	Long: `Copies the vectors of up to five completed collections into a new
index collection that can be queried as a single unit. Each copied chunk
records which collection it came from.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexCreate,
}

func init() {
	indexCreateCmd.Flags().StringSliceVar(&indexMembers, "from", nil, "member collections (repeatable)")
	indexCmd.AddCommand(indexCreateCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if len(indexMembers) == 0 {
		return errors.New("at least one --from collection is required")
	}

	jobID, err := ingestService.CreateIndex(context.Background(), args[0], indexMembers)
	if err != nil {
		return fmt.Errorf("submitting index creation: %w", err)
	}
	cmd.Printf("Job %s started\n", jobID)

	job, err := waitForJob(cmd, jobID)
	if err != nil {
		return err
	}
	if job.Status == domain.JobFailed {
		return fmt.Errorf("index creation failed: %s", job.Message)
	}

	cmd.Printf("Index %s holds %d chunks\n", job.CollectionID, job.ChunkCount)
	return nil
}
