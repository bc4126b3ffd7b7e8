package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

var jobsJSON bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect ingestion jobs",
	Long: `Shows jobs tracked by the current process. Job state lives in memory
only, so each invocation starts with an empty list.`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show [job-id]",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func init() {
	jobsCmd.PersistentFlags().BoolVar(&jobsJSON, "json", false, "output as JSON")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	if jobTracker == nil {
		return errors.New("job tracker not configured")
	}

	jobs := jobTracker.List()

	if jobsJSON {
		data, err := json.MarshalIndent(jobs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal jobs: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(jobs) == 0 {
		cmd.Println("No jobs.")
		return nil
	}
	for _, job := range jobs {
		cmd.Printf("  %s  %-12s %-9s %3d%%  %s\n",
			job.ID[:8], job.Kind, job.Status, job.Progress, job.Name)
	}
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	if jobTracker == nil {
		return errors.New("job tracker not configured")
	}

	job, err := jobTracker.Get(args[0])
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("job %s does not exist", args[0])
		}
		return fmt.Errorf("loading job: %w", err)
	}

	if jobsJSON {
		data, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("ID:         %s\n", job.ID)
	cmd.Printf("Kind:       %s\n", job.Kind)
	cmd.Printf("Name:       %s\n", job.Name)
	cmd.Printf("Status:     %s (%d%%)\n", job.Status, job.Progress)
	if job.Message != "" {
		cmd.Printf("Message:    %s\n", job.Message)
	}
	if job.CollectionID != "" {
		cmd.Printf("Collection: %s\n", job.CollectionID)
	}
	if job.ChunkCount > 0 {
		cmd.Printf("Chunks:     %d\n", job.ChunkCount)
	}
	return nil
}
