package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

var reconcileDryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Remove collections incompatible with the active embedding model",
	Long: `Checks every recorded collection against the vector store and the
configured embedding model. Collections whose dimension no longer matches
are deleted; metadata for collections missing from the store is dropped.

With --dry-run the report is printed but nothing is deleted.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report without deleting")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	if reconcileService == nil {
		return errors.New("reconcile service not configured")
	}

	report, err := reconcileService.Reconcile(context.Background(), domain.ReconcileOptions{
		DryRun: reconcileDryRun,
	})
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	cmd.Printf("Checked %d collections\n", report.Checked)
	for _, name := range report.Missing {
		cmd.Printf("  missing from store: %s\n", name)
	}
	for _, name := range report.Incompatible {
		cmd.Printf("  incompatible:       %s\n", name)
	}
	if reconcileDryRun {
		cmd.Println("Dry run, nothing deleted.")
		return nil
	}
	cmd.Printf("Deleted %d collections\n", len(report.Deleted))
	return nil
}
