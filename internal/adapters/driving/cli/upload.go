package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Store a document for later ingestion",
	Long: `Copies a document into the upload store and prints its file id.
The id can be passed to "kb ingest --file-id" to run ingestion later.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fileID, jobID, err := ingestService.Upload(context.Background(), filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("storing upload: %w", err)
	}

	cmd.Printf("Stored %s (job %s)\n", filepath.Base(path), jobID)
	cmd.Printf("File ID: %s\n", fileID)
	return nil
}
