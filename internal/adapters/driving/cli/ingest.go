package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/kb-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

var (
	ingestName         string
	ingestFileID       string
	ingestCollection   string
	ingestChunkSize    int
	ingestChunkOverlap int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into the knowledge base",
	Long: `Runs the full ingestion pipeline: parse, chunk, embed and write the
document into its own vector collection. With --file-id an earlier upload is
ingested instead of a path.

Chunking is automatic unless --chunk-size is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document name (default: file name)")
	ingestCmd.Flags().StringVar(&ingestFileID, "file-id", "", "ingest a previously uploaded file")
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "write into an existing collection")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk size in tokens (100-8000)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", 0, "chunk overlap in tokens")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if (len(args) == 0) == (ingestFileID == "") {
		return errors.New("provide either a file path or --file-id")
	}

	ctx := context.Background()
	fileID := ingestFileID
	name := ingestName

	if len(args) == 1 {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		fileID, _, err = ingestService.Upload(ctx, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("storing upload: %w", err)
		}
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
	}
	if name == "" {
		return errors.New("--name is required with --file-id")
	}

	chunkSize, chunkOverlap := resolveChunking(ingestChunkSize, ingestChunkOverlap, settings.Chunking)
	req := newIngestRequest(fileID, name, chunkSize, chunkOverlap)
	req.TargetCollectionID = ingestCollection

	jobID, err := ingestService.Ingest(ctx, req)
	if err != nil {
		return fmt.Errorf("submitting ingestion: %w", err)
	}
	cmd.Printf("Job %s started\n", jobID)

	job, err := waitForJob(cmd, jobID)
	if err != nil {
		return err
	}
	if job.Status == domain.JobFailed {
		return fmt.Errorf("ingestion failed: %s", job.Message)
	}

	cmd.Printf("Ingested %d chunks into %s\n", job.ChunkCount, job.CollectionID)
	return nil
}

// resolveChunking picks the manual chunking parameters: flags win, then the
// config file's [chunking] section. Zero means automatic chunking.
func resolveChunking(flagSize, flagOverlap int, cfg configfile.ChunkingSettings) (size, overlap int) {
	if flagSize > 0 {
		return flagSize, flagOverlap
	}
	return cfg.MaxTokens, cfg.OverlapTokens
}

// newIngestRequest builds an ingestion request, switching to manual
// chunking when a window size is set.
func newIngestRequest(fileID, name string, chunkSize, chunkOverlap int) domain.IngestRequest {
	req := domain.IngestRequest{
		FileID:       fileID,
		DocumentName: name,
		Mode:         domain.ChunkModeAuto,
	}
	if chunkSize > 0 {
		req.Mode = domain.ChunkModeManual
		req.ChunkSize = chunkSize
		req.ChunkOverlap = chunkOverlap
	}
	return req
}

// waitForJob polls a job until it reaches a terminal status, echoing
// progress changes as they appear.
func waitForJob(cmd *cobra.Command, jobID string) (*domain.Job, error) {
	lastProgress := -1
	for {
		job, err := jobTracker.Get(jobID)
		if err != nil {
			return nil, fmt.Errorf("polling job: %w", err)
		}

		if job.Progress != lastProgress {
			lastProgress = job.Progress
			cmd.Printf("  [%3d%%] %s\n", job.Progress, job.Message)
		}
		if job.Status.Terminal() {
			return job, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}
