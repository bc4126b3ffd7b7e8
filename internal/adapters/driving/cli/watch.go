package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/logger"
)

// watchDebounce is how long a file must stay quiet before it is ingested.
// Editors fire several Write events while saving.
const watchDebounce = 2 * time.Second

var watchExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".text":     true,
}

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest new or changed documents",
	Long: `Watches a directory for Markdown and plain text files. A file that is
created or modified is ingested automatically once it stops changing. Runs
until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Long-running mode, so clear out incompatible collections up front
	// instead of skipping them on every query.
	if reconcileService != nil {
		report, err := reconcileService.Reconcile(ctx, domain.ReconcileOptions{})
		if err != nil {
			return fmt.Errorf("reconcile failed: %w", err)
		}
		if len(report.Deleted) > 0 {
			cmd.Printf("Removed %d incompatible collections\n", len(report.Deleted))
		}
	}

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopping.")
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !watchExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(timers, path)
				mu.Unlock()
				watchIngest(cmd, path)
			})
			mu.Unlock()
		}
	}
}

// watchIngest ingests one settled file and waits for the job to finish.
func watchIngest(cmd *cobra.Command, path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Skipping %s: %v", path, err)
		return
	}

	ctx := context.Background()
	fileID, _, err := ingestService.Upload(ctx, filepath.Base(path), f)
	f.Close()
	if err != nil {
		logger.Warn("Skipping %s: %v", path, err)
		return
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	chunkSize, chunkOverlap := resolveChunking(0, 0, settings.Chunking)
	jobID, err := ingestService.Ingest(ctx, newIngestRequest(fileID, name, chunkSize, chunkOverlap))
	if err != nil {
		logger.Warn("Ingesting %s failed: %v", path, err)
		return
	}

	job, err := waitForJob(cmd, jobID)
	if err != nil {
		logger.Warn("Polling job for %s failed: %v", path, err)
		return
	}
	if job.Status == domain.JobFailed {
		logger.Warn("Ingesting %s failed: %s", path, job.Message)
		return
	}
	cmd.Printf("Ingested %s into %s (%d chunks)\n", filepath.Base(path), job.CollectionID, job.ChunkCount)
}
