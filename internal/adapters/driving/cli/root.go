// Package cli implements the kb command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/kb-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kb-cli/internal/adapters/driven/embedding"
	"github.com/custodia-labs/kb-cli/internal/adapters/driven/filestore/local"
	"github.com/custodia-labs/kb-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kb-cli/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/kb-cli/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driving"
	"github.com/custodia-labs/kb-cli/internal/core/services"
	"github.com/custodia-labs/kb-cli/internal/logger"
	"github.com/custodia-labs/kb-cli/internal/normalisers"
)

// version is set at build time via -ldflags.
var version = "dev"

// Persistent flags.
var (
	verbose    bool
	configFlag string
)

// Services wired by setup and shared by all commands.
var (
	settings     configfile.Settings
	configDir    string
	metaStore    *sqlite.Store
	fileStore    driven.FileStore
	embedService driven.EmbeddingService

	jobTracker        driving.JobTracker
	ingestService     driving.Ingestor
	queryService      driving.Querier
	collectionService driving.CollectionManager
	reconcileService  driving.Reconciler
)

var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "Local document knowledge base",
	Long: `kb ingests documents into per-document vector collections and answers
questions against them using embedding similarity search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return setup()
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config directory (default ~/.kb)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and wires adapters into the services.
func setup() error {
	var err error
	configDir, err = configfile.ConfigDir(configFlag)
	if err != nil {
		return err
	}
	settings, err = configfile.Load(configDir)
	if err != nil {
		return err
	}

	metaStore, err = sqlite.NewStore(settings.ResolveDataDir(configDir))
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}

	fileStore, err = local.NewFileStore(settings.ResolveUploadDir(configDir))
	if err != nil {
		return fmt.Errorf("opening upload store: %w", err)
	}

	embedService, err = buildEmbedder()
	if err != nil {
		return err
	}

	vectors := buildVectorStore()

	manager := services.NewCollectionManager(vectors, metaStore.CollectionStore())
	tracker := services.NewJobTracker()

	jobTracker = tracker
	collectionService = manager
	ingestService = services.NewIngestor(fileStore, normalisers.NewRegistry(), embedService, manager, tracker)
	queryService = services.NewQuerier(embedService, vectors, manager)
	reconcileService = services.NewReconciler(manager, embedService.Dimensions(), embedService.ModelName())

	logger.Debug("Configured: embedding=%s (%d dims), vector=%s",
		embedService.ModelName(), embedService.Dimensions(), settings.Vector.Backend)
	return nil
}

// teardown releases adapter resources.
func teardown() error {
	var errs []error
	if embedService != nil {
		errs = append(errs, embedService.Close())
	}
	if metaStore != nil {
		errs = append(errs, metaStore.Close())
	}
	return errors.Join(errs...)
}

// buildEmbedder constructs the embedding service selected by configuration.
// Construction pings the provider, so a dead endpoint fails here.
func buildEmbedder() (driven.EmbeddingService, error) {
	return embedding.New(context.Background(), embedding.Config{
		Provider:   settings.Embedding.Provider,
		BaseURL:    settings.Embedding.BaseURL,
		Model:      settings.Embedding.Model,
		Dimensions: settings.Embedding.Dimensions,
		APIKey:     settings.Embedding.APIKey(),
	})
}

// buildVectorStore constructs the vector store selected by configuration.
func buildVectorStore() driven.VectorStore {
	if settings.Vector.Backend == "memory" {
		return memory.NewStore()
	}
	return qdrant.NewStore(qdrant.Config{
		BaseURL: settings.Vector.URL,
		APIKey:  settings.Vector.APIKey(),
	})
}
