// Package embedding constructs the configured embedding provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kb-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/kb-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
)

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "ollama" (default) or "openai".
	Provider string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model overrides the provider's default embedding model.
	Model string

	// Dimensions overrides the model's default vector size.
	Dimensions int

	// APIKey authenticates against providers that require one.
	APIKey string
}

// New builds the configured provider and verifies it is reachable before
// handing it out, so a dead endpoint fails at startup rather than mid-job.
func New(ctx context.Context, cfg Config) (driven.EmbeddingService, error) {
	svc, err := build(cfg)
	if err != nil {
		return nil, err
	}
	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("embedding provider unreachable: %w", err)
	}
	return svc, nil
}

func build(cfg Config) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
