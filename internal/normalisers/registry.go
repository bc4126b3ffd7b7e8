// Package normalisers turns raw uploaded bytes into plain text.
// Each normaliser handles specific formats; the registry picks one from the
// format hint and falls back to plain text for unknown hints.
package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
	"github.com/custodia-labs/kb-cli/internal/normalisers/markdown"
	"github.com/custodia-labs/kb-cli/internal/normalisers/plaintext"
)

// Normaliser extracts text from one document format.
type Normaliser interface {
	// SupportedExtensions returns the file extensions this normaliser
	// handles, lowercase with leading dot.
	SupportedExtensions() []string

	// Normalise extracts plain text from the document bytes.
	Normalise(ctx context.Context, data []byte) (string, error)
}

// Ensure Registry implements the parser port.
var _ driven.Parser = (*Registry)(nil)

// Registry routes documents to normalisers by format hint.
type Registry struct {
	byExt    map[string]Normaliser
	fallback Normaliser
}

// NewRegistry creates a registry with the built-in normalisers registered.
func NewRegistry() *Registry {
	r := &Registry{
		byExt:    make(map[string]Normaliser),
		fallback: plaintext.New(),
	}
	r.Register(plaintext.New())
	r.Register(markdown.New())
	return r
}

// Register adds a normaliser for its supported extensions.
func (r *Registry) Register(n Normaliser) {
	for _, ext := range n.SupportedExtensions() {
		r.byExt[ext] = n
	}
}

// Parse extracts text from the document bytes. The format hint is the
// original filename; unknown extensions fall back to plain text, which
// rejects binary content with domain.ErrParseError.
func (r *Registry) Parse(ctx context.Context, data []byte, formatHint string) (string, error) {
	ext := strings.ToLower(filepath.Ext(formatHint))

	n, ok := r.byExt[ext]
	if !ok {
		n = r.fallback
	}

	text, err := n.Normalise(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrParseError, formatHint, err)
	}
	return text, nil
}
