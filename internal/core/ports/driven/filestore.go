package driven

import (
	"context"
	"io"
)

// FileStore persists raw uploads and resolves them back by id.
type FileStore interface {
	// Save stores an upload and returns its generated file id.
	Save(ctx context.Context, filename string, r io.Reader) (string, error)

	// Read resolves a file id to its bytes and original filename.
	// Returns domain.ErrFileNotFound on miss.
	Read(ctx context.Context, fileID string) (data []byte, filename string, err error)

	// Delete removes an upload. Missing files are not an error.
	Delete(ctx context.Context, fileID string) error
}
