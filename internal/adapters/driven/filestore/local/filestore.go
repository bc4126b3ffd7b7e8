// Package local provides a filesystem-backed upload store.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore keeps uploads as regular files named <id>_<filename> under a
// single directory. The id prefix resolves reads and the filename suffix
// survives so the parser can route on the original extension.
type FileStore struct {
	dir string
}

// NewFileStore creates an upload store rooted at dir, creating it if needed.
// If dir is empty, defaults to ~/.kb/uploads.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".kb", "uploads")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save stores an upload and returns its generated file id.
func (s *FileStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid filename %q", domain.ErrInvalidInput, filename)
	}

	id := uuid.New().String()
	path := filepath.Join(s.dir, id+"_"+base)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing upload file: %w", err)
	}

	return id, nil
}

// Read resolves a file id to its bytes and original filename.
func (s *FileStore) Read(_ context.Context, fileID string) ([]byte, string, error) {
	path, filename, err := s.resolve(fileID)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileID)
		}
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	return data, filename, nil
}

// Delete removes an upload. Missing files are not an error.
func (s *FileStore) Delete(_ context.Context, fileID string) error {
	path, _, err := s.resolve(fileID)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return nil
		}
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting upload: %w", err)
	}
	return nil
}

// resolve maps a file id to its stored path and original filename.
func (s *FileStore) resolve(fileID string) (path, filename string, err error) {
	if fileID == "" || strings.ContainsAny(fileID, "/\\*?") {
		return "", "", fmt.Errorf("%w: invalid file id %q", domain.ErrInvalidInput, fileID)
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, fileID+"_*"))
	if err != nil {
		return "", "", fmt.Errorf("resolving upload: %w", err)
	}
	if len(matches) == 0 {
		return "", "", fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileID)
	}

	path = matches[0]
	filename = strings.TrimPrefix(filepath.Base(path), fileID+"_")
	return path, filename, nil
}
