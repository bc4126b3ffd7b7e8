package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
)

// stubEmbedder produces deterministic vectors without a provider. Each
// vector encodes the text length so different chunks stay distinguishable.
type stubEmbedder struct {
	dimension int
	model     string
	failWith  error
	mu        sync.Mutex
	calls     int
}

var _ driven.EmbeddingService = (*stubEmbedder)(nil)

func newStubEmbedder(dimension int) *stubEmbedder {
	return &stubEmbedder{dimension: dimension, model: "stub-embed"}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.failWith != nil {
		return nil, e.failWith
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for j := range vec {
			vec[j] = float32((len(text)+i+j)%17) / 17
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *stubEmbedder) Dimensions() int            { return e.dimension }
func (e *stubEmbedder) ModelName() string          { return e.model }
func (e *stubEmbedder) Ping(context.Context) error { return nil }
func (e *stubEmbedder) Close() error               { return nil }

func (e *stubEmbedder) batchCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// stubFileStore keeps uploads in a map keyed by generated id.
type stubFileStore struct {
	mu    sync.Mutex
	next  int
	files map[string]stubFile
}

type stubFile struct {
	name string
	data []byte
}

var _ driven.FileStore = (*stubFileStore)(nil)

func newStubFileStore() *stubFileStore {
	return &stubFileStore{files: make(map[string]stubFile)}
}

func (s *stubFileStore) add(filename, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("file-%d", s.next)
	s.files[id] = stubFile{name: filename, data: []byte(content)}
	return id
}

func (s *stubFileStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return s.add(filename, string(data)), nil
}

func (s *stubFileStore) Read(_ context.Context, fileID string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileID)
	}
	return f.data, f.name, nil
}

func (s *stubFileStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	return nil
}
