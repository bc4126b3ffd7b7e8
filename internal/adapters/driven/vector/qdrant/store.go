// Package qdrant provides a vector store adapter using the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second

	// exportPageSize is the scroll page size used by Export.
	exportPageSize = 256
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// BaseURL is the Qdrant REST endpoint (default: http://localhost:6333).
	BaseURL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Store is a REST client to Qdrant. Collections use cosine distance; point
// ids are UUIDs derived from the chunk id because Qdrant only accepts UUID
// or integer ids, with the original chunk id kept in the payload.
type Store struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewStore creates a new Qdrant store.
func NewStore(cfg Config) *Store {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// pointPayload is the stored chunk payload.
type pointPayload struct {
	ChunkID          string `json:"chunk_id"`
	Text             string `json:"text"`
	DocumentName     string `json:"document_name"`
	JobID            string `json:"job_id"`
	Index            int    `json:"index"`
	TokenCount       int    `json:"token_count"`
	SourceCollection string `json:"source_collection,omitempty"`
}

func payloadFor(rec driven.VectorRecord) pointPayload {
	return pointPayload{
		ChunkID:          rec.ID,
		Text:             rec.Text,
		DocumentName:     rec.Metadata.DocumentName,
		JobID:            rec.Metadata.JobID,
		Index:            rec.Metadata.Index,
		TokenCount:       rec.Metadata.TokenCount,
		SourceCollection: rec.Metadata.SourceCollection,
	}
}

func (p pointPayload) metadata() domain.ChunkMetadata {
	return domain.ChunkMetadata{
		DocumentName:     p.DocumentName,
		JobID:            p.JobID,
		Index:            p.Index,
		TokenCount:       p.TokenCount,
		SourceCollection: p.SourceCollection,
	}
}

// pointID derives a deterministic Qdrant-compatible UUID from a chunk id.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// CreateCollection creates a collection with the given dimension.
// Qdrant treats re-creation with an identical schema as success.
func (s *Store) CreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

// DeleteCollection removes a collection and its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return s.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
}

// ListCollections returns all collection names in the store.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

// Describe probes a collection's dimension and point count.
func (s *Store) Describe(ctx context.Context, name string) (*driven.CollectionInfo, error) {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections/"+name, nil, &resp); err != nil {
		return nil, err
	}
	return &driven.CollectionInfo{
		Name:      name,
		Dimension: resp.Result.Config.Params.Vectors.Size,
		Count:     resp.Result.PointsCount,
	}, nil
}

// Upsert writes records into a collection.
func (s *Store) Upsert(ctx context.Context, name string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, rec := range records {
		points[i] = map[string]any{
			"id":      pointID(rec.ID),
			"vector":  rec.Embedding,
			"payload": payloadFor(rec),
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", body, nil)
}

// Query returns up to topK nearest records by cosine similarity.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int) ([]driven.VectorMatch, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]driven.VectorMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, driven.VectorMatch{
			ID:       r.Payload.ChunkID,
			Score:    r.Score,
			Text:     r.Payload.Text,
			Metadata: r.Payload.metadata(),
		})
	}
	return matches, nil
}

// Export scrolls the full collection, vectors included.
func (s *Store) Export(ctx context.Context, name string) ([]driven.VectorRecord, error) {
	var records []driven.VectorRecord
	var offset any

	for {
		body := map[string]any{
			"limit":        exportPageSize,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			body["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					Vector  []float32    `json:"vector"`
					Payload pointPayload `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/scroll", body, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Result.Points {
			records = append(records, driven.VectorRecord{
				ID:        p.Payload.ChunkID,
				Embedding: p.Vector,
				Text:      p.Payload.Text,
				Metadata:  p.Payload.metadata(),
			})
		}

		if resp.Result.NextPageOffset == nil {
			return records, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// do performs one REST call and maps failures onto the domain errors:
// transport failures become ErrStoreUnavailable, 404 becomes
// ErrCollectionNotFound and a 400 mentioning vector dimensions becomes
// ErrDimensionMismatch.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(raw))
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, path)
		case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "dim"):
			return fmt.Errorf("%w: %s", domain.ErrDimensionMismatch, msg)
		default:
			return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, msg)
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
