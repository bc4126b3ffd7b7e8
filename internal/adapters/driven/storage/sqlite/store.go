package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kb-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
)

// Store is the SQLite-backed metadata storage.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.kb/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kb", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CollectionStore returns a CollectionStore interface backed by this store.
func (s *Store) CollectionStore() driven.CollectionStore {
	return &collectionStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Collection Store ====================

// collectionStore implements driven.CollectionStore.
type collectionStore struct {
	store *Store
}

var _ driven.CollectionStore = (*collectionStore)(nil)

// Save stores or updates a collection metadata record.
func (s *collectionStore) Save(ctx context.Context, meta domain.CollectionMeta) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO collections
			(name, document_name, job_id, dimension, embedding_model, chunk_count, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document_name = excluded.document_name,
			job_id = excluded.job_id,
			dimension = excluded.dimension,
			embedding_model = excluded.embedding_model,
			chunk_count = excluded.chunk_count,
			status = excluded.status,
			completed_at = excluded.completed_at
	`, meta.Name, meta.DocumentName, meta.JobID, meta.Dimension, meta.EmbeddingModel,
		meta.ChunkCount, string(meta.Status), meta.CreatedAt, nullTime(meta.CompletedAt))

	if err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}

// Get retrieves a collection metadata record by name.
func (s *collectionStore) Get(ctx context.Context, name string) (*domain.CollectionMeta, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT name, document_name, job_id, dimension, embedding_model, chunk_count, status, created_at, completed_at
		FROM collections WHERE name = ?
	`, name)

	meta, err := scanCollection(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return meta, err
}

// Delete removes a collection metadata record.
func (s *collectionStore) Delete(ctx context.Context, name string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// List returns all collection metadata records, oldest first.
func (s *collectionStore) List(ctx context.Context) ([]domain.CollectionMeta, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT name, document_name, job_id, dimension, embedding_model, chunk_count, status, created_at, completed_at
		FROM collections ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var metas []domain.CollectionMeta //nolint:prealloc // size unknown from query
	for rows.Next() {
		meta, err := scanCollection(rows.Scan)
		if err != nil {
			return nil, err
		}
		metas = append(metas, *meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return metas, nil
}

// scanCollection scans one collection row via the given Scan function.
func scanCollection(scan func(dest ...any) error) (*domain.CollectionMeta, error) {
	var meta domain.CollectionMeta
	var status string
	var completedAt sql.NullTime

	if err := scan(&meta.Name, &meta.DocumentName, &meta.JobID, &meta.Dimension,
		&meta.EmbeddingModel, &meta.ChunkCount, &status, &meta.CreatedAt, &completedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning collection: %w", err)
	}

	meta.Status = domain.CollectionStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		meta.CompletedAt = &t
	}
	return &meta, nil
}

// nullTime maps a nil time pointer to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
