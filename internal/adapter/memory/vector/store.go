package vector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"champ-ai/internal/domain"
)

// Store implements domain.MemoryStore backed by SQLite with embedding
// vectors stored as float32 blobs. When an EmbeddingProvider is supplied,
// Store generates embeddings on write and serves similarity queries from
// an in-memory index; without one it falls back to LIKE matching.
//
// Content is encrypted at rest through the injected ContentEncryptor.
// Embeddings are computed from plaintext before encryption, so retrieval
// quality is unaffected.
type Store struct {
	db        *sql.DB
	embedder  domain.EmbeddingProvider
	encryptor domain.ContentEncryptor
	logger    *slog.Logger
	idx       *vecIndex
}

// New opens (or creates) a SQLite database at dbPath, runs migrations,
// and returns a ready Store. embedder may be nil for keyword-only search.
func New(dbPath string, embedder domain.EmbeddingProvider, encryptor domain.ContentEncryptor, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrMemoryUnavailable, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrMemoryUnavailable, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS memories (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			type       TEXT NOT NULL DEFAULT 'note',
			author     TEXT NOT NULL DEFAULT '',
			embedding  BLOB,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrMemoryUnavailable, err)
	}

	return &Store{
		db:        db,
		embedder:  embedder,
		encryptor: encryptor,
		logger:    logger,
		idx:       newVecIndex(),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Store implements domain.MemoryStore.
func (s *Store) Store(ctx context.Context, entry domain.MemoryEntry) error {
	if entry.ID == "" {
		entry.ID = newULID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Type == "" {
		entry.Type = domain.MemoryTypeNote
	}

	var embeddingBlob []byte
	if s.embedder != nil && entry.Content != "" {
		vecs, err := s.embedder.Embed(ctx, []string{entry.Content})
		if err != nil {
			s.logger.Warn("memory store: embedding failed, storing without vector",
				"id", entry.ID, "error", err)
		} else if len(vecs) > 0 {
			embeddingBlob = float32ToBytes(vecs[0])
		}
	}

	stored, err := s.encryptor.Encrypt(entry.Content)
	if err != nil {
		return fmt.Errorf("%w: encrypt: %v", domain.ErrEncryption, err)
	}

	const upsert = `
		INSERT INTO memories (id, content, type, author, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content   = excluded.content,
			type      = excluded.type,
			author    = excluded.author,
			embedding = excluded.embedding
	`
	_, err = s.db.ExecContext(ctx, upsert,
		entry.ID,
		stored,
		entry.Type,
		entry.Author,
		embeddingBlob,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrStorage, err)
	}

	if embeddingBlob != nil && s.idx.isLoaded() {
		s.idx.put(entry, bytesToFloat32(embeddingBlob))
	}

	return nil
}

// Query implements domain.MemoryStore. Results are ordered by relevance,
// best first, with decrypted content.
func (s *Store) Query(ctx context.Context, query string, k int) ([]domain.MemoryEntry, error) {
	if k <= 0 {
		k = 6
	}

	if s.embedder != nil {
		entries, err := s.vectorSearch(ctx, query, k)
		if err != nil {
			s.logger.Warn("memory store: vector search failed, falling back to keyword match", "error", err)
		} else if len(entries) > 0 {
			return entries, nil
		}
	}

	return s.likeSearch(ctx, query, k)
}

// Delete implements domain.MemoryStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrStorage, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NewDomainError("vector.Delete", domain.ErrNotFound, id)
	}
	s.idx.remove(id)
	return nil
}

// Name implements domain.MemoryStore.
func (s *Store) Name() string { return "vector" }

// vectorSearch embeds the query and ranks stored entries by cosine
// similarity. The in-memory index is populated from the database on the
// first call and updated incrementally afterwards.
func (s *Store) vectorSearch(ctx context.Context, query string, k int) ([]domain.MemoryEntry, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	if !s.idx.isLoaded() {
		if err := s.loadIndex(ctx); err != nil {
			return nil, err
		}
	}

	return s.idx.search(vecs[0], k), nil
}

// loadIndex reads all embedded entries into the in-memory index.
func (s *Store) loadIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, type, author, embedding, created_at FROM memories WHERE embedding IS NOT NULL")
	if err != nil {
		return fmt.Errorf("%w: load index: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var loaded []vecEntry
	for rows.Next() {
		var entry domain.MemoryEntry
		var blob []byte
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.Content, &entry.Type, &entry.Author, &blob, &createdAt); err != nil {
			return fmt.Errorf("%w: scan: %v", domain.ErrStorage, err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entry.Content = s.decrypt(entry.Content)
		loaded = append(loaded, vecEntry{entry: entry, embedding: bytesToFloat32(blob)})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate: %v", domain.ErrStorage, err)
	}

	s.idx.load(loaded)
	return nil
}

// likeSearch is the zero-dependency fallback: substring match on
// plaintext rows. Encrypted rows cannot match and are skipped.
func (s *Store) likeSearch(ctx context.Context, query string, k int) ([]domain.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, type, author, created_at FROM memories WHERE content LIKE ? ORDER BY created_at DESC LIMIT ?",
		"%"+query+"%", k)
	if err != nil {
		return nil, fmt.Errorf("%w: like search: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var entries []domain.MemoryEntry
	for rows.Next() {
		var entry domain.MemoryEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.Content, &entry.Type, &entry.Author, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrStorage, err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entry.Content = s.decrypt(entry.Content)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) decrypt(content string) string {
	plain, err := s.encryptor.Decrypt(content)
	if err != nil {
		s.logger.Warn("memory store: decrypt failed, returning stored form", "error", err)
		return content
	}
	return plain
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}
