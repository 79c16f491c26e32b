package domain

import (
	"context"
	"time"
)

// MemoryEntry is one stored memory snippet. The engine reads retrieved
// entries, it never mutates them.
type MemoryEntry struct {
	ID        string
	Content   string
	Type      string // note, mood, reminder, upload
	Author    string
	CreatedAt time.Time
	Score     float64 // retrieval relevance, set on query results only
}

const (
	MemoryTypeNote     = "note"
	MemoryTypeMood     = "mood"
	MemoryTypeReminder = "reminder"
	MemoryTypeUpload   = "upload"
)

// MemoryStore is the retrieval backend: vector search over stored
// memories plus best-effort writes.
type MemoryStore interface {
	Store(ctx context.Context, entry MemoryEntry) error
	Query(ctx context.Context, query string, k int) ([]MemoryEntry, error)
	Delete(ctx context.Context, id string) error
	Name() string
}

// EmbeddingProvider converts texts into embedding vectors.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// ContentEncryptor protects memory content at rest.
type ContentEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
