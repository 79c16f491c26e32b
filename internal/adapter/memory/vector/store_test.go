package vector

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"champ-ai/internal/domain"
)

type passthroughEncryptor struct{}

func (passthroughEncryptor) Encrypt(s string) (string, error) { return s, nil }
func (passthroughEncryptor) Decrypt(s string) (string, error) { return s, nil }

// reversingEncryptor makes ciphertext visibly different from plaintext.
type reversingEncryptor struct{}

func (reversingEncryptor) Encrypt(s string) (string, error) { return "rev:" + reverse(s), nil }
func (reversingEncryptor) Decrypt(s string) (string, error) {
	if rest, ok := strings.CutPrefix(s, "rev:"); ok {
		return reverse(rest), nil
	}
	return s, nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// fixedEmbedder maps known phrases to hand-built vectors.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (e *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int { return 3 }
func (e *fixedEmbedder) Name() string    { return "fixed" }

func openTestStore(t *testing.T, embedder domain.EmbeddingProvider, encryptor domain.ContentEncryptor) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "mem.db"), embedder, encryptor, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndLikeSearch(t *testing.T) {
	s := openTestStore(t, nil, passthroughEncryptor{})
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, domain.MemoryEntry{Content: "我们去了植物园", Type: "note", Author: "piggy"}))
	require.NoError(t, s.Store(ctx, domain.MemoryEntry{Content: "今天吃了火锅", Type: "note", Author: "piggy"}))

	entries, err := s.Query(ctx, "植物园", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "我们去了植物园", entries[0].Content)
	assert.Equal(t, "note", entries[0].Type)
	assert.NotEmpty(t, entries[0].ID)
}

func TestStoreFillsDefaults(t *testing.T) {
	s := openTestStore(t, nil, passthroughEncryptor{})
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, domain.MemoryEntry{Content: "无类型"}))

	entries, err := s.Query(ctx, "无类型", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.MemoryTypeNote, entries[0].Type)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestVectorSearchRanksBySimilarity(t *testing.T) {
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"植物园的回忆": {1, 0, 0},
		"火锅的回忆":  {0, 1, 0},
		"花园":     {0.9, 0.1, 0},
	}}
	s := openTestStore(t, embedder, passthroughEncryptor{})
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, domain.MemoryEntry{ID: "a", Content: "植物园的回忆"}))
	require.NoError(t, s.Store(ctx, domain.MemoryEntry{ID: "b", Content: "火锅的回忆"}))

	entries, err := s.Query(ctx, "花园", 2)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "植物园的回忆", entries[0].Content)
	assert.Greater(t, entries[0].Score, 0.0)
}

func TestQueryDecryptsContent(t *testing.T) {
	s := openTestStore(t, nil, reversingEncryptor{})
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, domain.MemoryEntry{Content: "secret garden"}))

	// LIKE search matches ciphertext rows only; search for the stored form.
	entries, err := s.Query(ctx, reverse("secret garden"), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "secret garden", entries[0].Content)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t, nil, passthroughEncryptor{})
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, domain.MemoryEntry{ID: "gone", Content: "to delete"}))
	require.NoError(t, s.Delete(ctx, "gone"))

	entries, err := s.Query(ctx, "to delete", 1)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = s.Delete(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreUpsertsByID(t *testing.T) {
	s := openTestStore(t, nil, passthroughEncryptor{})
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, domain.MemoryEntry{ID: "x", Content: "第一版"}))
	require.NoError(t, s.Store(ctx, domain.MemoryEntry{ID: "x", Content: "第二版"}))

	entries, err := s.Query(ctx, "第二版", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	old, err := s.Query(ctx, "第一版", 5)
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "length mismatch")
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector")
}

func TestFloat32BytesRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3.75}
	out := bytesToFloat32(float32ToBytes(in))
	assert.Equal(t, in, out)
}
