package vector

import (
	"encoding/binary"
	"math"
	"sort"
	"sync"

	"champ-ai/internal/domain"
)

// vecIndex is an in-memory index of embedding vectors that avoids SQLite
// I/O on every similarity search. It is loaded lazily on the first search
// and updated incrementally on Store/Delete.
type vecIndex struct {
	mu      sync.RWMutex
	entries map[string]vecEntry
	loaded  bool
}

type vecEntry struct {
	entry     domain.MemoryEntry
	embedding []float32
}

func newVecIndex() *vecIndex {
	return &vecIndex{entries: make(map[string]vecEntry)}
}

func (idx *vecIndex) isLoaded() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.loaded
}

// load replaces the index contents and marks it loaded.
func (idx *vecIndex) load(entries []vecEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]vecEntry, len(entries))
	for _, ve := range entries {
		idx.entries[ve.entry.ID] = ve
	}
	idx.loaded = true
}

// search ranks cached entries by cosine similarity, best first.
func (idx *vecIndex) search(queryVec []float32, limit int) []domain.MemoryEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.loaded || len(idx.entries) == 0 {
		return nil
	}

	type scored struct {
		entry domain.MemoryEntry
		score float32
	}

	candidates := make([]scored, 0, len(idx.entries))
	for _, ve := range idx.entries {
		sim := cosineSimilarity(queryVec, ve.embedding)
		if sim <= 0 {
			continue
		}
		candidates = append(candidates, scored{entry: ve.entry, score: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := min(limit, len(candidates))
	result := make([]domain.MemoryEntry, n)
	for i := 0; i < n; i++ {
		result[i] = candidates[i].entry
		result[i].Score = float64(candidates[i].score)
	}
	return result
}

func (idx *vecIndex) put(entry domain.MemoryEntry, embedding []float32) {
	if embedding == nil {
		return
	}
	idx.mu.Lock()
	idx.entries[entry.ID] = vecEntry{entry: entry, embedding: embedding}
	idx.mu.Unlock()
}

func (idx *vecIndex) remove(id string) {
	idx.mu.Lock()
	delete(idx.entries, id)
	idx.mu.Unlock()
}

// cosineSimilarity computes dot(a,b) / (||a|| * ||b||).
// Returns 0 for zero-length vectors, length mismatch, or NaN/Inf results.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	if math.IsNaN(float64(sim)) || math.IsInf(float64(sim), 0) {
		return 0
	}
	return sim
}

func float32ToBytes(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func bytesToFloat32(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
