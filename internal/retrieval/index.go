package retrieval

import (
	"errors"
	"math"
	"sort"

	"docqa-assistant/internal/model"
)

type ScoredChunk struct {
	Chunk model.Chunk
	Score float32
}

// Index is a brute-force in-memory cosine similarity index.
type Index struct {
	vectors [][]float32
	chunks  []model.Chunk
}

func NewIndex() *Index { return &Index{} }

func (x *Index) Add(chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	x.chunks = append(x.chunks, chunks...)
	x.vectors = append(x.vectors, vectors...)
	return nil
}

func (x *Index) Len() int { return len(x.chunks) }

func (x *Index) Chunks() []model.Chunk { return x.chunks }

// Search returns the top k chunks by descending cosine similarity. Ties keep
// insertion order.
func (x *Index) Search(query []float32, k int) []ScoredChunk {
	scored := make([]ScoredChunk, len(x.chunks))
	for i := range x.chunks {
		scored[i] = ScoredChunk{Chunk: x.chunks[i], Score: cosineSimilarity(query, x.vectors[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k >= 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
