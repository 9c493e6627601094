package retrieval

import (
	"context"
	"errors"
	"fmt"

	"docqa-assistant/internal/model"
)

const (
	embedBatchSize      = 50
	embedBatchThreshold = 100
)

// VectorRetriever is the per-document retriever built at upload time.
type VectorRetriever struct {
	embedder Embedder
	index    *Index
	k        int
}

// Build embeds every chunk and indexes it. Documents with more than 100
// chunks are embedded 50 at a time.
func Build(ctx context.Context, embedder Embedder, chunks []model.Chunk, k int) (*VectorRetriever, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to index")
	}
	if k <= 0 {
		k = DefaultK
	}

	batch := len(chunks)
	if len(chunks) > embedBatchThreshold {
		batch = embedBatchSize
	}

	index := NewIndex()
	for start := 0; start < len(chunks); start += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batch
		if end > len(chunks) {
			end = len(chunks)
		}
		part := chunks[start:end]
		texts := make([]string, len(part))
		for i, ch := range part {
			texts[i] = ch.Text
		}
		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d failed: %w", start, end, err)
		}
		if err := index.Add(part, vectors); err != nil {
			return nil, err
		}
	}
	return &VectorRetriever{embedder: embedder, index: index, k: k}, nil
}

func (r *VectorRetriever) Len() int { return r.index.Len() }

func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]model.Chunk, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	if isZero(vec) {
		return lexicalRank(query, r.index.Chunks(), r.k), nil
	}

	hits := r.index.Search(vec, r.k)
	allZero := true
	for _, h := range hits {
		if h.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return lexicalRank(query, r.index.Chunks(), r.k), nil
	}

	out := make([]model.Chunk, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk
	}
	return out, nil
}
