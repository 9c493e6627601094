package retrieval

import (
	"context"

	"docqa-assistant/internal/model"
)

// DefaultK is the number of chunks a document retriever returns per query.
const DefaultK = 4

// Retriever answers a query with the most relevant chunks of one document,
// most relevant first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]model.Chunk, error)
}

// Limit keeps at most n chunks.
func Limit(chunks []model.Chunk, n int) []model.Chunk {
	if n >= 0 && len(chunks) > n {
		return chunks[:n]
	}
	return chunks
}
