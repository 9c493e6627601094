package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/textsplitter"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/retrieval"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 100
)

// File is one uploaded document.
type File struct {
	Name string
	Size int64
	Data []byte
}

// Result is a document ready to be registered in a session.
type Result struct {
	Document  model.ProcessedDocument
	Retriever retrieval.Retriever
	Chunks    int
}

// Indexer loads, splits and embeds uploads into per-document retrievers.
type Indexer struct {
	factory  retrieval.EmbedderFactory
	splitter textsplitter.TextSplitter
	k        int
	now      func() time.Time
}

func NewIndexer(factory retrieval.EmbedderFactory) *Indexer {
	return &Indexer{
		factory: factory,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(ChunkSize),
			textsplitter.WithChunkOverlap(ChunkOverlap),
		),
		k:   retrieval.DefaultK,
		now: time.Now,
	}
}

func (ix *Indexer) Index(ctx context.Context, f File, embeddingModel string) (*Result, error) {
	sections, err := Load(f.Name, f.Data)
	if err != nil {
		return nil, err
	}
	chunks, err := ix.Split(f, sections)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embedder, err := ix.factory.New(embeddingModel, texts)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	retriever, err := retrieval.Build(ctx, embedder, chunks, ix.k)
	if err != nil {
		return nil, err
	}

	return &Result{
		Document: model.ProcessedDocument{
			Name:        f.Name,
			Format:      FormatOf(f.Name),
			Chunks:      len(chunks),
			Size:        f.Size,
			ProcessedAt: ix.now(),
		},
		Retriever: retriever,
		Chunks:    len(chunks),
	}, nil
}

// Split attaches source metadata to every section and cuts it into
// overlapping chunks.
func (ix *Indexer) Split(f File, sections []Section) ([]model.Chunk, error) {
	format := FormatOf(f.Name)
	var chunks []model.Chunk
	for _, s := range sections {
		parts, err := ix.splitter.SplitText(s.Text)
		if err != nil {
			return nil, fmt.Errorf("split %s failed: %w", f.Name, err)
		}
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			meta := make(map[string]string, len(s.Metadata)+4)
			for k, v := range s.Metadata {
				meta[k] = v
			}
			meta[model.MetaSourceFile] = f.Name
			meta[model.MetaFileFormat] = format
			meta[model.MetaFileSize] = strconv.FormatInt(f.Size, 10)
			meta[model.MetaChunkIndex] = strconv.Itoa(len(chunks))
			chunks = append(chunks, model.Chunk{Text: p, Metadata: meta})
		}
	}
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}
	return chunks, nil
}
