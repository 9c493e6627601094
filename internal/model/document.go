package model

import "time"

// ProcessedDocument describes an upload that was indexed successfully.
type ProcessedDocument struct {
	Name        string    `json:"name"`
	Format      string    `json:"format"`
	Chunks      int       `json:"chunks"`
	Size        int64     `json:"size"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SizeMB mirrors the size shown next to each document in the upload tab.
func (d ProcessedDocument) SizeMB() float64 {
	return float64(d.Size) / (1024 * 1024)
}

// Chunk metadata keys.
const (
	MetaSourceFile = "source_file"
	MetaFileFormat = "file_format"
	MetaFileSize   = "file_size"
	MetaChunkIndex = "chunk_index"
	MetaPage       = "page"
)

// Chunk is a piece of document text returned by a retriever.
type Chunk struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Source returns the document the chunk was attributed to.
func (c Chunk) Source() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[MetaSourceFile]
}

// WithSource returns a copy of the chunk tagged with the given document name.
func (c Chunk) WithSource(name string) Chunk {
	meta := make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[MetaSourceFile] = name
	return Chunk{Text: c.Text, Metadata: meta}
}
