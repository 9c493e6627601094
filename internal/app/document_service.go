package app

import (
	"context"
	"errors"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"docqa-assistant/internal/ingest"
	"docqa-assistant/internal/model"
	"docqa-assistant/internal/session"
)

// DocumentIndexer turns one upload into a retriever.
type DocumentIndexer interface {
	Index(ctx context.Context, f ingest.File, embeddingModel string) (*ingest.Result, error)
}

type FileError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type ProcessReport struct {
	Processed []model.ProcessedDocument `json:"processed"`
	Skipped   []string                  `json:"skipped"`
	Errors    []FileError               `json:"errors"`
}

type DocumentService struct {
	indexer DocumentIndexer
	logger  *zap.Logger
}

func NewDocumentService(indexer DocumentIndexer, logger *zap.Logger) *DocumentService {
	return &DocumentService{indexer: indexer, logger: logger}
}

// Process indexes every upload whose name is not yet processed. A failing
// file is reported and the rest continue.
func (s *DocumentService) Process(ctx context.Context, sess *session.Session, files []ingest.File) (*ProcessReport, error) {
	if len(files) == 0 {
		return nil, ErrInvalidInput
	}
	report := &ProcessReport{
		Processed: []model.ProcessedDocument{},
		Skipped:   []string{},
		Errors:    []FileError{},
	}
	for _, f := range files {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			report.Errors = append(report.Errors, FileError{Name: f.Name, Message: "file name is empty"})
			continue
		}
		if sess.HasDocument(name) {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		f.Name = name
		res, err := s.indexer.Index(ctx, f, sess.EmbeddingModel)
		if err != nil {
			s.logger.Warn("process document failed",
				zap.String("session_id", sess.ID),
				zap.String("document", name),
				zap.Error(err),
			)
			report.Errors = append(report.Errors, FileError{Name: name, Message: describeIngestError(name, err)})
			continue
		}
		sess.AddDocument(res.Document, res.Retriever)
		report.Processed = append(report.Processed, res.Document)
		s.logger.Info("document processed",
			zap.String("session_id", sess.ID),
			zap.String("document", name),
			zap.Int("chunks", res.Chunks),
		)
	}
	return report, nil
}

func describeIngestError(name string, err error) string {
	switch {
	case errors.Is(err, ingest.ErrPDFParse):
		return ingest.ErrPDFParse.Error()
	case errors.Is(err, ingest.ErrNoContent):
		return "No content extracted from " + name
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return "Unsupported format: " + ingest.FormatOf(name)
	default:
		return "Error processing " + name + ": " + err.Error()
	}
}

func (s *DocumentService) Remove(sess *session.Session, name string) error {
	if !sess.RemoveDocument(name) {
		return ErrDocumentNotFound
	}
	runtime.GC()
	s.logger.Info("document removed", zap.String("session_id", sess.ID), zap.String("document", name))
	return nil
}

func (s *DocumentService) List(sess *session.Session) []model.ProcessedDocument {
	return sess.OrderedDocuments()
}
