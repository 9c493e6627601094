package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/retrieval"
	"docqa-assistant/internal/session"
)

const (
	summaryChunksPerQuery = 2
	summaryMaxChunks      = 8
	summaryDedupPrefix    = 100
	summaryMaxChars       = 16000
	summaryTruncateMarker = "\n... [Content truncated]"
	summaryBatchPause     = time.Second
)

var summaryQueries = []string{
	"main topics and key points",
	"important conclusions and findings",
	"methodology and approach",
}

// BatchReport is the outcome of generating several summaries in a row.
type BatchReport struct {
	Requested int         `json:"requested"`
	Generated int         `json:"generated"`
	Errors    []FileError `json:"errors"`
}

// SummaryListing is the Summaries tab state.
type SummaryListing struct {
	Summaries  map[string]model.DocumentSummary `json:"summaries"`
	Missing    []string                         `json:"missing"`
	Generating []string                         `json:"generating"`
	Viewed     *string                          `json:"viewed,omitempty"`
	Completion float64                          `json:"completion"`
}

type SummaryService struct {
	models *ModelResolver
	logger *zap.Logger
	now    func() time.Time
	pause  time.Duration
}

func NewSummaryService(models *ModelResolver, logger *zap.Logger) *SummaryService {
	return &SummaryService{models: models, logger: logger, now: time.Now, pause: summaryBatchPause}
}

// Generate (re)creates the summary of one document and opens it for viewing.
func (s *SummaryService) Generate(ctx context.Context, sess *session.Session, docName string) (*model.DocumentSummary, error) {
	chat, err := s.models.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	summary, err := s.generate(ctx, sess, chat, docName)
	if err != nil {
		return nil, err
	}
	name := docName
	sess.ViewedSummary = &name
	return summary, nil
}

func (s *SummaryService) generate(ctx context.Context, sess *session.Session, chat chatInvoker, docName string) (*model.DocumentSummary, error) {
	retriever, ok := sess.Retrievers[docName]
	if !ok {
		return nil, ErrDocumentNotFound
	}

	sess.StartGenerating(docName)
	defer sess.FinishGenerating(docName)

	content, err := sampleContent(ctx, retriever)
	if err != nil {
		return nil, fmt.Errorf("error generating summary for %s: %w", docName, err)
	}
	prompt, err := buildSummaryPrompt(docName, content)
	if err != nil {
		return nil, fmt.Errorf("build summary prompt failed: %w", err)
	}

	text, err := chat.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("error generating summary for %s: %w", docName, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("failed to generate summary for %s: empty response", docName)
	}

	summary := model.DocumentSummary{
		Content:     text,
		GeneratedAt: s.now(),
		Model:       sess.GenerationModel,
	}
	sess.Summaries[docName] = summary
	s.logger.Info("summary generated",
		zap.String("session_id", sess.ID),
		zap.String("document", docName),
		zap.String("model", summary.Model),
	)
	return &summary, nil
}

type chatInvoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// sampleContent collects up to two chunks for each fixed query, drops chunks
// whose first 100 characters repeat, keeps eight and caps the joined text.
func sampleContent(ctx context.Context, r retrieval.Retriever) (string, error) {
	var collected []model.Chunk
	for _, q := range summaryQueries {
		chunks, err := r.Retrieve(ctx, q)
		if err != nil {
			return "", err
		}
		collected = append(collected, retrieval.Limit(chunks, summaryChunksPerQuery)...)
	}

	seen := make(map[string]struct{}, len(collected))
	parts := make([]string, 0, summaryMaxChunks)
	for _, c := range collected {
		key := prefixRunes(c.Text, summaryDedupPrefix)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if len(parts) < summaryMaxChunks {
			parts = append(parts, c.Text)
		}
	}

	combined := strings.Join(parts, "\n\n")
	if runes := []rune(combined); len(runes) > summaryMaxChars {
		combined = string(runes[:summaryMaxChars]) + summaryTruncateMarker
	}
	return combined, nil
}

func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// GenerateAll runs sequentially with a fixed pause between requests.
// Per-document failures are collected and the batch continues.
func (s *SummaryService) GenerateAll(ctx context.Context, sess *session.Session, names []string) (*BatchReport, error) {
	chat, err := s.models.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{Requested: len(names), Errors: []FileError{}}
	for i, name := range names {
		if _, err := s.generate(ctx, sess, chat, name); err != nil {
			s.logger.Warn("summary generation failed",
				zap.String("session_id", sess.ID),
				zap.String("document", name),
				zap.Error(err),
			)
			report.Errors = append(report.Errors, FileError{Name: name, Message: err.Error()})
		}
		if i < len(names)-1 {
			select {
			case <-ctx.Done():
				report.Generated = countSummarized(sess, names)
				return report, ctx.Err()
			case <-time.After(s.pause):
			}
		}
	}
	report.Generated = countSummarized(sess, names)
	return report, nil
}

// GenerateMissing summarizes every document that has no summary yet.
func (s *SummaryService) GenerateMissing(ctx context.Context, sess *session.Session) (*BatchReport, error) {
	missing := missingSummaries(sess)
	if len(missing) == 0 {
		return &BatchReport{Errors: []FileError{}}, nil
	}
	return s.GenerateAll(ctx, sess, missing)
}

func countSummarized(sess *session.Session, names []string) int {
	n := 0
	for _, name := range names {
		if _, ok := sess.Summaries[name]; ok {
			n++
		}
	}
	return n
}

func missingSummaries(sess *session.Session) []string {
	var out []string
	for _, name := range sess.DocumentNames() {
		if _, ok := sess.Summaries[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *SummaryService) List(sess *session.Session) SummaryListing {
	generating := []string{}
	for _, name := range sess.DocumentNames() {
		if sess.IsGenerating(name) {
			generating = append(generating, name)
		}
	}
	missing := missingSummaries(sess)
	if missing == nil {
		missing = []string{}
	}
	completion := 0.0
	if len(sess.Documents) > 0 {
		completion = float64(len(sess.Summaries)) / float64(len(sess.Documents))
	}
	return SummaryListing{
		Summaries:  sess.Summaries,
		Missing:    missing,
		Generating: generating,
		Viewed:     sess.ViewedSummary,
		Completion: completion,
	}
}

// Generating reads only the generating set, so callers may skip the turn lock.
func (s *SummaryService) Generating(sess *session.Session) []string {
	return sess.GeneratingNames()
}

func (s *SummaryService) View(sess *session.Session, docName string) (*model.DocumentSummary, error) {
	summary, ok := sess.Summaries[docName]
	if !ok {
		return nil, ErrSummaryNotFound
	}
	name := docName
	sess.ViewedSummary = &name
	return &summary, nil
}

func (s *SummaryService) CloseView(sess *session.Session) {
	sess.ViewedSummary = nil
}

func (s *SummaryService) Delete(sess *session.Session, docName string) error {
	if _, ok := sess.Summaries[docName]; !ok {
		return ErrSummaryNotFound
	}
	delete(sess.Summaries, docName)
	if sess.ViewedSummary != nil && *sess.ViewedSummary == docName {
		sess.ViewedSummary = nil
	}
	return nil
}

// Download renders the summary as a standalone markdown file.
func (s *SummaryService) Download(sess *session.Session, docName string) (filename, content string, err error) {
	summary, ok := sess.Summaries[docName]
	if !ok {
		return "", "", ErrSummaryNotFound
	}
	content = strings.Join([]string{
		"# Document Summary: " + docName,
		"",
		"**Generated:** " + summary.GeneratedAt.Format("2006-01-02 15:04"),
		"**Model:** " + summary.Model,
		"",
		"---",
		"",
		summary.Content,
	}, "\n")
	filename = fmt.Sprintf("summary_%s_%s.md", docName, s.now().Format("20060102"))
	return filename, content, nil
}
