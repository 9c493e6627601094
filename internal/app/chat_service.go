package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/retrieval"
	"docqa-assistant/internal/session"
)

const (
	singleDocumentK = retrieval.DefaultK
	multiDocumentK  = 3
	streamCursor    = "▌"
)

const (
	msgNoResponse = "🚫 No response received. Please try a different model."
	msgQuota      = "📊 API quota exceeded. Please try again later."
	msgTimeout    = "⏱️ Request timed out. Please try again."
	msgGeneric    = "❌ An error occurred. Please check your API key and try again."
	msgNotFoundIn = "🤷‍♂️ I couldn't find relevant information about your question in '%s'."
	msgNotFound   = "🤷‍♂️ I couldn't find relevant information in your documents for this question."
)

type TurnOutcome string

const (
	OutcomeAnswered   TurnOutcome = "answered"
	OutcomeNotFound   TurnOutcome = "not_found"
	OutcomeNoResponse TurnOutcome = "no_response"
	OutcomeFailed     TurnOutcome = "failed"
)

// TurnResult is the state handed back once a turn is complete.
type TurnResult struct {
	Outcome  TurnOutcome     `json:"outcome"`
	Answer   string          `json:"answer"`
	Mode     session.Mode    `json:"mode"`
	Document string          `json:"document"`
	Messages []model.Message `json:"messages"`
}

// StreamFunc receives each non-blank fragment and the partial answer with
// the cursor marker appended.
type StreamFunc func(fragment, partial string) error

// TurnRecorder mirrors finished turns somewhere durable.
type TurnRecorder interface {
	Record(ctx context.Context, sess *session.Session, messages ...model.Message)
}

type ChatService struct {
	models   *ModelResolver
	recorder TurnRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewChatService(models *ModelResolver, recorder TurnRecorder, logger *zap.Logger) *ChatService {
	return &ChatService{models: models, recorder: recorder, logger: logger, now: time.Now}
}

// Ask runs one turn. Precondition failures return an error and leave the
// transcript untouched; every accepted turn appends the user message and
// exactly one assistant message.
func (s *ChatService) Ask(ctx context.Context, sess *session.Session, question string, onChunk StreamFunc) (*TurnResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrMessageEmpty
	}
	chat, err := s.models.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(sess.Retrievers) == 0 {
		return nil, ErrNoDocuments
	}

	sess.PendingQuestion = nil
	start := len(sess.Messages)
	sess.Append(model.RoleUser, question, s.now())

	outcome, answer := s.runTurn(ctx, sess, chat, question, onChunk)
	sess.Append(model.RoleAssistant, answer, s.now())

	turn := append([]model.Message(nil), sess.Messages[start:]...)
	if s.recorder != nil {
		s.recorder.Record(ctx, sess, turn...)
	}
	return &TurnResult{
		Outcome:  outcome,
		Answer:   answer,
		Mode:     sess.Mode,
		Document: sess.SelectedDocument,
		Messages: turn,
	}, nil
}

// AskSuggested asks the pending suggested question, if any.
func (s *ChatService) AskSuggested(ctx context.Context, sess *session.Session, onChunk StreamFunc) (*TurnResult, error) {
	if sess.PendingQuestion == nil {
		return nil, ErrInvalidInput
	}
	return s.Ask(ctx, sess, *sess.PendingQuestion, onChunk)
}

func (s *ChatService) runTurn(ctx context.Context, sess *session.Session, chat chatStreamer, question string, onChunk StreamFunc) (TurnOutcome, string) {
	var prompt string
	var err error

	if sess.Mode == session.ModeSingle {
		doc := sess.SelectedDocument
		chunks, searchErr := s.searchDocument(ctx, sess, doc, question)
		if searchErr != nil {
			s.logger.Warn("document search failed",
				zap.String("session_id", sess.ID),
				zap.String("document", doc),
				zap.Error(searchErr),
			)
			return OutcomeFailed, classifyError(searchErr)
		}
		if len(chunks) == 0 {
			return OutcomeNotFound, fmt.Sprintf(msgNotFoundIn, doc)
		}
		summary := ""
		if sum, ok := sess.Summaries[doc]; ok {
			summary = sum.Content
		}
		prompt, err = buildSinglePrompt(formatSingleDocument(chunks, doc), summary, question)
	} else {
		chunks := s.searchAll(ctx, sess, question)
		if len(chunks) == 0 {
			return OutcomeNotFound, msgNotFound
		}
		prompt, err = buildMultiPrompt(formatMultiDocument(chunks), question)
	}
	if err != nil {
		s.logger.Error("build chat prompt failed", zap.String("session_id", sess.ID), zap.Error(err))
		return OutcomeFailed, classifyError(err)
	}

	answer, err := s.stream(ctx, chat, prompt, onChunk)
	if err != nil {
		s.logger.Warn("chat generation failed",
			zap.String("session_id", sess.ID),
			zap.String("model", chat.Name()),
			zap.Error(err),
		)
		return OutcomeFailed, classifyError(err)
	}
	if strings.TrimSpace(answer) == "" {
		return OutcomeNoResponse, msgNoResponse
	}
	return OutcomeAnswered, answer
}

type chatStreamer interface {
	Name() string
	Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error)
}

// stream accumulates non-blank fragments; blank ones are dropped.
func (s *ChatService) stream(ctx context.Context, chat chatStreamer, prompt string, onChunk StreamFunc) (string, error) {
	var full strings.Builder
	_, err := chat.Stream(ctx, prompt, func(fragment string) error {
		if strings.TrimSpace(fragment) == "" {
			return nil
		}
		full.WriteString(fragment)
		if onChunk != nil {
			return onChunk(fragment, full.String()+streamCursor)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return full.String(), nil
}

func (s *ChatService) searchDocument(ctx context.Context, sess *session.Session, doc, question string) ([]model.Chunk, error) {
	r, ok := sess.Retrievers[doc]
	if !ok {
		return nil, nil
	}
	chunks, err := r.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	return retrieval.Limit(chunks, singleDocumentK), nil
}

// searchAll queries every document in upload order and tags each chunk with
// the document its retriever belongs to. Failing documents are skipped.
func (s *ChatService) searchAll(ctx context.Context, sess *session.Session, question string) []model.Chunk {
	var out []model.Chunk
	for _, doc := range sess.DocumentNames() {
		r, ok := sess.Retrievers[doc]
		if !ok {
			continue
		}
		chunks, err := r.Retrieve(ctx, question)
		if err != nil {
			s.logger.Warn("document search failed",
				zap.String("session_id", sess.ID),
				zap.String("document", doc),
				zap.Error(err),
			)
			continue
		}
		for _, c := range retrieval.Limit(chunks, multiDocumentK) {
			out = append(out, c.WithSource(doc))
		}
	}
	return out
}

func classifyError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "limit"):
		return msgQuota
	case strings.Contains(msg, "timeout") || errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	default:
		return msgGeneric
	}
}

// Select switches between one document and all documents.
func (s *ChatService) Select(sess *session.Session, document string) error {
	if document != model.AllDocuments && !sess.HasDocument(document) {
		return ErrDocumentNotFound
	}
	sess.Select(document)
	return nil
}

// Suggestions are only offered when a single document is selected.
func (s *ChatService) Suggestions(sess *session.Session) []string {
	if sess.Mode != session.ModeSingle || sess.SelectedDocument == model.AllDocuments {
		return []string{}
	}
	doc, ok := sess.Documents[sess.SelectedDocument]
	if !ok {
		return []string{}
	}
	switch doc.Format {
	case "pdf":
		return []string{
			"What are the main topics covered in this document?",
			"Summarize the key findings or conclusions",
			"What data or statistics are mentioned?",
			"Are there any recommendations or action items?",
		}
	case "csv":
		return []string{
			"What columns are in this dataset?",
			"What are the main trends in the data?",
			"Show me some statistics about the data",
			"What patterns can you identify?",
		}
	default:
		return []string{
			"What is this document about?",
			"What are the key points?",
			"Explain the main concepts",
			"What should I know from this document?",
		}
	}
}

// Suggest records a picked suggestion; it is consumed by the next AskSuggested.
func (s *ChatService) Suggest(sess *session.Session, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrMessageEmpty
	}
	sess.PendingQuestion = &question
	return nil
}

func (s *ChatService) History(sess *session.Session) []model.Message {
	return sess.History()
}
