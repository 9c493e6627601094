package session

import (
	"sort"
	"sync"
	"time"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/retrieval"
)

type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

const DefaultSystemMessage = `
You are Advanced Document RAG Assistant 📄🤖.
Your role is to help users understand and explore the content of uploaded documents.

Rules:
1. Always prioritize the document context when answering questions.
2. If the answer is not in the document(s), clearly say you don't know.
3. When multiple documents are loaded, mention which document contains the relevant information.
4. Keep responses friendly, clear, and concise.
5. For multi-document queries, synthesize across documents when appropriate.
`

// Session is the server-side state of one browser session. Callers hold the
// session lock for the whole request that reads or mutates it. The generating
// set has its own lock and may be read without the session lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu sync.Mutex

	genMu      sync.Mutex
	generating map[string]struct{}

	Messages      []model.Message
	Documents     map[string]model.ProcessedDocument
	DocumentOrder []string
	Retrievers    map[string]retrieval.Retriever
	Summaries     map[string]model.DocumentSummary

	SelectedDocument string
	Mode             Mode

	APIKey          string
	EmbeddingModel  string
	GenerationModel string

	// ViewedSummary names the document whose summary is open, nil when none.
	ViewedSummary *string
	// PendingQuestion holds a suggested question picked but not yet asked.
	PendingQuestion *string
}

func New(id string, now time.Time) *Session {
	s := &Session{ID: id, CreatedAt: now}
	s.EnsureDefaults(now)
	return s
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// EnsureDefaults fills absent slots and leaves present ones untouched.
func (s *Session) EnsureDefaults(now time.Time) {
	if len(s.Messages) == 0 {
		s.Messages = []model.Message{model.NewMessage(model.RoleSystem, DefaultSystemMessage, now)}
	}
	if s.Documents == nil {
		s.Documents = make(map[string]model.ProcessedDocument)
	}
	if s.Retrievers == nil {
		s.Retrievers = make(map[string]retrieval.Retriever)
	}
	if s.Summaries == nil {
		s.Summaries = make(map[string]model.DocumentSummary)
	}
	if s.SelectedDocument == "" {
		s.SelectedDocument = model.AllDocuments
	}
	if s.Mode == "" {
		s.Mode = ModeMulti
	}
	if s.EmbeddingModel == "" {
		s.EmbeddingModel = model.DefaultEmbeddingModel
	}
	if s.GenerationModel == "" {
		s.GenerationModel = model.DefaultGenerationModel
	}
}

// ResetTranscript leaves only the system message.
func (s *Session) ResetTranscript(now time.Time) {
	s.Messages = []model.Message{model.NewMessage(model.RoleSystem, DefaultSystemMessage, now)}
}

func (s *Session) Append(role, content string, now time.Time) {
	s.Messages = append(s.Messages, model.NewMessage(role, content, now))
}

// History is the transcript without the system message.
func (s *Session) History() []model.Message {
	if len(s.Messages) <= 1 {
		return []model.Message{}
	}
	out := make([]model.Message, len(s.Messages)-1)
	copy(out, s.Messages[1:])
	return out
}

func (s *Session) HasDocument(name string) bool {
	_, ok := s.Documents[name]
	return ok
}

func (s *Session) AddDocument(doc model.ProcessedDocument, r retrieval.Retriever) {
	if !s.HasDocument(doc.Name) {
		s.DocumentOrder = append(s.DocumentOrder, doc.Name)
	}
	s.Documents[doc.Name] = doc
	s.Retrievers[doc.Name] = r
}

// RemoveDocument drops the document with its retriever and summary and
// resets any selection or view that pointed at it.
func (s *Session) RemoveDocument(name string) bool {
	if !s.HasDocument(name) {
		return false
	}
	delete(s.Documents, name)
	delete(s.Retrievers, name)
	delete(s.Summaries, name)
	s.FinishGenerating(name)
	for i, n := range s.DocumentOrder {
		if n == name {
			s.DocumentOrder = append(s.DocumentOrder[:i], s.DocumentOrder[i+1:]...)
			break
		}
	}
	if s.SelectedDocument == name {
		s.Select(model.AllDocuments)
	}
	if s.ViewedSummary != nil && *s.ViewedSummary == name {
		s.ViewedSummary = nil
	}
	return true
}

// DocumentNames returns processed documents in upload order.
func (s *Session) DocumentNames() []string {
	out := make([]string, len(s.DocumentOrder))
	copy(out, s.DocumentOrder)
	return out
}

func (s *Session) OrderedDocuments() []model.ProcessedDocument {
	out := make([]model.ProcessedDocument, 0, len(s.DocumentOrder))
	for _, name := range s.DocumentOrder {
		out = append(out, s.Documents[name])
	}
	return out
}

func (s *Session) TotalChunks() int {
	total := 0
	for _, d := range s.Documents {
		total += d.Chunks
	}
	return total
}

// Select sets the selected document; mode follows the selection.
func (s *Session) Select(name string) {
	s.SelectedDocument = name
	if name == model.AllDocuments {
		s.Mode = ModeMulti
	} else {
		s.Mode = ModeSingle
	}
}

func (s *Session) StartGenerating(name string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generating == nil {
		s.generating = make(map[string]struct{})
	}
	s.generating[name] = struct{}{}
}

func (s *Session) FinishGenerating(name string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	delete(s.generating, name)
}

func (s *Session) IsGenerating(name string) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	_, ok := s.generating[name]
	return ok
}

// GeneratingNames returns a sorted snapshot of documents whose summary is
// being generated. It does not need the session lock.
func (s *Session) GeneratingNames() []string {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	out := make([]string, 0, len(s.generating))
	for name := range s.generating {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ClearDocuments empties every document-related slot and resets the
// transcript and selection. Key and model choices survive.
func (s *Session) ClearDocuments(now time.Time) {
	s.Documents = make(map[string]model.ProcessedDocument)
	s.DocumentOrder = nil
	s.Retrievers = make(map[string]retrieval.Retriever)
	s.Summaries = make(map[string]model.DocumentSummary)
	s.genMu.Lock()
	s.generating = nil
	s.genMu.Unlock()
	s.ViewedSummary = nil
	s.PendingQuestion = nil
	s.ResetTranscript(now)
	s.Select(model.AllDocuments)
}
