package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"docqa-assistant/internal/ai"
	"docqa-assistant/internal/model"
	"docqa-assistant/internal/session"
)

type fakeModel struct {
	mu      sync.Mutex
	prompts []string

	invoke    func(prompt string) (string, error)
	fragments []string
	streamErr error
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) Invoke(_ context.Context, prompt string) (string, error) {
	m.record(prompt)
	if m.invoke == nil {
		return "summary text", nil
	}
	return m.invoke(prompt)
}

func (m *fakeModel) Stream(_ context.Context, prompt string, onChunk func(string) error) (string, error) {
	m.record(prompt)
	var full strings.Builder
	for _, f := range m.fragments {
		full.WriteString(f)
		if err := onChunk(f); err != nil {
			return full.String(), err
		}
	}
	if m.streamErr != nil {
		return full.String(), m.streamErr
	}
	return full.String(), nil
}

func (m *fakeModel) record(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
}

func (m *fakeModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

type fakeModelCache struct {
	model       ai.ChatModel
	err         error
	gets        []ai.ChatConfig
	invalidated []ai.ChatConfig
}

func (c *fakeModelCache) Get(_ context.Context, cfg ai.ChatConfig) (ai.ChatModel, error) {
	c.gets = append(c.gets, cfg)
	if c.err != nil {
		return nil, c.err
	}
	return c.model, nil
}

func (c *fakeModelCache) Invalidate(cfg ai.ChatConfig) {
	c.invalidated = append(c.invalidated, cfg)
}

type fakeRetriever struct {
	chunks  []model.Chunk
	byQuery map[string][]model.Chunk
	err     error
	queries []string
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string) ([]model.Chunk, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	if r.byQuery != nil {
		return r.byQuery[query], nil
	}
	return r.chunks, nil
}

type recordedTurn struct {
	sessionID string
	messages  []model.Message
}

type fakeRecorder struct {
	turns []recordedTurn
}

func (r *fakeRecorder) Record(_ context.Context, sess *session.Session, messages ...model.Message) {
	r.turns = append(r.turns, recordedTurn{sessionID: sess.ID, messages: messages})
}

var fixedNow = time.Date(2025, 1, 2, 15, 4, 5, 123456000, time.UTC)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New("sess-1", fixedNow)
	sess.APIKey = "test-key"
	return sess
}

func addDocument(sess *session.Session, name, format string, r *fakeRetriever) {
	sess.AddDocument(model.ProcessedDocument{
		Name:        name,
		Format:      format,
		Chunks:      len(r.chunks),
		Size:        1024,
		ProcessedAt: fixedNow,
	}, r)
}

func chunks(texts ...string) []model.Chunk {
	out := make([]model.Chunk, 0, len(texts))
	for _, t := range texts {
		out = append(out, model.Chunk{Text: t})
	}
	return out
}

func newResolver(m ai.ChatModel) (*ModelResolver, *fakeModelCache) {
	cache := &fakeModelCache{model: m}
	return NewModelResolver(cache, ai.ChatConfig{Provider: ai.ProviderOpenAICompatible}), cache
}
