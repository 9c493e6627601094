package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docqa-assistant/internal/model"
)

type fakePublisher struct {
	turns []model.ArchivedTurn
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, turn model.ArchivedTurn) error {
	p.turns = append(p.turns, turn)
	return p.err
}

type fakeArchiveReader struct {
	turns []model.ArchivedTurn
	calls int
}

func (r *fakeArchiveReader) ListBySessionID(_ context.Context, _ string, _ int) ([]model.ArchivedTurn, error) {
	r.calls++
	return r.turns, nil
}

type fakeArchiveCache struct {
	turns map[string][]model.ArchivedTurn
	dirty map[string]bool
}

func newFakeArchiveCache() *fakeArchiveCache {
	return &fakeArchiveCache{turns: map[string][]model.ArchivedTurn{}, dirty: map[string]bool{}}
}

func (c *fakeArchiveCache) GetTurns(_ context.Context, sid string) ([]model.ArchivedTurn, bool, error) {
	t, ok := c.turns[sid]
	return t, ok, nil
}

func (c *fakeArchiveCache) SetTurns(_ context.Context, sid string, turns []model.ArchivedTurn) error {
	c.turns[sid] = turns
	return nil
}

func (c *fakeArchiveCache) DeleteTurns(_ context.Context, sid string) error {
	delete(c.turns, sid)
	return nil
}

func (c *fakeArchiveCache) MarkDirty(_ context.Context, sid string) error {
	c.dirty[sid] = true
	return nil
}

func (c *fakeArchiveCache) IsDirty(_ context.Context, sid string) (bool, error) {
	return c.dirty[sid], nil
}

func TestArchiveDisabled(t *testing.T) {
	svc := NewArchiveService(nil, nil, nil, zap.NewNop())
	assert.False(t, svc.Enabled())

	svc.Record(context.Background(), newTestSession(t), model.NewMessage(model.RoleUser, "hi", fixedNow))
	_, err := svc.List(context.Background(), "sess-1", 10)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

func TestArchiveRecordPublishesTurns(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	cache := newFakeArchiveCache()
	cache.turns["sess-1"] = []model.ArchivedTurn{{Content: "stale"}}
	svc := NewArchiveService(pub, &fakeArchiveReader{}, cache, zap.NewNop())

	sess := newTestSession(t)
	addDocument(sess, "a.txt", "txt", &fakeRetriever{})
	sess.Select("a.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Record(ctx, sess,
		model.NewMessage(model.RoleUser, "q", fixedNow),
		model.NewMessage(model.RoleAssistant, "a", fixedNow),
	)

	require.Len(t, pub.turns, 2)
	assert.Equal(t, "sess-1", pub.turns[0].SessionID)
	assert.Equal(t, model.RoleUser, pub.turns[0].Role)
	assert.Equal(t, "a.txt", pub.turns[1].Document)
	assert.Equal(t, "single", pub.turns[1].Mode)
	assert.Equal(t, model.DefaultGenerationModel, pub.turns[1].Model)
	assert.True(t, cache.dirty["sess-1"])
	assert.NotContains(t, cache.turns, "sess-1")
}

func TestArchiveListReadsThroughCache(t *testing.T) {
	stored := []model.ArchivedTurn{
		{SessionID: "sess-1", Role: "user", Content: "q1"},
		{SessionID: "sess-1", Role: "assistant", Content: "a1"},
		{SessionID: "sess-1", Role: "user", Content: "q2"},
	}
	reader := &fakeArchiveReader{turns: stored}
	cache := newFakeArchiveCache()
	svc := NewArchiveService(&fakePublisher{}, reader, cache, zap.NewNop())

	got, err := svc.List(context.Background(), "sess-1", 2)
	require.NoError(t, err)
	assert.Equal(t, stored[1:], got)
	assert.Equal(t, 1, reader.calls)
	assert.Len(t, cache.turns["sess-1"], 3)

	got, err = svc.List(context.Background(), "sess-1", 0)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.Equal(t, 1, reader.calls)

	cache.dirty["sess-1"] = true
	delete(cache.turns, "sess-1")
	_, err = svc.List(context.Background(), "sess-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)
	assert.NotContains(t, cache.turns, "sess-1")
}
