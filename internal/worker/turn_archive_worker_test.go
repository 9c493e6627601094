package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docqa-assistant/internal/model"
)

type memoryStore struct {
	turns []model.ArchivedTurn
	err   error
}

func (s *memoryStore) Create(_ context.Context, turn *model.ArchivedTurn) error {
	if s.err != nil {
		return s.err
	}
	s.turns = append(s.turns, *turn)
	return nil
}

func TestHandleStoresTurn(t *testing.T) {
	store := &memoryStore{}
	w := NewTurnArchiveWorker(nil, store, "docqa.turn.archive", zap.NewNop())

	body := []byte(`{"id":42,"session_id":"s-1","role":"assistant","content":"hi","document":"All Documents","mode":"multi","model":"gemini-2.5-flash","created_at":"2025-01-02T15:04:05Z"}`)
	require.NoError(t, w.Handle(context.Background(), body))

	require.Len(t, store.turns, 1)
	got := store.turns[0]
	assert.Zero(t, got.ID)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, "assistant", got.Role)
	assert.Equal(t, time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC), got.CreatedAt.UTC())
}

func TestHandleRejectsBadPayloads(t *testing.T) {
	w := NewTurnArchiveWorker(nil, &memoryStore{}, "q", zap.NewNop())

	assert.Error(t, w.Handle(context.Background(), []byte("not json")))
	assert.Error(t, w.Handle(context.Background(), []byte(`{"role":"user"}`)))
}

func TestHandlePropagatesStoreError(t *testing.T) {
	storeErr := errors.New("db down")
	w := NewTurnArchiveWorker(nil, &memoryStore{err: storeErr}, "q", zap.NewNop())

	err := w.Handle(context.Background(), []byte(`{"session_id":"s","role":"user"}`))
	assert.ErrorIs(t, err, storeErr)
}
