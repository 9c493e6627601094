package app

import (
	"context"

	"go.uber.org/zap"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/session"
)

type TurnPublisher interface {
	Publish(ctx context.Context, turn model.ArchivedTurn) error
}

type ArchiveReader interface {
	ListBySessionID(ctx context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error)
}

type ArchiveCache interface {
	GetTurns(ctx context.Context, sessionID string) ([]model.ArchivedTurn, bool, error)
	SetTurns(ctx context.Context, sessionID string, turns []model.ArchivedTurn) error
	DeleteTurns(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// ArchiveService mirrors finished turns to the message queue and reads them
// back from the database. With no publisher it is disabled.
type ArchiveService struct {
	publisher TurnPublisher
	reader    ArchiveReader
	cache     ArchiveCache
	logger    *zap.Logger
}

func NewArchiveService(publisher TurnPublisher, reader ArchiveReader, cache ArchiveCache, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{publisher: publisher, reader: reader, cache: cache, logger: logger}
}

func (s *ArchiveService) Enabled() bool {
	return s != nil && s.publisher != nil && s.reader != nil
}

// Record never fails the turn; publish errors are logged.
func (s *ArchiveService) Record(ctx context.Context, sess *session.Session, messages ...model.Message) {
	if !s.Enabled() || len(messages) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if s.cache != nil {
		_ = s.cache.MarkDirty(ctx, sess.ID)
		_ = s.cache.DeleteTurns(ctx, sess.ID)
	}
	for _, m := range messages {
		turn := model.ArchivedTurn{
			SessionID: sess.ID,
			Role:      m.Role,
			Content:   m.Content,
			Document:  sess.SelectedDocument,
			Mode:      string(sess.Mode),
			Model:     sess.GenerationModel,
			CreatedAt: m.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, turn); err != nil {
			s.logger.Warn("archive publish failed",
				zap.String("session_id", sess.ID),
				zap.String("role", m.Role),
				zap.Error(err),
			)
		}
	}
}

// List reads archived turns, oldest first, through the cache unless a
// recent write marked it dirty.
func (s *ArchiveService) List(ctx context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error) {
	if !s.Enabled() {
		return nil, ErrArchiveDisabled
	}
	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetTurns(ctx, sessionID); cacheErr == nil && hit {
				return trimTurns(cached, limit), nil
			}
		}
	}

	turns, err := s.reader.ListBySessionID(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.cache.SetTurns(ctx, sessionID, turns)
		}
	}
	return trimTurns(turns, limit), nil
}

func trimTurns(turns []model.ArchivedTurn, limit int) []model.ArchivedTurn {
	if limit <= 0 || limit >= len(turns) {
		return turns
	}
	return turns[len(turns)-limit:]
}
