package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Store keeps live sessions in memory and expires them after an idle TTL.
type Store struct {
	items *cache.Cache
	ttl   time.Duration
}

func NewStore(ttl, cleanupInterval time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cache.New(ttl, cleanupInterval)
	c.OnEvicted(func(id string, _ interface{}) {
		logger.Info("session expired", zap.String("session_id", id))
	})
	return &Store{items: c, ttl: ttl}
}

func (s *Store) Create(now time.Time) *Session {
	sess := New(uuid.NewString(), now)
	s.items.Set(sess.ID, sess, cache.DefaultExpiration)
	return sess
}

// Get returns a live session and restarts its idle timer.
func (s *Store) Get(id string) (*Session, bool) {
	x, found := s.items.Get(id)
	if !found {
		return nil, false
	}
	sess := x.(*Session)
	s.items.Set(id, sess, cache.DefaultExpiration)
	return sess, true
}

func (s *Store) Delete(id string) {
	s.items.Delete(id)
}

func (s *Store) Count() int {
	return s.items.ItemCount()
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}
