package app

import (
	"context"
	"fmt"
	"strings"

	"docqa-assistant/internal/ai"
	"docqa-assistant/internal/session"
)

// ModelCache is the subset of ai.ModelCache the services rely on.
type ModelCache interface {
	Get(ctx context.Context, cfg ai.ChatConfig) (ai.ChatModel, error)
	Invalidate(cfg ai.ChatConfig)
}

// ModelResolver turns a session's key and model choice into a cached chat model.
type ModelResolver struct {
	cache ModelCache
	base  ai.ChatConfig
}

func NewModelResolver(cache ModelCache, base ai.ChatConfig) *ModelResolver {
	return &ModelResolver{cache: cache, base: base}
}

func (r *ModelResolver) ConfigFor(sess *session.Session) ai.ChatConfig {
	cfg := r.base
	cfg.APIKey = sess.APIKey
	cfg.Model = sess.GenerationModel
	return cfg
}

func (r *ModelResolver) Resolve(ctx context.Context, sess *session.Session) (ai.ChatModel, error) {
	if strings.TrimSpace(sess.APIKey) == "" {
		return nil, ErrAPIKeyMissing
	}
	m, err := r.cache.Get(ctx, r.ConfigFor(sess))
	if err != nil {
		return nil, fmt.Errorf("could not initialize chat model: %w", err)
	}
	return m, nil
}

func (r *ModelResolver) Invalidate(sess *session.Session) {
	if sess.APIKey == "" {
		return
	}
	r.cache.Invalidate(r.ConfigFor(sess))
}
