package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// ChatModel is the hosted chat API as seen by the services.
type ChatModel interface {
	Name() string
	Invoke(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error)
}

// Builder constructs a ChatModel for one configuration.
type Builder func(ctx context.Context, cfg ChatConfig) (ChatModel, error)

// ModelCache hands out one ChatModel instance per (provider, endpoint, model, key).
// Entries unused for idleTTL are dropped along with the key they hold.
type ModelCache struct {
	items *cache.Cache
	build Builder
}

// NewModelCache keeps entries forever when idleTTL <= 0.
func NewModelCache(build Builder, idleTTL time.Duration) *ModelCache {
	if idleTTL <= 0 {
		return &ModelCache{items: cache.New(cache.NoExpiration, 0), build: build}
	}
	return &ModelCache{
		items: cache.New(idleTTL, idleTTL),
		build: build,
	}
}

// NewDefaultBuilder picks the backend from cfg.Provider.
func NewDefaultBuilder(client *OpenAICompatibleClient) Builder {
	return func(ctx context.Context, cfg ChatConfig) (ChatModel, error) {
		switch cfg.Provider {
		case "", ProviderOpenAICompatible:
			return NewOpenAIChatModel(client, cfg), nil
		case ProviderGoogleAI:
			return NewGoogleAIModel(ctx, cfg)
		default:
			return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
		}
	}
}

func (c *ModelCache) Get(ctx context.Context, cfg ChatConfig) (ChatModel, error) {
	key := cacheKey(cfg)
	if v, ok := c.items.Get(key); ok {
		m := v.(ChatModel)
		c.items.Set(key, m, cache.DefaultExpiration)
		return m, nil
	}
	m, err := c.build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.items.Set(key, m, cache.DefaultExpiration)
	return m, nil
}

func (c *ModelCache) Invalidate(cfg ChatConfig) {
	c.items.Delete(cacheKey(cfg))
}

func (c *ModelCache) Len() int {
	return c.items.ItemCount()
}

func cacheKey(cfg ChatConfig) string {
	sum := sha256.Sum256([]byte(cfg.APIKey))
	return strings.Join([]string{
		cfg.Provider,
		strings.TrimRight(cfg.BaseURL, "/"),
		cfg.Model,
		hex.EncodeToString(sum[:8]),
	}, "|")
}
