package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docqa-assistant/internal/model"
)

// ArchiveCache holds recently read archived turns per session. A short-lived
// dirty marker keeps reads away from the cache while new turns are in flight.
type ArchiveCache struct {
	client         *redisv9.Client
	turnsTTL       time.Duration
	dirtyMarkerTTL time.Duration
}

func NewArchiveCache(client *redisv9.Client, turnsTTL, dirtyMarkerTTL time.Duration) *ArchiveCache {
	if turnsTTL <= 0 {
		turnsTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &ArchiveCache{
		client:         client,
		turnsTTL:       turnsTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *ArchiveCache) GetTurns(ctx context.Context, sessionID string) ([]model.ArchivedTurn, bool, error) {
	raw, err := c.client.Get(ctx, turnsKey(sessionID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get archived turns failed: %w", err)
	}

	var turns []model.ArchivedTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached turns failed: %w", err)
	}
	return turns, true, nil
}

func (c *ArchiveCache) SetTurns(ctx context.Context, sessionID string, turns []model.ArchivedTurn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal archived turns failed: %w", err)
	}
	if err := c.client.Set(ctx, turnsKey(sessionID), payload, c.turnsTTL).Err(); err != nil {
		return fmt.Errorf("redis set archived turns failed: %w", err)
	}
	return nil
}

func (c *ArchiveCache) DeleteTurns(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, turnsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete archived turns failed: %w", err)
	}
	return nil
}

func (c *ArchiveCache) MarkDirty(ctx context.Context, sessionID string) error {
	if err := c.client.Set(ctx, dirtyKey(sessionID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *ArchiveCache) IsDirty(ctx context.Context, sessionID string) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func turnsKey(sessionID string) string {
	return "docqa:archive:" + sessionID
}

func dirtyKey(sessionID string) string {
	return "docqa:archive:dirty:" + sessionID
}
