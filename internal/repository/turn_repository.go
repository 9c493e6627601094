package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"docqa-assistant/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) Create(ctx context.Context, turn *model.ArchivedTurn) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("create archived turn failed: %w", err)
	}
	return nil
}

// ListBySessionID returns turns oldest first.
func (r *TurnRepository) ListBySessionID(ctx context.Context, sessionID string, limit int) ([]model.ArchivedTurn, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	var turns []model.ArchivedTurn
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list archived turns failed: %w", err)
	}
	return turns, nil
}

func (r *TurnRepository) CountBySessionID(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ArchivedTurn{}).Where("session_id = ?", sessionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count archived turns failed: %w", err)
	}
	return n, nil
}
