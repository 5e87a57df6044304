package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// GormChatRepository implements ChatRepository using GORM.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GORM chat repository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) Insert(ctx context.Context, event *domain.ChatEvent) error {
	model := domain.ChatEventToModel(event)
	return r.db.WithContext(ctx).Create(model).Error
}

// RecentPage returns the most recent events in chronological order.
func (r *GormChatRepository) RecentPage(ctx context.Context, liveID string, limit int) ([]domain.ChatEvent, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var models []domain.ChatEventModel
	err := r.db.WithContext(ctx).
		Where("live_id = ? AND is_deleted = ?", liveID, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.ChatEvent, len(models))
	for i := range models {
		// Reverse: query is newest-first, callers want oldest-first.
		events[len(models)-1-i] = models[i].ToDomain()
	}
	return events, nil
}

func (r *GormChatRepository) SoftDelete(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChatEventModel{}).
		Where("id = ?", eventID).
		Update("is_deleted", true).Error
}
