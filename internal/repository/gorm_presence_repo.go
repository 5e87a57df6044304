package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// GormPresenceRepository implements PresenceRepository using GORM.
type GormPresenceRepository struct {
	db *gorm.DB
}

// NewGormPresenceRepository creates a new GORM presence repository.
func NewGormPresenceRepository(db *gorm.DB) *GormPresenceRepository {
	return &GormPresenceRepository{db: db}
}

func (r *GormPresenceRepository) GetViewers(ctx context.Context, liveID string) ([]domain.ViewerPresence, error) {
	var models []domain.ViewerPresenceModel
	err := r.db.WithContext(ctx).
		Where("live_id = ?", liveID).
		Order("joined_at").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	viewers := make([]domain.ViewerPresence, len(models))
	for i := range models {
		viewers[i] = models[i].ToDomain()
	}
	return viewers, nil
}
