package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// GormGifterRepository implements GifterRepository using GORM.
type GormGifterRepository struct {
	db *gorm.DB
}

// NewGormGifterRepository creates a new GORM gifter repository.
func NewGormGifterRepository(db *gorm.DB) *GormGifterRepository {
	return &GormGifterRepository{db: db}
}

func (r *GormGifterRepository) TopGifters(ctx context.Context, period domain.GifterPeriod) ([]domain.GifterAggregate, error) {
	var models []domain.GifterAggregateModel
	err := r.db.WithContext(ctx).
		Where("period = ?", string(period)).
		Order("rank").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	gifters := make([]domain.GifterAggregate, len(models))
	for i := range models {
		gifters[i] = models[i].ToDomain()
	}
	return gifters, nil
}
