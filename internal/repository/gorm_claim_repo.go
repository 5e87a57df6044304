package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// GormClaimRepository implements ClaimRepository using GORM. The unique
// index on (event_type, idempotency_key) makes the insert a compare-and-set:
// losing the race affects zero rows instead of erroring.
type GormClaimRepository struct {
	db *gorm.DB
}

// NewGormClaimRepository creates a new GORM claim repository.
func NewGormClaimRepository(db *gorm.DB) *GormClaimRepository {
	return &GormClaimRepository{db: db}
}

func (r *GormClaimRepository) Claim(ctx context.Context, eventType, key string, payload database.JSONMap) (bool, error) {
	model := domain.PushClaimModel{
		EventType:      eventType,
		IdempotencyKey: key,
		Payload:        payload,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}
