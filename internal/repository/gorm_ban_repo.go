package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// GormBanRepository implements BanRepository using GORM. Ban and Unban are
// idempotent: repeating an operation that is already in effect succeeds
// without touching rows.
type GormBanRepository struct {
	db *gorm.DB
}

// NewGormBanRepository creates a new GORM ban repository.
func NewGormBanRepository(db *gorm.DB) *GormBanRepository {
	return &GormBanRepository{db: db}
}

func (r *GormBanRepository) Ban(ctx context.Context, userID, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.BanModel{}).
			Where("banned_user_id = ? AND revoked_at IS NULL", userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil // already banned
		}

		model := domain.BanModel{BannedUserID: userID}
		if reason != "" {
			model.Reason = &reason
		}
		return tx.Create(&model).Error
	})
}

func (r *GormBanRepository) Unban(ctx context.Context, userID string) error {
	// No matching active row is a no-op, not an error.
	return r.db.WithContext(ctx).
		Model(&domain.BanModel{}).
		Where("banned_user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *GormBanRepository) ActiveBans(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var banned []string
	err := r.db.WithContext(ctx).
		Model(&domain.BanModel{}).
		Where("banned_user_id IN ? AND revoked_at IS NULL", userIDs).
		Distinct().
		Pluck("banned_user_id", &banned).Error
	if err != nil {
		return nil, err
	}
	return banned, nil
}

func (r *GormBanRepository) ListActive(ctx context.Context) ([]domain.Ban, error) {
	var models []domain.BanModel
	err := r.db.WithContext(ctx).
		Where("revoked_at IS NULL").
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	bans := make([]domain.Ban, 0, len(models))
	for i := range models {
		bans = append(bans, models[i].ToDomain())
	}
	return bans, nil
}
