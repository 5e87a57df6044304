package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

// GormProfileRepository implements ProfileRepository using GORM.
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GORM profile repository.
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

func (r *GormProfileRepository) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	var model domain.ProfileModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	profile := model.ToDomain()
	return &profile, nil
}

func (r *GormProfileRepository) OptedInRecipients(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.ProfileModel{}).
		Where("opted_in_push = ?", true).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
