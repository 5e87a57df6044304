package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// GormSessionRepository implements SessionRepository using GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GORM session repository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) GetLiveState(ctx context.Context) (*domain.LiveSession, error) {
	var model domain.LiveSessionModel
	if err := r.db.WithContext(ctx).Order("id").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormSessionRepository) SetLive(ctx context.Context, nextIsLive bool, hostUserID, title string) (*domain.LiveSession, error) {
	var result *domain.LiveSession

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.LiveSessionModel
		if err := tx.Order("id").First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"is_live":    nextIsLive,
			"updated_at": now,
		}

		if nextIsLive {
			updates["host_user_id"] = hostUserID
			if title != "" {
				updates["title"] = title
			}
			// Toggling an already-live session keeps its start time.
			if !model.IsLive {
				updates["started_at"] = now
				updates["ended_at"] = nil
			}
		} else {
			// Host is bound only while live.
			updates["host_user_id"] = nil
			if model.IsLive {
				updates["ended_at"] = now
			}
		}

		if err := tx.Model(&domain.LiveSessionModel{}).Where("id = ?", model.ID).Updates(updates).Error; err != nil {
			return err
		}

		var fresh domain.LiveSessionModel
		if err := tx.Where("id = ?", model.ID).First(&fresh).Error; err != nil {
			return err
		}
		result = fresh.ToDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *GormSessionRepository) UpdateLiveFields(ctx context.Context, isLive bool, hostUserID, title string) error {
	updates := map[string]interface{}{
		"is_live":    isLive,
		"updated_at": time.Now().UTC(),
	}
	if isLive {
		updates["host_user_id"] = hostUserID
		if title != "" {
			updates["title"] = title
		}
	} else {
		updates["host_user_id"] = nil
	}

	res := r.db.WithContext(ctx).Model(&domain.LiveSessionModel{}).Where("1 = 1").Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
