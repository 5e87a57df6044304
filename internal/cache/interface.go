package cache

import (
	"context"
	"errors"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ProfileCache caches public profile directory lookups. Keys carry the
// session key so a new broadcast never serves entries cached during a
// previous one.
type ProfileCache interface {
	Get(ctx context.Context, sessionKey, userID string) (*domain.Profile, error)
	Set(ctx context.Context, sessionKey, userID string, profile *domain.Profile) error
	InvalidateSession(ctx context.Context, sessionKey string) error
	Close() error
}
