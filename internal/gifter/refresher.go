package gifter

import (
	"context"
	"sync"
	"time"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
)

// Config holds refresh cadences. The global windows are costlier to
// compute upstream, so they refresh less often than the session window.
type Config struct {
	GlobalInterval  time.Duration `mapstructure:"global_interval"`
	SessionInterval time.Duration `mapstructure:"session_interval"`
}

var globalPeriods = []domain.GifterPeriod{
	domain.PeriodToday,
	domain.PeriodWeekly,
	domain.PeriodAllTime,
}

type board struct {
	gifters []domain.GifterAggregate
	loaded  bool
	stale   bool
}

// Refresher polls the precomputed top-gifter projection for read-only
// display. Refresh failures and empty responses fall back to the last
// good value; the view is never cleared on error.
type Refresher struct {
	repo repository.GifterRepository
	cfg  Config

	mu     sync.RWMutex
	boards map[domain.GifterPeriod]board
}

// NewRefresher creates a refresher. Boards are scoped to one session key;
// a new broadcast gets a fresh refresher with empty caches.
func NewRefresher(repo repository.GifterRepository, cfg Config) *Refresher {
	if cfg.GlobalInterval <= 0 {
		cfg.GlobalInterval = 30 * time.Second
	}
	if cfg.SessionInterval <= 0 {
		cfg.SessionInterval = 15 * time.Second
	}
	return &Refresher{
		repo:   repo,
		cfg:    cfg,
		boards: make(map[domain.GifterPeriod]board),
	}
}

// Board returns the current leaderboard for one window.
func (r *Refresher) Board(period domain.GifterPeriod) domain.GifterBoardResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := r.boards[period]
	gifters := make([]domain.GifterAggregate, len(b.gifters))
	copy(gifters, b.gifters)

	return domain.GifterBoardResponse{
		Period:  period,
		Gifters: gifters,
		Stale:   b.stale,
	}
}

// Refresh pulls one window now.
func (r *Refresher) Refresh(ctx context.Context, period domain.GifterPeriod) {
	gifters, err := r.repo.TopGifters(ctx, period)

	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.boards[period]
	if err != nil || (len(gifters) == 0 && b.loaded) {
		// Keep serving the last good value.
		b.stale = true
		r.boards[period] = b
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("period", string(period)).Msg("gifter refresh failed, serving last good value")
		}
		return
	}

	b.gifters = gifters
	b.loaded = true
	b.stale = false
	r.boards[period] = b
}

// Run refreshes all windows on their cadences until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	// Prime every window once so the first render has data.
	for _, p := range globalPeriods {
		r.Refresh(ctx, p)
	}
	r.Refresh(ctx, domain.PeriodSession)

	globalTicker := time.NewTicker(r.cfg.GlobalInterval)
	defer globalTicker.Stop()
	sessionTicker := time.NewTicker(r.cfg.SessionInterval)
	defer sessionTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-globalTicker.C:
			for _, p := range globalPeriods {
				r.Refresh(ctx, p)
			}
		case <-sessionTicker.C:
			r.Refresh(ctx, domain.PeriodSession)
		}
	}
}
