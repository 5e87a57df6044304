package gifter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

type fakeGifterRepo struct {
	mu      sync.Mutex
	gifters []domain.GifterAggregate
	err     error
}

func (f *fakeGifterRepo) TopGifters(context.Context, domain.GifterPeriod) ([]domain.GifterAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gifters, f.err
}

func (f *fakeGifterRepo) set(gifters []domain.GifterAggregate, err error) {
	f.mu.Lock()
	f.gifters = gifters
	f.err = err
	f.mu.Unlock()
}

func gifters(names ...string) []domain.GifterAggregate {
	out := make([]domain.GifterAggregate, len(names))
	for i, n := range names {
		out[i] = domain.GifterAggregate{ProfileID: n, DisplayName: n, Rank: i + 1}
	}
	return out
}

func TestRefreshLoadsBoard(t *testing.T) {
	repo := &fakeGifterRepo{gifters: gifters("alice", "bob")}
	r := NewRefresher(repo, Config{})

	r.Refresh(context.Background(), domain.PeriodSession)

	board := r.Board(domain.PeriodSession)
	require.Len(t, board.Gifters, 2)
	assert.Equal(t, "alice", board.Gifters[0].ProfileID)
	assert.False(t, board.Stale)
}

func TestRefreshFailureServesLastGood(t *testing.T) {
	repo := &fakeGifterRepo{gifters: gifters("alice")}
	r := NewRefresher(repo, Config{})
	ctx := context.Background()

	r.Refresh(ctx, domain.PeriodToday)
	repo.set(nil, errors.New("projection unavailable"))
	r.Refresh(ctx, domain.PeriodToday)

	board := r.Board(domain.PeriodToday)
	require.Len(t, board.Gifters, 1, "last good value survives the failure")
	assert.Equal(t, "alice", board.Gifters[0].ProfileID)
	assert.True(t, board.Stale)
}

func TestRefreshEmptyAfterLoadedServesLastGood(t *testing.T) {
	repo := &fakeGifterRepo{gifters: gifters("alice")}
	r := NewRefresher(repo, Config{})
	ctx := context.Background()

	r.Refresh(ctx, domain.PeriodWeekly)
	repo.set(nil, nil) // projection transiently empty
	r.Refresh(ctx, domain.PeriodWeekly)

	board := r.Board(domain.PeriodWeekly)
	assert.Len(t, board.Gifters, 1, "sudden empty response is treated as suspect")
	assert.True(t, board.Stale)
}

func TestRefreshEmptyBeforeFirstLoadIsLegitimate(t *testing.T) {
	repo := &fakeGifterRepo{}
	r := NewRefresher(repo, Config{})

	r.Refresh(context.Background(), domain.PeriodAllTime)

	board := r.Board(domain.PeriodAllTime)
	assert.Empty(t, board.Gifters)
	assert.False(t, board.Stale, "an empty board before anyone gifted is real data")
}

func TestRecoveryClearsStale(t *testing.T) {
	repo := &fakeGifterRepo{gifters: gifters("alice")}
	r := NewRefresher(repo, Config{})
	ctx := context.Background()

	r.Refresh(ctx, domain.PeriodSession)
	repo.set(nil, errors.New("down"))
	r.Refresh(ctx, domain.PeriodSession)
	require.True(t, r.Board(domain.PeriodSession).Stale)

	repo.set(gifters("alice", "carol"), nil)
	r.Refresh(ctx, domain.PeriodSession)

	board := r.Board(domain.PeriodSession)
	assert.False(t, board.Stale)
	assert.Len(t, board.Gifters, 2)
}

func TestBoardReturnsCopy(t *testing.T) {
	repo := &fakeGifterRepo{gifters: gifters("alice")}
	r := NewRefresher(repo, Config{})
	r.Refresh(context.Background(), domain.PeriodSession)

	board := r.Board(domain.PeriodSession)
	board.Gifters[0].DisplayName = "mutated"

	assert.Equal(t, "alice", r.Board(domain.PeriodSession).Gifters[0].DisplayName)
}

func TestUnloadedBoardIsEmptyNotNilPanic(t *testing.T) {
	r := NewRefresher(&fakeGifterRepo{}, Config{})
	board := r.Board(domain.PeriodToday)
	assert.Empty(t, board.Gifters)
	assert.Equal(t, domain.PeriodToday, board.Period)
}
