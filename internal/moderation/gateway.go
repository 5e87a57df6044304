package moderation

import (
	"context"
	"fmt"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/audit"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
)

// Result is the trust-boundary operation's in-payload answer. A non-empty
// Error is a structured failure even when the call itself returned no
// transport error; callers must check both.
type Result struct {
	Error string `json:"error,omitempty"`
}

// Store is the ban trust boundary.
type Store interface {
	Ban(ctx context.Context, userID, reason string) (*Result, error)
	Unban(ctx context.Context, userID string) (*Result, error)
	ActiveBans(ctx context.Context, userIDs []string) ([]string, error)
	ListActive(ctx context.Context) ([]domain.Ban, error)
}

// Gateway is the thin, idempotent moderation wrapper consumed by the
// click-to-moderate UI. Banning an already-banned user or unbanning an
// already-clear one is a no-op success.
type Gateway struct {
	store Store
}

// NewGateway creates a moderation gateway.
func NewGateway(store Store) *Gateway {
	return &Gateway{store: store}
}

// Ban bans a user.
func (g *Gateway) Ban(ctx context.Context, actorID, userID, reason string) error {
	res, err := g.store.Ban(ctx, userID, reason)
	if err != nil {
		return fmt.Errorf("ban %s: %w", userID, err)
	}
	if res != nil && res.Error != "" {
		return fmt.Errorf("ban %s: %s", userID, res.Error)
	}

	audit.LogWithDetail(ctx, audit.ActionBan, actorID, userID, "user banned")
	return nil
}

// Unban lifts a ban.
func (g *Gateway) Unban(ctx context.Context, actorID, userID string) error {
	res, err := g.store.Unban(ctx, userID)
	if err != nil {
		return fmt.Errorf("unban %s: %w", userID, err)
	}
	if res != nil && res.Error != "" {
		return fmt.Errorf("unban %s: %s", userID, res.Error)
	}

	audit.LogWithDetail(ctx, audit.ActionUnban, actorID, userID, "user unbanned")
	return nil
}

// BannedSet returns which of the given users are currently banned, as a
// set. Used to refresh ban badges whenever the visible viewer set changes
// or a moderation panel opens. Lookup failures degrade to an empty set.
func (g *Gateway) BannedSet(ctx context.Context, userIDs []string) map[string]bool {
	banned, err := g.store.ActiveBans(ctx, userIDs)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("active ban lookup failed")
		return map[string]bool{}
	}

	set := make(map[string]bool, len(banned))
	for _, id := range banned {
		set[id] = true
	}
	return set
}

// ActiveBans returns every ban currently in force, newest first.
func (g *Gateway) ActiveBans(ctx context.Context) ([]domain.Ban, error) {
	return g.store.ListActive(ctx)
}

// repoStore adapts the GORM ban repository to the trust-boundary Store
// shape: repository errors surface as transport errors, and the in-payload
// channel stays clear because the repository is already idempotent.
type repoStore struct {
	repo repository.BanRepository
}

// NewRepositoryStore wraps a ban repository as a Store.
func NewRepositoryStore(repo repository.BanRepository) Store {
	return &repoStore{repo: repo}
}

func (s *repoStore) Ban(ctx context.Context, userID, reason string) (*Result, error) {
	if userID == "" {
		return &Result{Error: "user_id is required"}, nil
	}
	if err := s.repo.Ban(ctx, userID, reason); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (s *repoStore) Unban(ctx context.Context, userID string) (*Result, error) {
	if userID == "" {
		return &Result{Error: "user_id is required"}, nil
	}
	if err := s.repo.Unban(ctx, userID); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (s *repoStore) ActiveBans(ctx context.Context, userIDs []string) ([]string, error) {
	return s.repo.ActiveBans(ctx, userIDs)
}

func (s *repoStore) ListActive(ctx context.Context) ([]domain.Ban, error) {
	return s.repo.ListActive(ctx)
}
