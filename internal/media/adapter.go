package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/token"
)

var (
	// ErrNotAuthorized means the trust boundary refused (downgraded) the
	// host role. The broadcast does not start and no retry is offered.
	ErrNotAuthorized = errors.New("not authorized to host this broadcast")
)

// State is the adapter's attach state.
type State string

const (
	StateIdle       State = "idle"
	StatePublishing State = "publishing"
	StateWaiting    State = "waiting" // viewer joined, nobody publishing yet
	StateWatching   State = "watching"
	StateLeft       State = "left"
)

// Teardown latch values. The transition NotLeft → Leaving is an atomic
// compare-and-set: whichever trigger wins runs the teardown sequence,
// every other concurrent trigger is a silent no-op.
const (
	latchNotLeft int32 = iota
	latchLeaving
	latchLeft
)

// TokenIssuer is the trust boundary that grants role-scoped credentials.
type TokenIssuer interface {
	Issue(ctx context.Context, req token.IssueRequest) (*token.Grant, error)
}

// Adapter owns one attachment to the media transport for one broadcast.
// It exclusively owns any local tracks the transport acquires; every
// teardown trigger funnels through Teardown, which runs the
// unpublish/stop/close/leave sequence exactly once.
type Adapter struct {
	issuer    TokenIssuer
	transport Transport

	latch atomic.Int32

	mu        sync.Mutex
	state     State
	grant     *token.Grant
	published bool
}

// NewAdapter creates an adapter for a single broadcast session.
func NewAdapter(issuer TokenIssuer, transport Transport) *Adapter {
	return &Adapter{
		issuer:    issuer,
		transport: transport,
		state:     StateIdle,
	}
}

// State returns the current attach state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Grant returns the credential in effect, or nil before attach.
func (a *Adapter) Grant() *token.Grant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.grant
}

// AttachHost requests a host grant, joins and publishes. If the trust
// boundary downgrades the role the attach fails with ErrNotAuthorized. Any
// transport failure after join tears down before returning, so a failed
// start never leaks tracks.
func (a *Adapter) AttachHost(ctx context.Context, channel, userID, sessionHostID string) error {
	grant, err := a.issuer.Issue(ctx, token.IssueRequest{
		UserID:        userID,
		RequestedRole: token.RoleHost,
		Channel:       channel,
		SessionHostID: sessionHostID,
	})
	if err != nil {
		return fmt.Errorf("token issuance: %w", err)
	}
	// The trust boundary's answer is authoritative, not the request.
	if grant.Role != token.RoleHost {
		return ErrNotAuthorized
	}

	a.setGrant(grant)

	if err := a.transport.Join(ctx, grant.Channel, grant.Token, grant.UID, grant.Role); err != nil {
		return fmt.Errorf("transport join: %w", err)
	}

	if err := a.transport.PublishLocal(ctx); err != nil {
		// Error during start is a teardown trigger like any other.
		if terr := a.Teardown(ctx); terr != nil {
			log.Ctx(ctx).Error().Err(terr).Msg("teardown after failed publish")
		}
		return fmt.Errorf("transport publish: %w", err)
	}

	a.setState(StatePublishing, true)
	return nil
}

// AttachViewer requests a viewer grant and joins as audience. When no one
// has published yet the adapter parks in Waiting rather than erroring;
// there is deliberately no timeout on that state.
func (a *Adapter) AttachViewer(ctx context.Context, channel, userID, sessionHostID string) error {
	grant, err := a.issuer.Issue(ctx, token.IssueRequest{
		UserID:        userID,
		RequestedRole: token.RoleViewer,
		Channel:       channel,
		SessionHostID: sessionHostID,
	})
	if err != nil {
		return fmt.Errorf("token issuance: %w", err)
	}

	a.setGrant(grant)

	if err := a.transport.Join(ctx, grant.Channel, grant.Token, grant.UID, grant.Role); err != nil {
		return fmt.Errorf("transport join: %w", err)
	}

	if err := a.transport.SubscribeRemote(ctx); err != nil {
		if errors.Is(err, ErrNoPublisher) {
			a.setState(StateWaiting, false)
			return nil
		}
		if terr := a.Teardown(ctx); terr != nil {
			log.Ctx(ctx).Error().Err(terr).Msg("teardown after failed subscribe")
		}
		return fmt.Errorf("transport subscribe: %w", err)
	}

	a.setState(StateWatching, false)
	return nil
}

// HandleRemotePublish moves a waiting viewer onto the newly published
// stream. Called by the transport binding when the host's publish event
// arrives; a no-op in any other state.
func (a *Adapter) HandleRemotePublish(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateWaiting {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.transport.SubscribeRemote(ctx); err != nil {
		if errors.Is(err, ErrNoPublisher) {
			return nil // publisher vanished again, stay waiting
		}
		return fmt.Errorf("transport subscribe: %w", err)
	}

	a.setState(StateWatching, false)
	return nil
}

// Teardown runs the unpublish/stop/close/leave sequence exactly once.
// Stop action, connection loss, shutdown and start-failure may all call
// this concurrently; only the first caller past the latch does any work,
// the rest return nil immediately.
func (a *Adapter) Teardown(ctx context.Context) error {
	if !a.latch.CompareAndSwap(latchNotLeft, latchLeaving) {
		return nil
	}
	defer a.latch.Store(latchLeft)

	a.mu.Lock()
	published := a.published
	a.state = StateLeft
	a.mu.Unlock()

	l := log.Ctx(ctx)
	var errs []error

	if published {
		if err := a.transport.Unpublish(ctx); err != nil {
			l.Error().Err(err).Msg("media unpublish failed")
			errs = append(errs, err)
		}
	}
	if err := a.transport.StopTracks(ctx); err != nil {
		l.Error().Err(err).Msg("media stop tracks failed")
		errs = append(errs, err)
	}
	if err := a.transport.CloseTracks(ctx); err != nil {
		l.Error().Err(err).Msg("media close tracks failed")
		errs = append(errs, err)
	}
	if err := a.transport.Leave(ctx); err != nil {
		l.Error().Err(err).Msg("media leave failed")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// TornDown reports whether the teardown sequence has started.
func (a *Adapter) TornDown() bool {
	return a.latch.Load() != latchNotLeft
}

func (a *Adapter) setGrant(grant *token.Grant) {
	a.mu.Lock()
	a.grant = grant
	a.mu.Unlock()
}

func (a *Adapter) setState(s State, published bool) {
	a.mu.Lock()
	// A teardown that raced the attach wins; never resurrect a left session.
	if a.state != StateLeft {
		a.state = s
		if published {
			a.published = true
		}
	}
	a.mu.Unlock()
}
