package media

import (
	"context"
	"errors"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/token"
)

// ErrNoPublisher is returned by SubscribeRemote when no remote participant
// has published yet. The adapter maps it to the Waiting state instead of
// failing the attach.
var ErrNoPublisher = errors.New("no remote publisher in channel")

// Transport is the real-time media client boundary. Media quality,
// bitrate and codec concerns live entirely behind it.
type Transport interface {
	// Join connects to the channel with a granted credential.
	Join(ctx context.Context, channel, grantToken string, uid uint32, role token.Role) error

	// PublishLocal captures local audio+video and publishes it (host path).
	PublishLocal(ctx context.Context) error

	// SubscribeRemote subscribes to whichever remote participant is
	// publishing (viewer path). Returns ErrNoPublisher when nobody is.
	SubscribeRemote(ctx context.Context) error

	// Teardown steps, in order. Each is called at most once per session.
	Unpublish(ctx context.Context) error
	StopTracks(ctx context.Context) error
	CloseTracks(ctx context.Context) error
	Leave(ctx context.Context) error
}
