package notify

import (
	"context"
	"fmt"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/repository"
)

// EventTypeOwnerLive is the claim scope for host-start notifications.
const EventTypeOwnerLive = "owner_live"

// DefaultBatchSize is the push gateway's batch ceiling.
const DefaultBatchSize = 2000

// Notification is the outbound push content.
type Notification struct {
	Heading     string            `json:"heading"`
	Body        string            `json:"body"`
	IconURL     string            `json:"icon_url,omitempty"`
	DeepLinkURL string            `json:"deep_link_url,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// BatchResult is the per-batch outcome. Failed batches are reported, never
// retried or compensated.
type BatchResult struct {
	Size     int    `json:"size"`
	Ok       bool   `json:"ok"`
	Status   int    `json:"status"`
	Response string `json:"response,omitempty"`
}

// Result is the outcome of one dispatch attempt. Claimed=false is a
// normal no-op success: another trigger got there first.
type Result struct {
	Claimed    bool          `json:"claimed"`
	Recipients int           `json:"recipients"`
	Batches    []BatchResult `json:"batches,omitempty"`
}

// Failures counts failed batches.
func (r *Result) Failures() int {
	n := 0
	for _, b := range r.Batches {
		if !b.Ok {
			n++
		}
	}
	return n
}

// Gateway is the external push service boundary.
type Gateway interface {
	SendBatch(ctx context.Context, recipientIDs []string, n Notification) (BatchResult, error)
}

// Dispatcher fires the host-start push at most once per broadcast. The
// idempotency claim is the only de-duplicated layer; gateway-level retries
// are out of scope.
type Dispatcher struct {
	claims    repository.ClaimRepository
	profiles  repository.ProfileRepository
	gateway   Gateway
	batchSize int
}

// NewDispatcher creates a dispatcher. batchSize above the gateway ceiling
// is clamped to it.
func NewDispatcher(claims repository.ClaimRepository, profiles repository.ProfileRepository, gateway Gateway, batchSize int) *Dispatcher {
	if batchSize < 1 || batchSize > DefaultBatchSize {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{
		claims:    claims,
		profiles:  profiles,
		gateway:   gateway,
		batchSize: batchSize,
	}
}

// LiveStartKey builds the idempotency key for a broadcast start.
func LiveStartKey(session *domain.LiveSession) string {
	startedAt := ""
	if session.StartedAt != nil {
		startedAt = fmt.Sprintf("%d", session.StartedAt.UnixMilli())
	}
	return fmt.Sprintf("%s:%s", session.ID, startedAt)
}

// DispatchLiveStart claims the broadcast's key and, if this caller won,
// fans the notification out to all opted-in recipients in bounded batches.
func (d *Dispatcher) DispatchLiveStart(ctx context.Context, session *domain.LiveSession, n Notification) (*Result, error) {
	key := LiveStartKey(session)

	claimed, err := d.claims.Claim(ctx, EventTypeOwnerLive, key, database.JSONMap{
		"session_id": session.ID,
		"host_id":    session.HostID(),
		"heading":    n.Heading,
	})
	if err != nil {
		return nil, fmt.Errorf("push claim: %w", err)
	}
	if !claimed {
		// Someone else already triggered this broadcast's push.
		log.Ctx(ctx).Info().Str("idempotency_key", key).Msg("push already claimed, skipping")
		return &Result{Claimed: false}, nil
	}

	recipients, err := d.profiles.OptedInRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}

	result := &Result{Claimed: true, Recipients: len(recipients)}
	l := log.Ctx(ctx)

	for _, batch := range partition(recipients, d.batchSize) {
		br, err := d.gateway.SendBatch(ctx, batch, n)
		if err != nil {
			br = BatchResult{Size: len(batch), Ok: false, Response: err.Error()}
			l.Warn().Err(err).Int("batch_size", len(batch)).Msg("push batch failed")
		}
		result.Batches = append(result.Batches, br)
	}

	l.Info().
		Str("idempotency_key", key).
		Int("recipients", result.Recipients).
		Int("batches", len(result.Batches)).
		Int("failed_batches", result.Failures()).
		Msg("live-start push dispatched")

	return result, nil
}

// partition splits ids into chunks of at most size.
func partition(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
