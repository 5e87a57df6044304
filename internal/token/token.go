package token

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
)

// Role scopes a media grant.
type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

var (
	// ErrInvalidChannel rejects malformed channel names before signing.
	ErrInvalidChannel = errors.New("invalid channel name")
)

// Grant is a short-lived, role-scoped media access credential. Role is the
// GRANTED role, which may be lower than the requested one; callers must
// honor it.
type Grant struct {
	Token   string `json:"token"`
	UID     uint32 `json:"uid"`
	AppID   string `json:"app_id"`
	Channel string `json:"channel"`
	Role    Role   `json:"role"`
}

// IssueRequest asks for a media grant.
type IssueRequest struct {
	UserID        string
	RequestedRole Role
	Channel       string
	SessionHostID string
}

// mediaClaims is the signed body of a media grant.
type mediaClaims struct {
	jwt.RegisteredClaims
	UID     uint32 `json:"uid"`
	Channel string `json:"channel"`
	Role    string `json:"role"`
}

// Service issues media grants. It is the trust boundary: a host role is
// granted only to the session's designated host, everyone else is silently
// downgraded to viewer.
type Service struct {
	secret []byte
	appID  string
	issuer string
	ttl    time.Duration
}

// NewService creates a media token service.
func NewService(secret, appID, issuer string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		secret: []byte(secret),
		appID:  appID,
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue signs and returns a media grant. The returned role is authoritative.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Grant, error) {
	if req.Channel == "" {
		return nil, ErrInvalidChannel
	}

	role := req.RequestedRole
	if role != RoleHost {
		role = RoleViewer
	}
	if role == RoleHost && req.UserID != req.SessionHostID {
		role = RoleViewer
		log.Ctx(ctx).Warn().
			Str(log.FieldUserID, req.UserID).
			Str(log.FieldChannel, req.Channel).
			Msg("host role requested by non-host, downgraded to viewer")
	}

	uid := MediaUID(req.UserID)
	now := time.Now()

	claims := &mediaClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   req.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UID:     uid,
		Channel: req.Channel,
		Role:    string(role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &Grant{
		Token:   signed,
		UID:     uid,
		AppID:   s.appID,
		Channel: req.Channel,
		Role:    role,
	}, nil
}

// MediaUID derives a stable numeric media UID from a user ID.
func MediaUID(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	uid := h.Sum32()
	if uid == 0 {
		uid = 1 // 0 is reserved by most media transports
	}
	return uid
}
