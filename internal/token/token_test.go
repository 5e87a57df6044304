package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService("test-secret", "test-app", "test-issuer", time.Hour)
}

func TestIssueHostGrantForSessionHost(t *testing.T) {
	s := newTestService()

	grant, err := s.Issue(context.Background(), IssueRequest{
		UserID:        "host-1",
		RequestedRole: RoleHost,
		Channel:       "main",
		SessionHostID: "host-1",
	})
	require.NoError(t, err)

	assert.Equal(t, RoleHost, grant.Role)
	assert.Equal(t, "main", grant.Channel)
	assert.Equal(t, "test-app", grant.AppID)
	assert.NotZero(t, grant.UID)
	assert.NotEmpty(t, grant.Token)
}

func TestIssueDowngradesNonHost(t *testing.T) {
	s := newTestService()

	grant, err := s.Issue(context.Background(), IssueRequest{
		UserID:        "viewer-1",
		RequestedRole: RoleHost,
		Channel:       "main",
		SessionHostID: "host-1",
	})
	require.NoError(t, err, "a downgraded request still succeeds")
	assert.Equal(t, RoleViewer, grant.Role, "the granted role is authoritative")
}

func TestIssueUnknownRoleBecomesViewer(t *testing.T) {
	s := newTestService()

	grant, err := s.Issue(context.Background(), IssueRequest{
		UserID:        "viewer-1",
		RequestedRole: Role("admin"),
		Channel:       "main",
		SessionHostID: "host-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, grant.Role)
}

func TestIssueRejectsEmptyChannel(t *testing.T) {
	s := newTestService()

	_, err := s.Issue(context.Background(), IssueRequest{
		UserID:        "host-1",
		RequestedRole: RoleHost,
		SessionHostID: "host-1",
	})
	require.ErrorIs(t, err, ErrInvalidChannel)
}

func TestIssuedTokenCarriesGrantedRole(t *testing.T) {
	s := newTestService()

	grant, err := s.Issue(context.Background(), IssueRequest{
		UserID:        "viewer-1",
		RequestedRole: RoleHost,
		Channel:       "main",
		SessionHostID: "host-1",
	})
	require.NoError(t, err)

	parsed, err := jwt.ParseWithClaims(grant.Token, &mediaClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)

	claims := parsed.Claims.(*mediaClaims)
	assert.Equal(t, "viewer", claims.Role, "the signed role matches the downgrade")
	assert.Equal(t, "main", claims.Channel)
	assert.Equal(t, "viewer-1", claims.Subject)
	assert.Equal(t, grant.UID, claims.UID)
}

func TestMediaUIDStableAndNonZero(t *testing.T) {
	assert.Equal(t, MediaUID("user-1"), MediaUID("user-1"))
	assert.NotEqual(t, MediaUID("user-1"), MediaUID("user-2"))
	assert.NotZero(t, MediaUID(""))
}
