package issuer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3bridge/internal/auth"
	"s3bridge/internal/registry"
	apperrors "s3bridge/pkg/errors"
)

type fakeRegistry struct {
	services map[string]*registry.ServiceDefinition
}

func (r *fakeRegistry) Lookup(ctx context.Context, serviceID string) (*registry.ServiceDefinition, error) {
	def, ok := r.services[serviceID]
	if !ok {
		return nil, registry.NotFound(serviceID)
	}
	return def, nil
}

type fakeAuthority struct {
	calls        int
	lastRole     string
	lastDuration time.Duration
	expiration   time.Time
	err          error
}

func (a *fakeAuthority) AssumeRole(ctx context.Context, roleReference, sessionName string, duration time.Duration) (*AssumedCredentials, error) {
	a.calls++
	a.lastRole = roleReference
	a.lastDuration = duration
	if a.err != nil {
		return nil, a.err
	}
	return &AssumedCredentials{
		AccessKey:    "AKIATEST",
		SecretKey:    "secret",
		SessionToken: "token",
		Expiration:   a.expiration,
	}, nil
}

func testIssuer(authority *fakeAuthority, opts ...Option) *Issuer {
	reg := &fakeRegistry{services: map[string]*registry.ServiceDefinition{
		"analytics": {
			ServiceID:      "analytics",
			BucketPatterns: []string{"*-analytics-*", "analytics-*"},
			Tier:           registry.TierReadOnly,
			RoleReference:  "arn:aws:iam::123456789012:role/analytics",
		},
	}}
	verifier := auth.NewKeyVerifierFromKey("valid-key")
	return New(verifier, reg, authority, opts...)
}

func TestIssue_Success(t *testing.T) {
	authority := &fakeAuthority{}
	i := testIssuer(authority)

	bundle, err := i.Issue(context.Background(), "valid-key", "analytics", 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "analytics", bundle.ServiceID)
	assert.Equal(t, "AKIATEST", bundle.AccessKey)
	assert.Equal(t, []string{"*-analytics-*", "analytics-*"}, bundle.BucketPatterns)
	assert.Equal(t, registry.TierReadOnly, bundle.Tier)
	assert.Equal(t, "arn:aws:iam::123456789012:role/analytics", authority.lastRole)
	assert.Equal(t, 30*time.Minute, authority.lastDuration)
	assert.True(t, bundle.ExpiresAt.After(bundle.IssuedAt))
}

func TestIssue_InvalidAPIKey(t *testing.T) {
	authority := &fakeAuthority{}
	i := testIssuer(authority)

	_, err := i.Issue(context.Background(), "wrong-key", "analytics", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAPIKey)
	assert.Zero(t, authority.calls, "authority must not be reached with a bad key")
}

func TestIssue_UnknownService(t *testing.T) {
	authority := &fakeAuthority{}
	i := testIssuer(authority)

	_, err := i.Issue(context.Background(), "valid-key", "nonexistent", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrUnknownService)
	assert.Zero(t, authority.calls)
}

func TestIssue_DurationClamp(t *testing.T) {
	authority := &fakeAuthority{}
	i := testIssuer(authority)

	bundle, err := i.Issue(context.Background(), "valid-key", "analytics", 2*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, authority.lastDuration)
	assert.LessOrEqual(t, bundle.ExpiresAt.Sub(bundle.IssuedAt), time.Hour)
}

func TestIssue_NonPositiveDurationFallsBackToCeiling(t *testing.T) {
	authority := &fakeAuthority{}
	i := testIssuer(authority)

	_, err := i.Issue(context.Background(), "valid-key", "analytics", -5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, authority.lastDuration)

	_, err = i.Issue(context.Background(), "valid-key", "analytics", 0)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, authority.lastDuration)
}

func TestIssue_AuthorityExpiryIsAuthoritative(t *testing.T) {
	// The authority may grant less than requested under load shedding.
	granted := time.Now().Add(20 * time.Minute)
	authority := &fakeAuthority{expiration: granted}
	i := testIssuer(authority)

	bundle, err := i.Issue(context.Background(), "valid-key", "analytics", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, granted, bundle.ExpiresAt)
}

func TestIssue_UpstreamFailure(t *testing.T) {
	authority := &fakeAuthority{err: errors.New("throttled")}
	i := testIssuer(authority)

	_, err := i.Issue(context.Background(), "valid-key", "analytics", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamFailure)
	assert.Equal(t, 1, authority.calls, "issuer must not retry the authority")
}

func TestIssue_ExpiredAuthorityGrantRejected(t *testing.T) {
	authority := &fakeAuthority{expiration: time.Now().Add(-time.Minute)}
	i := testIssuer(authority)

	_, err := i.Issue(context.Background(), "valid-key", "analytics", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamFailure)
}
