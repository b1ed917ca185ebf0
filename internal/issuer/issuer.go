package issuer

import (
	"context"
	"fmt"
	"time"

	"s3bridge/internal/auth"
	"s3bridge/internal/registry"
	apperrors "s3bridge/pkg/errors"
)

const (
	// DefaultMaxDuration is the ceiling on issued credential lifetimes.
	DefaultMaxDuration = time.Hour
	// DefaultAssumeRoleTimeout bounds the call to the role-assumption
	// authority so a slow upstream cannot hold requests indefinitely.
	DefaultAssumeRoleTimeout = 30 * time.Second
)

// Bundle is one issued set of temporary storage credentials, scoped to a
// service identity. BucketPatterns travel with the bundle so the client
// side can enforce the same boundary before dispatching storage calls.
type Bundle struct {
	ServiceID      string
	AccessKey      string
	SecretKey      string
	SessionToken   string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	BucketPatterns []string
	Tier           registry.Tier
}

// AssumedCredentials is what the role-assumption authority hands back.
// Expiration is zero when the authority did not report one.
type AssumedCredentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Expiration   time.Time
}

// Authority mints time-boxed secrets for a delegated role. The STS client
// implements this; tests substitute fakes.
type Authority interface {
	AssumeRole(ctx context.Context, roleReference, sessionName string, duration time.Duration) (*AssumedCredentials, error)
}

// Issuer validates callers and issues scoped temporary credentials. It is
// stateless across requests; all caching lives on the client side.
type Issuer struct {
	verifier    *auth.KeyVerifier
	registry    registry.Registry
	authority   Authority
	maxDuration time.Duration
	callTimeout time.Duration
	now         func() time.Time
}

type Option func(*Issuer)

func WithMaxDuration(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.maxDuration = d
		}
	}
}

func WithAssumeRoleTimeout(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.callTimeout = d
		}
	}
}

func New(verifier *auth.KeyVerifier, reg registry.Registry, authority Authority, opts ...Option) *Issuer {
	i := &Issuer{
		verifier:    verifier,
		registry:    reg,
		authority:   authority,
		maxDuration: DefaultMaxDuration,
		callTimeout: DefaultAssumeRoleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue runs the issuance gates in order; any failure denies the whole
// request. No partial credentials, no internal retries.
func (i *Issuer) Issue(ctx context.Context, apiKey, serviceID string, requested time.Duration) (*Bundle, error) {
	if !i.verifier.Verify(apiKey) {
		return nil, apperrors.InvalidAPIKey()
	}

	def, err := i.registry.Lookup(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	duration := i.clampDuration(requested)

	callCtx, cancel := context.WithTimeout(ctx, i.callTimeout)
	defer cancel()

	sessionName := fmt.Sprintf("%s-session-%d", serviceID, i.now().Unix())
	creds, err := i.authority.AssumeRole(callCtx, def.RoleReference, sessionName, duration)
	if err != nil {
		return nil, apperrors.UpstreamFailure(fmt.Sprintf("assume role failed for service %s", serviceID), err)
	}

	issuedAt := i.now()
	expiresAt := creds.Expiration
	if expiresAt.IsZero() {
		expiresAt = issuedAt.Add(duration)
	}
	if !expiresAt.After(issuedAt) {
		return nil, apperrors.UpstreamFailure(fmt.Sprintf("authority returned expired credentials for service %s", serviceID), nil)
	}

	return &Bundle{
		ServiceID:      serviceID,
		AccessKey:      creds.AccessKey,
		SecretKey:      creds.SecretKey,
		SessionToken:   creds.SessionToken,
		IssuedAt:       issuedAt,
		ExpiresAt:      expiresAt,
		BucketPatterns: def.BucketPatterns,
		Tier:           def.Tier,
	}, nil
}

// clampDuration bounds the caller-requested lifetime: never above the
// ceiling, never zero or negative.
func (i *Issuer) clampDuration(requested time.Duration) time.Duration {
	if requested <= 0 || requested > i.maxDuration {
		return i.maxDuration
	}
	return requested
}
