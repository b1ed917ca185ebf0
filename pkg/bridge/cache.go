package bridge

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultSafetyMargin is the lead time before actual expiry at which a
	// bundle is treated as stale. Network latency, clock skew, and in-flight
	// request duration must not let a bundle expire mid-use.
	DefaultSafetyMargin = 10 * time.Minute
	// DefaultRequestDuration is the lifetime requested on refresh.
	DefaultRequestDuration = time.Hour
	// DefaultRefreshTimeout bounds a refresh call that all waiters have
	// already abandoned.
	DefaultRefreshTimeout = 2 * time.Minute
)

// State describes a cache entry's position in the refresh lifecycle.
type State int

const (
	StateEmpty State = iota
	StateFresh
	StateStale
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// IssueFunc fetches a fresh bundle for a service identity. Client.FetchCredentials
// satisfies this signature.
type IssueFunc func(ctx context.Context, serviceID string, duration time.Duration) (*Credentials, error)

// refreshCall is one in-flight issuance shared by every caller that
// observed the entry stale while it was running.
type refreshCall struct {
	done  chan struct{}
	creds *Credentials
	err   error
}

// cacheEntry holds the most recent bundle for one service identity.
// Entries lock independently so services never block one another.
type cacheEntry struct {
	mu       sync.Mutex
	creds    *Credentials
	inflight *refreshCall
}

// CredentialCache hands out fresh credential bundles, refreshing stale
// ones through a single-flight issuance per service identity: the first
// caller to observe staleness starts the refresh, everyone else waits on
// the same result.
type CredentialCache struct {
	issue           IssueFunc
	safetyMargin    time.Duration
	requestDuration time.Duration
	refreshTimeout  time.Duration
	now             func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type CacheOption func(*CredentialCache)

func WithSafetyMargin(d time.Duration) CacheOption {
	return func(c *CredentialCache) {
		if d >= 0 {
			c.safetyMargin = d
		}
	}
}

func WithRequestDuration(d time.Duration) CacheOption {
	return func(c *CredentialCache) {
		if d > 0 {
			c.requestDuration = d
		}
	}
}

func WithRefreshTimeout(d time.Duration) CacheOption {
	return func(c *CredentialCache) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func NewCredentialCache(issue IssueFunc, opts ...CacheOption) *CredentialCache {
	c := &CredentialCache{
		issue:           issue,
		safetyMargin:    DefaultSafetyMargin,
		requestDuration: DefaultRequestDuration,
		refreshTimeout:  DefaultRefreshTimeout,
		now:             time.Now,
		entries:         make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCredentials returns a fresh bundle for the service, transparently
// refreshing when the entry is empty or stale. A canceled caller context
// abandons the wait without aborting the refresh; the result is still
// cached for subsequent callers.
func (c *CredentialCache) GetCredentials(ctx context.Context, serviceID string) (*Credentials, error) {
	e := c.entry(serviceID)

	e.mu.Lock()
	if creds := e.creds; creds != nil && c.fresh(creds) {
		e.mu.Unlock()
		return creds, nil
	}

	call := e.inflight
	if call == nil {
		call = &refreshCall{done: make(chan struct{})}
		e.inflight = call
		e.mu.Unlock()
		// Detached from the caller's context so one impatient caller
		// cannot fail the refresh for everyone else.
		go c.refresh(serviceID, e, call)
	} else {
		e.mu.Unlock()
	}

	select {
	case <-call.done:
		return call.creds, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate forces the entry to stale regardless of expiry, typically
// after the storage backend rejected a credential revoked out-of-band.
// Calling it on an unknown service is a no-op.
func (c *CredentialCache) Invalidate(serviceID string) {
	c.mu.Lock()
	e, ok := c.entries[serviceID]
	c.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.creds = nil
	e.mu.Unlock()
}

// Reset drops the entry entirely, returning it to empty. Used for full
// state reset, e.g. after a detected API-key rotation.
func (c *CredentialCache) Reset(serviceID string) {
	c.mu.Lock()
	delete(c.entries, serviceID)
	c.mu.Unlock()
}

// State reports the entry's current lifecycle state.
func (c *CredentialCache) State(serviceID string) State {
	c.mu.Lock()
	e, ok := c.entries[serviceID]
	c.mu.Unlock()
	if !ok {
		return StateEmpty
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// An entry with no bundle has been attempted before (refresh denied or
	// invalidated); it is stale, not empty.
	switch {
	case e.inflight != nil:
		return StateRefreshing
	case e.creds == nil:
		return StateStale
	case c.fresh(e.creds):
		return StateFresh
	default:
		return StateStale
	}
}

func (c *CredentialCache) entry(serviceID string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[serviceID]
	if !ok {
		e = &cacheEntry{}
		c.entries[serviceID] = e
	}
	return e
}

func (c *CredentialCache) fresh(creds *Credentials) bool {
	return c.now().Before(creds.ExpiresAt.Add(-c.safetyMargin))
}

func (c *CredentialCache) refresh(serviceID string, e *cacheEntry, call *refreshCall) {
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	creds, err := c.issue(ctx, serviceID, c.requestDuration)

	e.mu.Lock()
	if err != nil {
		// A denied refresh discards the previous bundle rather than
		// serving it past its safety margin.
		e.creds = nil
	} else {
		e.creds = creds
	}
	e.inflight = nil
	e.mu.Unlock()

	call.creds, call.err = creds, err
	close(call.done)
}
