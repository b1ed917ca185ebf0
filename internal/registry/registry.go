package registry

import (
	"context"
	"fmt"

	apperrors "s3bridge/pkg/errors"
)

// Tier is the coarse action-set classification attached to a service
// identity. The delegated role enforces the actual action set upstream;
// the broker only records which tier a registration carries.
type Tier string

const (
	TierReadOnly  Tier = "read-only"
	TierReadWrite Tier = "read-write"
	TierAdmin     Tier = "admin"
)

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierReadOnly, TierReadWrite, TierAdmin:
		return Tier(s), nil
	}
	return "", fmt.Errorf("invalid permission tier: %q", s)
}

// ServiceDefinition is one registry entry. The broker never mutates these;
// provisioning tooling owns the write path.
type ServiceDefinition struct {
	ServiceID      string
	BucketPatterns []string
	Tier           Tier
	RoleReference  string
}

func (d *ServiceDefinition) Validate() error {
	if d.ServiceID == "" {
		return fmt.Errorf("service_id must not be empty")
	}
	if len(d.BucketPatterns) == 0 {
		return fmt.Errorf("service %s has no bucket patterns", d.ServiceID)
	}
	if d.RoleReference == "" {
		return fmt.Errorf("service %s has no role reference", d.ServiceID)
	}
	return nil
}

// Registry is the read path into the service registry. Lookup must return
// ErrUnknownService for a missing service, never a default scope.
type Registry interface {
	Lookup(ctx context.Context, serviceID string) (*ServiceDefinition, error)
}

// NotFound builds the canonical unknown-service error for registry backends.
func NotFound(serviceID string) error {
	return apperrors.UnknownService(serviceID)
}
