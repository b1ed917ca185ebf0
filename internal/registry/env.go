package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	serviceEnvPrefix = "SERVICE_"
	envAWSAccountID  = "AWS_ACCOUNT_ID"

	universalServiceID = "universal"
	universalRoleFmt   = "arn:aws:iam::%s:role/service-role/s3bridge-access-role"
)

// envServiceEntry is the JSON shape carried in SERVICE_<NAME> variables:
// {"role": "...", "buckets": ["..."], "tier": "read-only"}. Tier is optional
// and defaults to read-write.
type envServiceEntry struct {
	Role    string   `json:"role"`
	Buckets []string `json:"buckets"`
	Tier    string   `json:"tier"`
}

// EnvRegistry reads service definitions from SERVICE_* environment
// variables. The environment is re-read on every lookup so out-of-band
// updates by provisioning tooling are visible immediately.
type EnvRegistry struct {
	environ func() []string
}

func NewEnvRegistry() *EnvRegistry {
	return &EnvRegistry{environ: os.Environ}
}

func (r *EnvRegistry) Lookup(ctx context.Context, serviceID string) (*ServiceDefinition, error) {
	if serviceID == universalServiceID {
		if def := universalDefinition(r.environ()); def != nil {
			return def, nil
		}
		return nil, NotFound(serviceID)
	}

	for _, kv := range r.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, serviceEnvPrefix) {
			continue
		}
		name := strings.ToLower(key[len(serviceEnvPrefix):])
		if name != serviceID {
			continue
		}

		var entry envServiceEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			// Malformed registrations are skipped, not granted.
			continue
		}

		def, err := entry.definition(serviceID)
		if err != nil {
			return nil, err
		}
		return def, nil
	}

	return nil, NotFound(serviceID)
}

func (e *envServiceEntry) definition(serviceID string) (*ServiceDefinition, error) {
	tier := TierReadWrite
	if e.Tier != "" {
		parsed, err := ParseTier(e.Tier)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", serviceID, err)
		}
		tier = parsed
	}

	def := &ServiceDefinition{
		ServiceID:      serviceID,
		BucketPatterns: e.Buckets,
		Tier:           tier,
		RoleReference:  e.Role,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// universalDefinition builds the implicit catch-all registration from the
// account ID. It only exists when AWS_ACCOUNT_ID is set.
func universalDefinition(environ []string) *ServiceDefinition {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key != envAWSAccountID || value == "" {
			continue
		}
		return &ServiceDefinition{
			ServiceID:      universalServiceID,
			BucketPatterns: []string{"*"},
			Tier:           TierAdmin,
			RoleReference:  fmt.Sprintf(universalRoleFmt, value),
		}
	}
	return nil
}
