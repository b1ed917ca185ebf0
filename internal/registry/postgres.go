package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbPingTimeout = 5 * time.Second

// PostgresRegistry reads service definitions from a services table owned
// by provisioning tooling. Every lookup hits the database; the issuer path
// deliberately carries no registry cache.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(ctx context.Context, databaseURL string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping registry database: %w", err)
	}

	return &PostgresRegistry{pool: pool}, nil
}

func (r *PostgresRegistry) Lookup(ctx context.Context, serviceID string) (*ServiceDefinition, error) {
	query := `
		SELECT service_id, bucket_patterns, permission_tier, role_reference
		FROM services WHERE service_id = $1
	`

	def := &ServiceDefinition{}
	var tier string
	err := r.pool.QueryRow(ctx, query, serviceID).Scan(
		&def.ServiceID, &def.BucketPatterns, &tier, &def.RoleReference,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, NotFound(serviceID)
		}
		return nil, fmt.Errorf("failed to look up service %s: %w", serviceID, err)
	}

	def.Tier, err = ParseTier(tier)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", serviceID, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	return def, nil
}

func (r *PostgresRegistry) Close() {
	r.pool.Close()
}
