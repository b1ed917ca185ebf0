package app

import (
	"context"
	"fmt"

	"s3bridge/internal/auth"
	"s3bridge/internal/config"
	"s3bridge/internal/http"
	"s3bridge/internal/issuer"
	"s3bridge/internal/registry"
)

// InitializeService wires up all dependencies and returns a configured Service
func InitializeService() (*Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}

	authority, err := issuer.NewSTSAuthority(cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create STS authority: %w", err)
	}

	iss := issuer.New(newKeyVerifier(cfg), reg, authority,
		issuer.WithMaxDuration(cfg.Broker.MaxCredentialDuration),
		issuer.WithAssumeRoleTimeout(cfg.Broker.AssumeRoleTimeout),
	)

	server := http.NewServer(&http.ServerDependencies{
		Config: cfg,
		Issuer: iss,
	})

	return &Service{
		config: cfg,
		server: server,
	}, nil
}

func newRegistry(cfg *config.Config) (registry.Registry, error) {
	switch cfg.Registry.Backend {
	case config.RegistryBackendPostgres:
		return registry.NewPostgresRegistry(context.Background(), cfg.Registry.DatabaseURL)
	default:
		return registry.NewEnvRegistry(), nil
	}
}

func newKeyVerifier(cfg *config.Config) *auth.KeyVerifier {
	if cfg.Broker.APIKeyHash != "" {
		return auth.NewKeyVerifier(cfg.Broker.APIKeyHash)
	}
	return auth.NewKeyVerifierFromKey(cfg.Broker.APIKey)
}
