package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envAWSRegion             = "REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envAWSAccountID          = "AWS_ACCOUNT_ID"
	envAPIKey                = "S3BRIDGE_API_KEY"
	envAPIKeyHash            = "S3BRIDGE_API_KEY_HASH"
	envMaxCredentialDuration = "MAX_CREDENTIAL_DURATION"
	envAssumeRoleTimeout     = "ASSUME_ROLE_TIMEOUT"
	envRegistryBackend       = "REGISTRY_BACKEND"
	envRegistryDatabaseURL   = "REGISTRY_DATABASE_URL"
)

const (
	defaultServerPort            = "8080"
	defaultServerReadTimeout     = 10 * time.Second
	defaultServerWriteTimeout    = 10 * time.Second
	defaultServerShutdown        = 10 * time.Second
	defaultMaxCredentialDuration = time.Hour
	defaultAssumeRoleTimeout     = 30 * time.Second

	RegistryBackendEnv      = "env"
	RegistryBackendPostgres = "postgres"

	errPortRequiredFmt        = "PORT must be set"
	errRegionRequiredFmt      = "REGION must be set"
	errAPIKeyRequiredFmt      = "S3BRIDGE_API_KEY or S3BRIDGE_API_KEY_HASH must be set"
	errDatabaseURLRequiredFmt = "REGISTRY_DATABASE_URL must be set for the postgres registry backend"
	errUnknownBackendFmt      = "unknown registry backend: %q"
	errInvalidConfigFmt       = "invalid configuration: %w"
)

type Config struct {
	Server   ServerConfig
	AWS      AWSConfig
	Broker   BrokerConfig
	Registry RegistryConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	AccountID       string
}

type BrokerConfig struct {
	// APIKey is the plaintext broker key; APIKeyHash takes precedence when
	// both are set so deployments never have to carry the plaintext.
	APIKey                string
	APIKeyHash            string
	MaxCredentialDuration time.Duration
	AssumeRoleTimeout     time.Duration
}

type RegistryConfig struct {
	Backend     string
	DatabaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
		},
		AWS: AWSConfig{
			Region:          requireEnv(envAWSRegion),
			AccessKeyID:     getEnv(envAWSAccessKeyID, ""),
			SecretAccessKey: getEnv(envAWSSecretAccessKey, ""),
			AccountID:       getEnv(envAWSAccountID, ""),
		},
		Broker: BrokerConfig{
			APIKey:                getEnv(envAPIKey, ""),
			APIKeyHash:            getEnv(envAPIKeyHash, ""),
			MaxCredentialDuration: getDurationEnv(envMaxCredentialDuration, defaultMaxCredentialDuration),
			AssumeRoleTimeout:     getDurationEnv(envAssumeRoleTimeout, defaultAssumeRoleTimeout),
		},
		Registry: RegistryConfig{
			Backend:     getEnv(envRegistryBackend, RegistryBackendEnv),
			DatabaseURL: getEnv(envRegistryDatabaseURL, ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.AWS.Region == "" {
		return fmt.Errorf(errRegionRequiredFmt)
	}

	if c.Broker.APIKey == "" && c.Broker.APIKeyHash == "" {
		return fmt.Errorf(errAPIKeyRequiredFmt)
	}

	switch c.Registry.Backend {
	case RegistryBackendEnv:
	case RegistryBackendPostgres:
		if c.Registry.DatabaseURL == "" {
			return fmt.Errorf(errDatabaseURLRequiredFmt)
		}
	default:
		return fmt.Errorf(errUnknownBackendFmt, c.Registry.Backend)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(messages.requiredEnvNotSet(key))
	}
	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
