package app

import (
	"context"
	"log"

	"s3bridge/internal/config"
	"s3bridge/internal/http"
)

// Service represents the credential broker application
type Service struct {
	config *config.Config
	server *http.Server
}

// NewService creates and initializes a new Service instance
// This is a convenience wrapper around InitializeService
func NewService() (*Service, error) {
	return InitializeService()
}

// Start starts the HTTP server
func (s *Service) Start() error {
	log.Println("Starting credential broker...")
	return s.server.Start(":" + s.config.Server.Port)
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
