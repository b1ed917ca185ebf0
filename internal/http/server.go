package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"s3bridge/internal/auth"
	"s3bridge/internal/config"
	"s3bridge/internal/http/handler"
	"s3bridge/internal/http/middleware"
	"s3bridge/pkg/metrics"
)

const (
	jsonKeyStatus    = "status"
	statusOK         = "ok"
	requestBodyLimit = "64K"
)

type ServerDependencies struct {
	Config *config.Config
	Issuer handler.CredentialIssuer
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	e.Use(metrics.Middleware())

	globalRateLimiter := middleware.NewGlobalRateLimiter()
	e.Use(globalRateLimiter.Middleware())

	// Issuance can fan out to the role-assumption authority, so it gets a
	// tighter per-key budget.
	issuanceRateLimiter := middleware.NewIssuanceRateLimiter()

	credentialHandler := handler.NewCredentialHandler(deps.Issuer)

	e.GET("/credentials", credentialHandler.IssueCredentials,
		issuanceRateLimiter.Middleware(), auth.RequireAPIKeyHeader())
	e.GET("/health", healthCheck)
	metrics.RegisterMetricsRoute(e)

	return &Server{
		echo: e,
		deps: deps,
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}
