package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"s3bridge/internal/auth"
	"s3bridge/internal/issuer"
	"s3bridge/pkg/metrics"
)

// CredentialIssuer is the issuance surface the handler depends on.
type CredentialIssuer interface {
	Issue(ctx context.Context, apiKey, serviceID string, requested time.Duration) (*issuer.Bundle, error)
}

type CredentialHandler struct {
	issuer CredentialIssuer
}

func NewCredentialHandler(iss CredentialIssuer) *CredentialHandler {
	return &CredentialHandler{issuer: iss}
}

// credentialResponse mirrors the wire contract consumed by existing
// clients; field names are part of that contract.
type credentialResponse struct {
	AccessKeyID     string   `json:"AccessKeyId"`
	SecretAccessKey string   `json:"SecretAccessKey"`
	SessionToken    string   `json:"SessionToken"`
	Expiration      string   `json:"Expiration"`
	BucketPatterns  []string `json:"BucketPatterns,omitempty"`
}

// IssueCredentials handles GET /credentials?service=<id>&duration=<seconds>.
func (h *CredentialHandler) IssueCredentials(c echo.Context) error {
	serviceID := c.QueryParam(paramService)
	if serviceID == "" {
		return respondError(c, http.StatusBadRequest, msgServiceParamRequired)
	}

	duration := time.Duration(defaultDurationSeconds) * time.Second
	if raw := c.QueryParam(paramDuration); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return respondError(c, http.StatusBadRequest, msgInvalidDurationParam)
		}
		duration = time.Duration(seconds) * time.Second
	}

	bundle, err := h.issuer.Issue(c.Request().Context(), auth.GetAPIKey(c), serviceID, duration)
	if err != nil {
		metrics.RecordIssuance(false)
		return err
	}
	metrics.RecordIssuance(true)

	return c.JSON(http.StatusOK, credentialResponse{
		AccessKeyID:     bundle.AccessKey,
		SecretAccessKey: bundle.SecretKey,
		SessionToken:    bundle.SessionToken,
		Expiration:      bundle.ExpiresAt.UTC().Format(time.RFC3339),
		BucketPatterns:  bundle.BucketPatterns,
	})
}
