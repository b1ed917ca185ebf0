package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3bridge/internal/config"
	"s3bridge/internal/issuer"
	"s3bridge/internal/registry"
	apperrors "s3bridge/pkg/errors"
)

type stubIssuer struct {
	bundle *issuer.Bundle
	err    error

	lastAPIKey    string
	lastServiceID string
	lastRequested time.Duration
}

func (s *stubIssuer) Issue(ctx context.Context, apiKey, serviceID string, requested time.Duration) (*issuer.Bundle, error) {
	s.lastAPIKey = apiKey
	s.lastServiceID = serviceID
	s.lastRequested = requested
	if s.err != nil {
		return nil, s.err
	}
	return s.bundle, nil
}

func testServer(iss *stubIssuer) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:         "8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
	return NewServer(&ServerDependencies{Config: cfg, Issuer: iss})
}

func issueRequest(s *Server, apiKey, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/credentials"+query, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestIssueCredentials_Success(t *testing.T) {
	now := time.Now().UTC()
	iss := &stubIssuer{bundle: &issuer.Bundle{
		ServiceID:      "analytics",
		AccessKey:      "AKIATEST",
		SecretKey:      "secret",
		SessionToken:   "token",
		IssuedAt:       now,
		ExpiresAt:      now.Add(time.Hour),
		BucketPatterns: []string{"analytics-*"},
		Tier:           registry.TierReadOnly,
	}}
	s := testServer(iss)

	rec := issueRequest(s, "secret-key", "?service=analytics&duration=1800")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AKIATEST", body["AccessKeyId"])
	assert.Equal(t, "secret", body["SecretAccessKey"])
	assert.Equal(t, "token", body["SessionToken"])
	assert.NotEmpty(t, body["Expiration"])

	assert.Equal(t, "secret-key", iss.lastAPIKey)
	assert.Equal(t, "analytics", iss.lastServiceID)
	assert.Equal(t, 30*time.Minute, iss.lastRequested)
}

func TestIssueCredentials_DefaultDuration(t *testing.T) {
	iss := &stubIssuer{bundle: &issuer.Bundle{
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	s := testServer(iss)

	rec := issueRequest(s, "secret-key", "?service=analytics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Hour, iss.lastRequested)
}

func TestIssueCredentials_MissingAPIKey(t *testing.T) {
	s := testServer(&stubIssuer{})

	rec := issueRequest(s, "", "?service=analytics")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueCredentials_MissingServiceParam(t *testing.T) {
	s := testServer(&stubIssuer{})

	rec := issueRequest(s, "secret-key", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueCredentials_InvalidDurationParam(t *testing.T) {
	s := testServer(&stubIssuer{})

	rec := issueRequest(s, "secret-key", "?service=analytics&duration=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = issueRequest(s, "secret-key", "?service=analytics&duration=-60")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueCredentials_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"invalid key", apperrors.InvalidAPIKey(), http.StatusUnauthorized, "InvalidApiKey"},
		{"unknown service", apperrors.UnknownService("nope"), http.StatusBadRequest, "UnknownService"},
		{"upstream failure", apperrors.UpstreamFailure("sts down", nil), http.StatusBadGateway, "UpstreamFailure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(&stubIssuer{err: tt.err})

			rec := issueRequest(s, "secret-key", "?service=analytics")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body["error_kind"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestHealthCheck(t *testing.T) {
	s := testServer(&stubIssuer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
