package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "s3bridge/pkg/errors"
)

func TestClient_FetchCredentials(t *testing.T) {
	expiration := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/credentials", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "analytics", r.URL.Query().Get("service"))
		assert.Equal(t, "1800", r.URL.Query().Get("duration"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"AccessKeyId":     "AKIATEST",
			"SecretAccessKey": "secret",
			"SessionToken":    "token",
			"Expiration":      expiration.Format(time.RFC3339),
			"BucketPatterns":  []string{"*-analytics-*", "analytics-*"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("secret-key"))

	creds, err := client.FetchCredentials(context.Background(), "analytics", 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "analytics", creds.ServiceID)
	assert.Equal(t, "AKIATEST", creds.AccessKey)
	assert.Equal(t, "secret", creds.SecretKey)
	assert.Equal(t, "token", creds.SessionToken)
	assert.True(t, creds.ExpiresAt.Equal(expiration))
	assert.Equal(t, []string{"*-analytics-*", "analytics-*"}, creds.BucketPatterns)
}

func TestClient_FetchCredentials_ErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		errorKind string
		wantErr   error
	}{
		{"invalid key", http.StatusUnauthorized, "InvalidApiKey", apperrors.ErrInvalidAPIKey},
		{"unknown service", http.StatusBadRequest, "UnknownService", apperrors.ErrUnknownService},
		{"upstream failure", http.StatusBadGateway, "UpstreamFailure", apperrors.ErrUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]string{
					"error":      "denied",
					"error_kind": tt.errorKind,
				})
			}))
			defer server.Close()

			client := NewClient(server.URL, WithAPIKey("secret-key"))

			_, err := client.FetchCredentials(context.Background(), "analytics", time.Hour)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_FetchCredentials_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", WithAPIKey("secret-key"),
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))

	_, err := client.FetchCredentials(context.Background(), "analytics", time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamFailure)
}
