package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "s3bridge/pkg/errors"
)

const (
	headerAPIKey  = "X-API-Key"
	envAPIKey     = "S3BRIDGE_API_KEY"
	paramService  = "service"
	paramDuration = "duration"

	credentialsPath      = "/credentials"
	defaultClientTimeout = 30 * time.Second
)

// Client fetches temporary credentials from the broker's issuance API.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithAPIKey overrides the key discovered from the environment.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an issuance client for the given broker endpoint.
// The API key defaults to the S3BRIDGE_API_KEY environment variable.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     os.Getenv(envAPIKey),
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// credentialPayload mirrors the broker's success response.
type credentialPayload struct {
	AccessKeyID     string   `json:"AccessKeyId"`
	SecretAccessKey string   `json:"SecretAccessKey"`
	SessionToken    string   `json:"SessionToken"`
	Expiration      string   `json:"Expiration"`
	BucketPatterns  []string `json:"BucketPatterns"`
}

type errorPayload struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

// FetchCredentials requests a fresh bundle for a service identity. It makes
// exactly one HTTP call; retry policy belongs to the cache above it.
func (c *Client) FetchCredentials(ctx context.Context, serviceID string, duration time.Duration) (*Credentials, error) {
	query := url.Values{}
	query.Set(paramService, serviceID)
	if duration > 0 {
		query.Set(paramDuration, strconv.Itoa(int(duration.Seconds())))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+credentialsPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.UpstreamFailure("credential service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, json.NewDecoder(resp.Body))
	}

	var payload credentialPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.UpstreamFailure("malformed credential response", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, payload.Expiration)
	if err != nil {
		return nil, apperrors.UpstreamFailure("malformed credential expiration", err)
	}

	return &Credentials{
		ServiceID:      serviceID,
		AccessKey:      payload.AccessKeyID,
		SecretKey:      payload.SecretAccessKey,
		SessionToken:   payload.SessionToken,
		IssuedAt:       time.Now(),
		ExpiresAt:      expiresAt,
		BucketPatterns: payload.BucketPatterns,
	}, nil
}

func decodeError(status int, dec *json.Decoder) error {
	var payload errorPayload
	if err := dec.Decode(&payload); err != nil {
		return apperrors.UpstreamFailure(fmt.Sprintf("credential service failed with status %d", status), nil)
	}

	switch payload.ErrorKind {
	case "InvalidApiKey":
		return apperrors.InvalidAPIKey()
	case "UnknownService":
		return &apperrors.AppError{Code: "UNKNOWN_SERVICE", Message: payload.Error, Err: apperrors.ErrUnknownService}
	case "BucketNotAuthorized":
		return &apperrors.AppError{Code: "BUCKET_NOT_AUTHORIZED", Message: payload.Error, Err: apperrors.ErrBucketNotAuthorized}
	default:
		return apperrors.UpstreamFailure(fmt.Sprintf("credential service failed with status %d: %s", status, payload.Error), nil)
	}
}
