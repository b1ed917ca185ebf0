package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrUnknownService      = errors.New("unknown service")
	ErrInvalidAPIKey       = errors.New("invalid api key")
	ErrBucketNotAuthorized = errors.New("bucket not authorized")
	ErrUpstreamFailure     = errors.New("credential authority failure")
	ErrExpired             = errors.New("credentials expired")
	ErrBadRequest          = errors.New("bad request")
	ErrInternalServer      = errors.New("internal server error")
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructors
func UnknownService(serviceID string) *AppError {
	return &AppError{Code: "UNKNOWN_SERVICE", Message: fmt.Sprintf("unknown service: %s", serviceID), Err: ErrUnknownService}
}

func InvalidAPIKey() *AppError {
	return &AppError{Code: "INVALID_API_KEY", Message: "invalid API key", Err: ErrInvalidAPIKey}
}

func BucketNotAuthorized(bucket string) *AppError {
	return &AppError{Code: "BUCKET_NOT_AUTHORIZED", Message: fmt.Sprintf("bucket not authorized: %s", bucket), Err: ErrBucketNotAuthorized}
}

func UpstreamFailure(msg string, err error) *AppError {
	if err == nil {
		return &AppError{Code: "UPSTREAM_FAILURE", Message: msg, Err: ErrUpstreamFailure}
	}
	return &AppError{Code: "UPSTREAM_FAILURE", Message: msg, Err: fmt.Errorf("%w: %v", ErrUpstreamFailure, err)}
}

func Expired(msg string) *AppError {
	return &AppError{Code: "EXPIRED", Message: msg, Err: ErrExpired}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

// Kind maps an error to its wire-level error_kind. Anything outside the
// broker taxonomy is classified as Internal rather than leaked verbatim.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownService):
		return "UnknownService"
	case errors.Is(err, ErrInvalidAPIKey):
		return "InvalidApiKey"
	case errors.Is(err, ErrBucketNotAuthorized):
		return "BucketNotAuthorized"
	case errors.Is(err, ErrUpstreamFailure):
		return "UpstreamFailure"
	default:
		return "Internal"
	}
}
