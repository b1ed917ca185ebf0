package bridge

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	apperrors "s3bridge/pkg/errors"
	"s3bridge/pkg/pattern"
)

// Storage performs object operations with cached temporary credentials.
// Every call validates the target bucket against the bundle's patterns
// before touching the network; the backend and delegated role enforce the
// same boundary independently.
type Storage struct {
	serviceID string
	region    string
	cache     *CredentialCache
	newS3     func(creds *Credentials) (s3iface.S3API, error)
}

type StorageOption func(*Storage)

// withS3Factory substitutes the S3 client constructor, for tests.
func withS3Factory(factory func(*Credentials) (s3iface.S3API, error)) StorageOption {
	return func(s *Storage) { s.newS3 = factory }
}

func NewStorage(serviceID, region string, cache *CredentialCache, opts ...StorageOption) *Storage {
	s := &Storage{
		serviceID: serviceID,
		region:    region,
		cache:     cache,
	}
	s.newS3 = s.defaultS3Factory
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) defaultS3Factory(creds *Credentials) (s3iface.S3API, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(s.region),
		Credentials: credentials.NewStaticCredentials(
			creds.AccessKey,
			creds.SecretKey,
			creds.SessionToken,
		),
	})
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

// GetObject retrieves an object. The caller owns closing the reader.
func (s *Storage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := s.do(ctx, bucket, func(client s3iface.S3API) error {
		out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		body = out.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// PutObject uploads an object.
func (s *Storage) PutObject(ctx context.Context, bucket, key string, body io.ReadSeeker) error {
	return s.do(ctx, bucket, func(client s3iface.S3API) error {
		_, err := client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   body,
		})
		return err
	})
}

// ListObjects lists object keys under a prefix.
func (s *Storage) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	err := s.do(ctx, bucket, func(client s3iface.S3API) error {
		keys = keys[:0]
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: aws.String(prefix),
		}
		for {
			out, err := client.ListObjectsV2WithContext(ctx, input)
			if err != nil {
				return err
			}
			for _, obj := range out.Contents {
				keys = append(keys, aws.StringValue(obj.Key))
			}
			if out.NextContinuationToken == nil {
				return nil
			}
			input.ContinuationToken = out.NextContinuationToken
		}
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteObject deletes an object.
func (s *Storage) DeleteObject(ctx context.Context, bucket, key string) error {
	return s.do(ctx, bucket, func(client s3iface.S3API) error {
		_, err := client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return err
	})
}

// do runs one storage operation: local bucket authorization first, then
// the call itself. A backend authorization failure invalidates the cached
// bundle and retries exactly once with fresh credentials; a second failure
// is surfaced unmodified.
func (s *Storage) do(ctx context.Context, bucket string, op func(s3iface.S3API) error) error {
	creds, err := s.cache.GetCredentials(ctx, s.serviceID)
	if err != nil {
		return err
	}

	if d := pattern.Match(bucket, creds.BucketPatterns); !d.Allowed {
		return apperrors.BucketNotAuthorized(bucket)
	}

	client, err := s.newS3(creds)
	if err != nil {
		return err
	}

	err = op(client)
	if err == nil || !isAccessDenied(err) {
		return err
	}

	// The local check passed but the backend disagreed; the credential may
	// have been revoked out-of-band.
	s.cache.Invalidate(s.serviceID)

	creds, err = s.cache.GetCredentials(ctx, s.serviceID)
	if err != nil {
		return err
	}
	client, err = s.newS3(creds)
	if err != nil {
		return err
	}
	return op(client)
}

func isAccessDenied(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case "AccessDenied", "ExpiredToken", "InvalidAccessKeyId", "TokenRefreshRequired":
		return true
	}
	var rerr awserr.RequestFailure
	if errors.As(err, &rerr) {
		return rerr.StatusCode() == 403
	}
	return false
}
