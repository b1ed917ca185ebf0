package issuer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
)

// STSAuthority is the role-assumption authority backed by AWS STS.
type STSAuthority struct {
	client stsiface.STSAPI
}

// NewSTSAuthority creates an STS-backed authority for the given region.
// Static credentials are optional; when empty the default chain applies.
func NewSTSAuthority(region, accessKeyID, secretAccessKey string) (*STSAuthority, error) {
	cfg := &aws.Config{
		Region: aws.String(region),
	}
	if accessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKeyID, secretAccessKey, "")
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	return &STSAuthority{client: sts.New(sess)}, nil
}

func (a *STSAuthority) AssumeRole(ctx context.Context, roleReference, sessionName string, duration time.Duration) (*AssumedCredentials, error) {
	out, err := a.client.AssumeRoleWithContext(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleReference),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int64(int64(duration.Seconds())),
	})
	if err != nil {
		return nil, err
	}

	creds := &AssumedCredentials{
		AccessKey:    aws.StringValue(out.Credentials.AccessKeyId),
		SecretKey:    aws.StringValue(out.Credentials.SecretAccessKey),
		SessionToken: aws.StringValue(out.Credentials.SessionToken),
	}
	if out.Credentials.Expiration != nil {
		creds.Expiration = *out.Credentials.Expiration
	}

	return creds, nil
}
