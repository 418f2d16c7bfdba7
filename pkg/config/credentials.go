// Package config loads account credentials for the source and destination
// resource stores. Explicit credentials win, then environment variables,
// then the SDK default chain (credentials file, IAM role).
package config

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Credentials identifies one account of the resource-store service.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	EndpointURL     string

	// ForcePathStyle is required by some S3-compatible providers (MinIO).
	ForcePathStyle bool

	MaxRetries int
	Timeout    time.Duration
}

// Validate fails fast on credentials that cannot possibly work, before
// any enumeration is attempted.
func (c *Credentials) Validate() error {
	if c == nil {
		return fmt.Errorf("credentials not provided")
	}
	if c.AccessKeyID == "" && c.SecretAccessKey != "" {
		return fmt.Errorf("secret access key provided without access key ID")
	}
	if c.AccessKeyID != "" && c.SecretAccessKey == "" {
		return fmt.Errorf("access key ID provided without secret access key")
	}
	return nil
}

// Load resolves an AWS SDK config for the account. A dummy region is used
// for endpoint-URL-only providers; the SDK needs one for signing even
// when the store ignores it.
func Load(ctx context.Context, creds *Credentials) (aws.Config, error) {
	region := ""
	if creds != nil {
		region = creds.Region
	}
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	if creds != nil {
		if creds.MaxRetries > 0 {
			options = append(options, awsconfig.WithRetryMaxAttempts(creds.MaxRetries))
		}
		if creds.EndpointURL != "" {
			timeout := creds.Timeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			// Custom endpoints should not follow redirects; a 301 from an
			// S3-compatible store would otherwise break signed requests.
			options = append(options, awsconfig.WithHTTPClient(&http.Client{
				Timeout: timeout,
				CheckRedirect: func(req *http.Request, via []*http.Request) error {
					return http.ErrUseLastResponse
				},
			}))
		}
		if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
			options = append(options, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					creds.AccessKeyID,
					creds.SecretAccessKey,
					creds.SessionToken,
				)))
		}
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	return cfg, nil
}

// FromEnvironment builds credentials from environment variables, or nil
// when none are set.
func FromEnvironment() *Credentials {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		return nil
	}
	return &Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Region:          os.Getenv("AWS_REGION"),
		EndpointURL:     os.Getenv("STORE_ENDPOINT_URL"),
	}
}
