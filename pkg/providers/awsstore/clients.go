// Package awsstore adapts the AWS-compatible resource-store SDK to the
// reconciliation engine's collaborator interfaces: enumerators, appliers
// and page readers for containers, blobs, queues and documents.
package awsstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/EliuX/cloud-tools/pkg/config"
)

// Clients bundles the per-account service clients used by the adapters.
type Clients struct {
	S3     *s3.Client
	SQS    *sqs.Client
	Dynamo *dynamodb.Client

	Region string
}

// NewClients builds the service clients for one account.
func NewClients(ctx context.Context, creds *config.Credentials) (*Clients, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to configure store clients: %w", err)
	}

	endpoint := ""
	pathStyle := false
	if creds != nil {
		endpoint = creds.EndpointURL
		pathStyle = creds.ForcePathStyle
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = pathStyle
		}
	})
	sqsClient := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	dynamoClient := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &Clients{
		S3:     s3Client,
		SQS:    sqsClient,
		Dynamo: dynamoClient,
		Region: cfg.Region,
	}, nil
}
