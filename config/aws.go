package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// NewAWSConfig builds the shared AWS SDK configuration for the DynamoDB and
// S3 clients. Static credentials are only installed when explicitly
// configured, so the default provider chain still works in real
// deployments.
func NewAWSConfig(ctx context.Context, cfg AppConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, "")))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
