// Package storage wraps the S3 presign client. The API never proxies image
// bytes: clients upload and download straight against time-limited signed
// URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	uploadURLTTL   = 5 * time.Minute
	downloadURLTTL = 15 * time.Minute
)

// Signer is what the controllers consume: time-limited upload and download
// URLs for opaque object keys.
type Signer interface {
	UploadURL(ctx context.Context, key, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Objects issues presigned URLs against one bucket.
type Objects struct {
	presign presignAPI
	bucket  string
}

var _ Signer = (*Objects)(nil)

func NewObjects(client *s3.Client, bucket string) *Objects {
	return &Objects{presign: s3.NewPresignClient(client), bucket: bucket}
}

// NewS3Client builds the S3 client. A non-empty endpoint (with path-style
// addressing) points the client at a local MinIO stack.
func NewS3Client(awsCfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// UploadURL returns a presigned PUT URL for the given object key.
func (o *Objects) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, err := o.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadURLTTL))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// DownloadURL returns a presigned GET URL for the given object key.
func (o *Objects) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := o.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(downloadURLTTL))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}
