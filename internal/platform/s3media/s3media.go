// Package s3media stores capsule media payloads (images, video) in an S3
// bucket. Capsule records reference objects by key; the payloads
// themselves never pass through the relational store.
package s3media

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// presignLifetime bounds how long a download URL for revealed content stays valid.
const presignLifetime = 15 * time.Minute

// Storage uploads and serves capsule media from a single S3 bucket.
type Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// New creates S3-backed media storage. When endpoint is non-empty the
// client targets it with path-style addressing (LocalStack and other
// S3-compatible stores).
func New(ctx context.Context, bucket, region, endpoint string) (*Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
	}, nil
}

// Upload stores the payload under a fresh key scoped to the owning
// account and returns the key for use as a capsule's media reference.
func (s *Storage) Upload(ctx context.Context, ownerID uuid.UUID, body io.Reader) (string, error) {
	key := fmt.Sprintf("%s/%s", ownerID, uuid.New())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media object: %w", err)
	}

	return key, nil
}

// PresignGet returns a short-lived download URL for a stored object.
func (s *Storage) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignLifetime))
	if err != nil {
		return "", fmt.Errorf("failed to presign media object: %w", err)
	}

	return req.URL, nil
}
