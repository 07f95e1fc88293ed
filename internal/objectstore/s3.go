package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/holteng/minne/internal/apperr"
)

// S3Config holds connection settings for an S3-compatible endpoint.
// Endpoint may be empty for AWS proper; MinIO and friends need it set
// together with path-style addressing.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// S3 implements Provider on any S3-compatible object store.
type S3 struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3 builds an S3 provider from static credentials, or the ambient AWS
// credential chain when no access key is configured.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// Put uploads the blob.
func (s *S3) Put(ctx context.Context, owner string, noteID int64, filename string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(owner, noteID, filename)),
		Body:   r,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("objectstore: s3 put: %w", err)
	}
	return nil
}

// Get downloads the blob.
func (s *S3) Get(ctx context.Context, owner string, noteID int64, filename string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(owner, noteID, filename)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("objectstore: s3 get: %w", err)
	}
	return out.Body, nil
}

// Delete removes one blob. Deleting a missing key is a no-op in S3, which
// matches the caller's best-effort cleanup semantics.
func (s *S3) Delete(ctx context.Context, owner string, noteID int64, filename string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(owner, noteID, filename)),
	})
	if err != nil {
		return fmt.Errorf("objectstore: s3 delete: %w", err)
	}
	return nil
}

// DeleteAll lists the note's prefix and deletes every object under it.
func (s *S3) DeleteAll(ctx context.Context, owner string, noteID int64) error {
	prefix := notePrefix(owner, noteID)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("objectstore: s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("objectstore: s3 delete %s: %w", aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

// SignedURL issues a presigned GET URL valid for ttl.
func (s *S3) SignedURL(ctx context.Context, owner string, noteID int64, filename string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(owner, noteID, filename)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("objectstore: s3 presign: %w", err)
	}
	return req.URL, nil
}

// Compile-time interface checks.
var (
	_ Provider = (*S3)(nil)
	_ Provider = (*FS)(nil)
)
