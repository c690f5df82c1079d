// Package objectstore wraps the S3-compatible bucket that holds document
// binaries.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Bucket is a single-bucket client.
type Bucket struct {
	client *minio.Client
	bucket string
	region string
}

// New builds a client without touching the network. Region is passed through
// so presigning never needs a bucket-location round trip.
func New(cfg Config) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Bucket{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func (b *Bucket) Name() string {
	return b.bucket
}

// Ensure creates the bucket when it does not exist, retrying while the
// storage service comes up.
func (b *Bucket) Ensure(ctx context.Context, maxElapsed time.Duration, logger *zap.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(func() error {
		exists, err := b.client.BucketExists(ctx, b.bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", b.bucket, err)
		}
		if exists {
			return nil
		}
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region}); err != nil {
			return backoff.Permanent(fmt.Errorf("create bucket %s: %w", b.bucket, err))
		}
		logger.Info("created bucket", zap.String("bucket", b.bucket))
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logger.Warn("object storage not reachable, retrying", zap.Error(err), zap.Duration("next", next))
	})
}

// Put uploads size bytes from r under key.
func (b *Bucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a key that does not exist succeeds.
func (b *Bucket) Remove(ctx context.Context, key string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a signed GET link valid for ttl. downloadName, when
// set, becomes the attachment filename the browser saves.
func (b *Bucket) PresignGet(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	signed, err := b.client.PresignedGetObject(ctx, b.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return signed.String(), nil
}

func (b *Bucket) Ping(ctx context.Context) error {
	if _, err := b.client.BucketExists(ctx, b.bucket); err != nil {
		return fmt.Errorf("ping bucket %s: %w", b.bucket, err)
	}
	return nil
}
