package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v5"

	appconfig "github.com/shelfwatch/shelfwatch/internal/config"
)

const snapshotUploadTries = 4

// SnapshotService archives fetched page HTML to S3-compatible object
// storage (Tigris, MinIO, AWS). Disabled silently when no bucket is
// configured.
type SnapshotService struct {
	client  *s3.Client
	bucket  string
	enabled bool
	logger  *slog.Logger
}

// NewSnapshotService creates a new snapshot service.
func NewSnapshotService(cfg *appconfig.Config, logger *slog.Logger) (*SnapshotService, error) {
	if !cfg.StorageEnabled {
		logger.Info("snapshot archival disabled - no bucket configured")
		return &SnapshotService{enabled: false, logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.StorageRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
		o.UsePathStyle = true // Required for some S3-compatible services
	})

	logger.Info("snapshot archival enabled",
		"bucket", cfg.StorageBucket,
		"endpoint", cfg.StorageEndpoint,
	)

	return &SnapshotService{
		client:  client,
		bucket:  cfg.StorageBucket,
		enabled: true,
		logger:  logger,
	}, nil
}

// IsEnabled returns whether storage is configured and available.
func (s *SnapshotService) IsEnabled() bool {
	return s.enabled
}

// SnapshotKey returns the object key for one check run's HTML.
func SnapshotKey(productID int64, checkRunID string) string {
	return fmt.Sprintf("snapshots/%d/%s.html", productID, checkRunID)
}

// StoreCheckSnapshot uploads the page HTML observed by a check run and
// returns the object key. Transient upload failures are retried with
// exponential backoff.
func (s *SnapshotService) StoreCheckSnapshot(ctx context.Context, productID int64, checkRunID, html string) (string, error) {
	if !s.enabled {
		return "", nil
	}

	key := SnapshotKey(productID, checkRunID)
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second

	var err error
	for attempt := 1; attempt <= snapshotUploadTries; attempt++ {
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        strings.NewReader(html),
			ContentType: aws.String("text/html; charset=utf-8"),
		})
		if err == nil {
			s.logger.Debug("stored snapshot", "key", key, "size_bytes", len(html))
			return key, nil
		}

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop || attempt == snapshotUploadTries {
			break
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("failed to store snapshot after %d attempts: %w", snapshotUploadTries, err)
}

// GetCheckSnapshot retrieves the archived HTML for a check run.
func (s *SnapshotService) GetCheckSnapshot(ctx context.Context, key string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("snapshot storage is not enabled")
	}

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get snapshot: %w", err)
	}
	defer func() { _ = output.Body.Close() }()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}
	return string(data), nil
}

// DeleteOldSnapshots removes archived HTML older than maxAge and
// returns the number of deleted objects.
func (s *SnapshotService) DeleteOldSnapshots(ctx context.Context, maxAge time.Duration) (int, error) {
	if !s.enabled {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("snapshots/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				s.logger.Warn("failed to delete old snapshot", "key", *obj.Key, "error", err)
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}
