package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store uploads rendered index images to an S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects and creates the bucket when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("objectstore: endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: %w", err)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = "cropwatch-visualizations"
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("objectstore: bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("objectstore: make bucket: %w", err)
		}
	}
	return &Store{client: client, bucket: bucket}, nil
}

// ObjectName is visualizations/<farm>/<yyyy-mm-dd>/<run>.png.
func ObjectName(farmID, runID string, at time.Time) string {
	return fmt.Sprintf("visualizations/%s/%s/%s.png", farmID, at.UTC().Format("2006-01-02"), runID)
}

// PutVisualization uploads a PNG and returns its s3:// URI.
func (s *Store) PutVisualization(ctx context.Context, farmID, runID string, at time.Time, png []byte) (string, error) {
	name := ObjectName(farmID, runID, at)
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(png), int64(len(png)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", fmt.Errorf("objectstore: put %s: %w", name, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, name), nil
}
