// Package objectstore archives raw ERG5 GRIB files in an S3-compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// Config holds MinIO connection settings.
type Config struct {
	Endpoint  string // e.g., "localhost:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Archive uploads raw GRIB files.
type Archive struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and creates the bucket if it does not exist.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Archive{client: client, bucket: cfg.Bucket}, nil
}

// Key returns the object key of the raw file of day for a run.
func Key(day time.Time, runID domain.RunID) string {
	return fmt.Sprintf("erg5/%s/%s.grib", day.Format(time.DateOnly), runID)
}

// Put uploads r under the key of day and run, returning the key.
func (a *Archive) Put(ctx context.Context, day time.Time, runID domain.RunID, r io.Reader) (string, error) {
	key := Key(day, runID)
	_, err := a.client.PutObject(ctx, a.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: "application/x-grib2",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to minio: %w", key, err)
	}
	return key, nil
}
