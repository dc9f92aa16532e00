package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/media"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

// presignTTL is the longest expiry S3-compatible stores accept.
const presignTTL = 7 * 24 * time.Hour

type MinioResolver struct {
	client  *minio.Client
	bucket  string
	region  string
	prefix  string
	baseURL string
}

func NewMinioResolver(cfg config.MediaConfig) (*MinioResolver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" || strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("minio media: bucket and endpoint are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &MinioResolver{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		prefix:  cfg.Prefix,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket on first start.
func (m *MinioResolver) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (m *MinioResolver) Upload(ctx context.Context, localPath string) (media.Reference, error) {
	if localPath == "" {
		return media.Reference{}, media.ErrNoFile
	}
	if _, err := os.Stat(localPath); err != nil {
		return media.Reference{}, fmt.Errorf("minio media: %w", err)
	}

	key := media.ObjectKey(m.prefix, localPath)
	info, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: media.ContentType(localPath),
	})
	if err != nil {
		return media.Reference{}, fmt.Errorf("failed to upload file: %w", err)
	}

	url, err := m.url(ctx, key)
	if err != nil {
		return media.Reference{}, err
	}
	return media.Reference{URL: url, Key: key, Size: info.Size}, nil
}

func (m *MinioResolver) url(ctx context.Context, key string) (string, error) {
	if m.baseURL != "" {
		return m.baseURL + "/" + key, nil
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}
	return u.String(), nil
}
