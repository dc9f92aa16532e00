package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/media"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Resolver uploads to an S3-compatible bucket through the multipart uploader.
type S3Resolver struct {
	uploader *manager.Uploader
	bucket   string
	region   string
	prefix   string
	baseURL  string
}

func NewS3Resolver(ctx context.Context, cfg config.MediaConfig) (*S3Resolver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 media: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Resolver{
		uploader: uploader,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		prefix:   cfg.Prefix,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *S3Resolver) Upload(ctx context.Context, localPath string) (media.Reference, error) {
	if localPath == "" {
		return media.Reference{}, media.ErrNoFile
	}
	f, err := os.Open(localPath)
	if err != nil {
		return media.Reference{}, fmt.Errorf("s3 media: open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return media.Reference{}, fmt.Errorf("s3 media: stat %s: %w", localPath, err)
	}

	key := media.ObjectKey(s.prefix, localPath)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(media.ContentType(localPath)),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return media.Reference{}, fmt.Errorf("s3 media upload %s: %w", key, err)
	}

	return media.Reference{URL: s.url(key), Key: key, Size: info.Size()}, nil
}

func (s *S3Resolver) url(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
