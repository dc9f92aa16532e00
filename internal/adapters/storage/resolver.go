// Package storage holds the media host backends behind media.Resolver.
package storage

import (
	"context"
	"fmt"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/media"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
)

// New builds the resolver selected by MEDIA_DRIVER.
func New(ctx context.Context, cfg config.MediaConfig) (media.Resolver, error) {
	switch cfg.Driver {
	case config.MediaS3:
		return NewS3Resolver(ctx, cfg)
	case config.MediaMinio:
		r, err := NewMinioResolver(cfg)
		if err != nil {
			return nil, err
		}
		if err := r.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return r, nil
	case config.MediaLocal, "":
		return NewLocalResolver(cfg.LocalDir, cfg.Prefix, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported media driver %q", cfg.Driver)
	}
}
