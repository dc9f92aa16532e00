package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/media"
)

// LocalResolver copies uploads into a directory the HTTP server exposes.
type LocalResolver struct {
	dir     string
	prefix  string
	baseURL string
}

func NewLocalResolver(dir, prefix, baseURL string) (*LocalResolver, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("local media: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local media: %w", err)
	}
	if baseURL == "" {
		baseURL = "/media"
	}
	return &LocalResolver{dir: dir, prefix: prefix, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (l *LocalResolver) Dir() string { return l.dir }

func (l *LocalResolver) Upload(ctx context.Context, localPath string) (media.Reference, error) {
	if localPath == "" {
		return media.Reference{}, media.ErrNoFile
	}
	if err := ctx.Err(); err != nil {
		return media.Reference{}, err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return media.Reference{}, fmt.Errorf("local media: open %s: %w", localPath, err)
	}
	defer src.Close()

	key := media.ObjectKey(l.prefix, localPath)
	dstPath := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return media.Reference{}, fmt.Errorf("local media: %w", err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return media.Reference{}, fmt.Errorf("local media: create %s: %w", dstPath, err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return media.Reference{}, fmt.Errorf("local media: copy: %w", err)
	}

	return media.Reference{URL: l.baseURL + "/" + key, Key: key, Size: n}, nil
}
