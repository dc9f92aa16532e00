// Package media defines the contract for pushing locally staged files to a
// durable media host.
package media

import (
	"context"
	"errors"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNoFile is returned when Upload is called without a local path.
var ErrNoFile = errors.New("media: no local file")

// Reference points at an uploaded asset.
type Reference struct {
	URL  string
	Key  string
	Size int64
}

// Resolver uploads a local file and returns a durable reference to it.
type Resolver interface {
	Upload(ctx context.Context, localPath string) (Reference, error)
}

// ObjectKey builds a collision-free object key that keeps the file extension.
func ObjectKey(prefix, localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	name := uuid.NewString() + ext
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// ContentType guesses a MIME type from the file extension.
func ContentType(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
