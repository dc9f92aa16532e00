package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/media"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLocalResolver_Upload(t *testing.T) {
	dir := t.TempDir()
	r, err := NewLocalResolver(dir, "avatars", "http://localhost:8080/media/")
	require.NoError(t, err)

	src := writeTemp(t, "Me.PNG", "png-bytes")
	ref, err := r.Upload(context.Background(), src)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref.Key, "avatars/"))
	require.True(t, strings.HasSuffix(ref.Key, ".png"))
	require.Equal(t, "http://localhost:8080/media/"+ref.Key, ref.URL)
	require.EqualValues(t, len("png-bytes"), ref.Size)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ref.Key)))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
}

func TestLocalResolver_Errors(t *testing.T) {
	r, err := NewLocalResolver(t.TempDir(), "", "")
	require.NoError(t, err)

	_, err = r.Upload(context.Background(), "")
	require.ErrorIs(t, err, media.ErrNoFile)

	_, err = r.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Upload(ctx, writeTemp(t, "a.png", "x"))
	require.ErrorIs(t, err, context.Canceled)

	_, err = NewLocalResolver(" ", "", "")
	require.Error(t, err)
}

func TestLocalResolver_DefaultBaseURL(t *testing.T) {
	r, err := NewLocalResolver(t.TempDir(), "", "")
	require.NoError(t, err)

	ref, err := r.Upload(context.Background(), writeTemp(t, "c.jpg", "x"))
	require.NoError(t, err)
	require.Equal(t, "/media/"+ref.Key, ref.URL)
}

func TestS3Resolver_Construct(t *testing.T) {
	_, err := NewS3Resolver(context.Background(), config.MediaConfig{Region: "us-east-1"})
	require.Error(t, err)

	r, err := NewS3Resolver(context.Background(), config.MediaConfig{
		Bucket: "videos", Region: "eu-west-1", AccessKey: "ak", SecretKey: "sk",
	})
	require.NoError(t, err)
	require.Equal(t, "https://videos.s3.eu-west-1.amazonaws.com/k.png", r.url("k.png"))

	r.baseURL = "https://cdn.example.com"
	require.Equal(t, "https://cdn.example.com/k.png", r.url("k.png"))

	_, err = r.Upload(context.Background(), "")
	require.ErrorIs(t, err, media.ErrNoFile)
}

func TestMinioResolver_Construct(t *testing.T) {
	_, err := NewMinioResolver(config.MediaConfig{Bucket: "b"})
	require.Error(t, err)

	r, err := NewMinioResolver(config.MediaConfig{
		Bucket: "b", Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk",
		PublicBaseURL: "http://localhost:9000/b/",
	})
	require.NoError(t, err)

	url, err := r.url(context.Background(), "k.png")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/b/k.png", url)

	_, err = r.Upload(context.Background(), "")
	require.ErrorIs(t, err, media.ErrNoFile)
}

func TestNew_Driver(t *testing.T) {
	r, err := New(context.Background(), config.MediaConfig{Driver: config.MediaLocal, LocalDir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &LocalResolver{}, r)

	_, err = New(context.Background(), config.MediaConfig{Driver: "ftp"})
	require.Error(t, err)
}
