// Package media stores product images. Uploads go to Cloud Storage as
// chunked resumable writes when a bucket is configured, otherwise to a
// local directory served by the HTTP server.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
)

// ChunkSize is the resumable upload chunk; progress is reported per chunk.
const ChunkSize = 256 << 10

var ErrEmptyName = errors.New("media: empty object name")

// ProgressFunc receives the completed percentage, 0 to 100.
type ProgressFunc func(percent int)

func percent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(done * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}

// ObjectName builds the storage path of a product image.
func ObjectName(productKey, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("products", productKey+ext)
}

type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket}
}

func (g *GCS) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ChunkSize = ChunkSize
	w.ContentType = contentType
	if progress != nil {
		w.ProgressFunc = func(n int64) { progress(percent(n, size)) }
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if progress != nil {
		progress(100)
	}
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media",
		g.bucket, url.PathEscape(name)), nil
}

func (g *GCS) Close() error { return g.client.Close() }

// Dir writes uploads below root and returns URLs under baseURL.
type Dir struct {
	root    string
	baseURL string
	mu      sync.Mutex
}

func NewDir(root, baseURL string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	return &Dir{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *Dir) Root() string { return d.root }

type progressReader struct {
	r        io.Reader
	done     int64
	size     int64
	progress ProgressFunc
	pending  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.done += int64(n)
	p.pending += int64(n)
	if p.pending >= ChunkSize {
		p.pending = 0
		p.progress(percent(p.done, p.size))
	}
	return n, err
}

func (d *Dir) Upload(ctx context.Context, name, _ string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	dst := filepath.Join(d.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if progress != nil {
		src = &progressReader{r: r, size: size, progress: progress}
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if progress != nil {
		progress(100)
	}
	return d.baseURL + "/media/" + name, nil
}
