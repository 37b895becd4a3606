package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/utils/safe"
)

// ErrNotFound is returned when a stored file does not exist
var ErrNotFound = goerr.New("file not found")

// ErrInvalidPath is returned for paths escaping the storage root
var ErrInvalidPath = goerr.New("invalid file path")

func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+p)), "/")
	if p == "" || p == "." {
		return "", goerr.Wrap(ErrInvalidPath, "empty path")
	}
	return p, nil
}

// Local stores files under a directory on the local filesystem
type Local struct {
	root string
}

var _ interfaces.FileStorage = &Local{}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("root", root))
	}
	return &Local{root: root}, nil
}

func (l *Local) fullPath(p string) (string, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(cleaned)), nil
}

func (l *Local) Put(ctx context.Context, p string, r io.Reader) error {
	full, err := l.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create directory", goerr.V("path", p))
	}

	f, err := os.Create(full)
	if err != nil {
		return goerr.Wrap(err, "failed to create file", goerr.V("path", p))
	}
	defer safe.Close(ctx, f)

	if _, err := io.Copy(f, r); err != nil {
		return goerr.Wrap(err, "failed to write file", goerr.V("path", p))
	}
	return nil
}

func (l *Local) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrNotFound, "file not found", goerr.V("path", p))
		}
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", p))
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, p string) error {
	full, err := l.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return goerr.Wrap(ErrNotFound, "file not found", goerr.V("path", p))
		}
		return goerr.Wrap(err, "failed to delete file", goerr.V("path", p))
	}
	return nil
}

// GCS stores files as objects in a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.FileStorage = &GCS{}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &GCS{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (g *GCS) object(p string) (*storage.ObjectHandle, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	if g.prefix != "" {
		cleaned = g.prefix + "/" + cleaned
	}
	return g.client.Bucket(g.bucket).Object(cleaned), nil
}

func (g *GCS) Put(ctx context.Context, p string, r io.Reader) error {
	obj, err := g.object(p)
	if err != nil {
		return err
	}

	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to upload object", goerr.V("bucket", g.bucket), goerr.V("path", p))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", g.bucket), goerr.V("path", p))
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	obj, err := g.object(p)
	if err != nil {
		return nil, err
	}

	rd, err := obj.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, goerr.Wrap(ErrNotFound, "object not found", goerr.V("bucket", g.bucket), goerr.V("path", p))
		}
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("bucket", g.bucket), goerr.V("path", p))
	}
	return rd, nil
}

func (g *GCS) Delete(ctx context.Context, p string) error {
	obj, err := g.object(p)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return goerr.Wrap(ErrNotFound, "object not found", goerr.V("bucket", g.bucket), goerr.V("path", p))
		}
		return goerr.Wrap(err, "failed to delete object", goerr.V("bucket", g.bucket), goerr.V("path", p))
	}
	return nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}
