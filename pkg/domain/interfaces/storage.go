package interfaces

import (
	"context"
	"io"
)

// FileStorage stores uploaded note files by path
type FileStorage interface {
	Put(ctx context.Context, path string, r io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
