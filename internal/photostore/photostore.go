package photostore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound   = errors.New("photo not found")
	ErrInvalidKey = errors.New("invalid photo key")
)

// Object describes one stored photo.
type Object struct {
	Key     string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

type PhotoStore interface {
	// Save stores r under key and returns the number of bytes written.
	Save(ctx context.Context, key, mimeType string, r io.Reader) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
}
