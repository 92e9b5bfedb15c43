package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vbonduro/peoplegallery/internal/domain"
	"github.com/vbonduro/peoplegallery/internal/photostore"
)

var (
	jpegData = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngData  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0x0D}
	webpData = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubPhotoStore is a minimal in-memory photostore.PhotoStore for tests.
type stubPhotoStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	saveErr error
}

func newStubPhotoStore() *stubPhotoStore {
	return &stubPhotoStore{saved: make(map[string][]byte)}
}

func (s *stubPhotoStore) Save(_ context.Context, key, _ string, r io.Reader) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	data, _ := io.ReadAll(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = data
	return int64(len(data)), nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[key]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.saved[key]; !ok {
		return photostore.ErrNotFound
	}
	delete(s.saved, key)
	return nil
}

func (s *stubPhotoStore) List(_ context.Context) ([]photostore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]photostore.Object, 0, len(s.saved))
	for k, v := range s.saved {
		out = append(out, photostore.Object{Key: k, Size: int64(len(v))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type stubCaptioner struct {
	text string
	err  error
}

func (c *stubCaptioner) Caption(_ context.Context, _ io.Reader, _ string) (string, error) {
	return c.text, c.err
}

// failingRepo fails every write.
type failingRepo[T any] struct{}

func (r failingRepo[T]) Append(context.Context, T) error { return errors.New("disk full") }
func (r failingRepo[T]) List(context.Context) ([]T, error) {
	return nil, errors.New("disk full")
}

var _ personRepository = failingRepo[domain.Person]{}
var _ itemRepository = failingRepo[domain.Item]{}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
