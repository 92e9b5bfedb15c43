package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/peoplegallery/internal/caption"
	"github.com/vbonduro/peoplegallery/internal/domain"
	"github.com/vbonduro/peoplegallery/internal/photostore"
)

// UploadURLPrefix is prepended to a storage key to form Item.URL.
const UploadURLPrefix = "/uploads/"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var mimeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// extMIME lists the client extensions that may be kept, keyed to the image
// type they name.
var extMIME = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// itemRepository is implemented by jsonstore.ItemStore and store.ItemStore.
type itemRepository interface {
	Append(ctx context.Context, item domain.Item) error
	List(ctx context.Context) ([]domain.Item, error)
}

// NewItem is an upload as received from the client.
type NewItem struct {
	Title    string
	Filename string
	Photo    []byte
}

type GalleryService struct {
	items     itemRepository
	photos    photostore.PhotoStore
	captioner caption.Captioner
	logger    *slog.Logger

	now    func() time.Time
	suffix func() string
}

// NewGalleryService wires the gallery. captioner may be nil.
func NewGalleryService(
	items itemRepository,
	photos photostore.PhotoStore,
	captioner caption.Captioner,
	logger *slog.Logger,
) *GalleryService {
	return &GalleryService{
		items:     items,
		photos:    photos,
		captioner: captioner,
		logger:    logger,
		now:       time.Now,
		suffix:    randomSuffix,
	}
}

// Create stores the photo, then appends the item metadata. If the metadata
// cannot be saved the photo is removed again.
func (s *GalleryService) Create(ctx context.Context, in NewItem) (domain.Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Item{}, domain.Invalid("title is required")
	}
	if len(in.Photo) == 0 {
		return domain.Item{}, domain.Invalid("photo is required")
	}
	mimeType, ok := allowedImageMIME(in.Photo)
	if !ok {
		return domain.Item{}, domain.Invalid("photo must be a JPEG, PNG, GIF or WebP image")
	}

	now := s.now().UTC()
	key := s.uploadKey(now, in.Filename, mimeType)
	s.logger.Info("upload started", "key", key, "mime_type", mimeType, "bytes", len(in.Photo))

	if _, err := s.photos.Save(ctx, key, mimeType, bytes.NewReader(in.Photo)); err != nil {
		return domain.Item{}, fmt.Errorf("failed to save photo: %w", err)
	}

	item := domain.Item{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Title:     title,
		URL:       UploadURLPrefix + key,
		CreatedAt: now,
	}

	if s.captioner != nil {
		text, err := s.captioner.Caption(ctx, bytes.NewReader(in.Photo), mimeType)
		if err != nil {
			s.logger.Warn("caption failed", "key", key, "error", err)
		} else {
			item.Caption = text
		}
	}

	if err := check(item); err != nil {
		s.discardPhoto(ctx, key)
		return domain.Item{}, err
	}
	if err := s.items.Append(ctx, item); err != nil {
		s.discardPhoto(ctx, key)
		return domain.Item{}, fmt.Errorf("failed to save item: %w", err)
	}

	s.logger.Info("upload complete", "id", item.ID, "key", key)
	return item, nil
}

func (s *GalleryService) discardPhoto(ctx context.Context, key string) {
	// The request may already be cancelled; the cleanup must still run.
	if err := s.photos.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error("failed to remove orphaned photo", "key", key, "error", err)
	}
}

func (s *GalleryService) List(ctx context.Context) ([]domain.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// Search returns items whose title contains q, ignoring case.
func (s *GalleryService) Search(ctx context.Context, q string) ([]domain.Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.Matches(q) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Uploads lists the stored photo objects.
func (s *GalleryService) Uploads(ctx context.Context) ([]photostore.Object, error) {
	objects, err := s.photos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return objects, nil
}

// uploadKey is base36(unix millis) + "-" + random suffix + extension.
func (s *GalleryService) uploadKey(now time.Time, filename, mimeType string) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + s.suffix() + uploadExt(filename, mimeType)
}

// uploadExt keeps the client's extension only when it names the sniffed image
// type. Otherwise the extension comes from the sniffed type, then .jpg.
func uploadExt(filename, mimeType string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if t, ok := extMIME[ext]; ok && t == mimeType {
		return "." + ext
	}
	if e, ok := mimeExt[mimeType]; ok {
		return e
	}
	return ".jpg"
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}
