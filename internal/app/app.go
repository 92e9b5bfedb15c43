// Package app assembles the server from a Config. Both binaries use it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/peoplegallery/internal/caption"
	"github.com/vbonduro/peoplegallery/internal/caption/claude"
	"github.com/vbonduro/peoplegallery/internal/caption/ollama"
	"github.com/vbonduro/peoplegallery/internal/config"
	"github.com/vbonduro/peoplegallery/internal/db"
	"github.com/vbonduro/peoplegallery/internal/domain"
	"github.com/vbonduro/peoplegallery/internal/jsonstore"
	"github.com/vbonduro/peoplegallery/internal/metrics"
	"github.com/vbonduro/peoplegallery/internal/photostore"
	"github.com/vbonduro/peoplegallery/internal/photostore/local"
	"github.com/vbonduro/peoplegallery/internal/photostore/s3"
	"github.com/vbonduro/peoplegallery/internal/service"
	"github.com/vbonduro/peoplegallery/internal/store"
	"github.com/vbonduro/peoplegallery/internal/web"
)

// App is a fully wired server plus the resources it must release.
type App struct {
	Server *web.Server

	database *sql.DB
	logger   *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	people, items, err := a.newRepositories(cfg)
	if err != nil {
		return nil, err
	}

	photos, err := newPhotoStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	gallery := service.NewGalleryService(items, photos, newCaptioner(cfg, logger), logger)
	a.Server = web.NewServer(
		service.NewPeopleService(people, logger),
		gallery,
		photos,
		metrics.NewCollector(),
		web.Options{
			PublicDir:      cfg.PublicDir,
			MaxUploadBytes: cfg.MaxUploadBytes,
			CORSOrigins:    cfg.CORSOrigins,
		},
		logger,
	)
	return a, nil
}

// repository is satisfied by both the JSON file and SQLite stores.
type repository[T any] interface {
	Append(ctx context.Context, v T) error
	List(ctx context.Context) ([]T, error)
}

func (a *App) newRepositories(cfg *config.Config) (repository[domain.Person], repository[domain.Item], error) {
	switch cfg.StorageBackend {
	case config.StorageSQLite:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.database = database
		a.logger.Info("using sqlite storage", "path", cfg.DBPath)
		return store.NewPersonStore(database), store.NewItemStore(database), nil
	default:
		a.logger.Info("using json file storage", "data_file", cfg.DataFile, "items_file", cfg.ItemsFile)
		return jsonstore.NewPersonStore(cfg.DataFile, a.logger), jsonstore.NewItemStore(cfg.ItemsFile, a.logger), nil
	}
}

func newPhotoStore(ctx context.Context, cfg *config.Config) (photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case config.PhotoS3:
		ps, err := s3.New(ctx, s3.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 photo store: %w", err)
		}
		return ps, nil
	default:
		ps, err := local.NewLocalPhotoStore(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize photo store: %w", err)
		}
		return ps, nil
	}
}

// newCaptioner returns nil when captioning is off.
func newCaptioner(cfg *config.Config, logger *slog.Logger) caption.Captioner {
	if !cfg.CaptioningEnabled() {
		logger.Info("photo captioning disabled")
		return nil
	}
	switch cfg.CaptionBackend {
	case config.CaptionOllama:
		logger.Info("using Ollama captioning", "host", cfg.OllamaHost, "model", cfg.OllamaModel)
		return ollama.NewOllamaCaptioner(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("using Claude captioning", "model", cfg.ClaudeModel)
		return claude.NewClaudeCaptioner(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	}
}

func (a *App) Close() {
	if a.database == nil {
		return
	}
	if err := a.database.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}
