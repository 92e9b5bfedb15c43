package jsonstore

import (
	"context"
	"log/slog"

	"github.com/vbonduro/peoplegallery/internal/domain"
)

// PersonStore persists people in a single JSON array file (data.json).
type PersonStore struct {
	file *arrayFile[domain.Person]
}

func NewPersonStore(path string, logger *slog.Logger) *PersonStore {
	return &PersonStore{file: newArrayFile[domain.Person](path, logger)}
}

func (s *PersonStore) Append(ctx context.Context, p domain.Person) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.file.append(p)
}

func (s *PersonStore) List(ctx context.Context) ([]domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.file.all()
}

// ItemStore persists gallery items in a single JSON array file (items.json).
type ItemStore struct {
	file *arrayFile[domain.Item]
}

func NewItemStore(path string, logger *slog.Logger) *ItemStore {
	return &ItemStore{file: newArrayFile[domain.Item](path, logger)}
}

func (s *ItemStore) Append(ctx context.Context, item domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.file.append(item)
}

func (s *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.file.all()
}
