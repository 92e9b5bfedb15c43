package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vbonduro/peoplegallery/internal/domain"
)

const tablePeople = "people"

type PersonStore struct {
	db *sqlx.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: newDB(db)}
}

func (s *PersonStore) Append(ctx context.Context, p domain.Person) error {
	query, args, err := sqlb.Insert(tablePeople).
		Columns("name", "age").
		Values(p.Name, p.Age).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert person query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func (s *PersonStore) List(ctx context.Context) ([]domain.Person, error) {
	query, args, err := sqlb.Select("name", "age").
		From(tablePeople).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list people query: %w", err)
	}

	people := []domain.Person{}
	if err := s.db.SelectContext(ctx, &people, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	return people, nil
}
