package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vbonduro/peoplegallery/internal/domain"
)

const tableItems = "items"

// itemRow mirrors the items table. created_at is kept as RFC 3339 text so the
// stored value round-trips exactly.
type itemRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	URL       string `db:"url"`
	CreatedAt string `db:"created_at"`
	Caption   string `db:"caption"`
}

type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: newDB(db)}
}

func (s *ItemStore) Append(ctx context.Context, item domain.Item) error {
	query, args, err := sqlb.Insert(tableItems).
		Columns("id", "title", "url", "created_at", "caption").
		Values(item.ID, item.Title, item.URL, item.CreatedAt.UTC().Format(time.RFC3339Nano), item.Caption).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert item query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (s *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	query, args, err := sqlb.Select("id", "title", "url", "created_at", "caption").
		From(tableItems).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list items query: %w", err)
	}

	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, r := range rows {
		createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at of item %s: %w", r.ID, err)
		}
		items = append(items, domain.Item{
			ID:        r.ID,
			Title:     r.Title,
			URL:       r.URL,
			CreatedAt: createdAt,
			Caption:   r.Caption,
		})
	}
	return items, nil
}
