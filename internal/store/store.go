// Package store holds the SQLite-backed repositories. Queries are built with
// squirrel and scanned with sqlx.
package store

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var sqlb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func newDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "sqlite")
}
