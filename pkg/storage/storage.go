// Package storage provides common storage interfaces shared by the
// Postgres-backed document stores.
package storage

import (
	"context"
	"database/sql"
)

// Querier abstracts database query execution so callers can be handed
// either a *sql.DB or a *sql.Tx interchangeably.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
