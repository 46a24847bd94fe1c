package postgres

import (
	"context"
	"database/sql"
)

// Querier is the query surface the ride, driver and rider repositories run
// on. Both *sql.DB and *sql.Tx satisfy it, so a repository can be pointed at
// a transaction without changing its code.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)
