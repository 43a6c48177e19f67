package core

import (
	"context"
	"database/sql"
)

// DBExecutor is the subset of sqlx.DB and sqlx.Tx the repositories depend on,
// so a repository can run against a plain connection or inside a transaction.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
