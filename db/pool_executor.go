package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool used by PoolExecutor.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PoolExecutor runs statements on a pgx pool, one goroutine per statement.
type PoolExecutor struct {
	pool PgxPool
}

func NewPoolExecutor(pool PgxPool) *PoolExecutor {
	return &PoolExecutor{pool: pool}
}

func (e *PoolExecutor) Query(ctx context.Context, query string, args []any, done Callback) {
	go func() {
		res, err := e.query(ctx, query, args)
		done(res, mapError(err))
	}()
}

func (e *PoolExecutor) Exec(ctx context.Context, query string, args []any, done Callback) {
	go func() {
		tag, err := e.pool.Exec(ctx, query, args...)
		if err != nil {
			done(nil, mapError(err))
			return
		}
		done(&Result{RowsAffected: tag.RowsAffected()}, nil)
	}()
}

func (e *PoolExecutor) query(ctx context.Context, query string, args []any) (*Result, error) {
	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &Result{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.RowsAffected = rows.CommandTag().RowsAffected()
	return res, nil
}
