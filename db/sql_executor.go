package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/benchbase/worldgate/closer"
)

// SQLExecutor runs statements on a database/sql pool through sqlx, for deployments that
// use the lib/pq driver. Behaviour matches PoolExecutor.
type SQLExecutor struct {
	db *sqlx.DB
}

func NewSQLExecutor(db *sqlx.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

func (e *SQLExecutor) Query(ctx context.Context, query string, args []any, done Callback) {
	go func() {
		res, err := e.query(ctx, query, args)
		done(res, mapError(err))
	}()
}

func (e *SQLExecutor) Exec(ctx context.Context, query string, args []any, done Callback) {
	go func() {
		res, err := e.db.ExecContext(ctx, query, args...)
		if err != nil {
			done(nil, mapError(err))
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			done(nil, mapError(err))
			return
		}
		done(&Result{RowsAffected: n}, nil)
	}()
}

func (e *SQLExecutor) query(ctx context.Context, query string, args []any) (_ *Result, err error) {
	rows, err := e.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closer.Close(rows, &err)

	res := &Result{}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.RowsAffected = int64(len(res.Rows))
	return res, nil
}
