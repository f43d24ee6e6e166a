package db

import (
	"context"
	"fmt"
	"math"
)

// Callback receives the outcome of one statement. Executors call it exactly once,
// with a nil error and a non-nil Result on success.
type Callback func(*Result, error)

// Executor runs statements on a pool without blocking the caller. Each call hands the
// statement to the pool and returns straight away; the completion arrives on done from
// a goroutine owned by the executor.
//
// Implementations must be safe for concurrent use and hold no per-call state.
type Executor interface {
	// Query runs a statement that returns rows. All rows are read into memory before
	// done is called.
	Query(ctx context.Context, query string, args []any, done Callback)
	// Exec runs a statement for its effect, reporting the number of rows it touched.
	Exec(ctx context.Context, query string, args []any, done Callback)
}

// Result is a fully materialized statement outcome.
type Result struct {
	Rows         []Row
	RowsAffected int64
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// First returns the first row, and false if there are none.
func (r *Result) First() (Row, bool) {
	if len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// Row holds the column values of one result row in select order.
type Row []any

// DecodeError reports a column that could not be read as the wanted type.
type DecodeError struct {
	Column int
	Want   string
	Got    any
}

func (e *DecodeError) Error() string {
	if e.Got == nil && e.Want == "" {
		return fmt.Sprintf("decode column %d: no such column", e.Column)
	}
	return fmt.Sprintf("decode column %d: cannot read %T as %s", e.Column, e.Got, e.Want)
}

func (r Row) column(i int) (any, error) {
	if i < 0 || i >= len(r) {
		return nil, &DecodeError{Column: i}
	}
	return r[i], nil
}

// Int32 reads column i as a Postgres integer. Drivers differ in the Go type they hand
// back (pgx gives int32, lib/pq gives int64), so any integer in range is accepted.
func (r Row) Int32(i int) (int32, error) {
	v, err := r.column(i)
	if err != nil {
		return 0, err
	}
	var n int64
	switch t := v.(type) {
	case int32:
		return t, nil
	case int16:
		return int32(t), nil
	case int8:
		return int32(t), nil
	case int:
		n = int64(t)
	case int64:
		n = t
	default:
		return 0, &DecodeError{Column: i, Want: "int32", Got: v}
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, &DecodeError{Column: i, Want: "int32", Got: v}
	}
	return int32(n), nil
}

// Text reads column i as a string.
func (r Row) Text(i int) (string, error) {
	v, err := r.column(i)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	}
	return "", &DecodeError{Column: i, Want: "string", Got: v}
}
