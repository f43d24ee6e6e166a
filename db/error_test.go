package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/benchbase/worldgate/o11y"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		warning  bool
	}{
		{name: "pgx canceled", err: &pgconn.PgError{Code: "57014"}, sentinel: ErrCanceled, warning: true},
		{name: "pq canceled", err: &pq.Error{Code: "57014"}, sentinel: ErrCanceled, warning: true},
		{name: "pgx foreign key", err: &pgconn.PgError{Code: "23503"}, sentinel: ErrConstrained},
		{name: "pq unique", err: &pq.Error{Code: "23505"}, sentinel: ErrNop, warning: true},
		{name: "pgx raise", err: &pgconn.PgError{Code: "P0001"}, sentinel: ErrException},
		{name: "bad conn", err: fmt.Errorf("dial: %w", driver.ErrBadConn), sentinel: ErrBadConn, warning: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err)
			assert.Check(t, cmp.ErrorIs(err, tt.sentinel))
			assert.Check(t, cmp.ErrorIs(err, tt.err), "the driver error must stay reachable")
			assert.Check(t, cmp.Equal(o11y.IsWarning(err), tt.warning))
		})
	}
}

func TestMapError_Unmapped(t *testing.T) {
	assert.Check(t, mapError(nil))

	plain := errors.New("connection refused")
	assert.Check(t, cmp.Equal(mapError(plain), plain))

	syntax := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	err := mapError(syntax)
	pgErr := &pgconn.PgError{}
	assert.Assert(t, errors.As(err, &pgErr))
	assert.Check(t, cmp.Equal(pgErr.Code, "42601"))
}
