package db

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/benchbase/worldgate/o11y"
)

var (
	ErrNop         = o11y.NewWarning("no update or results")
	ErrConstrained = errors.New("violates constraints")
	ErrException   = errors.New("exception")
	ErrCanceled    = o11y.NewWarning("statement canceled")
	ErrBadConn     = o11y.NewWarning("bad connection")
)

const (
	pgForeignKeyConstraintErrorCode = "23503"
	pgUniqueViolationErrorCode      = "23505"
	pgExceptionRaised               = "P0001"
	pgStatementCanceled             = "57014"
)

// mapError classifies driver errors from pgx or lib/pq against the errors defined in
// this package. The driver error stays in the chain, so errors.As still finds it.
// Unknown errors are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", ErrBadConn, err)
	}
	var sentinel error
	switch code(err) {
	case pgForeignKeyConstraintErrorCode:
		sentinel = ErrConstrained
	case pgExceptionRaised:
		sentinel = ErrException
	case pgStatementCanceled:
		sentinel = ErrCanceled
	case pgUniqueViolationErrorCode:
		sentinel = ErrNop
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func code(err error) string {
	pgErr := &pgconn.PgError{}
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	pqErr := &pq.Error{}
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
