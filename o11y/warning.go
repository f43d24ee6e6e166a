package o11y

import (
	"context"
	"errors"
)

// errWarning is matched by every warning, whatever its message.
var errWarning = errors.New("warning")

type warning struct {
	msg string
}

// NewWarning returns an error that spans report as a warning, for expected outcomes such
// as a missing row. Each call returns a distinct error for errors.Is.
func NewWarning(msg string) error {
	return &warning{msg: msg}
}

func (w *warning) Error() string {
	return w.msg
}

func (w *warning) Is(target error) bool {
	return target == errWarning
}

// IsWarning reports whether any error in the chain is a warning.
func IsWarning(err error) bool {
	return errors.Is(err, errWarning)
}

// DontErrorTrace reports whether err is a warning or a context cancellation, neither of
// which should mark a trace as failed.
func DontErrorTrace(err error) bool {
	return IsWarning(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
