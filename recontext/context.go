// Package recontext derives contexts that outlive their parent's cancellation but keep its
// values, so cleanup work still reports into the caller's trace.
package recontext

import (
	"context"
	"time"
)

// WithNewTimeout ignores the parent's deadline and cancellation and applies timeout
// instead. A timeout is mandatory so detached work cannot hang.
func WithNewTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
