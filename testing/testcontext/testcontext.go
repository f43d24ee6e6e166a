// Package testcontext provides a context carrying a working o11y provider, so tests get
// span output.
package testcontext

import (
	"context"

	"github.com/benchbase/worldgate/config/o11y"
)

// ctx is created once at package init so parallel tests share a single provider.
var ctx = newContext()

// Background returns a context for use in tests which contains a working o11y, so you get logs.
func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	cx, _, err := o11y.Setup(context.Background(), o11y.Config{
		Service: "test-service",
		Test:    true,
	})
	if err != nil {
		panic(err)
	}
	return cx
}
