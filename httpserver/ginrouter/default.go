// Package ginrouter builds the gin engines the module's HTTP servers use.
package ginrouter

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/o11y/wrappers/o11ygin"
)

var releaseMode sync.Once

// Default returns an engine that opens a span per request on the provider in ctx, turns
// panics into 500s and reports clients that went away as 499. Gin's debug mode is
// replaced by release mode unless a test has selected test mode.
func Default(ctx context.Context, serverName string) *gin.Engine {
	releaseMode.Do(func() {
		if gin.Mode() != gin.TestMode {
			gin.SetMode(gin.ReleaseMode)
		}
	})

	r := gin.New()
	r.UseRawPath = true
	r.ContextWithFallback = true
	r.Use(
		o11ygin.Middleware(o11y.FromContext(ctx), serverName),
		o11ygin.Recovery(),
		o11ygin.ClientCancelled(),
	)
	return r
}
