package healthcheck

import (
	"context"
	"fmt"

	"github.com/benchbase/worldgate/httpserver"
	"github.com/benchbase/worldgate/system"
)

// Load serves the admin API on addr. Call it after everything else is registered with
// sys, so it picks up every health check.
func Load(ctx context.Context, addr string, sys *system.System) (*httpserver.HTTPServer, error) {
	api, err := New(ctx, sys.HealthChecks())
	if err != nil {
		return nil, fmt.Errorf("error creating health check API: %w", err)
	}

	return httpserver.Load(ctx, httpserver.Config{
		Name:    "admin",
		Addr:    addr,
		Handler: api.Handler(),
	}, sys)
}
