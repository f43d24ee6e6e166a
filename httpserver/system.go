package httpserver

import (
	"context"
	"fmt"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/system"
)

// Load listens on cfg.Addr and registers the server as a service of sys, along with its
// connection gauges.
func Load(ctx context.Context, cfg Config, sys *system.System) (_ *HTTPServer, err error) {
	ctx, span := o11y.StartSpan(ctx, "httpserver: load")
	defer o11y.End(span, &err)
	span.AddField("server_name", cfg.Name)
	span.AddField("address", cfg.Addr)

	s, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s server: %w", cfg.Name, err)
	}

	sys.AddService(s.Serve)
	sys.AddMetrics(s.MetricsProducer())
	return s, nil
}
