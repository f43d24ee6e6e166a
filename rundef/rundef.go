// Package rundef sizes the Go runtime to the container the server runs in, so the
// benchmark is not throttled by a GOMAXPROCS or heap limit taken from the host.
package rundef

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/benchbase/worldgate/o11y"
)

// DefaultMemRatio is the share of the available memory handed to GOMEMLIMIT.
const DefaultMemRatio = 0.9

type Config struct {
	// MemRatio defaults to DefaultMemRatio.
	MemRatio float64
}

// Apply sets GOMEMLIMIT and GOMAXPROCS from the cgroup limits, falling back to the host.
func Apply(ctx context.Context, cfg Config) (err error) {
	ctx, span := o11y.StartSpan(ctx, "rundef: apply")
	defer o11y.End(span, &err)

	if cfg.MemRatio <= 0 || cfg.MemRatio > 1 {
		cfg.MemRatio = DefaultMemRatio
	}

	var g errgroup.Group
	g.Go(func() error {
		return memLimit(ctx, cfg.MemRatio)
	})
	g.Go(func() error {
		return maxProcs(ctx)
	})
	return g.Wait()
}
