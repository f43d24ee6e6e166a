package system

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/termination"
)

// HealthChecker is anything that reports its own readiness or liveness. Either func may
// be nil.
type HealthChecker interface {
	HealthChecks() (name string, ready, live func(ctx context.Context) error)
}

type System struct {
	services        []func(context.Context) error
	healthChecks    []HealthChecker
	metricProducers []MetricProducer
	cleanups        []func(ctx context.Context) error
}

func New() *System {
	return &System{}
}

var terminationTestHook = termination.Handle

// Run starts every service and blocks until one of them fails, ctx is done or the process
// is signalled. A signal waits for delay before the services are told to stop.
func (r *System) Run(ctx context.Context, delay time.Duration) (err error) {
	ctx, uptimeSpan := o11y.StartSpan(ctx, "system: run")
	defer o11y.End(uptimeSpan, &err)
	uptimeSpan.RecordMetric(o11y.Timing("system.run", "result"))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return terminationTestHook(ctx, delay)
	})

	for _, f := range r.services {
		g.Go(func() error {
			return f(ctx)
		})
	}

	if len(r.metricProducers) > 0 {
		g.Go(metricsReporter(ctx, r.metricProducers))
	}

	return g.Wait()
}

// AddService adds a long running func. It must return once ctx is done.
func (r *System) AddService(s func(ctx context.Context) error) {
	r.services = append(r.services, s)
}

func (r *System) AddHealthCheck(h HealthChecker) {
	r.healthChecks = append(r.healthChecks, h)
}

func (r *System) AddMetrics(m MetricProducer) {
	r.metricProducers = append(r.metricProducers, m)
}

// AddCleanup adds a func to run at shutdown. Cleanups run in reverse order of adding.
func (r *System) AddCleanup(c func(ctx context.Context) error) {
	r.cleanups = append(r.cleanups, c)
}

func (r *System) HealthChecks() []HealthChecker {
	return r.healthChecks
}

func (r *System) Cleanup(ctx context.Context) {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		if err := r.cleanups[i](ctx); err != nil {
			o11y.LogError(ctx, "system: cleanup error", err)
		}
	}
}
