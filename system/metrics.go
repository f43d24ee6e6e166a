package system

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/worker"
)

// MetricProducer reports point-in-time gauges, such as connection pool usage.
type MetricProducer interface {
	// MetricName scopes the gauges, e.g. "world-db" gives gauge.world_db.<field>.
	MetricName() string
	Gauges(context.Context) map[string]float64
}

const metricsInterval = 10 * time.Second

func publishGauges(ctx context.Context, producers []MetricProducer) {
	mp := o11y.FromContext(ctx).MetricsProvider()
	for _, p := range producers {
		scope := "gauge." + strings.ReplaceAll(p.MetricName(), "-", "_") + "."
		gauges := p.Gauges(ctx)
		for _, name := range slices.Sorted(maps.Keys(gauges)) {
			_ = mp.Gauge(scope+name, gauges[name], nil, 1)
		}
	}
}

// metricsReporter publishes the producers' gauges every metricsInterval until ctx is done.
func metricsReporter(ctx context.Context, producers []MetricProducer) func() error {
	return func() error {
		worker.Run(ctx, worker.Config{
			Name:          "metric-loop",
			MaxWorkTime:   time.Second,
			NoWorkBackOff: backoff.NewConstantBackOff(metricsInterval),
			WorkFunc: func(ctx context.Context) error {
				publishGauges(ctx, producers)
				return worker.ErrShouldBackoff
			},
		})
		return nil
	}
}
