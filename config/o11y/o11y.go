// Package o11y builds the process wide o11y provider from configuration.
package o11y

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/o11y/otel"
)

type Config struct {
	// HTTPEndpoint is the host:port of an OTLP/HTTP trace collector
	HTTPEndpoint string
	HTTPInsecure bool
	Dataset      string

	// DisableText prevents span output to stdout. Ignored when there is no collector.
	DisableText bool
	Writer      io.Writer

	Statsd                  string
	StatsNamespace          string
	StatsdTelemetryDisabled bool
	// StatsdRetries bounds how many times the statsd client is retried once a second.
	StatsdRetries uint64

	Version string
	Service string
	Mode    string

	Test bool
}

// Setup is the primary entrypoint to initialise the o11y system. The returned func flushes
// and closes the provider.
func Setup(ctx context.Context, o Config) (context.Context, func(context.Context), error) {
	hostname, _ := os.Hostname()

	mp, err := metricsProvider(ctx, o, hostname)
	if err != nil {
		return ctx, nil, fmt.Errorf("metrics provider failed: %w", err)
	}

	provider, err := otel.New(ctx, otel.Config{
		Dataset:      o.Dataset,
		HTTPEndpoint: o.HTTPEndpoint,
		HTTPInsecure: o.HTTPInsecure,
		ResourceAttributes: []attribute.KeyValue{
			semconv.ServiceName(o.Service),
			semconv.ServiceVersion(o.Version),
			attribute.String("service.mode", o.Mode),
		},
		Writer:      o.Writer,
		DisableText: o.DisableText,
		Test:        o.Test,
		Metrics:     mp,
	})
	if err != nil {
		_ = mp.Close()
		return ctx, nil, err
	}

	provider.AddGlobalField("service", o.Service)
	provider.AddGlobalField("version", o.Version)
	if o.Mode != "" {
		provider.AddGlobalField("mode", o.Mode)
	}

	return o11y.WithProvider(ctx, provider), provider.Close, nil
}

func metricsProvider(ctx context.Context, o Config, hostname string) (o11y.ClosableMetricsProvider, error) {
	if o.Statsd == "" {
		return &statsd.NoOpClient{}, nil
	}

	tags := []string{
		"service:" + o.Service,
		"version:" + o.Version,
		"hostname:" + hostname,
	}
	if o.Mode != "" {
		tags = append(tags, "mode:"+o.Mode)
	}

	statsdOpts := []statsd.Option{
		statsd.WithNamespace(o.StatsNamespace),
		statsd.WithTags(tags),
	}
	if o.StatsdTelemetryDisabled {
		statsdOpts = append(statsdOpts, statsd.WithoutTelemetry())
	}

	retries := o.StatsdRetries
	if retries == 0 {
		retries = 30
	}

	var stats *statsd.Client
	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), retries)
	err := backoff.Retry(func() (err error) {
		stats, err = statsd.New(o.Statsd, statsdOpts...)
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return stats, nil
}
