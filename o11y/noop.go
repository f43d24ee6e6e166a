package o11y

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
)

var defaultProvider Provider = noopProvider{}

type noopProvider struct{}

func (noopProvider) AddGlobalField(string, any) {}

func (noopProvider) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopProvider) GetSpan(context.Context) Span                { return noopSpan{} }
func (noopProvider) AddField(context.Context, string, any)        {}
func (noopProvider) AddFieldToTrace(context.Context, string, any) {}
func (noopProvider) Log(context.Context, string, ...Pair)         {}
func (noopProvider) Close(context.Context)                        {}

func (noopProvider) MetricsProvider() MetricsProvider {
	return &statsd.NoOpClient{}
}

type noopSpan struct{}

func (noopSpan) AddField(string, any)    {}
func (noopSpan) AddRawField(string, any) {}
func (noopSpan) RecordMetric(Metric)     {}
func (noopSpan) End()                    {}
