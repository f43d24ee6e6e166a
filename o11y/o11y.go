// Package o11y is the tracing, span logging and metrics API the rest of the module codes
// against.
//
// The Provider travels in the context. Code that finds none gets a noop provider, so the
// same calls work in production, in tests and in libraries used without any setup.
package o11y

import (
	"context"
)

type Provider interface {
	// AddGlobalField adds a field to every span the provider starts, e.g. version or
	// service.
	AddGlobalField(key string, val any)

	// StartSpan begins a unit of work named by a short identifier such as
	// "gateway: fetch_world". Queries should use db.Span so they are named consistently.
	// The caller ends the span, usually with
	//
	//	ctx, span := o11y.StartSpan(ctx, "gateway: fetch_world")
	//	defer o11y.End(span, &err)
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// GetSpan returns the active span in ctx, or nil.
	GetSpan(ctx context.Context) Span

	// AddField adds an "app." prefixed field to the active span.
	AddField(ctx context.Context, key string, val any)

	// AddFieldToTrace adds a field to the active span and every span started under it.
	AddFieldToTrace(ctx context.Context, key string, val any)

	// Log records a zero duration span.
	Log(ctx context.Context, name string, fields ...Pair)

	Close(ctx context.Context)

	// MetricsProvider sends metrics directly, without a span.
	MetricsProvider() MetricsProvider
}

type Span interface {
	// AddField adds an "app." prefixed field.
	AddField(key string, val any)

	// AddRawField adds a field with no prefix. It is meant for plumbing such as result,
	// db.system or http.route.
	AddRawField(key string, val any)

	// RecordMetric emits metric from the span's fields when the span ends.
	RecordMetric(metric Metric)

	// End finishes the span. It must not be used afterwards.
	End()
}

type providerKey struct{}

func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider in ctx, or the noop provider.
func FromContext(ctx context.Context) Provider {
	if p, ok := ctx.Value(providerKey{}).(Provider); ok {
		return p
	}
	return defaultProvider
}

func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return FromContext(ctx).StartSpan(ctx, name)
}

func AddField(ctx context.Context, key string, val any) {
	FromContext(ctx).AddField(ctx, key, val)
}

func AddFieldToTrace(ctx context.Context, key string, val any) {
	FromContext(ctx).AddFieldToTrace(ctx, key, val)
}

// Log records a zero duration span.
func Log(ctx context.Context, name string, fields ...Pair) {
	FromContext(ctx).Log(ctx, name, fields...)
}

// LogError records a zero duration span carrying err.
func LogError(ctx context.Context, name string, err error, fields ...Pair) {
	_, span := StartSpan(ctx, name)
	for _, f := range fields {
		span.AddField(f.Key, f.Value)
	}
	End(span, &err)
}

type Pair struct {
	Key   string
	Value any
}

func Field(key string, value any) Pair {
	return Pair{Key: key, Value: value}
}
