// Package otel contains an o11y.Provider backed by the open telemetry SDK. Spans are always
// written as text and are also sent over OTLP/HTTP when a collector endpoint is configured.
package otel

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/o11y/otel/texttrace"
)

type Config struct {
	Dataset string

	// HTTPEndpoint is the host:port of an OTLP/HTTP collector. Empty means text output only.
	HTTPEndpoint string
	// HTTPInsecure sends to the collector over plain http.
	HTTPInsecure bool

	ResourceAttributes []attribute.KeyValue

	// Writer receives the text spans. Defaults to os.Stdout.
	Writer io.Writer
	// DisableText stops text output. Ignored when there is no collector.
	DisableText bool

	// Test exports spans synchronously without colour or timestamps.
	Test bool

	// Exporter is an extra exporter, mostly useful for capturing spans in tests.
	Exporter sdktrace.SpanExporter

	Metrics o11y.ClosableMetricsProvider
}

type Provider struct {
	metricsProvider o11y.ClosableMetricsProvider
	tracer          trace.Tracer
	tp              *sdktrace.TracerProvider
	annotator       *Annotator
}

var _ o11y.Provider = &Provider{}

func New(ctx context.Context, conf Config) (*Provider, error) {
	exporters, err := spanExporters(ctx, conf)
	if err != nil {
		return nil, err
	}

	annotator := &Annotator{}
	tp := traceProvider(multipleExporter{exporters: exporters}, annotator, conf)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.Baggage{}, propagation.TraceContext{},
	))

	mp := conf.Metrics
	if mp == nil {
		mp = noopMetrics{}
	}

	return &Provider{
		metricsProvider: mp,
		tp:              tp,
		tracer:          tp.Tracer("github.com/benchbase/worldgate"),
		annotator:       annotator,
	}, nil
}

func spanExporters(ctx context.Context, conf Config) ([]sdktrace.SpanExporter, error) {
	var exporters []sdktrace.SpanExporter

	if conf.HTTPEndpoint == "" || !conf.DisableText {
		w := conf.Writer
		if w == nil {
			w = os.Stdout
		}
		exporters = append(exporters, texttrace.New(w, texttrace.Options{
			Colour:     !conf.Test,
			Timestamps: !conf.Test,
		}))
	}

	if conf.HTTPEndpoint != "" {
		e, err := newHTTP(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("otlp http exporter: %w", err)
		}
		exporters = append(exporters, e)
	}

	if conf.Exporter != nil {
		exporters = append(exporters, conf.Exporter)
	}
	return exporters, nil
}

func newHTTP(ctx context.Context, conf Config) (*otlptrace.Exporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(conf.HTTPEndpoint),
		otlptracehttp.WithHeaders(map[string]string{"x-honeycomb-dataset": conf.Dataset}),
	}
	if conf.HTTPInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func traceProvider(exporter sdktrace.SpanExporter, annotator *Annotator, conf Config) *sdktrace.TracerProvider {
	ra := append([]attribute.KeyValue{
		attribute.String("x-honeycomb-dataset", conf.Dataset),
	}, conf.ResourceAttributes...)

	res := resource.NewWithAttributes(semconv.SchemaURL, ra...)

	var sp sdktrace.SpanProcessor
	if conf.Test {
		sp = sdktrace.NewSimpleSpanProcessor(exporter)
	} else {
		sp = sdktrace.NewBatchSpanProcessor(exporter)
	}

	return sdktrace.NewTracerProvider(
		// the annotator must run first so the exporters see the global fields
		sdktrace.WithSpanProcessor(annotator),
		sdktrace.WithSpanProcessor(sp),
		sdktrace.WithResource(res),
	)
}

type spanCtxKey struct{}

func (o *Provider) AddGlobalField(key string, val interface{}) {
	mustValidateKey(key)
	o.annotator.addField(key, val)
}

func (o *Provider) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	ctx, span := o.tracer.Start(ctx, name)

	s := o.wrapSpan(span)
	ctx = context.WithValue(ctx, spanCtxKey{}, s)

	return ctx, s
}

// GetSpan returns the active span in the given context. It will return nil if there is no span available.
func (o *Provider) GetSpan(ctx context.Context) o11y.Span {
	if s, ok := ctx.Value(spanCtxKey{}).(*span); ok {
		return s
	}
	return nil
}

func (o *Provider) AddField(ctx context.Context, key string, val interface{}) {
	if s, ok := ctx.Value(spanCtxKey{}).(*span); ok {
		s.AddField(key, val)
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(attr("app."+key, val))
}

// AddFieldToTrace adds the field to the current span. Spans are not buffered, so the
// field cannot be pushed to spans that have already been exported.
func (o *Provider) AddFieldToTrace(ctx context.Context, key string, val interface{}) {
	o.AddField(ctx, key, val)
}

// Log emits a zero duration span carrying the fields.
func (o *Provider) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := o.StartSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

func (o *Provider) Close(ctx context.Context) {
	var result error
	if err := o.tp.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := o.metricsProvider.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if result != nil {
		_, _ = fmt.Fprintf(os.Stderr, "o11y: close: %v\n", result)
	}
}

func (o *Provider) MetricsProvider() o11y.MetricsProvider {
	return o.metricsProvider
}

func (o *Provider) wrapSpan(s trace.Span) *span {
	return &span{
		metricsProvider: o.metricsProvider,
		span:            s,
		start:           time.Now(),
		fields:          map[string]interface{}{},
	}
}

type span struct {
	span            trace.Span
	metricsProvider o11y.MetricsProvider
	start           time.Time

	mu      sync.Mutex
	metrics []o11y.Metric
	fields  map[string]interface{}
}

func (s *span) AddField(key string, val interface{}) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val interface{}) {
	mustValidateKey(key)

	s.mu.Lock()
	s.fields[key] = val
	s.mu.Unlock()

	if err, ok := val.(error); ok {
		val = err.Error()
	}
	if key == "name" {
		if v, ok := val.(string); ok {
			s.span.SetName(v)
		}
	}
	s.span.SetAttributes(attr(key, val))
}

// RecordMetric will only emit a metric if End is called specifically
func (s *span) RecordMetric(metric o11y.Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, metric)
}

func (s *span) End() {
	s.sendMetrics()
	s.span.End()
}

func (s *span) sendMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.metrics) == 0 {
		return
	}
	// insert the expected field for any timing metric
	s.fields["duration_ms"] = time.Since(s.start)
	_ = sendMetrics(s.metricsProvider, s.metrics, s.fields)
}

func mustValidateKey(key string) {
	if strings.Contains(key, "-") {
		panic(fmt.Errorf("key %q cannot contain '-'", key))
	}
}

type multipleExporter struct {
	exporters []sdktrace.SpanExporter
}

func (m multipleExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	var result error
	for _, e := range m.exporters {
		if err := e.ExportSpans(ctx, spans); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func (m multipleExporter) Shutdown(ctx context.Context) error {
	var result error
	for _, e := range m.exporters {
		if err := e.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

type noopMetrics struct{}

func (noopMetrics) Histogram(string, float64, []string, float64) error          { return nil }
func (noopMetrics) TimeInMilliseconds(string, float64, []string, float64) error { return nil }
func (noopMetrics) Gauge(string, float64, []string, float64) error              { return nil }
func (noopMetrics) Count(string, int64, []string, float64) error                { return nil }
func (noopMetrics) Close() error                                                { return nil }
