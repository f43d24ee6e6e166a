package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var _ sdktrace.SpanProcessor = &Annotator{}

// Annotator is a SpanProcessor that adds the provider's global fields to every started span.
type Annotator struct {
	mu    sync.RWMutex
	attrs []attribute.KeyValue
}

func (a *Annotator) addField(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attrs = append(a.attrs, attr(key, value))
}

func (a *Annotator) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s.SetAttributes(a.attrs...)
}

func (a *Annotator) Shutdown(context.Context) error   { return nil }
func (a *Annotator) ForceFlush(context.Context) error { return nil }
func (a *Annotator) OnEnd(sdktrace.ReadOnlySpan)      {}
