// Package texttrace is an otel span exporter that writes one line per span, for consoles
// and test output.
package texttrace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/benchbase/worldgate/colourise"
)

var _ trace.SpanExporter = &Exporter{}

type Options struct {
	Colour     bool
	Timestamps bool
}

type Exporter struct {
	opts Options

	mu      sync.Mutex
	w       io.Writer
	stopped bool
}

func New(w io.Writer, opts Options) *Exporter {
	return &Exporter{w: w, opts: opts}
}

func (e *Exporter) ExportSpans(_ context.Context, spans []trace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil
	}
	for _, s := range spans {
		if _, err := e.w.Write(e.format(s)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	return ctx.Err()
}

func (e *Exporter) format(s trace.ReadOnlySpan) []byte {
	buf := new(bytes.Buffer)
	if e.opts.Timestamps {
		buf.WriteString(s.EndTime().Format("15:04:05 "))
	}
	_, _ = fmt.Fprintf(buf, "%s %.3fms %s",
		e.colour(shortID(s.SpanContext().TraceID().String())),
		float64(s.EndTime().Sub(s.StartTime()).Microseconds())/1000,
		e.colour(s.Name()),
	)

	attrs := append([]attribute.KeyValue(nil), s.Attributes()...)
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })
	for _, a := range attrs {
		k := string(a.Key)
		if exclude(k) {
			continue
		}
		label := k
		if k == "error" && e.opts.Colour {
			label = colourise.ErrorHighlight(k)
		}
		_, _ = fmt.Fprintf(buf, " %s=%v", label, a.Value.Emit())
	}
	buf.WriteString("\n")
	return buf.Bytes()
}

func exclude(k string) bool {
	switch k {
	case "name", "version", "service", "mode", "duration_ms":
		return true
	}
	return strings.HasPrefix(k, "trace.") || strings.HasPrefix(k, "meta.")
}

func (e *Exporter) colour(value string) string {
	if !e.opts.Colour {
		return value
	}
	return colourise.Hashed(value)
}

func shortID(raw string) string {
	if len(raw) <= 5 {
		return raw
	}
	return raw[len(raw)-5:]
}
