package o11y

import (
	"io"
)

type MetricType string

const (
	MetricTimer MetricType = "timer"
	MetricGauge MetricType = "gauge"
	MetricCount MetricType = "count"
)

// Metric describes a metric emitted from a span's fields when the span ends.
type Metric struct {
	Type MetricType
	Name string
	// Field holds the value. Timers read duration_ms and counts without a field send 1.
	Field string
	// FixedTag is added as is to every emission.
	FixedTag *Tag
	// TagFields are span fields sent as name:value tags.
	TagFields []string
}

type Tag struct {
	Name  string
	Value any
}

func NewTag(name string, value any) *Tag {
	return &Tag{Name: name, Value: value}
}

// Timing emits the span duration in milliseconds.
func Timing(name string, tagFields ...string) Metric {
	return Metric{Type: MetricTimer, Name: name, Field: "duration_ms", TagFields: tagFields}
}

// Incr counts one per span.
func Incr(name string, tagFields ...string) Metric {
	return Metric{Type: MetricCount, Name: name, TagFields: tagFields}
}

func Gauge(name, valueField string, tagFields ...string) Metric {
	return Metric{Type: MetricGauge, Name: name, Field: valueField, TagFields: tagFields}
}

func Count(name, valueField string, fixedTag *Tag, tagFields ...string) Metric {
	return Metric{Type: MetricCount, Name: name, Field: valueField, FixedTag: fixedTag, TagFields: tagFields}
}

// MetricsProvider is the subset of the DogStatsD client the module sends through.
type MetricsProvider interface {
	Histogram(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
}

type ClosableMetricsProvider interface {
	MetricsProvider
	io.Closer
}
