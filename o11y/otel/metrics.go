package otel

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/benchbase/worldgate/o11y"
)

// sendMetrics emits each recorded metric using the span fields for values and tags. Metrics
// whose value field was never set on the span are skipped.
func sendMetrics(mp o11y.MetricsProvider, metrics []o11y.Metric, fields map[string]any) error {
	var result error
	for _, m := range metrics {
		tags := extractTagsFromFields(m.TagFields, fields)
		if m.FixedTag != nil {
			tags = append(tags, fmtTag(m.FixedTag.Name, m.FixedTag.Value))
		}

		var err error
		switch m.Type {
		case o11y.MetricTimer:
			val, ok := getField(m.Field, fields)
			if !ok {
				continue
			}
			ms, ok := toMilliseconds(val)
			if !ok {
				err = fmt.Errorf("metric %s: field %s is not a duration", m.Name, m.Field)
				break
			}
			err = mp.TimeInMilliseconds(m.Name, ms, tags, 1)
		case o11y.MetricCount:
			var n int64 = 1
			if m.Field != "" {
				val, ok := getField(m.Field, fields)
				if !ok {
					continue
				}
				if n, ok = toInt64(val); !ok {
					err = fmt.Errorf("metric %s: field %s is not an integer", m.Name, m.Field)
					break
				}
			}
			err = mp.Count(m.Name, n, tags, 1)
		case o11y.MetricGauge:
			val, ok := getField(m.Field, fields)
			if !ok {
				continue
			}
			f, ok := toFloat64(val)
			if !ok {
				err = fmt.Errorf("metric %s: field %s is not a number", m.Name, m.Field)
				break
			}
			err = mp.Gauge(m.Name, f, tags, 1)
		default:
			err = fmt.Errorf("metric %s: unknown type %q", m.Name, m.Type)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func extractTagsFromFields(tags []string, fields map[string]any) []string {
	result := make([]string, 0, len(tags))
	for _, name := range tags {
		if val, ok := getField(name, fields); ok {
			result = append(result, fmtTag(name, val))
		}
	}
	return result
}

func getField(name string, fields map[string]any) (any, bool) {
	val, ok := fields[name]
	if !ok {
		val, ok = fields["app."+name]
	}
	return val, ok
}

func toInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	}
	return 0, false
}

func toFloat64(val any) (float64, bool) {
	if f, ok := val.(float64); ok {
		return f, true
	}
	if i, ok := toInt64(val); ok {
		return float64(i), true
	}
	return 0, false
}

func toMilliseconds(val any) (float64, bool) {
	if d, ok := val.(time.Duration); ok {
		return float64(d) / float64(time.Millisecond), true
	}
	return toFloat64(val)
}

func fmtTag(name string, val any) string {
	return fmt.Sprintf("%s:%v", name, val)
}
