package otel

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// attr converts a span field to an attribute. Durations become whole milliseconds and
// anything without a native attribute type is formatted as a string.
func attr(key string, val any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := val.(type) {
	case nil:
		return k.String("")
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int8:
		return k.Int64(int64(v))
	case int16:
		return k.Int64(int64(v))
	case int32:
		return k.Int64(int64(v))
	case int64:
		return k.Int64(v)
	case float32:
		return k.Float64(float64(v))
	case float64:
		return k.Float64(v)
	case time.Duration:
		return k.Int64(v.Milliseconds())
	case error:
		return k.String(v.Error())
	case fmt.Stringer:
		return k.String(v.String())
	default:
		return k.String(fmt.Sprintf("%v", v))
	}
}
