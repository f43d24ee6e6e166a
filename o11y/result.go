package o11y

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// End records the outcome held in *err on span and ends it. Passing a pointer lets End
// be deferred straight after StartSpan and still see the final value of a named error
// return:
//
//	defer o11y.End(span, &err)
func End(span Span, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	AddResultToSpan(span, e)
	span.End()
}

// AddResultToSpan sets the result field to success, canceled or error. Warnings and
// cancellations go in the warning field so they do not show up as failed spans.
func AddResultToSpan(span Span, err error) {
	switch {
	case err == nil:
		span.AddRawField("result", "success")
	case IsWarning(err):
		span.AddRawField("result", "success")
		span.AddRawField("warning", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		span.AddRawField("result", "canceled")
		span.AddRawField("warning", err.Error())
	default:
		span.AddRawField("result", "error")
		span.AddRawField("error", err.Error())
	}
}

// HandlePanic records a recovered value on span, counts it in the panics metric and
// returns it as an error.
func HandlePanic(_ context.Context, span Span, recovered any) error {
	span.AddRawField("panic", recovered)
	span.AddRawField("has_panicked", "true")
	span.AddRawField("stack", string(debug.Stack()))
	span.RecordMetric(Incr("panics", "name"))
	return fmt.Errorf("panic handled: %+v", recovered)
}
