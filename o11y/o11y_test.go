package o11y

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestFromContext(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		ctx := context.Background()
		p := FromContext(ctx)
		assert.Check(t, cmp.Equal(p, Provider(defaultProvider)))
	})

	t.Run("with provider in context", func(t *testing.T) {
		expected := &recordingProvider{}
		ctx := WithProvider(context.Background(), expected)

		actual := FromContext(ctx)
		assert.Check(t, cmp.Equal(actual, Provider(expected)))
	})
}

func TestLog_WithoutProvider(t *testing.T) {
	ctx := context.Background()

	Log(ctx, "foo", Field("name", "value"))
	LogError(ctx, "bar", errors.New("boom"), Field("id", 42))
}

func TestStartSpan_WithoutProvider(t *testing.T) {
	ctx := context.Background()

	nCtx, span := StartSpan(ctx, "foo")
	assert.Check(t, span != nil, "should have returned a noop span")
	assert.Check(t, cmp.Equal(ctx, nCtx), "should have returned ctx unmodified")
}

func TestHandlePanic(t *testing.T) {
	ctx := context.Background()
	span := &recordingSpan{fields: map[string]any{}}
	var err error
	func() {
		defer func() {
			err = HandlePanic(ctx, span, recover())
		}()
		panic("oh no")
	}()

	assert.Check(t, cmp.ErrorContains(err, "oh no"))
	assert.Check(t, cmp.Equal(span.fields["has_panicked"], "true"))
	assert.Check(t, cmp.Len(span.metrics, 1))
}

func TestAddResultToSpan(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		result  string
		error   string
		warning string
	}{
		{
			name:   "all-good",
			result: "success",
		},
		{
			name:   "normal-error",
			err:    errors.New("my error"),
			result: "error",
			error:  "my error",
		},
		{
			name:    "warning",
			err:     NewWarning("world not found"),
			result:  "success",
			warning: "world not found",
		},
		{
			name:    "wrapped-warning",
			err:     fmt.Errorf("wrapped: %w", NewWarning("no update or results")),
			result:  "success",
			warning: "wrapped: no update or results",
		},
		{
			name:    "context-canceled",
			err:     context.Canceled,
			result:  "canceled",
			warning: "context canceled",
		},
		{
			name:    "wrapped-deadline-exceeded",
			err:     fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
			result:  "canceled",
			warning: "wrapped: context deadline exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := &recordingSpan{fields: map[string]any{}}
			err := tt.err
			End(span, &err)

			assert.Check(t, span.ended)
			assert.Check(t, cmp.Equal(span.fields["result"], tt.result))
			checkOptional(t, span.fields, "error", tt.error)
			checkOptional(t, span.fields, "warning", tt.warning)
		})
	}
}

func TestEnd_NilErrorPointer(t *testing.T) {
	span := &recordingSpan{fields: map[string]any{}}
	End(span, nil)
	assert.Check(t, cmp.Equal(span.fields["result"], "success"))
}

func checkOptional(t *testing.T, fields map[string]any, key, want string) {
	t.Helper()
	got, ok := fields[key]
	if want == "" {
		assert.Check(t, !ok, "unexpected %s field: %v", key, got)
		return
	}
	assert.Check(t, cmp.Equal(got, want))
}

type recordingSpan struct {
	fields  map[string]any
	metrics []Metric
	ended   bool
}

func (s *recordingSpan) AddField(key string, val any) {
	s.fields["app."+key] = val
}

func (s *recordingSpan) AddRawField(key string, val any) {
	s.fields[key] = val
}

func (s *recordingSpan) RecordMetric(metric Metric) {
	s.metrics = append(s.metrics, metric)
}

func (s *recordingSpan) End() {
	s.ended = true
}

type recordingProvider struct {
	noopProvider
}
