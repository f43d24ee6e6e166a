package o11y_test

import (
	"bytes"
	"context"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	o11yconfig "github.com/benchbase/worldgate/config/o11y"
	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/testing/fakestatsd"
)

func TestSetup(t *testing.T) {
	s := fakestatsd.New(t)
	buf := &bytes.Buffer{}

	ctx := context.Background()
	ctx, cleanup, err := o11yconfig.Setup(ctx, o11yconfig.Config{
		Statsd:                  s.Addr(),
		StatsNamespace:          "worldgate.",
		StatsdTelemetryDisabled: true,
		Writer:                  buf,
		Version:                 "1.2.3",
		Service:                 "worldserver",
		Mode:                    "banana",
		Test:                    true,
	})
	assert.Assert(t, err)

	t.Run("Send metric", func(t *testing.T) {
		p := o11y.FromContext(ctx)
		err := p.MetricsProvider().Count("my_count", 1, []string{"mytag:myvalue"}, 1)
		assert.Check(t, err)
	})

	t.Run("Span", func(t *testing.T) {
		_, span := o11y.StartSpan(ctx, "api: db")
		span.AddField("id", 42)
		span.End()
	})

	t.Run("Cleanup provider", func(t *testing.T) {
		cleanup(ctx)
	})

	t.Run("Check metrics received", func(t *testing.T) {
		poll.WaitOn(t, func(t poll.LogT) poll.Result {
			if len(s.Metrics()) == 0 {
				return poll.Continue("no metrics found yet")
			}
			return poll.Success()
		})

		metrics := s.Metrics()
		assert.Assert(t, cmp.Len(metrics, 1))
		metric := metrics[0]
		assert.Check(t, cmp.Equal("worldgate.my_count", metric.Name))
		assert.Check(t, cmp.Equal(metric.Value, "1"))
		assert.Check(t, cmp.Equal(metric.Type, "c"))
		assert.Check(t, cmp.Contains(metric.Tags, "service:worldserver"))
		assert.Check(t, cmp.Contains(metric.Tags, "version:1.2.3"))
		assert.Check(t, cmp.Contains(metric.Tags, "mode:banana"))
		assert.Check(t, cmp.Contains(metric.Tags, "mytag:myvalue"))
	})

	t.Run("Check span written", func(t *testing.T) {
		assert.Check(t, cmp.Contains(buf.String(), "api: db"))
		assert.Check(t, cmp.Contains(buf.String(), "app.id=42"))
	})
}

func TestSetup_NoStatsd(t *testing.T) {
	ctx, cleanup, err := o11yconfig.Setup(context.Background(), o11yconfig.Config{
		Service: "worldserver",
		Writer:  &bytes.Buffer{},
		Test:    true,
	})
	assert.Assert(t, err)
	defer cleanup(ctx)

	err = o11y.FromContext(ctx).MetricsProvider().Gauge("gauge", 1, nil, 1)
	assert.Check(t, err)
}
