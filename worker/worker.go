package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/recontext"
)

// ErrShouldBackoff tells Run that there was no work, so the next call waits.
var ErrShouldBackoff = errors.New("should back off")

type Config struct {
	Name string
	// NoWorkBackOff spaces out calls after ErrShouldBackoff. Defaults to exponential,
	// 50ms up to 5s.
	NoWorkBackOff backoff.BackOff
	// MaxWorkTime bounds each call of WorkFunc. Defaults to a minute.
	MaxWorkTime time.Duration
	// WorkFunc should return ErrShouldBackoff if it wants the loop to begin backing off
	WorkFunc func(ctx context.Context) error

	waiter func(ctx context.Context, delay time.Duration)
}

// Run calls WorkFunc in a loop until ctx is done. Any other error from WorkFunc is
// recorded on the span and the loop carries straight on.
func Run(ctx context.Context, cfg Config) {
	cfg = setDefaults(cfg)
	cfg.NoWorkBackOff.Reset()

	for ctx.Err() == nil {
		delay := doWork(ctx, cfg)
		if delay < 0 {
			cfg.NoWorkBackOff.Reset()
			continue
		}
		cfg.waiter(ctx, delay)
	}
}

func setDefaults(cfg Config) Config {
	if cfg.waiter == nil {
		cfg.waiter = wait
	}
	if cfg.NoWorkBackOff == nil {
		cfg.NoWorkBackOff = defaultBackOff()
	}
	if cfg.MaxWorkTime <= 0 {
		cfg.MaxWorkTime = time.Minute
	}
	return cfg
}

func wait(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// doWork runs one iteration under its own deadline, detached from the loop's cancellation
// so shutdown does not cut a unit of work short. It returns how long to wait, or a
// negative duration to go again immediately.
func doWork(loopCtx context.Context, cfg Config) (delay time.Duration) {
	ctx, cancel := recontext.WithNewTimeout(loopCtx, cfg.MaxWorkTime)
	defer cancel()

	ctx, span := o11y.StartSpan(ctx, "worker loop: "+cfg.Name)
	span.RecordMetric(o11y.Timing("worker_loop", "loop_name", "result"))
	span.AddField("loop_name", cfg.Name)
	var err error
	defer o11y.End(span, &err)

	// a panicking WorkFunc must not take the loop down
	defer func() {
		if r := recover(); r != nil {
			err = o11y.HandlePanic(ctx, span, r)
		}
	}()

	delay = -1
	err = cfg.WorkFunc(ctx)
	if errors.Is(err, ErrShouldBackoff) {
		delay = cfg.NoWorkBackOff.NextBackOff()
		err = nil
	}

	span.AddField("backoff_ms", delay.Milliseconds())
	return delay
}
