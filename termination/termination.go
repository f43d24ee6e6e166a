// Package termination turns SIGINT and SIGTERM into a service shutdown.
package termination

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benchbase/worldgate/o11y"
)

var ErrTerminated = errors.New("terminated")

// Handle blocks until the process is signalled or ctx is done. After a signal it waits
// for delay, so load balancers can stop routing to the process, then returns ErrTerminated.
func Handle(ctx context.Context, delay time.Duration) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		o11y.Log(ctx, "termination: signalled",
			o11y.Field("signal", sig.String()),
			o11y.Field("delay", delay),
		)
	case <-ctx.Done():
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return ErrTerminated
}
