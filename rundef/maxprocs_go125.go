//go:build go1.25

package rundef

import (
	"context"
	"runtime"

	"github.com/benchbase/worldgate/o11y"
)

// The runtime reads the cgroup CPU quota itself from Go 1.25.
func maxProcs(ctx context.Context) (err error) {
	_, span := o11y.StartSpan(ctx, "rundef: max procs")
	defer o11y.End(span, &err)

	span.AddField("limit", runtime.GOMAXPROCS(0))
	return nil
}
