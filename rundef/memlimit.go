package rundef

import (
	"context"

	"github.com/KimMachineGun/automemlimit/memlimit"

	"github.com/benchbase/worldgate/o11y"
)

func memLimit(ctx context.Context, ratio float64) (err error) {
	_, span := o11y.StartSpan(ctx, "rundef: mem limit")
	defer o11y.End(span, &err)
	span.AddField("ratio", ratio)

	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(ratio),
		memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
	)
	if err != nil {
		return err
	}
	span.AddField("limit", limit)
	return nil
}
