package acquisition

import (
	"context"
	"time"
)

// RetryPolicy is a bounded poll schedule: one attempt per delay, stopping
// early as soon as an attempt reports done.
type RetryPolicy struct {
	Delays []time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{
		1 * time.Second,
		2 * time.Second,
		2 * time.Second,
	}}
}

// Run sleeps, then calls fn, once per scheduled delay. Returns true when
// fn reported done, false when the schedule ran out.
func (p RetryPolicy) Run(ctx context.Context, sleep func(context.Context, time.Duration) error, fn func(context.Context) (bool, error)) (bool, error) {
	for _, d := range p.Delays {
		if err := sleep(ctx, d); err != nil {
			return false, err
		}
		done, err := fn(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}
