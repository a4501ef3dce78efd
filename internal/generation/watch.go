package generation

import (
	"context"
	"math"
	"time"

	"github.com/maauso/wanvideo-api/internal/wan"
)

// Polling cadence defaults.
const (
	DefaultMaxAttempts = 40
	DefaultInterval    = 3 * time.Second
)

// WatchOptions configures Watch. Zero values select the defaults.
type WatchOptions struct {
	MaxAttempts int
	Interval    time.Duration
	// OnAttempt is called after every poll with the 1-based attempt number.
	OnAttempt func(attempt int, status TaskStatus)
}

func (o WatchOptions) withDefaults() WatchOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Watch polls handle until a terminal status or until MaxAttempts polls have
// been made, waiting Interval between polls. Exhausting the budget yields
// TimedOut. If ctx is cancelled, Watch returns the last observed status and
// ctx.Err(); the provider task itself is left running.
func Watch(ctx context.Context, p Poller, handle wan.TaskHandle, opts WatchOptions) (TaskStatus, error) {
	opts = opts.withDefaults()

	last := Pending()
	timer := time.NewTimer(opts.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		last = p.Poll(ctx, handle)
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt, last)
		}
		if last.State.IsTerminal() {
			return last, nil
		}
		if attempt == opts.MaxAttempts {
			break
		}

		timer.Reset(opts.Interval)
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		}
	}

	return TimedOut(), nil
}

// Progress estimates completion for display: the share of the attempt budget
// used so far, capped at 95 until the task actually succeeds.
func Progress(attempt, maxAttempts int) int {
	if maxAttempts <= 0 || attempt <= 0 {
		return 0
	}
	pct := int(math.Round(float64(attempt) / float64(maxAttempts) * 100))
	return min(95, pct)
}
