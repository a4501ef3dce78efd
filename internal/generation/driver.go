package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maauso/wanvideo-api/internal/wan"
)

// Poller performs one classified status check for a task.
type Poller interface {
	Poll(ctx context.Context, handle wan.TaskHandle) TaskStatus
}

// StatusFetcher is the subset of wan.Client the Driver needs.
type StatusFetcher interface {
	Poll(ctx context.Context, handle wan.TaskHandle) (wan.PollResult, error)
}

// Driver adapts a Wan client to the Poller interface.
// It is stateless and safe for concurrent use.
type Driver struct {
	client StatusFetcher
	logger *slog.Logger
}

// NewDriver creates a new Driver.
func NewDriver(client StatusFetcher, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{client: client, logger: logger}
}

// Poll fetches and classifies the task status. It never returns an error:
// transport problems read as Pending so the caller keeps polling, while
// configuration and validation problems are terminal.
func (d *Driver) Poll(ctx context.Context, handle wan.TaskHandle) TaskStatus {
	res, err := d.client.Poll(ctx, handle)
	if err == nil {
		return Classify(res)
	}

	switch {
	case errors.Is(err, wan.ErrConfiguration), errors.Is(err, wan.ErrValidation):
		d.logger.Error("status check cannot proceed",
			slog.String("task_id", handle.TaskID),
			slog.String("error", err.Error()),
		)
		return Errored(err.Error())
	default:
		d.logger.Warn("status check failed, will retry",
			slog.String("task_id", handle.TaskID),
			slog.String("poll_url", handle.PollURL),
			slog.String("error", err.Error()),
		)
		return Pending()
	}
}

// Compile-time check that Driver implements Poller.
var _ Poller = (*Driver)(nil)
