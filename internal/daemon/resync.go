package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Resync requests a rebuild on a fixed interval, covering events the
// watcher may have missed.
type Resync struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// StartResync schedules request every interval and starts the scheduler.
func StartResync(interval time.Duration, request func(), logger *slog.Logger) (*Resync, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(request),
		gocron.WithName("deck-resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create resync job: %w", err)
	}
	logger.Info("Starting resync", slog.Duration("interval", interval))
	s.Start()
	return &Resync{scheduler: s, logger: logger}, nil
}

// Stop shuts the scheduler down.
func (r *Resync) Stop() error {
	r.logger.Info("Stopping resync")
	return r.scheduler.Shutdown()
}
