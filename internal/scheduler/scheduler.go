package scheduler

import (
	"context"
	"time"

	"jobreview-engine/internal/logger"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on every tick until ctx is done.
// Runs never overlap; a tick that fires during a run is dropped.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	log := logger.Component("scheduler").With("task", name)
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("task failed", "err", err)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
