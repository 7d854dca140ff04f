package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/scrape/types"
)

// Outcome is one producer's result within a run.
type Outcome struct {
	Producer string
	Board    domain.Board
	Batch    types.Batch
	Err      error
	Took     time.Duration
}

// FetchAll runs every producer concurrently, each under its own timeout.
// A failing producer never cancels its siblings. Outcomes keep the order
// of producers.
func FetchAll(ctx context.Context, producers []types.Producer, hint types.Hint, timeout time.Duration, log *zap.SugaredLogger) []Outcome {
	log = logger.Or(log, "scrape")
	out := make([]Outcome, len(producers))

	var g errgroup.Group
	for i, p := range producers {
		g.Go(func() error {
			fctx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			log.Infow("running", "producer", p.Name())
			b, err := p.Fetch(fctx, hint)
			o := Outcome{Producer: p.Name(), Board: p.Board(), Batch: b, Err: err, Took: time.Since(start)}
			if err != nil {
				log.Warnw("producer failed", "producer", p.Name(), "err", err, "took", o.Took)
				o.Batch.Candidates = nil
				o.Batch.Finalize = nil
			} else {
				log.Infow("producer done", "producer", p.Name(), "candidates", len(b.Candidates), "took", o.Took)
			}
			out[i] = o
			return nil
		})
	}
	_ = g.Wait()
	return out
}
