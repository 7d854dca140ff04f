// Package ingest runs one guarded ingestion: producers, date
// normalization, merge, persist, journal, marker.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobreview-engine/internal/dates"
	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/events"
	"jobreview-engine/internal/guard"
	"jobreview-engine/internal/journal"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/merge"
	"jobreview-engine/internal/persist"
	"jobreview-engine/internal/scrape"
	"jobreview-engine/internal/scrape/types"
)

var (
	ErrAlreadyRunning    = errors.New("an ingestion run is already in progress")
	ErrAllSourcesFailed  = errors.New("every source failed")
	defaultProducerLimit = 10 * time.Minute
)

// Result summarises one call to Run.
type Result struct {
	RunID      string                 `json:"runId,omitempty"`
	Skipped    bool                   `json:"skipped"`
	Forced     bool                   `json:"forced"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
	Stats      merge.Stats            `json:"stats"`
	Sources    []journal.SourceResult `json:"sources,omitempty"`
	Marker     *guard.Marker          `json:"marker,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Status is what the API reports about ingestion.
type Status struct {
	Running      bool          `json:"running"`
	ShouldRun    bool          `json:"shouldRunToday"`
	Marker       *guard.Marker `json:"marker,omitempty"`
	Last         *Result       `json:"last,omitempty"`
	ProducerList []string      `json:"producers"`
}

type Pipeline struct {
	Producers []types.Producer
	Dataset   Dataset
	Guard     guard.Store
	// Journal is optional.
	Journal *journal.Journal
	Engine  merge.Engine
	// LockPath, when set, serializes runs across processes.
	LockPath        string
	ProducerTimeout time.Duration
	Now             func() time.Time
	Log             *zap.SugaredLogger
	Notify          func(typ string, data any)

	mu      sync.Mutex
	running bool
	last    *Result
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) log() *zap.SugaredLogger { return logger.Or(p.Log, "ingest") }

func (p *Pipeline) notify(typ string, data any) {
	if p.Notify != nil {
		p.Notify(typ, data)
	}
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	st := Status{Running: p.running, Last: p.last}
	p.mu.Unlock()

	st.Marker = p.Guard.Read()
	st.ShouldRun = guard.ShouldRunToday(st.Marker, p.now())
	for _, pr := range p.Producers {
		st.ProducerList = append(st.ProducerList, pr.Name())
	}
	return st
}

func (p *Pipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	return true
}

func (p *Pipeline) end(res *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	if res != nil && (res.RunID != "" || res.Skipped) {
		p.last = res
	}
}

// Run performs one ingestion. Unless force is set it is a no-op when the
// marker already holds today's UTC date. The marker is only advanced after
// the merged dataset has been persisted.
func (p *Pipeline) Run(ctx context.Context, force bool) (res Result, err error) {
	if !p.begin() {
		return Result{}, ErrAlreadyRunning
	}
	defer func() { p.end(&res) }()

	if p.LockPath != "" {
		lk, err := persist.AcquireLock(ctx, p.LockPath, 100*time.Millisecond)
		if err != nil {
			if errors.Is(err, persist.ErrLocked) {
				return Result{}, errors.Mark(err, ErrAlreadyRunning)
			}
			return Result{}, err
		}
		defer lk.Unlock()
	}

	log := p.log()
	now := p.now()
	res = Result{Forced: force, StartedAt: now}

	marker := p.Guard.Read()
	if !force && !guard.ShouldRunToday(marker, now) {
		res.Skipped, res.Marker, res.FinishedAt = true, marker, now
		log.Infow("already ran today", "last_date", marker.LastDate)
		p.notify(events.TypeIngestSkipped, res)
		return res, nil
	}

	res.RunID = uuid.NewString()
	log = log.With("run", res.RunID)
	if p.Journal != nil {
		if jerr := p.Journal.StartRun(ctx, res.RunID, now, force); jerr != nil {
			log.Warnw("journal start failed", "err", jerr)
		}
	}
	p.notify(events.TypeIngestStarted, map[string]any{"runId": res.RunID, "forced": force})

	defer func() {
		res.FinishedAt = p.now()
		if err != nil {
			res.Error = err.Error()
			log.Errorw("run failed", "err", err)
			p.notify(events.TypeIngestFailed, res)
		}
		p.finishJournal(ctx, res, err)
	}()

	snap, err := p.Dataset.Snapshot(ctx)
	if err != nil {
		return res, errors.Wrap(err, "snapshot dataset")
	}
	cutoff, _ := guard.Cutoff(marker)
	hint := BuildHint(snap, cutoff)

	timeout := p.ProducerTimeout
	if timeout <= 0 {
		timeout = defaultProducerLimit
	}
	outcomes := scrape.FetchAll(ctx, p.Producers, hint, timeout, log)

	candidates, failed := p.collect(outcomes, &res)
	if len(p.Producers) > 0 && failed == len(p.Producers) {
		return res, ErrAllSourcesFailed
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var stats merge.Stats
	err = p.Dataset.Commit(ctx, func(t *domain.Table) (*domain.Table, error) {
		merged, s := p.Engine.Merge(t, candidates, now)
		stats = s
		if s.Added == 0 {
			return nil, nil
		}
		return merged, nil
	})
	if err != nil {
		return res, errors.Wrap(err, "commit merged dataset")
	}
	res.Stats = stats
	log.Infow("merged",
		"candidates", stats.Candidates, "added", stats.Added,
		"skipped_url", stats.SkippedURL, "skipped_title_company", stats.SkippedTitleCompany,
		"batch_duplicates", stats.BatchDuplicates, "malformed", stats.Malformed,
		"auto_rejected", stats.AutoRejected, "ambiguous", len(stats.Ambiguous))

	p.finalize(ctx, outcomes, log)

	m, err := p.Guard.RecordRun(now)
	if err != nil {
		return res, errors.Wrap(err, "record ingestion marker")
	}
	res.Marker = &m
	p.notify(events.TypeIngestFinished, res)
	return res, nil
}

// collect date-normalizes every candidate against its batch's scrape time
// and tags the board. It returns the candidates in producer order and the
// number of failed producers.
func (p *Pipeline) collect(outcomes []scrape.Outcome, res *Result) ([]domain.Record, int) {
	var all []domain.Record
	failed := 0
	for _, o := range outcomes {
		sr := journal.SourceResult{Producer: o.Producer, Board: string(o.Board), Candidates: len(o.Batch.Candidates)}
		if o.Err != nil {
			sr.Error = o.Err.Error()
			failed++
		}
		res.Sources = append(res.Sources, sr)

		board := o.Batch.Board
		if board == "" {
			board = o.Board
		}
		ref := o.Batch.ScrapedAt
		if ref.IsZero() {
			ref = res.StartedAt
		}
		norm := dates.New(ref)
		for _, c := range o.Batch.Candidates {
			c = c.Clone()
			if c.Get(domain.ColJobBoard) == "" {
				c.Set(domain.ColJobBoard, string(board))
			}
			if raw := c.Get(domain.ColTimePosted); raw != "" {
				c.Set(domain.ColTimePosted, norm.Normalize(raw, board))
			}
			all = append(all, c)
		}
	}
	return all, failed
}

func (p *Pipeline) finalize(ctx context.Context, outcomes []scrape.Outcome, log *zap.SugaredLogger) {
	for _, o := range outcomes {
		if o.Batch.Finalize == nil {
			continue
		}
		if err := o.Batch.Finalize(ctx); err != nil {
			log.Warnw("finalize failed", "producer", o.Producer, "err", err)
		}
	}
}

func (p *Pipeline) finishJournal(ctx context.Context, res Result, runErr error) {
	if p.Journal == nil || res.RunID == "" {
		return
	}
	// a cancelled run still gets its row closed
	ctx = context.WithoutCancel(ctx)
	log := p.log().With("run", res.RunID)

	for _, a := range res.Stats.Ambiguous {
		if err := p.Journal.RecordAmbiguity(ctx, journal.Ambiguity{
			RunID:       res.RunID,
			FallbackKey: a.FallbackKey,
			Title:       a.Title,
			Company:     a.Company,
			Rows:        a.Rows,
			SeenAt:      res.StartedAt,
		}); err != nil {
			log.Warnw("journal ambiguity failed", "err", err)
		}
	}

	run := journal.Run{
		ID:                  res.RunID,
		StartedAt:           res.StartedAt,
		FinishedAt:          res.FinishedAt,
		Status:              journal.StatusOK,
		Forced:              res.Forced,
		Candidates:          res.Stats.Candidates,
		Added:               res.Stats.Added,
		SkippedURL:          res.Stats.SkippedURL,
		SkippedTitleCompany: res.Stats.SkippedTitleCompany,
		BatchDuplicates:     res.Stats.BatchDuplicates,
		Malformed:           res.Stats.Malformed,
		AutoRejected:        res.Stats.AutoRejected,
		Sources:             res.Sources,
	}
	if runErr != nil {
		run.Status = journal.StatusFailed
		run.Error = runErr.Error()
	}
	if err := p.Journal.FinishRun(ctx, run); err != nil {
		log.Warnw("journal finish failed", "err", err)
	}
}
