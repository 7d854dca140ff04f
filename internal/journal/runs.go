package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

type SourceResult struct {
	Producer   string `json:"producer"`
	Board      string `json:"board"`
	Candidates int    `json:"candidates"`
	Error      string `json:"error,omitempty"`
}

type Run struct {
	ID                  string         `json:"id"`
	StartedAt           time.Time      `json:"startedAt"`
	FinishedAt          time.Time      `json:"finishedAt,omitempty"`
	Status              Status         `json:"status"`
	Forced              bool           `json:"forced"`
	Candidates          int            `json:"candidates"`
	Added               int            `json:"added"`
	SkippedURL          int            `json:"skippedURL"`
	SkippedTitleCompany int            `json:"skippedTitleCompany"`
	BatchDuplicates     int            `json:"batchDuplicates"`
	Malformed           int            `json:"malformed"`
	AutoRejected        int            `json:"autoRejected"`
	Error               string         `json:"error,omitempty"`
	Sources             []SourceResult `json:"sources,omitempty"`
}

type Ambiguity struct {
	RunID       string    `json:"runId"`
	FallbackKey string    `json:"fallbackKey"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Rows        int       `json:"rows"`
	SeenAt      time.Time `json:"seenAt"`
}

const tsLayout = time.RFC3339Nano

func formatTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// StartRun inserts a run in the running state.
func (j *Journal) StartRun(ctx context.Context, id string, startedAt time.Time, forced bool) error {
	_, err := j.Pool.ExecContext(ctx, `
INSERT INTO ingest_runs (id, started_at, status, forced)
VALUES (?, ?, ?, ?);
`, id, formatTS(startedAt), string(StatusRunning), boolInt(forced))
	return errors.Wrap(err, "insert run")
}

// FinishRun stores the final counts and per-source results of r.
func (j *Journal) FinishRun(ctx context.Context, r Run) error {
	tx, err := j.Pool.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
UPDATE ingest_runs SET
  finished_at = ?, status = ?, candidates = ?, added = ?, skipped_url = ?,
  skipped_title_company = ?, batch_duplicates = ?, malformed = ?,
  auto_rejected = ?, error = ?
WHERE id = ?;
`, formatTS(r.FinishedAt), string(r.Status), r.Candidates, r.Added, r.SkippedURL,
		r.SkippedTitleCompany, r.BatchDuplicates, r.Malformed, r.AutoRejected, r.Error, r.ID)
	if err != nil {
		return errors.Wrap(err, "update run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Newf("run %s not started", r.ID)
	}

	for _, s := range r.Sources {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO ingest_sources (run_id, producer, board, candidates, error)
VALUES (?, ?, ?, ?, ?);
`, r.ID, s.Producer, s.Board, s.Candidates, s.Error); err != nil {
			return errors.Wrap(err, "insert source")
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (j *Journal) RecordAmbiguity(ctx context.Context, a Ambiguity) error {
	_, err := j.Pool.ExecContext(ctx, `
INSERT INTO dedup_ambiguities (run_id, fallback_key, title, company, row_count, seen_at)
VALUES (?, ?, ?, ?, ?, ?);
`, a.RunID, a.FallbackKey, a.Title, a.Company, a.Rows, formatTS(a.SeenAt))
	return errors.Wrap(err, "insert ambiguity")
}

const runColumns = `id, started_at, finished_at, status, forced, candidates, added, skipped_url,
       skipped_title_company, batch_duplicates, malformed, auto_rejected, error`

func scanRun(sc interface{ Scan(...any) error }) (Run, error) {
	var (
		r                 Run
		started, finished string
		status            string
		forced            int
	)
	if err := sc.Scan(&r.ID, &started, &finished, &status, &forced, &r.Candidates, &r.Added,
		&r.SkippedURL, &r.SkippedTitleCompany, &r.BatchDuplicates, &r.Malformed,
		&r.AutoRejected, &r.Error); err != nil {
		return Run{}, err
	}
	r.StartedAt = parseTS(started)
	r.FinishedAt = parseTS(finished)
	r.Status = Status(status)
	r.Forced = forced != 0
	return r, nil
}

// LastRuns returns up to limit runs, newest first, with their sources.
func (j *Journal) LastRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := j.Pool.QueryContext(ctx, `
SELECT `+runColumns+`
FROM ingest_runs
ORDER BY started_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// single connection: the cursor must be released before the next query
	rows.Close()

	for i := range out {
		src, err := j.sources(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Sources = src
	}
	return out, nil
}

func (j *Journal) sources(ctx context.Context, runID string) ([]SourceResult, error) {
	rows, err := j.Pool.QueryContext(ctx, `
SELECT producer, board, candidates, error
FROM ingest_sources
WHERE run_id = ?
ORDER BY rowid;
`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query sources")
	}
	defer rows.Close()

	var out []SourceResult
	for rows.Next() {
		var s SourceResult
		if err := rows.Scan(&s.Producer, &s.Board, &s.Candidates, &s.Error); err != nil {
			return nil, errors.Wrap(err, "scan source")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Ambiguities returns the most recent ambiguity records, newest first.
func (j *Journal) Ambiguities(ctx context.Context, limit int) ([]Ambiguity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := j.Pool.QueryContext(ctx, `
SELECT run_id, fallback_key, title, company, row_count, seen_at
FROM dedup_ambiguities
ORDER BY seen_at DESC, rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query ambiguities")
	}
	defer rows.Close()

	var out []Ambiguity
	for rows.Next() {
		var (
			a    Ambiguity
			seen string
		)
		if err := rows.Scan(&a.RunID, &a.FallbackKey, &a.Title, &a.Company, &a.Rows, &seen); err != nil {
			return nil, errors.Wrap(err, "scan ambiguity")
		}
		a.SeenAt = parseTS(seen)
		out = append(out, a)
	}
	return out, rows.Err()
}

// LastSuccess returns the newest successful run, or nil.
func (j *Journal) LastSuccess(ctx context.Context) (*Run, error) {
	r, err := scanRun(j.Pool.QueryRowContext(ctx, `
SELECT `+runColumns+`
FROM ingest_runs
WHERE status = ?
ORDER BY started_at DESC, rowid DESC
LIMIT 1;
`, string(StatusOK)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query last success")
	}
	src, err := j.sources(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Sources = src
	return &r, nil
}
