package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/guard"
	"jobreview-engine/internal/journal"
	"jobreview-engine/internal/merge"
	"jobreview-engine/internal/persist"
	"jobreview-engine/internal/scrape/types"
	"jobreview-engine/internal/triage"
)

var now = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type stubProducer struct {
	name      string
	board     domain.Board
	rows      []map[string]string
	err       error
	block     chan struct{}
	started   chan struct{}
	calls     atomic.Int32
	finalized atomic.Int32
	lastHint  types.Hint
}

func (s *stubProducer) Name() string        { return s.name }
func (s *stubProducer) Board() domain.Board { return s.board }

func (s *stubProducer) Fetch(ctx context.Context, hint types.Hint) (types.Batch, error) {
	s.calls.Add(1)
	s.lastHint = hint
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return types.Batch{}, s.err
	}
	b := types.Batch{Producer: s.name, Board: s.board}
	for _, r := range s.rows {
		b.Candidates = append(b.Candidates, domain.NewRecord(r))
	}
	b.Finalize = func(context.Context) error {
		s.finalized.Add(1)
		return nil
	}
	return b, nil
}

type fixture struct {
	dir     string
	store   *persist.Canonical
	journal *journal.Journal
	p       *Pipeline
}

func newFixture(t *testing.T, producers ...types.Producer) *fixture {
	t.Helper()
	dir := t.TempDir()
	j, err := journal.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	store := &persist.Canonical{
		Path:        filepath.Join(dir, "jobs.csv"),
		Backups:     &persist.Rotator{Dir: filepath.Join(dir, "backups"), Now: func() time.Time { return now }},
		LockTimeout: time.Second,
	}
	p := &Pipeline{
		Producers:       producers,
		Dataset:         FileDataset{Store: store},
		Guard:           guard.Store{Path: filepath.Join(dir, ".last_scrape.json")},
		Journal:         j,
		Engine:          merge.Engine{Rules: triage.Rules{Keywords: []string{"senior"}}},
		LockPath:        filepath.Join(dir, "ingest"),
		ProducerTimeout: time.Second,
		Now:             func() time.Time { return now },
	}
	return &fixture{dir: dir, store: store, journal: j, p: p}
}

func linkedinStub() *stubProducer {
	return &stubProducer{name: "linkedin", board: domain.BoardLinkedIn, rows: []map[string]string{
		{"title": "Go Developer", "company": "Acme", "url": "https://www.linkedin.com/jobs/view/111", "time_posted": "2 days ago"},
		{"title": "Senior Engineer", "company": "Beta", "url": "https://www.linkedin.com/jobs/view/222"},
	}}
}

func TestRunMergesPersistsAndMarks(t *testing.T) {
	li := linkedinStub()
	broken := &stubProducer{name: "jobnet", board: domain.BoardJobnet, err: errors.New("503")}
	f := newFixture(t, li, broken)

	res, err := f.p.Run(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Stats.Added)
	assert.Equal(t, 1, res.Stats.AutoRejected)
	require.NotNil(t, res.Marker)
	assert.Equal(t, "2024-05-10", res.Marker.LastDate)
	assert.Equal(t, int32(1), li.finalized.Load())

	tbl, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "2024-05-08", tbl.Rows[0].Get(domain.ColTimePosted))
	assert.Equal(t, "linkedin", tbl.Rows[0].Get(domain.ColJobBoard))
	assert.Equal(t, domain.DecisionReject, tbl.Rows[1].Decision())

	runs, err := f.journal.LastRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.StatusOK, runs[0].Status)
	assert.Equal(t, 2, runs[0].Added)
	require.Len(t, runs[0].Sources, 2)
	assert.Equal(t, "503", runs[0].Sources[1].Error)

	st := f.p.Status()
	assert.False(t, st.Running)
	assert.False(t, st.ShouldRun)
	assert.Equal(t, []string{"linkedin", "jobnet"}, st.ProducerList)
	require.NotNil(t, st.Last)
	assert.Equal(t, res.RunID, st.Last.RunID)
}

func TestRunIsGuardedPerDay(t *testing.T) {
	li := linkedinStub()
	f := newFixture(t, li)

	_, err := f.p.Run(context.Background(), false)
	require.NoError(t, err)
	before, err := os.ReadFile(f.store.Path)
	require.NoError(t, err)

	res, err := f.p.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int32(1), li.calls.Load())

	// forced rerun fetches again but adds nothing and leaves the file alone
	res, err = f.p.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), li.calls.Load())
	assert.Equal(t, 0, res.Stats.Added)
	assert.Equal(t, 2, res.Stats.SkippedURL)
	assert.True(t, li.lastHint.LinkedInIDs["111"])
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), li.lastHint.Cutoff)

	after, err := os.ReadFile(f.store.Path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunAllSourcesFailed(t *testing.T) {
	broken := &stubProducer{name: "jobnet", board: domain.BoardJobnet, err: errors.New("down")}
	f := newFixture(t, broken)

	_, err := f.p.Run(context.Background(), false)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.Nil(t, f.p.Guard.Read())

	runs, err := f.journal.LastRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.StatusFailed, runs[0].Status)
}

type failingDataset struct{}

func (failingDataset) Snapshot(context.Context) (*domain.Table, error) {
	return domain.NewTable(domain.DefaultColumns), nil
}

func (failingDataset) Commit(context.Context, func(*domain.Table) (*domain.Table, error)) error {
	return errors.New("disk full")
}

func TestRunCommitFailureLeavesMarker(t *testing.T) {
	li := linkedinStub()
	f := newFixture(t, li)
	f.p.Dataset = failingDataset{}

	_, err := f.p.Run(context.Background(), false)
	require.Error(t, err)
	assert.Nil(t, f.p.Guard.Read())
	assert.Equal(t, int32(0), li.finalized.Load())
	assert.True(t, f.p.Status().ShouldRun)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	li := linkedinStub()
	li.block = make(chan struct{})
	li.started = make(chan struct{})
	f := newFixture(t, li)

	done := make(chan error, 1)
	go func() {
		_, err := f.p.Run(context.Background(), false)
		done <- err
	}()
	<-li.started

	assert.True(t, f.p.Status().Running)
	_, err := f.p.Run(context.Background(), true)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(li.block)
	require.NoError(t, <-done)
}

func TestRunWithoutProducersStillMarks(t *testing.T) {
	f := newFixture(t)
	res, err := f.p.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Candidates)
	assert.NotNil(t, f.p.Guard.Read())
}

func TestBuildHint(t *testing.T) {
	tbl := domain.NewTable(domain.DefaultColumns)
	tbl.Rows = append(tbl.Rows,
		domain.NewRecord(map[string]string{"title": "Dev", "company": "A", "url": "https://www.linkedin.com/jobs/view/42/?trk=x"}),
		domain.NewRecord(map[string]string{"title": "Ops", "company": "B"}),
	)
	h := BuildHint(tbl, time.Time{})
	assert.True(t, h.LinkedInIDs["42"])
	assert.True(t, h.URLKeys["linkedin.com/jobs/view/42"])
	assert.True(t, h.Known("", "ops", "b"))
	assert.False(t, h.Known("https://example.com/x", "Other", "C"))
	assert.Len(t, BuildHint(nil, time.Time{}).URLKeys, 0)
}
