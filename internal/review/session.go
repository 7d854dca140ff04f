package review

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/persist"
)

var (
	ErrNotFound        = errors.New("row not found")
	ErrInvalidDecision = errors.New("invalid decision")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Event types passed to Options.Notify.
const (
	EventRowUpdated = "row.updated"
	EventRowDeleted = "row.deleted"
	EventSaved      = "dataset.saved"
	EventReloaded   = "dataset.reloaded"
	EventIngested   = "dataset.ingested"
)

type Options struct {
	Store *persist.Canonical
	Now   func() time.Time
	Log   *zap.SugaredLogger
	// Notify, when set, is called after state changes. It must not call
	// back into the session.
	Notify func(typ string, data any)
}

// Session owns the job table while a reviewer works on it. Edits stay in
// memory until Save; Close flushes them only when there are any.
type Session struct {
	mu     sync.Mutex
	store  *persist.Canonical
	now    func() time.Time
	log    *zap.SugaredLogger
	notify func(string, any)

	cols   []string
	rows   []Row
	nextID RowID
	dirty  bool

	lastWrite os.FileInfo
}

// Open loads the canonical file. A missing file starts an empty session.
func Open(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("review: nil store")
	}
	s := &Session{
		store:  opts.Store,
		now:    opts.Now,
		log:    logger.Or(opts.Log, "review"),
		notify: opts.Notify,
		nextID: 1,
	}
	if s.now == nil {
		s.now = time.Now
	}
	t, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	s.install(t)
	s.rememberWrite()
	s.log.Infow("session opened", "path", s.store.Path, "rows", len(s.rows))
	return s, nil
}

// install replaces the in-memory table. IDs keep counting up.
func (s *Session) install(t *domain.Table) {
	s.cols = append([]string(nil), t.Columns...)
	s.rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		s.rows = append(s.rows, Row{ID: s.nextID, Record: r})
		s.nextID++
	}
	s.dirty = false
}

func (s *Session) table() *domain.Table {
	t := domain.NewTable(s.cols)
	t.Rows = make([]domain.Record, len(s.rows))
	for i := range s.rows {
		t.Rows[i] = s.rows[i].Record
	}
	return t
}

func (s *Session) index(id RowID) int {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Session) emit(typ string, data any) {
	if s.notify != nil {
		s.notify(typ, data)
	}
}

func (s *Session) Path() string { return s.store.Path }

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Session) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cols...)
}

func (s *Session) Filters() []Filter {
	return append([]Filter(nil), AllFilters...)
}

type Stats struct {
	Total              int            `json:"total"`
	Apply              int            `json:"apply"`
	Reject             int            `json:"reject"`
	Delete             int            `json:"delete"`
	Pending            int            `json:"pending"`
	MissingDescription int            `json:"missing_description"`
	PerFilter          map[Filter]int `json:"per_filter"`
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.rows), PerFilter: make(map[Filter]int, len(AllFilters))}
	for _, r := range s.rows {
		switch r.Record.Decision() {
		case domain.DecisionApply:
			st.Apply++
		case domain.DecisionReject:
			st.Reject++
		case domain.DecisionDelete:
			st.Delete++
		}
		if blank(r.Record.Get(domain.ColDecision)) {
			st.Pending++
		}
		if blank(r.Record.Description()) {
			st.MissingDescription++
		}
		for _, f := range AllFilters {
			if f.Match(r.Record) {
				st.PerFilter[f]++
			}
		}
	}
	return st
}

// Row returns a copy of the row.
func (s *Session) Row(id RowID) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return Row{}, errors.Wrapf(ErrNotFound, "row %d", id)
	}
	return Row{ID: id, Record: s.rows[i].Record.Clone()}, nil
}

// UpdateRow applies field edits. Keys must be existing columns; blank
// values clear the field. A decision edit is validated like SetDecision.
// last_updated is bumped only when something changed; its value is
// returned.
func (s *Session) UpdateRow(id RowID, updates map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return "", errors.Wrapf(ErrNotFound, "row %d", id)
	}

	cols := make(map[string]bool, len(s.cols))
	for _, c := range s.cols {
		cols[c] = true
	}
	clean := make(map[string]string, len(updates))
	for k, v := range updates {
		if !cols[k] || k == domain.ColLastUpdated {
			return "", errors.Wrapf(ErrUnknownColumn, "%q", k)
		}
		if blank(v) {
			v = ""
		}
		if k == domain.ColDecision {
			d, ok := domain.ParseDecision(v)
			if !ok {
				return "", errors.Wrapf(ErrInvalidDecision, "%q", v)
			}
			v = string(d)
		}
		clean[k] = v
	}

	rec := s.rows[i].Record.Clone()
	changed := false
	for k, v := range clean {
		if rec.Get(k) != v {
			rec.Set(k, v)
			changed = true
		}
	}
	if changed {
		rec.Set(domain.ColLastUpdated, s.stamp())
		s.rows[i].Record = rec
		s.dirty = true
		s.emit(EventRowUpdated, map[string]any{"id": id})
	}
	return s.rows[i].Record.Get(domain.ColLastUpdated), nil
}

// SetDecision sets the decision (blank clears it). reason is applied only
// when non-nil.
func (s *Session) SetDecision(id RowID, decision string, reason *string) (string, error) {
	d, ok := domain.ParseDecision(decision)
	if !ok {
		return "", errors.Wrapf(ErrInvalidDecision, "%q", decision)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return "", errors.Wrapf(ErrNotFound, "row %d", id)
	}
	rec := s.rows[i].Record.Clone()
	rec.Set(domain.ColDecision, string(d))
	if reason != nil {
		r := *reason
		if blank(r) {
			r = ""
		}
		rec.Set(domain.ColDecisionReason, r)
	}
	ts := s.stamp()
	rec.Set(domain.ColLastUpdated, ts)
	s.rows[i].Record = rec
	s.dirty = true
	s.emit(EventRowUpdated, map[string]any{"id": id, "decision": string(d)})
	return ts, nil
}

type NavResult struct {
	ID       RowID  `json:"id"`
	Filter   Filter `json:"filter"`
	FellBack bool   `json:"fell_back"`
}

// Navigate moves from cur within filter. If filter matches nothing at all,
// prev (the previously active filter) answers instead and FellBack is set.
func (s *Session) Navigate(cur RowID, filter, prev Filter, dir Direction) NavResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !HasMatch(s.rows, filter) && prev != "" && prev != filter && HasMatch(s.rows, prev) {
		return NavResult{ID: Navigate(s.rows, cur, prev, dir), Filter: prev, FellBack: true}
	}
	return NavResult{ID: Navigate(s.rows, cur, filter, dir), Filter: filter}
}

// List returns copies of the rows matching filter. A sortCol of "row_id" or
// any column sorts the copy (stable, blanks last); otherwise insertion
// order is kept.
func (s *Session) List(filter Filter, sortCol, sortDir string) []Row {
	s.mu.Lock()
	out := make([]Row, 0)
	hasCol := false
	for _, c := range s.cols {
		if c == sortCol {
			hasCol = true
		}
	}
	for _, r := range s.rows {
		if filter.Match(r.Record) {
			out = append(out, Row{ID: r.ID, Record: r.Record.Clone()})
		}
	}
	s.mu.Unlock()

	desc := strings.EqualFold(sortDir, "desc")
	switch {
	case sortCol == "row_id":
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].ID > out[j].ID
			}
			return out[i].ID < out[j].ID
		})
	case sortCol != "" && hasCol:
		sort.SliceStable(out, func(i, j int) bool {
			return lessValue(out[i].Record.Get(sortCol), out[j].Record.Get(sortCol), desc)
		})
	}
	return out
}

func lessValue(a, b string, desc bool) bool {
	ab, bb := blank(a), blank(b)
	if ab || bb {
		return !ab && bb
	}
	if fa, err := strconv.ParseFloat(strings.TrimSpace(a), 64); err == nil {
		if fb, err := strconv.ParseFloat(strings.TrimSpace(b), 64); err == nil {
			if desc {
				return fa > fb
			}
			return fa < fb
		}
	}
	if desc {
		return a > b
	}
	return a < b
}

// DeleteRow removes the row permanently (unlike decision=delete).
func (s *Session) DeleteRow(id RowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Session) deleteLocked(id RowID) error {
	i := s.index(id)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "row %d", id)
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	s.dirty = true
	s.emit(EventRowDeleted, map[string]any{"id": id})
	return nil
}

// DeleteAndAdvance deletes id and returns the row to show next within
// filter: the following match, else the preceding one, else NoRow.
func (s *Session) DeleteAndAdvance(id RowID, filter Filter) (RowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := NoRow
	if i := s.index(id); i >= 0 && filter.Match(s.rows[i].Record) {
		next = Navigate(s.rows, id, filter, Next)
		if next == NoRow {
			next = Navigate(s.rows, id, filter, Prev)
		}
	}
	if err := s.deleteLocked(id); err != nil {
		return NoRow, err
	}
	if next == NoRow {
		next = first(s.rows, filter)
	}
	return next, nil
}

// Save writes the table. On failure the file and the in-memory state are
// unchanged and the session stays dirty.
func (s *Session) Save(ctx context.Context) (persist.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) (persist.SaveResult, error) {
	t := s.table()
	res, err := s.store.Save(ctx, t)
	if err != nil {
		return res, errors.Wrap(err, "save session")
	}
	s.cols = t.Columns
	s.dirty = false
	s.rememberWrite()
	s.emit(EventSaved, map[string]any{"rows": res.Rows})
	return res, nil
}

func (s *Session) rememberWrite() {
	if fi, err := os.Stat(s.store.Path); err == nil {
		s.lastWrite = fi
	}
}

// Close flushes pending edits. It does not touch the file when there are
// none.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	_, err := s.saveLocked(ctx)
	return err
}

// Snapshot returns a copy of the current table.
func (s *Session) Snapshot(context.Context) (*domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table().Clone(), nil
}

// Commit lets an in-process ingestion append to the live table and persist
// it. fn receives a copy and may only append rows. If the save fails the
// appended rows are dropped again.
func (s *Session) Commit(ctx context.Context, fn func(*domain.Table) (*domain.Table, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.table()
	next, err := fn(cur.Clone())
	if err != nil || next == nil {
		return err
	}
	if len(next.Rows) < len(s.rows) {
		return errors.Newf("commit dropped rows: %d -> %d", len(s.rows), len(next.Rows))
	}

	prevCols, prevLen, prevDirty := s.cols, len(s.rows), s.dirty
	s.cols = append([]string(nil), next.Columns...)
	for _, r := range next.Rows[prevLen:] {
		s.rows = append(s.rows, Row{ID: s.nextID, Record: r})
		s.nextID++
	}
	added := len(s.rows) - prevLen
	if added == 0 && len(s.cols) == len(prevCols) {
		return nil
	}
	if _, err := s.saveLocked(ctx); err != nil {
		// ids handed out to the dropped rows stay burnt
		s.cols, s.rows, s.dirty = prevCols, s.rows[:prevLen], prevDirty
		return err
	}
	s.emit(EventIngested, map[string]any{"added": added})
	return nil
}

// Reload replaces the table with the file's content. It refuses when there
// are unsaved edits.
func (s *Session) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		return false, nil
	}
	t, err := s.store.Load()
	if err != nil {
		return false, err
	}
	s.install(t)
	s.rememberWrite()
	s.emit(EventReloaded, map[string]any{"rows": len(s.rows)})
	return true, nil
}

// ownWrite reports whether the file on disk is the one this session wrote
// last.
func (s *Session) ownWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastWrite == nil {
		return false
	}
	fi, err := os.Stat(s.store.Path)
	if err != nil {
		return false
	}
	return os.SameFile(fi, s.lastWrite) && fi.ModTime().Equal(s.lastWrite.ModTime()) && fi.Size() == s.lastWrite.Size()
}
