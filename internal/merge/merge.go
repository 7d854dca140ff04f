// Package merge unions scraped candidates into the job table without ever
// touching rows that already exist.
package merge

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/identity"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/triage"
)

// Ambiguity records an existing fallback key shared by more than one row.
// The first of those rows is treated as canonical.
type Ambiguity struct {
	FallbackKey string `json:"fallbackKey"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Rows        int    `json:"rows"`
}

type Stats struct {
	Candidates          int         `json:"candidates"`
	Added               int         `json:"added"`
	SkippedURL          int         `json:"skippedUrl"`
	SkippedTitleCompany int         `json:"skippedTitleCompany"`
	BatchDuplicates     int         `json:"batchDuplicates"`
	Malformed           int         `json:"malformed"`
	AutoRejected        int         `json:"autoRejected"`
	Ambiguous           []Ambiguity `json:"ambiguous,omitempty"`
}

func (s Stats) Skipped() int {
	return s.SkippedURL + s.SkippedTitleCompany + s.BatchDuplicates
}

// Engine merges batches. The zero value merges without auto-reject rules.
type Engine struct {
	Rules triage.Rules
	Log   *zap.SugaredLogger
}

// Merge is Engine{}.Merge.
func Merge(existing *domain.Table, incoming []domain.Record, ts time.Time) (*domain.Table, Stats) {
	return Engine{}.Merge(existing, incoming, ts)
}

// Merge returns a new table holding every existing row unchanged followed by
// the candidates that match no existing row and no earlier candidate. Added
// rows get an empty decision and last_updated = ts. Columns first seen on
// added rows are appended to the header in sorted order.
func (e Engine) Merge(existing *domain.Table, incoming []domain.Record, ts time.Time) (*domain.Table, Stats) {
	log := logger.Or(e.Log, "merge")
	if existing == nil {
		existing = domain.NewTable(domain.DefaultColumns)
	}
	out := existing.Clone()
	stats := Stats{Candidates: len(incoming)}

	byPrimary := make(map[string]int, len(existing.Rows))
	byFallback := make(map[string]int, len(existing.Rows))
	fallbackCount := make(map[string]int, len(existing.Rows))
	for i, r := range existing.Rows {
		k := identity.Resolve(r)
		if k.Primary != "" {
			if _, ok := byPrimary[k.Primary]; !ok {
				byPrimary[k.Primary] = i
			}
		}
		if k.Fallback != "" {
			if _, ok := byFallback[k.Fallback]; !ok {
				byFallback[k.Fallback] = i
			}
			fallbackCount[k.Fallback]++
		}
	}

	batchPrimary := map[string]bool{}
	batchFallback := map[string]bool{}
	reported := map[string]bool{}
	stamp := ts.UTC().Format(time.RFC3339)
	newCols := map[string]bool{}

	for _, cand := range incoming {
		k := identity.Resolve(cand)
		if k.Fallback == "" {
			stats.Malformed++
			continue
		}
		if k.Primary != "" {
			if _, ok := byPrimary[k.Primary]; ok {
				stats.SkippedURL++
				continue
			}
		}
		if i, ok := byFallback[k.Fallback]; ok {
			stats.SkippedTitleCompany++
			if n := fallbackCount[k.Fallback]; n > 1 && !reported[k.Fallback] {
				reported[k.Fallback] = true
				canon := existing.Rows[i]
				stats.Ambiguous = append(stats.Ambiguous, Ambiguity{
					FallbackKey: k.Fallback,
					Title:       canon.Title(),
					Company:     canon.Company(),
					Rows:        n,
				})
				log.Warnw("fallback key shared by several rows; first row kept as canonical",
					"title", canon.Title(), "company", canon.Company(), "rows", n)
			}
			continue
		}
		if (k.Primary != "" && batchPrimary[k.Primary]) || batchFallback[k.Fallback] {
			stats.BatchDuplicates++
			continue
		}
		if k.Primary != "" {
			batchPrimary[k.Primary] = true
		}
		batchFallback[k.Fallback] = true

		row := cand.Clone()
		row.Set(domain.ColDecision, string(domain.DecisionNone))
		row.Set(domain.ColDecisionReason, "")
		row.Set(domain.ColLastUpdated, stamp)
		if e.Rules.Apply(&row) {
			stats.AutoRejected++
		}
		for _, c := range row.Columns() {
			if !out.HasColumn(c) {
				newCols[c] = true
			}
		}
		out.Rows = append(out.Rows, row)
		stats.Added++
	}

	if len(newCols) > 0 {
		cols := make([]string, 0, len(newCols))
		for c := range newCols {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		out.EnsureColumns(cols...)
	}

	log.Debugw("merged batch",
		"candidates", stats.Candidates,
		"added", stats.Added,
		"skipped_url", stats.SkippedURL,
		"skipped_title_company", stats.SkippedTitleCompany,
		"batch_duplicates", stats.BatchDuplicates,
		"malformed", stats.Malformed,
		"auto_rejected", stats.AutoRejected)
	return out, stats
}
