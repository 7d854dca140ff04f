// Package guard keeps the once-per-UTC-day ingestion marker.
package guard

import (
	"encoding/json"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"jobreview-engine/internal/persist"
)

const dateLayout = "2006-01-02"

// Marker is the persisted record of the last successful ingestion.
type Marker struct {
	LastDate  string `json:"last_date"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Valid reports whether LastDate is a real date.
func (m *Marker) Valid() bool {
	if m == nil {
		return false
	}
	_, err := time.Parse(dateLayout, m.LastDate)
	return err == nil
}

// ShouldRunToday compares UTC calendar dates only. A nil or invalid marker
// means no run has been recorded.
func ShouldRunToday(m *Marker, now time.Time) bool {
	if !m.Valid() {
		return true
	}
	return m.LastDate != now.UTC().Format(dateLayout)
}

// Cutoff is the start of the marker's day, used by producers to stop
// paginating into postings older than the last run.
func Cutoff(m *Marker) (time.Time, bool) {
	if !m.Valid() {
		return time.Time{}, false
	}
	t, _ := time.Parse(dateLayout, m.LastDate)
	return t.UTC(), true
}

// Store reads and writes the marker file.
type Store struct {
	Path string
}

// Read returns nil when the marker is absent or unreadable.
func (s Store) Read() *Marker {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil
	}
	var m Marker
	if err := json.Unmarshal(b, &m); err != nil || !m.Valid() {
		return nil
	}
	return &m
}

// RecordRun marks now's UTC date as done. Call only after the run succeeded.
func (s Store) RecordRun(now time.Time) (Marker, error) {
	now = now.UTC()
	m := Marker{
		LastDate:  now.Format(dateLayout),
		Timestamp: now.Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Marker{}, errors.Wrap(err, "encode marker")
	}
	if err := persist.WriteBytesAtomic(s.Path, 0o644, b); err != nil {
		return Marker{}, errors.Wrap(err, "write marker")
	}
	return m, nil
}
