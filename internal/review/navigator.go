package review

import (
	"strings"

	"jobreview-engine/internal/domain"
)

// RowID identifies a row for the lifetime of a session. IDs start at 1 and
// are never reused; NoRow means "none".
type RowID int64

const NoRow RowID = 0

// Row is a record plus its session id.
type Row struct {
	ID     RowID
	Record domain.Record
}

type Direction int

const (
	Next Direction = 1
	Prev Direction = -1
)

func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prev", "previous", "back", "-1":
		return Prev
	}
	return Next
}

// Navigate steps from cur through rows matching f, in insertion order,
// without building the match set. When cur is not itself a match the first
// match is returned. Stepping past either end returns NoRow.
func Navigate(rows []Row, cur RowID, f Filter, dir Direction) RowID {
	pos := -1
	if cur != NoRow {
		for i := range rows {
			if rows[i].ID == cur {
				pos = i
				break
			}
		}
	}
	if pos < 0 || !f.Match(rows[pos].Record) {
		return first(rows, f)
	}
	step := 1
	if dir == Prev {
		step = -1
	}
	for i := pos + step; i >= 0 && i < len(rows); i += step {
		if f.Match(rows[i].Record) {
			return rows[i].ID
		}
	}
	return NoRow
}

func first(rows []Row, f Filter) RowID {
	for i := range rows {
		if f.Match(rows[i].Record) {
			return rows[i].ID
		}
	}
	return NoRow
}

// HasMatch reports whether any row matches f.
func HasMatch(rows []Row, f Filter) bool {
	return first(rows, f) != NoRow
}
