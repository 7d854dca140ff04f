package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowsOf(decisions ...string) []Row {
	out := make([]Row, len(decisions))
	for i, d := range decisions {
		out[i] = Row{ID: RowID(i + 1), Record: rec("decision", d)}
	}
	return out
}

func TestNavigate(t *testing.T) {
	rows := rowsOf("", "apply", "", "delete", "")

	assert.Equal(t, RowID(1), Navigate(rows, NoRow, FilterPending, Next))
	assert.Equal(t, RowID(3), Navigate(rows, 1, FilterPending, Next))
	assert.Equal(t, RowID(5), Navigate(rows, 3, FilterPending, Next))
	assert.Equal(t, NoRow, Navigate(rows, 5, FilterPending, Next))
	assert.Equal(t, RowID(3), Navigate(rows, 5, FilterPending, Prev))
	assert.Equal(t, NoRow, Navigate(rows, 1, FilterPending, Prev))
	// current row not in the match set
	assert.Equal(t, RowID(1), Navigate(rows, 2, FilterPending, Next))
	assert.Equal(t, RowID(1), Navigate(rows, 99, FilterPending, Prev))
	assert.Equal(t, NoRow, Navigate(rows, 1, FilterReject, Next))
	assert.Equal(t, RowID(4), Navigate(rows, 3, FilterAll, Next))
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Prev, ParseDirection("prev"))
	assert.Equal(t, Next, ParseDirection("next"))
	assert.Equal(t, Next, ParseDirection(""))
}
