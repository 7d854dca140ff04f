package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobreview-engine/internal/domain"
)

var ref = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	n := New(ref)
	tests := []struct {
		raw   string
		board domain.Board
		want  string
	}{
		{"2024-05-01", domain.BoardJobindex, "2024-05-01"},
		{"2024-05-01T23:30:00+02:00", domain.BoardJobnet, "2024-05-01"},
		{"2024-05-01T23:30:00-02:00", domain.BoardJobnet, "2024-05-02"},
		{"2024-05-02T00:30:00+02:00", domain.BoardJobindex, "2024-05-01"},
		{"2024-05-01T08:00:00", domain.BoardJobnet, "2024-05-01"},
		{"2024-05-01T08:00:00.1234567", domain.BoardJobnet, "2024-05-01"},
		{"2024-05-01 08:00:00", "", "2024-05-01"},
		{"01-05-2024", domain.BoardJobindex, "2024-05-01"},
		{"1.5.2024", domain.BoardJobindex, "2024-05-01"},
		{"01/05/2024", domain.BoardJobnet, "2024-05-01"},
		{"05/01/2024", domain.BoardLinkedIn, "2024-05-01"},
		{"1. maj 2024", domain.BoardJobindex, "2024-05-01"},
		{"1 May 2024", domain.BoardEmail, "2024-05-01"},
		{"May 1, 2024", domain.BoardLinkedIn, "2024-05-01"},
		{"today", domain.BoardLinkedIn, "2024-05-10"},
		{"Just now", domain.BoardLinkedIn, "2024-05-10"},
		{"yesterday", domain.BoardLinkedIn, "2024-05-09"},
		{"3 days ago", domain.BoardLinkedIn, "2024-05-07"},
		{"Reposted 3 days ago", domain.BoardLinkedIn, "2024-05-07"},
		{"an hour ago", domain.BoardLinkedIn, "2024-05-10"},
		{"10 hours ago", domain.BoardLinkedIn, "2024-05-09"},
		{"2 weeks ago", domain.BoardLinkedIn, "2024-04-26"},
		{"1 month ago", domain.BoardLinkedIn, "2024-04-10"},
		{"i dag", domain.BoardJobnet, "2024-05-10"},
		{"i går", domain.BoardJobnet, "2024-05-09"},
		{"for 4 dage siden", domain.BoardJobindex, "2024-05-06"},
		{"for en uge siden", domain.BoardJobindex, "2024-05-03"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.raw, tt.board))
		})
	}
}

func TestNormalizePassthrough(t *testing.T) {
	n := New(ref)
	for _, raw := range []string{"", "  ", "soon", "31-02-2024", "Ansøgningsfrist snarest", "3 fortnights ago"} {
		assert.Equal(t, raw, n.Normalize(raw, domain.BoardJobindex))
	}
}

func TestNormalizeUsesBatchReference(t *testing.T) {
	a := New(ref).Normalize("2 days ago", domain.BoardLinkedIn)
	b := New(ref).Normalize("2 days ago", domain.BoardLinkedIn)
	assert.Equal(t, a, b)
	assert.Equal(t, "2024-05-08", a)
}

func TestParseInstant(t *testing.T) {
	got, ok := ParseInstant("2024-05-02T10:00:00+02:00")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)))

	got, ok = ParseInstant(" 2024-05-02 ")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseInstant("3 days ago")
	assert.False(t, ok)
}
