package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobreview-engine/internal/domain"
)

func rec(kv ...string) domain.Record {
	m := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return domain.NewRecord(m)
}

func TestFilterPredicates(t *testing.T) {
	pending := rec("decision", "", "description", "x")
	noDesc := rec("decision", "reject", "description", " ")
	toApply := rec("decision", "apply", "description", "x")
	applied := rec("decision", "apply", "applied_date", "2024-05-01", "description", "x")

	tests := []struct {
		f    Filter
		want []bool
	}{
		{FilterPending, []bool{true, false, false, false}},
		{FilterMissingDesc, []bool{false, true, false, false}},
		{FilterReject, []bool{false, true, false, false}},
		{FilterToApply, []bool{false, false, true, false}},
		{FilterApplied, []bool{false, false, false, true}},
		{FilterAll, []bool{true, true, true, true}},
	}
	rows := []domain.Record{pending, noDesc, toApply, applied}
	for _, tt := range tests {
		t.Run(string(tt.f), func(t *testing.T) {
			for i, r := range rows {
				assert.Equal(t, tt.want[i], tt.f.Match(r), "row %d", i)
			}
		})
	}
}

func TestDeletedRowsOnlyInAll(t *testing.T) {
	variants := []domain.Record{
		rec("decision", "delete"),
		rec("decision", "DELETE", "applied_date", "2024-01-01"),
		rec("decision", "delete", "description", ""),
	}
	for _, r := range variants {
		for _, f := range AllFilters {
			if f == FilterAll {
				assert.True(t, f.Match(r))
				continue
			}
			assert.False(t, f.Match(r), "filter %s", f)
		}
	}
}

func TestParseFilter(t *testing.T) {
	f, ok := ParseFilter(" To_Apply ")
	assert.True(t, ok)
	assert.Equal(t, FilterToApply, f)
	_, ok = ParseFilter("later")
	assert.False(t, ok)
}
