// Package review owns the in-memory job table during an interactive review
// session: filters, navigation, edits, explicit saves and reloads.
package review

import (
	"strings"

	"jobreview-engine/internal/domain"
)

type Filter string

const (
	FilterPending     Filter = "pending"
	FilterMissingDesc Filter = "missing_desc"
	FilterReject      Filter = "reject"
	FilterToApply     Filter = "to_apply"
	FilterApplied     Filter = "applied"
	FilterAll         Filter = "all"
)

// AllFilters is the order filters are offered in.
var AllFilters = []Filter{
	FilterPending, FilterMissingDesc, FilterReject, FilterToApply, FilterApplied, FilterAll,
}

func ParseFilter(s string) (Filter, bool) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllFilters {
		if f == known {
			return f, true
		}
	}
	return "", false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Match reports whether r belongs to f. Rows decided as delete only show up
// under FilterAll.
func (f Filter) Match(r domain.Record) bool {
	if f == FilterAll {
		return true
	}
	d := r.Decision()
	if d == domain.DecisionDelete {
		return false
	}
	switch f {
	case FilterPending:
		return blank(r.Get(domain.ColDecision))
	case FilterMissingDesc:
		return blank(r.Description())
	case FilterReject:
		return d == domain.DecisionReject
	case FilterToApply:
		return d == domain.DecisionApply && blank(r.AppliedDate())
	case FilterApplied:
		return !blank(r.AppliedDate())
	}
	return false
}
