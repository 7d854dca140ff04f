// Package triage holds the auto-reject rules applied to freshly ingested
// postings.
package triage

import (
	"fmt"
	"strings"

	"jobreview-engine/internal/domain"
)

// Rules rejects postings whose title contains any of Keywords
// (case-insensitive).
type Rules struct {
	Keywords []string
}

// Match returns the first keyword found in title.
func (r Rules) Match(title string) (string, bool) {
	t := strings.ToLower(title)
	for _, kw := range r.Keywords {
		n := strings.ToLower(strings.TrimSpace(kw))
		if n == "" {
			continue
		}
		if strings.Contains(t, n) {
			return strings.TrimSpace(kw), true
		}
	}
	return "", false
}

// Apply marks rec rejected when its title matches and it carries no decision
// yet. It reports whether rec changed.
func (r Rules) Apply(rec *domain.Record) bool {
	if rec.Decision() != domain.DecisionNone {
		return false
	}
	kw, ok := r.Match(rec.Title())
	if !ok {
		return false
	}
	rec.Set(domain.ColDecision, string(domain.DecisionReject))
	rec.Set(domain.ColDecisionReason, Reason(kw))
	return true
}

func Reason(keyword string) string {
	return fmt.Sprintf("Title contains '%s'", keyword)
}
