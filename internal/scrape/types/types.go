package types

import (
	"context"
	"time"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/identity"
)

// Batch is one producer's complete output for one run. Every candidate
// shares ScrapedAt as the reference time for relative dates.
type Batch struct {
	Producer   string
	Board      domain.Board
	ScrapedAt  time.Time
	Candidates []domain.Record
	// Finalize, when set, runs only after the batch has been merged and
	// persisted (e.g. marking alert emails as seen).
	Finalize func(context.Context) error
}

// Hint lets producers stop paginating once they reach postings already in
// the dataset. It is an optimisation only; the merge dedups regardless.
type Hint struct {
	URLKeys      map[string]bool
	FallbackKeys map[string]bool
	LinkedInIDs  map[string]bool
	// Cutoff is the start of the last successful run's day; zero when
	// there was none.
	Cutoff time.Time
}

// Known reports whether a posting with this url/title/company is already
// stored.
func (h Hint) Known(url, title, company string) bool {
	if k := identity.NormalizeURL(url); k != "" && h.URLKeys[k] {
		return true
	}
	if k := identity.FallbackKey(title, company); k != "" && h.FallbackKeys[k] {
		return true
	}
	return false
}

// OlderThanCutoff reports whether posted predates the cutoff.
func (h Hint) OlderThanCutoff(posted time.Time) bool {
	return !h.Cutoff.IsZero() && !posted.IsZero() && posted.Before(h.Cutoff)
}

type Producer interface {
	Name() string
	Board() domain.Board
	Fetch(ctx context.Context, hint Hint) (Batch, error)
}
