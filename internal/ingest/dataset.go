package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/identity"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/persist"
	"jobreview-engine/internal/scrape/types"
)

// Dataset is where merged rows land. Commit hands fn a copy of the current
// table; a nil result means nothing to write.
type Dataset interface {
	Snapshot(ctx context.Context) (*domain.Table, error)
	Commit(ctx context.Context, fn func(*domain.Table) (*domain.Table, error)) error
}

// FileDataset commits straight to the canonical file, re-reading it under
// the dataset lock. Used when no review session is running in-process.
type FileDataset struct {
	Store *persist.Canonical
	Log   *zap.SugaredLogger
}

func (d FileDataset) Snapshot(context.Context) (*domain.Table, error) {
	return d.Store.Load()
}

func (d FileDataset) Commit(ctx context.Context, fn func(*domain.Table) (*domain.Table, error)) error {
	res, err := d.Store.Update(ctx, fn)
	if err != nil {
		return err
	}
	if res.BackupErr != nil {
		logger.Or(d.Log, "ingest").Warnw("saved without prev_save backup", "err", res.BackupErr)
	}
	return nil
}

// BuildHint indexes t for producer early termination.
func BuildHint(t *domain.Table, cutoff time.Time) types.Hint {
	h := types.Hint{
		URLKeys:      map[string]bool{},
		FallbackKeys: map[string]bool{},
		LinkedInIDs:  map[string]bool{},
		Cutoff:       cutoff,
	}
	if t == nil {
		return h
	}
	for _, r := range t.Rows {
		k := identity.Resolve(r)
		if k.Primary != "" {
			h.URLKeys[k.Primary] = true
		}
		if k.Fallback != "" {
			h.FallbackKeys[k.Fallback] = true
		}
		if id := identity.LinkedInJobID(r.URL()); id != "" {
			h.LinkedInIDs[id] = true
		}
	}
	return h
}
