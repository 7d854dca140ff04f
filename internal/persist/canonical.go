package persist

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/logger"
)

// SaveResult describes a successful write of the canonical file. BackupErr
// is set when the prev_save snapshot could not be taken; the save itself
// still happened.
type SaveResult struct {
	Path       string
	Rows       int
	BackupPath string
	BackupErr  error
}

// Canonical is the authoritative jobs file.
type Canonical struct {
	Path        string
	Backups     *Rotator
	LockTimeout time.Duration
	Log         *zap.SugaredLogger
}

// requiredColumns are added on load when an older file lacks them.
var requiredColumns = append([]string{
	domain.ColDescription,
	domain.ColJobBoard,
	domain.ColDecision,
	domain.ColDecisionReason,
	domain.ColLastUpdated,
	domain.ColCoverLetter,
	domain.ColCV,
}, domain.EditableFields...)

// Migrate upgrades a table read from an older file: the retired "later"
// decision becomes delete and missing known columns are added. It reports
// how many rows changed.
func Migrate(t *domain.Table) int {
	t.EnsureColumns(requiredColumns...)
	n := 0
	for i := range t.Rows {
		if strings.EqualFold(strings.TrimSpace(t.Rows[i].Get(domain.ColDecision)), "later") {
			t.Rows[i].Set(domain.ColDecision, string(domain.DecisionDelete))
			n++
		}
	}
	return n
}

// Load reads and migrates the canonical file. A missing file is an empty
// table.
func (c *Canonical) Load() (*domain.Table, error) {
	t, err := LoadTable(c.Path)
	if err != nil {
		return nil, err
	}
	if n := Migrate(t); n > 0 {
		logger.Or(c.Log, "persist").Infow("migrated legacy decisions", "rows", n)
	}
	return t, nil
}

// Save takes the dataset lock and replaces the canonical file with t.
func (c *Canonical) Save(ctx context.Context, t *domain.Table) (SaveResult, error) {
	lk, err := AcquireLock(ctx, c.Path, c.LockTimeout)
	if err != nil {
		return SaveResult{}, err
	}
	defer lk.Unlock()
	return c.writeLocked(t)
}

// Update reloads the file under the lock, applies fn and writes the result.
// fn returning a nil table means there is nothing to write.
func (c *Canonical) Update(ctx context.Context, fn func(*domain.Table) (*domain.Table, error)) (SaveResult, error) {
	lk, err := AcquireLock(ctx, c.Path, c.LockTimeout)
	if err != nil {
		return SaveResult{}, err
	}
	defer lk.Unlock()

	cur, err := c.Load()
	if err != nil {
		return SaveResult{}, err
	}
	next, err := fn(cur)
	if err != nil || next == nil {
		return SaveResult{}, err
	}
	return c.writeLocked(next)
}

// writeLocked snapshots the bytes about to be replaced as prev_save, then
// writes t. A failed snapshot is logged and reported, not fatal.
func (c *Canonical) writeLocked(t *domain.Table) (SaveResult, error) {
	log := logger.Or(c.Log, "persist")
	res := SaveResult{Path: c.Path, Rows: len(t.Rows)}
	if c.Backups != nil {
		p, err := c.Backups.RotateFile(c.Path, ClassPrevSave)
		res.BackupPath = p
		if err != nil {
			res.BackupErr = err
			log.Warnw("prev_save backup failed; saving anyway", "err", err)
		}
	}
	if err := SaveTable(c.Path, t); err != nil {
		return SaveResult{}, err
	}
	log.Infow("saved", "path", c.Path, "rows", res.Rows)
	return res, nil
}
