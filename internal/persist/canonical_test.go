package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobreview-engine/internal/domain"
)

func newCanonical(t *testing.T) (*Canonical, string) {
	t.Helper()
	dir := t.TempDir()
	c := &Canonical{
		Path:        filepath.Join(dir, "jobs.csv"),
		Backups:     &Rotator{Dir: filepath.Join(dir, "backups")},
		LockTimeout: 200 * time.Millisecond,
	}
	return c, dir
}

func TestLoadMigratesLegacyFile(t *testing.T) {
	c, _ := newCanonical(t)
	require.NoError(t, os.WriteFile(c.Path, []byte("company,title,decision\nAcme,Dev,later\nBeta,Ops,apply\n"), 0o644))

	tbl, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionDelete, tbl.Rows[0].Decision())
	assert.Equal(t, "delete", tbl.Rows[0].Get(domain.ColDecision))
	assert.Equal(t, domain.DecisionApply, tbl.Rows[1].Decision())
	for _, col := range []string{domain.ColDecisionReason, domain.ColLastUpdated, domain.ColCV, domain.ColAppliedDate} {
		assert.True(t, tbl.HasColumn(col), col)
	}
}

func TestSaveSnapshotsPreviousContent(t *testing.T) {
	c, _ := newCanonical(t)
	require.NoError(t, os.WriteFile(c.Path, []byte("title\nold\n"), 0o644))

	tbl := domain.NewTable([]string{"title"})
	tbl.Rows = append(tbl.Rows, domain.NewRecord(map[string]string{"title": "new"}))
	res, err := c.Save(context.Background(), tbl)
	require.NoError(t, err)
	require.NoError(t, res.BackupErr)
	require.NotEmpty(t, res.BackupPath)

	b, err := os.ReadFile(res.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "title\nold\n", string(b))
	b, err = os.ReadFile(c.Path)
	require.NoError(t, err)
	assert.Equal(t, "title\nnew\n", string(b))
}

func TestSaveBackupFailureIsDegradedSuccess(t *testing.T) {
	c, dir := newCanonical(t)
	require.NoError(t, os.WriteFile(c.Path, []byte("title\nold\n"), 0o644))
	// a regular file where the backup dir should be
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	c.Backups.Dir = filepath.Join(blocker, "backups")

	res, err := c.Save(context.Background(), domain.NewTable([]string{"title"}))
	require.NoError(t, err)
	assert.Error(t, res.BackupErr)

	b, _ := os.ReadFile(c.Path)
	assert.Equal(t, "title\n", string(b))
}

func TestSaveFailureLeavesFileByteIdentical(t *testing.T) {
	c, _ := newCanonical(t)
	orig := []byte("company,title\nAcme,Dev\n")
	require.NoError(t, os.WriteFile(c.Path, orig, 0o644))

	saved := rename
	calls := 0
	rename = func(a, b string) error {
		calls++
		if b == c.Path {
			return errors.New("no space left on device")
		}
		return saved(a, b)
	}
	defer func() { rename = saved }()

	_, err := c.Save(context.Background(), domain.NewTable([]string{"x"}))
	require.Error(t, err)
	assert.Positive(t, calls)

	b, _ := os.ReadFile(c.Path)
	assert.Equal(t, orig, b)
}

func TestUpdateAppliesUnderLock(t *testing.T) {
	c, _ := newCanonical(t)
	require.NoError(t, os.WriteFile(c.Path, []byte("title\nA\n"), 0o644))

	_, err := c.Update(context.Background(), func(cur *domain.Table) (*domain.Table, error) {
		next := cur.Clone()
		next.Rows = append(next.Rows, domain.NewRecord(map[string]string{"title": "B"}))
		return next, nil
	})
	require.NoError(t, err)

	tbl, err := c.Load()
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "B", tbl.Rows[1].Title())
}

func TestUpdateNilTableSkipsWrite(t *testing.T) {
	c, _ := newCanonical(t)
	res, err := c.Update(context.Background(), func(*domain.Table) (*domain.Table, error) { return nil, nil })
	require.NoError(t, err)
	assert.Empty(t, res.Path)
	_, err = os.Stat(c.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveTimesOutWhenLocked(t *testing.T) {
	c, _ := newCanonical(t)
	held, err := AcquireLock(context.Background(), c.Path, time.Second)
	require.NoError(t, err)
	defer held.Unlock()

	_, err = c.Save(context.Background(), domain.NewTable([]string{"title"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
}
