package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/logger"
)

// Class is a backup retention class. Each class keeps one snapshot.
type Class string

const (
	ClassSession  Class = "session"
	ClassPrevSave Class = "prev_save"
)

const stampLayout = "20060102_150405"

// Rotator writes timestamped snapshots into Dir and prunes older snapshots
// of the same class once the new one is on disk.
type Rotator struct {
	Dir    string
	Prefix string // defaults to "jobs"
	Now    func() time.Time
	Log    *zap.SugaredLogger
}

func (r *Rotator) prefix(class Class) string {
	p := r.Prefix
	if p == "" {
		p = "jobs"
	}
	return fmt.Sprintf("%s_%s_backup_", p, class)
}

func (r *Rotator) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Rotate snapshots t under class.
func (r *Rotator) Rotate(t *domain.Table, class Class) (string, error) {
	b, err := EncodeTable(t)
	if err != nil {
		return "", err
	}
	return r.RotateBytes(b, class)
}

// RotateFile snapshots the current bytes of src. A missing src is not an
// error and produces no snapshot.
func (r *Rotator) RotateFile(src string, class Class) (string, error) {
	b, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", src)
	}
	return r.RotateBytes(b, class)
}

// RotateBytes writes b as the newest snapshot of class and then removes the
// older ones. If pruning fails the new snapshot path is still returned.
func (r *Rotator) RotateBytes(b []byte, class Class) (string, error) {
	log := logger.Or(r.Log, "backup")
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create backup dir %s", r.Dir)
	}

	path := r.nextName(class)
	if err := WriteBytesAtomic(path, 0o644, b); err != nil {
		return "", errors.Wrapf(err, "write %s snapshot", class)
	}

	old, err := r.Snapshots(class)
	if err != nil {
		return path, err
	}
	var pruneErr error
	for _, p := range old {
		if p == path {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			pruneErr = errors.CombineErrors(pruneErr, errors.Wrapf(err, "remove %s", p))
			continue
		}
		log.Debugw("pruned backup", "path", p)
	}
	log.Infow("backup written", "class", string(class), "path", path)
	return path, pruneErr
}

func (r *Rotator) nextName(class Class) string {
	base := r.prefix(class) + r.now().Format(stampLayout)
	path := filepath.Join(r.Dir, base+".csv")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(r.Dir, fmt.Sprintf("%s_%d.csv", base, i))
	}
}

// Snapshots lists the snapshot files of class, oldest name first.
func (r *Rotator) Snapshots(class Class) ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", r.Dir)
	}
	pre := r.prefix(class)
	var out []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, pre) || !strings.HasSuffix(n, ".csv") {
			continue
		}
		out = append(out, filepath.Join(r.Dir, n))
	}
	sort.Strings(out)
	return out, nil
}
