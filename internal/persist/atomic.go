// Package persist owns every write of the job table to disk: the atomic
// replace of the canonical file, the CSV codec, backup rotation and the
// advisory lock shared with other processes.
package persist

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// rename is swapped in tests to simulate a failed replace.
var rename = os.Rename

// WriteFileAtomic writes to a temp file next to path, syncs it and renames
// it over path. On any error the temp file is removed and path is left as
// it was.
func WriteFileAtomic(path string, perm os.FileMode, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Chmod(perm); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "replace %s", path)
	}
	syncDir(dir)
	return nil
}

// WriteBytesAtomic is WriteFileAtomic for an in-memory payload.
func WriteBytesAtomic(path string, perm os.FileMode, b []byte) error {
	return WriteFileAtomic(path, perm, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(b))
		return err
	})
}

// syncDir makes the rename durable where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
