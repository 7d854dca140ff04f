package review

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch reloads the session when another process rewrites the canonical
// file, e.g. a cron-driven ingestion. With unsaved edits the change is only
// logged; the next save wins and prev_save keeps the overwritten content.
// Watch blocks until ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	// the directory, since atomic replaces swap the file's inode
	dir := filepath.Dir(s.store.Path)
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	base := filepath.Base(s.store.Path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, s.externalChange)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warnw("watcher error", "err", err)
		}
	}
}

func (s *Session) externalChange() {
	if s.ownWrite() {
		return
	}
	reloaded, err := s.Reload()
	switch {
	case err != nil:
		s.log.Errorw("reload after external change failed", "path", s.store.Path, "err", err)
	case !reloaded:
		s.log.Warnw("dataset changed on disk but there are unsaved edits; keeping in-memory state",
			"path", s.store.Path)
	default:
		s.log.Infow("reloaded dataset after external change", "path", s.store.Path, "rows", s.Len())
	}
}
