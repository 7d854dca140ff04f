package persist

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the dataset lock past
// the timeout.
var ErrLocked = errors.New("dataset is locked by another process")

const lockRetry = 50 * time.Millisecond

// Lock is an advisory lock on <path>.lock.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock blocks until the lock for path is held, ctx is done, or
// timeout elapses. A zero timeout waits on ctx alone.
func AcquireLock(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrapf(ErrLocked, "%s", path)
		}
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	if !ok {
		return nil, errors.Wrapf(ErrLocked, "%s", path)
	}
	return &Lock{fl: fl}, nil
}

func (l *Lock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
