// Package lock serializes access to target files across processes
// using sidecar lock files.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const pollInterval = 10 * time.Millisecond

var (
	// ErrTimeout is returned when the lock is not acquired in time.
	ErrTimeout = errors.New("timeout acquiring lock")
	// ErrPathRequired is returned when no path is given.
	ErrPathRequired = errors.New("lock path is required")
)

// Guard holds an acquired file lock until Release is called.
type Guard struct {
	Path string

	flock *flock.Flock
}

// Acquire takes an exclusive lock guarding path. The lock lives in a
// sidecar file next to the target, so the target itself is never
// touched. Acquisition polls until it succeeds, the timeout elapses,
// or ctx is cancelled.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Guard, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, pollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", path, ErrTimeout)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrTimeout)
	}
	return &Guard{Path: path, flock: fl}, nil
}

// Release drops the lock. Calling Release on a nil guard is a no-op.
func (g *Guard) Release() error {
	if g == nil || g.flock == nil {
		return nil
	}
	if err := g.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", g.Path, err)
	}
	return nil
}
