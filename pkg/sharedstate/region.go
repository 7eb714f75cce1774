package sharedstate

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
)

// DefaultMaxReaders bounds concurrent readers of a Region.
const DefaultMaxReaders = 1024

// Region guards a critical section that admits many readers or one writer.
// A waiting writer blocks readers that arrive after it.
type Region struct {
	sem        *semaphore.Weighted
	maxReaders int64
}

// NewRegion returns a region admitting up to maxReaders concurrent readers.
func NewRegion(maxReaders int) (*Region, error) {
	if err := validation.ValidatePositive("sharedstate", "MaxReaders", maxReaders); err != nil {
		return nil, err
	}
	return &Region{
		sem:        semaphore.NewWeighted(int64(maxReaders)),
		maxReaders: int64(maxReaders),
	}, nil
}

// WithReadLock runs fn while holding shared access.
func (r *Region) WithReadLock(ctx context.Context, fn func() error) error {
	return r.with(ctx, 1, "read", fn)
}

// WithWriteLock runs fn while holding exclusive access.
func (r *Region) WithWriteLock(ctx context.Context, fn func() error) error {
	return r.with(ctx, r.maxReaders, "write", fn)
}

func (r *Region) with(ctx context.Context, weight int64, mode string, fn func() error) error {
	if err := r.sem.Acquire(ctx, weight); err != nil {
		return fmt.Errorf("acquire %s lock: %w", mode, tferrors.Interrupted(err))
	}
	defer r.sem.Release(weight)

	return fn()
}
