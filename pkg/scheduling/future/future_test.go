package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/internal/testutil"
	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

func TestResolveCompleted(t *testing.T) {
	h := New[string]("general-1", "general", nil)
	testutil.AssertEqual(t, h.State(), Pending)

	_, ok, _ := h.Poll()
	testutil.AssertEqual(t, ok, false)

	testutil.AssertEqual(t, h.Resolve("done", nil), true)

	v, ok, err := h.Poll()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, "done")
	testutil.AssertEqual(t, h.State(), Completed)
	testutil.AssertEqual(t, h.Label(), "general-1")
	testutil.AssertEqual(t, h.Pool(), "general")
}

func TestResolveOnlyOnce(t *testing.T) {
	h := New[int]("x", "general", nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if h.Resolve(i, nil) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	testutil.AssertEqual(t, winners, 1)
	testutil.AssertEqual(t, h.Resolve(99, errors.New("late")), false)
	testutil.AssertEqual(t, h.State(), Completed)
}

func TestResolveFailed(t *testing.T) {
	h := New[int]("x", "heavy", nil)
	boom := errors.New("boom")
	h.Resolve(0, boom)

	_, err := h.AwaitTimeout(time.Second)
	testutil.AssertEqual(t, errors.Is(err, boom), true)
	testutil.AssertEqual(t, h.State(), Failed)

	_, ok, err := h.Poll()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, errors.Is(err, boom), true)
}

func TestResolveCancelled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"context canceled", context.Canceled},
		{"deadline exceeded", context.DeadlineExceeded},
		{"interrupted", tferrors.ErrInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New[int]("x", "general", nil)
			h.Resolve(0, tt.err)

			_, err := h.Await(context.Background())
			testutil.AssertEqual(t, h.State(), Cancelled)
			testutil.AssertEqual(t, errors.Is(err, tferrors.ErrInterrupted), true)
			testutil.AssertEqual(t, errors.Is(err, tt.err), true)
		})
	}
}

func TestCancelInvokesContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New[int]("x", "general", cancel)

	h.Cancel()
	testutil.AssertEqual(t, ctx.Err(), context.Canceled)

	// Cancel does not settle the handle by itself
	testutil.AssertEqual(t, h.State(), Pending)
	h.Resolve(0, ctx.Err())
	testutil.AssertEqual(t, h.State(), Cancelled)
}

func TestResolveReleasesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New[int]("x", "general", cancel)

	h.Resolve(1, nil)
	testutil.AssertEqual(t, ctx.Err(), context.Canceled)
	testutil.AssertEqual(t, h.State(), Completed)
}

func TestAwaitBlocksUntilResolved(t *testing.T) {
	h := New[string]("x", "general", nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		h.Resolve("late", nil)
	}()

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	v, err := h.Await(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, "late")

	select {
	case <-h.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestAwaitContextCancelled(t *testing.T) {
	h := New[string]("x", "general", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Await(ctx)
	testutil.AssertEqual(t, errors.Is(err, tferrors.ErrInterrupted), true)
	testutil.AssertEqual(t, h.State(), Pending)
}

func TestAwaitTimeout(t *testing.T) {
	h := New[string]("x", "general", nil)

	start := time.Now()
	_, err := h.AwaitTimeout(20 * time.Millisecond)
	testutil.AssertEqual(t, errors.Is(err, tferrors.ErrTimeout), true)
	testutil.AssertEqual(t, time.Since(start) >= 20*time.Millisecond, true)
}

func TestStateString(t *testing.T) {
	testutil.AssertEqual(t, Pending.String(), "pending")
	testutil.AssertEqual(t, Completed.String(), "completed")
	testutil.AssertEqual(t, Failed.String(), "failed")
	testutil.AssertEqual(t, Cancelled.String(), "cancelled")
	testutil.AssertEqual(t, State(42).String(), "unknown")
}
