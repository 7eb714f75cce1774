package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	"github.com/vnykmshr/taskflow/pkg/sharedstate"
)

func newManager(b *testing.B) *manager.Manager {
	b.Helper()
	cfg := manager.DefaultConfig()
	cfg.GeneralQueue = 10000
	cfg.HeavyQueue = 10000
	m, err := manager.New(cfg)
	if err != nil {
		b.Fatalf("failed to create manager: %v", err)
	}
	b.Cleanup(func() { _ = m.Shutdown(10 * time.Second) })
	return m
}

// BenchmarkManagerFireAndForget measures tracked submission on the general pool.
func BenchmarkManagerFireAndForget(b *testing.B) {
	m := newManager(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.SubmitFireAndForget(noop)
	}
}

// BenchmarkManagerSubmitWithResult measures a submit and await round trip.
func BenchmarkManagerSubmitWithResult(b *testing.B) {
	m := newManager(b)
	ctx := context.Background()
	fn := func(_ context.Context) (int, error) { return 1, nil }

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, err := manager.SubmitWithResult(m, fn)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := h.Await(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkManagerParallelResults measures concurrent callers sharing the pools.
func BenchmarkManagerParallelResults(b *testing.B) {
	m := newManager(b)
	ctx := context.Background()
	fn := func(_ context.Context) (int, error) { return 1, nil }

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			h, err := manager.SubmitTo(m, manager.PoolHeavy, "bench", fn)
			if err != nil {
				continue
			}
			_, _ = h.Await(ctx)
		}
	})
}

// BenchmarkSharedStateMixed measures tasks mutating every shared structure.
func BenchmarkSharedStateMixed(b *testing.B) {
	st, err := sharedstate.New(sharedstate.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			st.Cache.Put("k", "v")
			_, _ = st.Cache.Get("k")
			st.Counter.Increment()
			if st.OfferTask("item") {
				_, _ = st.Queue.TryTake()
			}
		}
	})
}
