package benchmark

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

var noop = workerpool.TaskFunc(func(_ context.Context) error { return nil })

// countingPool returns a pool that counts completed tasks.
func countingPool(b *testing.B, workers, queue int) (workerpool.Pool, *atomic.Int64) {
	b.Helper()
	var completed atomic.Int64
	pool, err := workerpool.NewWithConfigSafe(workerpool.Config{
		WorkerCount: workers,
		QueueSize:   queue,
		OnTaskComplete: func(int, workerpool.Result) {
			completed.Add(1)
		},
	})
	if err != nil {
		b.Fatalf("failed to create pool: %v", err)
	}
	b.Cleanup(func() { <-pool.Shutdown() })
	return pool, &completed
}

func waitCompleted(completed *atomic.Int64, n int64) {
	for completed.Load() < n {
		time.Sleep(time.Microsecond)
	}
}

// BenchmarkWorkerPoolSubmit measures task submission performance.
func BenchmarkWorkerPoolSubmit(b *testing.B) {
	for _, workers := range []int{2, 4, 8} {
		b.Run(workerLabel(workers), func(b *testing.B) {
			pool, _ := countingPool(b, workers, 1000)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = pool.Submit(noop)
			}
		})
	}
}

// BenchmarkWorkerPoolSubmitWithContext measures context-aware submission.
func BenchmarkWorkerPoolSubmitWithContext(b *testing.B) {
	pool, _ := countingPool(b, 4, 1000)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.SubmitWithContext(ctx, noop)
	}
}

// BenchmarkWorkerPoolThroughput measures end-to-end task execution.
func BenchmarkWorkerPoolThroughput(b *testing.B) {
	pool, completed := countingPool(b, 4, 100)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.Submit(noop)
	}
	waitCompleted(completed, int64(b.N))
}

// BenchmarkWorkerPoolContention measures performance under contention.
func BenchmarkWorkerPoolContention(b *testing.B) {
	pool, _ := countingPool(b, 8, 500)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = pool.Submit(noop)
		}
	})
}

// BenchmarkWorkerPoolWithWork measures performance with actual work.
func BenchmarkWorkerPoolWithWork(b *testing.B) {
	for _, work := range []time.Duration{0, time.Microsecond, 10 * time.Microsecond} {
		label := "NoWork"
		if work > 0 {
			label = work.String()
		}

		b.Run(label, func(b *testing.B) {
			pool, completed := countingPool(b, 4, 100)
			task := workerpool.TaskFunc(func(_ context.Context) error {
				if work > 0 {
					time.Sleep(work)
				}
				return nil
			})

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = pool.Submit(task)
			}
			waitCompleted(completed, int64(b.N))
		})
	}
}

// BenchmarkWorkerPoolScaling measures performance with different pool sizes.
func BenchmarkWorkerPoolScaling(b *testing.B) {
	scales := []struct {
		workers int
		queue   int
	}{
		{1, 100},
		{2, 100},
		{4, 100},
		{8, 100},
		{4, 10},
		{4, 1000},
	}

	for _, scale := range scales {
		b.Run(workerLabel(scale.workers)+"_q"+strconv.Itoa(scale.queue), func(b *testing.B) {
			pool, _ := countingPool(b, scale.workers, scale.queue)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = pool.Submit(noop)
			}
		})
	}
}

// BenchmarkWorkerPoolShutdown measures graceful shutdown performance.
func BenchmarkWorkerPoolShutdown(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		pool, err := workerpool.NewSafe(4, 100)
		if err != nil {
			b.Fatalf("failed to create pool: %v", err)
		}
		for j := 0; j < 10; j++ {
			_ = pool.Submit(noop)
		}
		<-pool.Shutdown()
	}
}

func workerLabel(workers int) string {
	return strconv.Itoa(workers) + "workers"
}
