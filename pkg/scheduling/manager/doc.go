// Package manager runs tasks on three named worker pools and keeps an
// in-flight count across them.
//
//   - general: latency-bound work (SubmitFireAndForget, SubmitWithResult)
//   - heavy: CPU-bound work, one worker per CPU by default (SubmitTo)
//   - scheduled: delayed, repeating and cron work (Schedule*)
//
// Value-returning submissions produce a future.Handle:
//
//	h, err := manager.SubmitTo(m, manager.PoolHeavy, "", func(ctx context.Context) (int64, error) {
//		return sum(ctx, n)
//	})
//
// The in-flight count rises when a task is accepted and falls after its body
// returns, whether it succeeded, failed, panicked or was cancelled. Scheduled
// tasks are counted only while they run.
//
// Shutdown closes every pool to new work, drains in parallel for up to the
// given timeout and then cancels whatever is still running.
package manager
