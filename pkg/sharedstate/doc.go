// Package sharedstate provides the thread-safe resources that concurrently
// running tasks share: a Cache, a bounded Queue, an append-only EventLog, a
// Counter and a reader/writer Region.
//
// Cache, Queue, EventLog and Counter synchronize themselves. Region is an
// independent critical section for callers that need to group several
// operations:
//
//	err := st.Region.WithWriteLock(ctx, func() error {
//		st.Cache.Put("a", 1)
//		st.Events.Append("a updated")
//		return nil
//	})
//
// Region acquisition honours ctx; a cancelled wait returns an error wrapping
// errors.ErrInterrupted and fn does not run.
package sharedstate
