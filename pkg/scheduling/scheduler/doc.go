/*
Package scheduler dispatches tasks onto a worker pool at a point in time, at a
fixed rate, or on a cron schedule.

A single goroutine wakes every TickInterval, collects the entries that are due
and submits them to the configured pool. The pool does the work; the scheduler
only decides when.

Basic Usage:

	s := scheduler.NewWithConfig(scheduler.Config{
		WorkerPool:   pool,
		TickInterval: 10 * time.Millisecond,
	})
	if err := s.Start(); err != nil {
		return err
	}
	defer func() { <-s.Stop() }()

	// Once, after a delay
	s.ScheduleAfter("reminder", task, 5*time.Second)

	// Every minute, first run after ten seconds
	s.ScheduleRepeatingAfter("heartbeat", task, 10*time.Second, time.Minute)

	// Six-field cron expression, seconds first
	s.ScheduleCron("sweep", "0/30 * * * * *", task)

Repeating entries run at a fixed rate: the next run is computed from the
previous scheduled time, not from when the run finished. When the loop falls
behind, missed runs are skipped instead of fired back to back.

Cancel removes an entry so it never fires again. A run that is still queued in
the pool is skipped when a worker picks it up; a run that already started is
left alone, so cancel the task's own context to stop it.

Stop drops every pending entry and waits for the dispatch loop to exit. When
the scheduler created its own pool, Stop also drains that pool.
*/
package scheduler
