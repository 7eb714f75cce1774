/*
Package scheduling provides task execution primitives.

  - workerpool: Fixed worker pool for concurrent task execution
  - future: Single-assignment result handles for submitted tasks
  - scheduler: Time-based and cron scheduling onto a worker pool
  - manager: Named pools with in-flight accounting and coordinated shutdown

Worker Pool:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	pool.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
		return nil
	}))

Scheduler:

	s := scheduler.NewWithConfig(scheduler.Config{WorkerPool: pool})
	_ = s.Start()
	defer func() { <-s.Stop() }()

	s.ScheduleAfter("once", task, time.Minute)
	s.ScheduleRepeatingAfter("tick", task, 0, time.Hour)
	s.ScheduleCron("weekday", "0 0 9 * * MON-FRI", task)

Manager:

	m, _ := manager.New(manager.DefaultConfig())
	h, _ := manager.SubmitTo(m, manager.PoolHeavy, "sum", compute)
	sum, err := h.Await(ctx)
	err = m.Shutdown(30 * time.Second)

All components are safe for concurrent use and propagate context
cancellation to running tasks.
*/
package scheduling
