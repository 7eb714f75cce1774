package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	tfcontext "github.com/vnykmshr/taskflow/pkg/common/context"
	"github.com/vnykmshr/taskflow/pkg/config"
	"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
	"github.com/vnykmshr/taskflow/pkg/sharedstate"
)

// startJobs registers the heartbeat and queue sweep on the scheduled pool.
func startJobs(m *manager.Manager, st *sharedstate.State, jobs config.JobsConfig, log *zap.Logger) error {
	if jobs.HeartbeatInterval > 0 {
		_, err := m.ScheduleRepeating(heartbeat(st), jobs.HeartbeatInterval, jobs.HeartbeatInterval)
		if err != nil {
			return fmt.Errorf("heartbeat: %w", err)
		}
		log.Info("heartbeat scheduled", zap.Duration("interval", jobs.HeartbeatInterval))
	}

	if jobs.QueueSweepCron != "" {
		_, err := m.ScheduleCron(queueSweep(st, log), jobs.QueueSweepCron)
		if err != nil {
			return fmt.Errorf("queue sweep: %w", err)
		}
		log.Info("queue sweep scheduled", zap.String("cron", jobs.QueueSweepCron))
	}
	return nil
}

func heartbeat(st *sharedstate.State) workerpool.Task {
	return workerpool.TaskFunc(func(ctx context.Context) error {
		st.Events.Append("heartbeat " + time.Now().UTC().Format(time.RFC3339))
		return nil
	})
}

// queueSweep moves every queued item into the event log.
func queueSweep(st *sharedstate.State, log *zap.Logger) workerpool.Task {
	return workerpool.TaskFunc(func(ctx context.Context) error {
		n := 0
		for !tfcontext.IsCanceled(ctx) {
			item, ok := st.Queue.TryTake()
			if !ok {
				break
			}
			st.Events.Append("processed " + item)
			n++
		}
		if n > 0 {
			log.Debug("queue swept", zap.Int("items", n))
		}
		return ctx.Err()
	})
}
