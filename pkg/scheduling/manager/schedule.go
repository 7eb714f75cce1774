package manager

import (
	"context"
	"fmt"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// Scheduled identifies a task registered with the scheduler.
type Scheduled struct {
	id string
	m  *Manager
}

// ID returns the scheduler entry id.
func (s *Scheduled) ID() string { return s.id }

// Cancel stops future runs. A run already in progress is not interrupted.
// It reports whether the entry was still registered.
func (s *Scheduled) Cancel() bool {
	return s.m.sched.Cancel(s.id)
}

// NextRun returns when the task fires next.
func (s *Scheduled) NextRun() (time.Time, bool) {
	return s.m.sched.NextRun(s.id)
}

// Schedule runs task once on the scheduled pool after delay.
func (m *Manager) Schedule(task workerpool.Task, delay time.Duration) (*Scheduled, error) {
	return m.schedule(task, func(id string, t workerpool.Task) error {
		return m.sched.ScheduleAfter(id, t, delay)
	})
}

// ScheduleRepeating runs task on the scheduled pool after initialDelay and
// then every period at a fixed rate.
func (m *Manager) ScheduleRepeating(task workerpool.Task, initialDelay, period time.Duration) (*Scheduled, error) {
	return m.schedule(task, func(id string, t workerpool.Task) error {
		return m.sched.ScheduleRepeatingAfter(id, t, initialDelay, period)
	})
}

// ScheduleCron runs task on the scheduled pool whenever the six-field cron
// expression matches.
func (m *Manager) ScheduleCron(task workerpool.Task, expr string) (*Scheduled, error) {
	return m.schedule(task, func(id string, t workerpool.Task) error {
		return m.sched.ScheduleCron(id, expr, t)
	})
}

// schedule registers task under a fresh id. Scheduled runs count as in flight
// only while their body executes.
func (m *Manager) schedule(task workerpool.Task, register func(id string, t workerpool.Task) error) (*Scheduled, error) {
	if err := validation.ValidateNotNil("manager", "task", task); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, fmt.Errorf("cannot schedule: %w", tferrors.ErrPoolClosed)
	}

	id := fmt.Sprintf("%s-%d", PoolScheduled, m.seq.Add(1))
	logged := m.logged(PoolScheduled, id, task)
	run := workerpool.TaskFunc(func(ctx context.Context) error {
		m.track()
		defer m.untrack()
		return logged.Execute(ctx)
	})

	if err := register(id, run); err != nil {
		if m.closed.Load() {
			return nil, fmt.Errorf("cannot schedule: %w", tferrors.ErrPoolClosed)
		}
		return nil, err
	}
	return &Scheduled{id: id, m: m}, nil
}
