package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// Task describes a scheduled entry.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time and cron tasks
	Cron     string
	Created  time.Time
}

// Scheduler dispatches tasks onto a worker pool at fixed times, at a fixed
// rate or on a cron schedule.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, task workerpool.Task, runAt time.Time) error
	ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error
	ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error
	ScheduleRepeatingAfter(id string, task workerpool.Task, initialDelay, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, task workerpool.Task) error

	// Task management
	Cancel(id string) bool
	CancelAll()
	List() []Task
	NextRun(id string) (time.Time, bool)

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	WorkerPool   workerpool.Pool
	Location     *time.Location // For cron scheduling
	TickInterval time.Duration  // How often to check for ready tasks (default: 50ms)
	MaxTasks     int            // Maximum number of scheduled tasks (default: 10000)
	Logger       *zap.Logger
	Metrics      *metrics.Registry
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a six-field cron expression (seconds first).
func ParseCron(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, fmt.Errorf("cron expression cannot be empty")
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

type scheduledTask struct {
	id           string
	task         workerpool.Task
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time

	run workerpool.Task // task behind the cancellation guard

	// Guarded by scheduler.mu
	queued    bool // one-time entry handed to the pool but not yet started
	cancelled bool
}

func (t *scheduledTask) kind() string {
	switch {
	case t.interval > 0:
		return "repeating"
	case t.cronSchedule != nil:
		return "cron"
	default:
		return "once"
	}
}

type scheduler struct {
	pool         workerpool.Pool
	ownPool      bool
	location     *time.Location
	tickInterval time.Duration
	maxTasks     int
	logger       *zap.Logger
	metrics      *metrics.Registry

	mu      sync.RWMutex
	tasks   map[string]*scheduledTask
	ticker  *time.Ticker
	done    chan struct{}
	exited  chan struct{}
	running bool
	stopped bool
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
// Without a WorkerPool the scheduler owns a small pool and shuts it down on Stop.
func NewWithConfig(cfg Config) Scheduler {
	pool := cfg.WorkerPool
	ownPool := false
	if pool == nil {
		pool = workerpool.NewWithConfig(workerpool.Config{Name: "scheduled", WorkerCount: 4, QueueSize: 100})
		ownPool = true
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}

	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10000
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &scheduler{
		pool:         pool,
		ownPool:      ownPool,
		location:     location,
		tickInterval: tickInterval,
		maxTasks:     maxTasks,
		logger:       logger.With(zap.String("component", "scheduler")),
		metrics:      cfg.Metrics,
		tasks:        make(map[string]*scheduledTask),
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
	}
}

func validateEntry(id string, task workerpool.Task) error {
	if id == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("task ID too long (max 255 characters)")
	}
	if err := validation.ValidateNotNil("scheduler", "task", task); err != nil {
		return err
	}
	return nil
}

// add registers st under s.mu.
func (s *scheduler) add(st *scheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("cannot schedule %q: %w", st.id, tferrors.ErrClosed)
	}

	if _, exists := s.tasks[st.id]; exists {
		return fmt.Errorf("task with ID %q already exists, use a different ID or cancel the existing task first", st.id)
	}

	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("cannot schedule task: maximum number of tasks (%d) reached", s.maxTasks)
	}

	st.run = s.guard(st)
	s.tasks[st.id] = st
	if s.metrics != nil {
		s.metrics.TasksScheduled.WithLabelValues(st.kind()).Inc()
		s.metrics.ScheduledTasks.Set(float64(len(s.tasks)))
	}
	return nil
}

func (s *scheduler) Schedule(id string, task workerpool.Task, runAt time.Time) error {
	if err := validateEntry(id, task); err != nil {
		return err
	}
	if runAt.IsZero() {
		return fmt.Errorf("task run time cannot be zero")
	}

	return s.add(&scheduledTask{
		id:      id,
		task:    task,
		runAt:   runAt,
		created: time.Now(),
	})
}

func (s *scheduler) ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error {
	if delay < 0 {
		return fmt.Errorf("delay cannot be negative, got %v", delay)
	}
	return s.Schedule(id, task, time.Now().Add(delay))
}

// ScheduleRepeating runs task immediately and then every interval.
func (s *scheduler) ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error {
	return s.ScheduleRepeatingAfter(id, task, 0, interval)
}

// ScheduleRepeatingAfter runs task after initialDelay and then at a fixed rate.
func (s *scheduler) ScheduleRepeatingAfter(id string, task workerpool.Task, initialDelay, interval time.Duration) error {
	if err := validateEntry(id, task); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	if initialDelay < 0 {
		return fmt.Errorf("initial delay cannot be negative, got %v", initialDelay)
	}

	now := time.Now()
	return s.add(&scheduledTask{
		id:       id,
		task:     task,
		runAt:    now.Add(initialDelay),
		interval: interval,
		created:  now,
	})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, task workerpool.Task) error {
	if err := validateEntry(id, task); err != nil {
		return err
	}

	schedule, err := ParseCron(cronExpr)
	if err != nil {
		return err
	}

	return s.add(&scheduledTask{
		id:           id,
		task:         task,
		runAt:        schedule.Next(time.Now().In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
		created:      time.Now(),
	})
}

// Cancel removes id so it never fires again. A run that is queued in the
// pool is skipped; a run that already started is not interrupted.
func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tasks[id]
	if !exists {
		return false
	}
	t.cancelled = true
	delete(s.tasks, id)
	s.updateGauge()
	return true
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropAll()
}

// dropAll must be called with s.mu held.
func (s *scheduler) dropAll() {
	for _, t := range s.tasks {
		t.cancelled = true
	}
	s.tasks = make(map[string]*scheduledTask)
	s.updateGauge()
}

func (s *scheduler) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			Cron:     t.cronExpr,
			Created:  t.created,
		})
	}

	// Sort by run time
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})

	return tasks
}

// NextRun returns when id fires next.
func (s *scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return time.Time{}, false
	}
	return t.runAt, true
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler stopped: %w", tferrors.ErrClosed)
	}
	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	s.running = true
	s.ticker = time.NewTicker(s.tickInterval)

	go s.run()
	return nil
}

// Stop halts dispatching and drops every pending entry. The returned channel
// closes once the dispatch loop exited (and the owned pool drained, if any).
func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	wasRunning := s.running
	if !s.stopped {
		s.stopped = true
		s.running = false
		close(s.done)
		s.dropAll()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if wasRunning {
			<-s.exited
		}
		if s.ownPool {
			<-s.pool.Shutdown()
		}
	}()

	return stopped
}

func (s *scheduler) run() {
	defer close(s.exited)
	defer s.ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.processReadyTasks()
		}
	}
}

// nextRun computes the following fixed-rate or cron time. Missed ticks are
// skipped rather than fired in a burst.
func (s *scheduler) nextRun(t *scheduledTask, now time.Time) time.Time {
	if t.cronSchedule != nil {
		return t.cronSchedule.Next(now.In(s.location))
	}
	next := t.runAt.Add(t.interval)
	if !next.After(now) {
		next = now.Add(t.interval)
	}
	return next
}

func (s *scheduler) processReadyTasks() {
	now := time.Now()

	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return
	}

	readyTasks := make([]*scheduledTask, 0, len(s.tasks))

	for _, task := range s.tasks {
		if task.queued || task.runAt.After(now) {
			continue
		}
		readyTasks = append(readyTasks, task)

		if task.interval > 0 || task.cronSchedule != nil {
			task.runAt = s.nextRun(task, now)
		} else {
			task.queued = true
		}
	}
	s.mu.Unlock()

	for _, task := range readyTasks {
		s.dispatch(task)
	}
}

// dispatch hands task to the pool. The wait for queue space is bounded by one
// tick so a saturated pool cannot stall the loop; a one-time task that could
// not be queued is retried on the next tick.
func (s *scheduler) dispatch(task *scheduledTask) {
	err := s.pool.SubmitWithTimeout(task.run, s.tickInterval)
	if err == nil {
		return
	}

	once := task.kind() == "once"
	if once {
		s.mu.Lock()
		if tferrors.IsTemporary(err) {
			task.queued = false
		} else if s.tasks[task.id] == task {
			delete(s.tasks, task.id)
			s.updateGauge()
		}
		s.mu.Unlock()
	}

	switch {
	case tferrors.IsTemporary(err) && once:
		s.logger.Debug("pool saturated, retrying one-time task", zap.String("id", task.id))
	case tferrors.IsTemporary(err):
		s.logger.Warn("pool saturated, tick skipped", zap.String("id", task.id))
	default:
		s.logger.Warn("dispatch failed", zap.String("id", task.id), zap.Error(err))
	}
}

// guard wraps the entry's task so a run queued before Cancel never starts.
func (s *scheduler) guard(st *scheduledTask) workerpool.Task {
	return workerpool.TaskFunc(func(ctx context.Context) error {
		if !s.claim(st) {
			return nil
		}
		return st.task.Execute(ctx)
	})
}

// claim reports whether st may start. A one-time entry leaves the table here.
func (s *scheduler) claim(st *scheduledTask) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.cancelled {
		return false
	}
	if st.kind() == "once" && s.tasks[st.id] == st {
		delete(s.tasks, st.id)
		s.updateGauge()
	}
	return true
}

// updateGauge must be called with s.mu held.
func (s *scheduler) updateGauge() {
	if s.metrics != nil {
		s.metrics.ScheduledTasks.Set(float64(len(s.tasks)))
	}
}
