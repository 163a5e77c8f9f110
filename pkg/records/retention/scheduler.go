package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Scheduler runs registered tasks on cron schedules, one lease-guarded run
// at a time per task.
type Scheduler struct {
	cron     *cron.Cron
	locker   Locker
	leaseTTL time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
	stopCh  chan struct{}
}

// NewScheduler creates a scheduler. A nil locker means a LocalLocker.
func NewScheduler(locker Locker, leaseTTL time.Duration) *Scheduler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if leaseTTL <= 0 {
		leaseTTL = 10 * time.Minute
	}

	logger := slog.Default().With("component", "records.retention.scheduler")
	cl := cronLogger{logger: logger}

	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		locker:   locker,
		leaseTTL: leaseTTL,
		logger:   logger,
		entries:  make(map[string]cron.EntryID),
	}
}

// Register schedules task under name using a standard five-field cron spec.
// An empty spec leaves the task unscheduled.
func (s *Scheduler) Register(ctx context.Context, name, spec string, task Task) error {
	if spec == "" {
		s.logger.Info("no schedule configured, task not registered", "task", name)
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for task %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("task %s already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(ctx, name, task) })
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", name, err)
	}
	s.entries[name] = id

	s.logger.Info("task scheduled", "task", name, "schedule", spec)
	return nil
}

// Start begins running scheduled tasks. The scheduler stops when ctx is done
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.stopCh = make(chan struct{})

	s.logger.Info("retention scheduler started", "tasks", len(s.entries))

	stopCh := s.stopCh
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
		}
	}()
}

// Stop stops the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run of the named task.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	entry := s.cron.Entry(id)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

// LeaseName is the lease a run of task holds. Manual runs take the same
// lease so they never overlap a scheduled one.
func LeaseName(task string) string {
	return "retention:" + task
}

// run executes one task run under its lease. Errors are logged, never returned.
func (s *Scheduler) run(ctx context.Context, name string, task Task) {
	lease := LeaseName(name)
	release, ok, err := s.locker.TryLock(ctx, lease, s.leaseTTL)
	if err != nil {
		s.logger.Error("failed to acquire lease", "task", name, "error", err)
		return
	}
	if !ok {
		s.logger.Debug("lease held elsewhere, skipping run", "task", name)
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release lease", "task", name, "error", err)
		}
	}()

	s.logger.Info("starting scheduled task", "task", name)
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", "task", name, "error", err)
		return
	}
	s.logger.Debug("scheduled task completed", "task", name)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
