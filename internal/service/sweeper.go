package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gurkanbulca/tasktimer/internal/events"
	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/repository"
)

// OverdueSweeper periodically reports unfinished tasks whose due date has
// passed. Each sweep covers tasks that became due since the previous sweep,
// so a task is reported once per process. The first sweep reports every task
// that is already overdue.
type OverdueSweeper struct {
	store      *repository.Store
	dispatcher events.Dispatcher
	opts       options
	cron       *cron.Cron

	mu        sync.Mutex
	lastSweep time.Time
	ctx       context.Context
}

func NewOverdueSweeper(store *repository.Store, dispatcher events.Dispatcher, opts ...Option) *OverdueSweeper {
	if dispatcher == nil {
		dispatcher = events.NopDispatcher{}
	}
	return &OverdueSweeper{
		store:      store,
		dispatcher: dispatcher,
		opts:       newOptions(opts),
		cron:       cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start schedules sweeps on spec, a standard cron expression or descriptor
// such as "@every 5m". ctx bounds every sweep.
func (s *OverdueSweeper) Start(ctx context.Context, spec string) error {
	s.ctx = ctx
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("schedule overdue sweep %q: %w", spec, err)
	}
	s.cron.Start()
	s.opts.logger.Info("overdue sweeper started", "schedule", spec)
	return nil
}

// Stop stops scheduling and returns a context done once a running sweep ends.
func (s *OverdueSweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *OverdueSweeper) run() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.Sweep(ctx); err != nil {
		s.opts.logger.Error("overdue sweep", "error", err)
	}
}

// Sweep dispatches an overdue event for each task that became due since the
// last sweep and returns how many were reported.
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.clock()
	tasks, err := s.store.ListOverdue(ctx, s.lastSweep, now)
	if err != nil {
		return 0, err
	}

	for _, t := range tasks {
		if err := s.dispatcher.Dispatch(ctx, models.OverdueEvent(t, now)); err != nil {
			s.opts.logger.Error("dispatch overdue event", "task_id", t.ID, "error", err)
		}
	}
	s.lastSweep = now

	if len(tasks) > 0 {
		s.opts.logger.Info("overdue tasks reported", "count", len(tasks))
	}
	return len(tasks), nil
}
