package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/events"
	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/repository"
)

// LifecycleService runs task state transitions. Each transition reads the
// task, applies the state machine and writes the result in one transaction
// guarded by the task version. The resulting domain event is dispatched only
// after commit.
type LifecycleService struct {
	store      *repository.Store
	dispatcher events.Dispatcher
	opts       options
}

func NewLifecycleService(store *repository.Store, dispatcher events.Dispatcher, opts ...Option) *LifecycleService {
	if dispatcher == nil {
		dispatcher = events.NopDispatcher{}
	}
	return &LifecycleService{
		store:      store,
		dispatcher: dispatcher,
		opts:       newOptions(opts),
	}
}

type applyFunc func(ctx context.Context, tx *repository.Tx, t *models.Task, now time.Time) (*models.Transition, error)

// Start moves a pending task into progress.
func (s *LifecycleService) Start(ctx context.Context, scope models.Scope, id uuid.UUID) (*models.Task, error) {
	tr, err := s.transition(ctx, scope, id, "start", func(_ context.Context, _ *repository.Tx, t *models.Task, now time.Time) (*models.Transition, error) {
		return t.Start(now)
	})
	if err != nil {
		return nil, err
	}
	return tr.Task, nil
}

// Pause validates in, then pauses an in-progress task and returns the new
// pause ledger entry along with the updated task.
func (s *LifecycleService) Pause(ctx context.Context, scope models.Scope, id uuid.UUID, in models.PauseInput) (*models.Pause, *models.Task, error) {
	in = in.Normalize()
	if err := in.Validate(s.opts.limits); err != nil {
		return nil, nil, err
	}

	tr, err := s.transition(ctx, scope, id, "pause", func(_ context.Context, _ *repository.Tx, t *models.Task, now time.Time) (*models.Transition, error) {
		return t.Pause(now, in)
	})
	if err != nil {
		return nil, nil, err
	}
	return tr.Pause, tr.Task, nil
}

// Resume closes the active pause of a paused task.
func (s *LifecycleService) Resume(ctx context.Context, scope models.Scope, id uuid.UUID) (*models.Pause, *models.Task, error) {
	tr, err := s.transition(ctx, scope, id, "resume", func(ctx context.Context, tx *repository.Tx, t *models.Task, now time.Time) (*models.Transition, error) {
		if !t.IsPaused() {
			return nil, &models.TransitionError{Op: "resume", From: t.Status}
		}
		active, err := tx.ActivePause(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		return t.Resume(now, active)
	})
	if err != nil {
		return nil, nil, err
	}
	return tr.Pause, tr.Task, nil
}

// Complete finishes an in-progress task.
func (s *LifecycleService) Complete(ctx context.Context, scope models.Scope, id uuid.UUID) (*models.Task, error) {
	tr, err := s.transition(ctx, scope, id, "complete", func(_ context.Context, _ *repository.Tx, t *models.Task, now time.Time) (*models.Transition, error) {
		return t.Complete(now)
	})
	if err != nil {
		return nil, err
	}
	return tr.Task, nil
}

func (s *LifecycleService) transition(ctx context.Context, scope models.Scope, id uuid.UUID, op string, apply applyFunc) (*models.Transition, error) {
	var tr *models.Transition
	err := s.opts.retry(ctx, op, func() error {
		return s.store.InTx(ctx, func(tx *repository.Tx) error {
			t, err := tx.GetTask(ctx, scope, id)
			if err != nil {
				return err
			}
			tr, err = apply(ctx, tx, t, s.opts.clock())
			if err != nil {
				return err
			}
			return tx.SaveTransition(ctx, tr)
		})
	})
	if err != nil {
		s.opts.logger.Debug("transition rejected", "op", op, "task_id", id, "error", err)
		return nil, err
	}

	s.opts.logger.Info("task transition",
		"task_id", id,
		"transition", tr.Event.Type,
		"status", tr.Task.Status,
		"total_working_time", tr.Task.TotalWorkingTime,
	)
	s.dispatch(ctx, tr.LifecycleEvent())
	return tr, nil
}

func (s *LifecycleService) dispatch(ctx context.Context, ev models.LifecycleEvent) {
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		s.opts.logger.Error("dispatch lifecycle event",
			slog.String("event", string(ev.Type)),
			slog.String("task_id", ev.TaskID.String()),
			slog.Any("error", err),
		)
	}
}
