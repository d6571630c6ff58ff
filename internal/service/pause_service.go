package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
	"github.com/gurkanbulca/tasktimer/internal/repository"
)

// PauseService is the API-facing pause orchestrator. Out-of-sequence pause
// and resume calls fail with a TransitionError carrying a readable cause.
type PauseService struct {
	lifecycle *LifecycleService
	store     *repository.Store
	cache     StatsCache
	opts      options
}

func NewPauseService(lifecycle *LifecycleService, store *repository.Store, cache StatsCache, opts ...Option) *PauseService {
	return &PauseService{
		lifecycle: lifecycle,
		store:     store,
		cache:     cache,
		opts:      newOptions(opts),
	}
}

// PauseResult is what a successful pause returns to callers.
type PauseResult struct {
	Pause *models.Pause `json:"pause"`
	Task  *models.Task  `json:"task"`
	Stats *report.Stats `json:"stats"`
}

const (
	mustBeInProgress = "Task must be in progress to pause"
	mustBePaused     = "Task must be paused to resume"
)

func (s *PauseService) Pause(ctx context.Context, scope models.Scope, id uuid.UUID, in models.PauseInput) (*PauseResult, error) {
	pause, task, err := s.lifecycle.Pause(ctx, scope, id, in)
	if err != nil {
		return nil, describe(err, mustBeInProgress)
	}

	// The pause is committed at this point, so a stats failure only drops
	// the stats from the result.
	stats, err := s.Stats(ctx, scope, id)
	if err != nil {
		s.opts.logger.Warn("load pause stats", "task_id", id, "error", err)
	}
	return &PauseResult{Pause: pause, Task: task, Stats: stats}, nil
}

func (s *PauseService) Resume(ctx context.Context, scope models.Scope, id uuid.UUID) (*models.Pause, *models.Task, error) {
	pause, task, err := s.lifecycle.Resume(ctx, scope, id)
	if err != nil {
		return nil, nil, describe(err, mustBePaused)
	}
	return pause, task, nil
}

// describe attaches a human-readable cause to a TransitionError.
func describe(err error, reason string) error {
	var terr *models.TransitionError
	if errors.As(err, &terr) && terr.Reason == "" {
		return &models.TransitionError{Op: terr.Op, From: terr.From, Reason: reason}
	}
	return err
}

// Stats returns the pause statistics of a task, from the cache when possible.
// The working time always comes from the task row, never from the cache.
func (s *PauseService) Stats(ctx context.Context, scope models.Scope, id uuid.UUID) (*report.Stats, error) {
	task, err := s.store.GetTask(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.opts.logger.Warn("read stats cache", "task_id", id, "error", err)
		} else if ok {
			cached.TotalWorkingTime = task.TotalWorkingTime
			return cached, nil
		}
	}

	pauses, err := s.store.ListPauses(ctx, id, false)
	if err != nil {
		return nil, err
	}
	stats := report.ComputeStats(task, pauses)

	if s.cache != nil {
		if err := s.cache.Set(ctx, id, &stats); err != nil {
			s.opts.logger.Warn("write stats cache", "task_id", id, "error", err)
		}
	}
	return &stats, nil
}

// History returns every pause of a task, newest first.
func (s *PauseService) History(ctx context.Context, scope models.Scope, id uuid.UUID) ([]*models.Pause, error) {
	if _, err := s.store.GetTask(ctx, scope, id); err != nil {
		return nil, err
	}
	return s.store.ListPauses(ctx, id, true)
}
