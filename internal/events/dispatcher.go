// Package events delivers lifecycle domain events to interested parties after
// the transition that produced them has committed.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
)

// Dispatcher receives domain events. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev models.LifecycleEvent) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, ev models.LifecycleEvent) error

func (f DispatcherFunc) Dispatch(ctx context.Context, ev models.LifecycleEvent) error {
	return f(ctx, ev)
}

// MultiDispatcher fans an event out to every dispatcher, even when some fail.
type MultiDispatcher struct {
	dispatchers []Dispatcher
}

func NewMultiDispatcher(dispatchers ...Dispatcher) *MultiDispatcher {
	return &MultiDispatcher{dispatchers: dispatchers}
}

func (m *MultiDispatcher) Dispatch(ctx context.Context, ev models.LifecycleEvent) error {
	var errs []error
	for _, d := range m.dispatchers {
		if err := d.Dispatch(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopDispatcher drops every event.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, models.LifecycleEvent) error { return nil }

// LogDispatcher writes each event to a structured logger. Events that need
// attention are logged at warn level.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, ev models.LifecycleEvent) error {
	level := slog.LevelInfo
	if ev.NeedsAttention {
		level = slog.LevelWarn
	}

	attrs := []any{
		"event", ev.Type,
		"task_id", ev.TaskID,
		"account_id", ev.AccountID,
		"status", ev.Status,
		"total_working_time", ev.TotalWorkingTime,
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}
	d.logger.Log(ctx, level, "task lifecycle event", attrs...)
	return nil
}

// Invalidator drops cached data derived from a task.
type Invalidator interface {
	Invalidate(ctx context.Context, taskID uuid.UUID) error
}

// CacheInvalidator evicts a task's cached pause statistics whenever one of
// its transitions commits.
type CacheInvalidator struct {
	cache Invalidator
}

func NewCacheInvalidator(cache Invalidator) *CacheInvalidator {
	return &CacheInvalidator{cache: cache}
}

func (c *CacheInvalidator) Dispatch(ctx context.Context, ev models.LifecycleEvent) error {
	if ev.Type == models.EventOverdue {
		return nil
	}
	return c.cache.Invalidate(ctx, ev.TaskID)
}
