package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/database"
	"github.com/gurkanbulca/tasktimer/internal/models"
)

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	Statuses []models.Status
	Priority models.Priority
	Limit    int
	Offset   int
}

func (r reader) tasks() *entsql.Selector {
	return r.b.Select(taskColumns...).From(r.b.Table(database.TasksTableName))
}

func scoped(scope models.Scope, id uuid.UUID) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("account_id", scope.AccountID),
		entsql.EQ("user_id", scope.UserID),
	)
}

// GetTask loads a task visible to scope.
func (r reader) GetTask(ctx context.Context, scope models.Scope, id uuid.UUID) (*models.Task, error) {
	var row taskRow
	if err := r.get(ctx, &row, r.tasks().Where(scoped(scope, id))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return row.toModel(), nil
}

// ListTasks returns the tasks of scope, newest first.
func (r reader) ListTasks(ctx context.Context, scope models.Scope, f TaskFilter) ([]*models.Task, error) {
	sel := r.tasks().
		Where(entsql.And(
			entsql.EQ("account_id", scope.AccountID),
			entsql.EQ("user_id", scope.UserID),
		)).
		OrderBy(entsql.Desc("created_at"))

	if len(f.Statuses) > 0 {
		args := make([]any, len(f.Statuses))
		for i, s := range f.Statuses {
			args[i] = string(s)
		}
		sel.Where(entsql.In("status", args...))
	}
	if f.Priority != "" {
		sel.Where(entsql.EQ("priority", string(f.Priority)))
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit)
		if f.Offset > 0 {
			sel.Offset(f.Offset)
		}
	}

	var rows []taskRow
	if err := r.selectAll(ctx, &rows, sel); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return toTasks(rows), nil
}

// ListOverdue returns unfinished tasks of every account whose due date falls
// in (after, before].
func (r reader) ListOverdue(ctx context.Context, after, before time.Time) ([]*models.Task, error) {
	sel := r.tasks().
		Where(entsql.And(
			entsql.NEQ("status", string(models.StatusCompleted)),
			entsql.NotNull("due_at"),
			entsql.GT("due_at", after.UTC()),
			entsql.LTE("due_at", before.UTC()),
		)).
		OrderBy("due_at")

	var rows []taskRow
	if err := r.selectAll(ctx, &rows, sel); err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	return toTasks(rows), nil
}

func toTasks(rows []taskRow) []*models.Task {
	tasks := make([]*models.Task, len(rows))
	for i := range rows {
		tasks[i] = rows[i].toModel()
	}
	return tasks
}

// taskExists tells a stale version apart from a missing row after an update
// matched nothing.
func (r reader) taskExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int
	sel := r.b.Select(entsql.Count("*")).
		From(r.b.Table(database.TasksTableName)).
		Where(entsql.EQ("id", id))
	if err := r.get(ctx, &n, sel); err != nil {
		return false, fmt.Errorf("count tasks: %w", err)
	}
	return n > 0, nil
}

func (r reader) versionMismatch(ctx context.Context, id uuid.UUID, version int64) error {
	ok, err := r.taskExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return fmt.Errorf("task %s at version %d: %w", id, version, models.ErrConcurrencyConflict)
}

// InsertTask writes a new task row.
func (tx *Tx) InsertTask(ctx context.Context, t *models.Task) error {
	ins := tx.b.Insert(database.TasksTableName).
		Columns(taskColumns...).
		Values(
			t.ID, t.UserID, t.AccountID, t.Title, t.Description, string(t.Priority), string(t.Status),
			nullTime(t.DueAt), t.TotalWorkingTime, t.PauseCount, nullTime(t.StartedAt),
			nullTime(t.LastResumedAt), nullTime(t.CompletedAt), t.Version, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		)
	if _, err := tx.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTaskState persists the lifecycle columns of t if nobody else wrote
// the task since it was read at t.Version. On success t.Version is bumped.
func (tx *Tx) UpdateTaskState(ctx context.Context, t *models.Task) error {
	upd := tx.b.Update(database.TasksTableName).
		Set("status", string(t.Status)).
		Set("total_working_time", t.TotalWorkingTime).
		Set("pause_count", t.PauseCount).
		Set("started_at", nullTime(t.StartedAt)).
		Set("last_resumed_at", nullTime(t.LastResumedAt)).
		Set("completed_at", nullTime(t.CompletedAt)).
		Set("updated_at", t.UpdatedAt.UTC()).
		Set("version", t.Version+1).
		Where(entsql.And(entsql.EQ("id", t.ID), entsql.EQ("version", t.Version)))
	return tx.applyVersioned(ctx, upd, t)
}

// UpdateTaskDetails persists the editable fields of t under the same version
// check as UpdateTaskState.
func (tx *Tx) UpdateTaskDetails(ctx context.Context, t *models.Task) error {
	upd := tx.b.Update(database.TasksTableName).
		Set("title", t.Title).
		Set("description", t.Description).
		Set("priority", string(t.Priority)).
		Set("due_at", nullTime(t.DueAt)).
		Set("updated_at", t.UpdatedAt.UTC()).
		Set("version", t.Version+1).
		Where(entsql.And(entsql.EQ("id", t.ID), entsql.EQ("version", t.Version)))
	return tx.applyVersioned(ctx, upd, t)
}

func (tx *Tx) applyVersioned(ctx context.Context, upd *entsql.UpdateBuilder, t *models.Task) error {
	n, err := tx.exec(ctx, upd)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return tx.versionMismatch(ctx, t.ID, t.Version)
	}
	t.Version++
	return nil
}

// DeleteTask removes a task of scope along with its pauses, events and
// snapshots.
func (tx *Tx) DeleteTask(ctx context.Context, scope models.Scope, id uuid.UUID) error {
	if _, err := tx.GetTask(ctx, scope, id); err != nil {
		return err
	}
	for _, table := range []string{
		database.SnapshotsTableName,
		database.EventsTableName,
		database.PausesTableName,
	} {
		if _, err := tx.exec(ctx, tx.b.Delete(table).Where(entsql.EQ("task_id", id))); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	if _, err := tx.exec(ctx, tx.b.Delete(database.TasksTableName).Where(scoped(scope, id))); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// CreateTask inserts t in its own transaction.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	return s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertTask(ctx, t)
	})
}

func (s *Store) DeleteTask(ctx context.Context, scope models.Scope, id uuid.UUID) error {
	return s.InTx(ctx, func(tx *Tx) error {
		return tx.DeleteTask(ctx, scope, id)
	})
}
