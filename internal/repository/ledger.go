package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/database"
	"github.com/gurkanbulca/tasktimer/internal/models"
)

func (r reader) pauses() *entsql.Selector {
	return r.b.Select(pauseColumns...).From(r.b.Table(database.PausesTableName))
}

// ActivePause returns the open pause of a task.
func (r reader) ActivePause(ctx context.Context, taskID uuid.UUID) (*models.Pause, error) {
	sel := r.pauses().Where(entsql.And(
		entsql.EQ("task_id", taskID),
		entsql.IsNull("resumed_at"),
	))

	var row pauseRow
	if err := r.get(ctx, &row, sel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active pause for task %s: %w", taskID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get active pause: %w", err)
	}
	return row.toModel(), nil
}

// ListPauses returns every pause of a task ordered by paused_at.
func (r reader) ListPauses(ctx context.Context, taskID uuid.UUID, newestFirst bool) ([]*models.Pause, error) {
	order := entsql.Asc("paused_at")
	if newestFirst {
		order = entsql.Desc("paused_at")
	}
	sel := r.pauses().Where(entsql.EQ("task_id", taskID)).OrderBy(order)

	var rows []pauseRow
	if err := r.selectAll(ctx, &rows, sel); err != nil {
		return nil, fmt.Errorf("list pauses: %w", err)
	}
	pauses := make([]*models.Pause, len(rows))
	for i := range rows {
		pauses[i] = rows[i].toModel()
	}
	return pauses, nil
}

// ListEvents returns the audit events of a task, newest first.
func (r reader) ListEvents(ctx context.Context, taskID uuid.UUID) ([]*models.Event, error) {
	sel := r.b.Select(eventColumns...).
		From(r.b.Table(database.EventsTableName)).
		Where(entsql.EQ("task_id", taskID)).
		OrderBy(entsql.Desc("created_at"))

	var rows []eventRow
	if err := r.selectAll(ctx, &rows, sel); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]*models.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// ListSnapshots returns the snapshots of a task in chronological order.
func (r reader) ListSnapshots(ctx context.Context, taskID uuid.UUID) ([]*models.Snapshot, error) {
	sel := r.b.Select(snapshotColumns...).
		From(r.b.Table(database.SnapshotsTableName)).
		Where(entsql.EQ("task_id", taskID)).
		OrderBy(entsql.Asc("created_at"))

	var rows []snapshotRow
	if err := r.selectAll(ctx, &rows, sel); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	snaps := make([]*models.Snapshot, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

// InsertPause opens a pause ledger entry. The partial unique index on
// task_pauses rejects a second open pause for the same task.
func (tx *Tx) InsertPause(ctx context.Context, p *models.Pause) error {
	ins := tx.b.Insert(database.PausesTableName).
		Columns(pauseColumns...).
		Values(
			p.ID, p.TaskID, p.PausedAt.UTC(), nullTime(p.ResumedAt), p.WorkDuration, p.Reason,
			p.Comment, p.ProgressPercentage, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
		)
	if _, err := tx.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert pause: %w", err)
	}
	return nil
}

// ClosePause records the resume time of a still-open pause.
func (tx *Tx) ClosePause(ctx context.Context, p *models.Pause) error {
	upd := tx.b.Update(database.PausesTableName).
		Set("resumed_at", nullTime(p.ResumedAt)).
		Set("updated_at", p.UpdatedAt.UTC()).
		Where(entsql.And(entsql.EQ("id", p.ID), entsql.IsNull("resumed_at")))

	n, err := tx.exec(ctx, upd)
	if err != nil {
		return fmt.Errorf("close pause: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pause %s already closed: %w", p.ID, models.ErrConcurrencyConflict)
	}
	return nil
}

// InsertEvent appends to the audit log. Events are never updated.
func (tx *Tx) InsertEvent(ctx context.Context, e *models.Event) error {
	ins := tx.b.Insert(database.EventsTableName).
		Columns(eventColumns...).
		Values(
			e.ID, e.TaskID, string(e.Subject.Kind), e.Subject.ID, string(e.Type),
			jsonValue[models.EventMetadata]{V: e.Metadata}, e.CreatedAt.UTC(),
		)
	if _, err := tx.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (tx *Tx) InsertSnapshot(ctx context.Context, s *models.Snapshot) error {
	ins := tx.b.Insert(database.SnapshotsTableName).
		Columns(snapshotColumns...).
		Values(
			s.ID, s.TaskID, string(s.Subject.Kind), s.Subject.ID, string(s.Type),
			nullInt(s.ProgressAtSnapshot), s.TotalTimeAtSnapshot,
			jsonValue[models.StateData]{V: s.StateData}, s.CreatedAt.UTC(),
		)
	if _, err := tx.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// SaveTransition writes everything a lifecycle operation produced: the task
// state under the version check, the pause entry, the audit event and the
// snapshot if any.
func (tx *Tx) SaveTransition(ctx context.Context, tr *models.Transition) error {
	if err := tx.UpdateTaskState(ctx, tr.Task); err != nil {
		return err
	}
	if tr.Pause != nil {
		var err error
		if tr.NewPause {
			err = tx.InsertPause(ctx, tr.Pause)
		} else {
			err = tx.ClosePause(ctx, tr.Pause)
		}
		if err != nil {
			return err
		}
	}
	if err := tx.InsertEvent(ctx, &tr.Event); err != nil {
		return err
	}
	if tr.Snapshot != nil {
		if err := tx.InsertSnapshot(ctx, tr.Snapshot); err != nil {
			return err
		}
	}
	return nil
}
