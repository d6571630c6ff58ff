package repository

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
)

var taskColumns = []string{
	"id", "user_id", "account_id", "title", "description", "priority", "status", "due_at",
	"total_working_time", "pause_count", "started_at", "last_resumed_at", "completed_at",
	"version", "created_at", "updated_at",
}

type taskRow struct {
	ID               uuid.UUID    `db:"id"`
	UserID           uuid.UUID    `db:"user_id"`
	AccountID        uuid.UUID    `db:"account_id"`
	Title            string       `db:"title"`
	Description      string       `db:"description"`
	Priority         string       `db:"priority"`
	Status           string       `db:"status"`
	DueAt            sql.NullTime `db:"due_at"`
	TotalWorkingTime int64        `db:"total_working_time"`
	PauseCount       int64        `db:"pause_count"`
	StartedAt        sql.NullTime `db:"started_at"`
	LastResumedAt    sql.NullTime `db:"last_resumed_at"`
	CompletedAt      sql.NullTime `db:"completed_at"`
	Version          int64        `db:"version"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

func (r *taskRow) toModel() *models.Task {
	return &models.Task{
		ID:               r.ID,
		UserID:           r.UserID,
		AccountID:        r.AccountID,
		Title:            r.Title,
		Description:      r.Description,
		Priority:         models.Priority(r.Priority),
		Status:           models.Status(r.Status),
		DueAt:            fromNullTime(r.DueAt),
		TotalWorkingTime: r.TotalWorkingTime,
		PauseCount:       int(r.PauseCount),
		StartedAt:        fromNullTime(r.StartedAt),
		LastResumedAt:    fromNullTime(r.LastResumedAt),
		CompletedAt:      fromNullTime(r.CompletedAt),
		Version:          r.Version,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

var pauseColumns = []string{
	"id", "task_id", "paused_at", "resumed_at", "work_duration", "reason", "comment",
	"progress_percentage", "created_at", "updated_at",
}

type pauseRow struct {
	ID                 uuid.UUID    `db:"id"`
	TaskID             uuid.UUID    `db:"task_id"`
	PausedAt           time.Time    `db:"paused_at"`
	ResumedAt          sql.NullTime `db:"resumed_at"`
	WorkDuration       int64        `db:"work_duration"`
	Reason             string       `db:"reason"`
	Comment            string       `db:"comment"`
	ProgressPercentage int64        `db:"progress_percentage"`
	CreatedAt          time.Time    `db:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at"`
}

func (r *pauseRow) toModel() *models.Pause {
	return &models.Pause{
		ID:                 r.ID,
		TaskID:             r.TaskID,
		PausedAt:           r.PausedAt.UTC(),
		ResumedAt:          fromNullTime(r.ResumedAt),
		WorkDuration:       r.WorkDuration,
		Reason:             r.Reason,
		Comment:            r.Comment,
		ProgressPercentage: int(r.ProgressPercentage),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

var eventColumns = []string{
	"id", "task_id", "subject_type", "subject_id", "event_type", "metadata", "created_at",
}

type eventRow struct {
	ID          uuid.UUID                       `db:"id"`
	TaskID      uuid.UUID                       `db:"task_id"`
	SubjectType string                          `db:"subject_type"`
	SubjectID   uuid.UUID                       `db:"subject_id"`
	EventType   string                          `db:"event_type"`
	Metadata    jsonValue[models.EventMetadata] `db:"metadata"`
	CreatedAt   time.Time                       `db:"created_at"`
}

func (r *eventRow) toModel() (*models.Event, error) {
	kind, err := models.ParseSubjectKind(r.SubjectType)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", r.ID, err)
	}
	typ, err := models.ParseEventType(r.EventType)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", r.ID, err)
	}
	return &models.Event{
		ID:        r.ID,
		TaskID:    r.TaskID,
		Subject:   models.SubjectRef{Kind: kind, ID: r.SubjectID},
		Type:      typ,
		Metadata:  r.Metadata.V,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

var snapshotColumns = []string{
	"id", "task_id", "subject_type", "subject_id", "snapshot_type", "progress_at_snapshot",
	"total_time_at_snapshot", "state_data", "created_at",
}

type snapshotRow struct {
	ID                  uuid.UUID                   `db:"id"`
	TaskID              uuid.UUID                   `db:"task_id"`
	SubjectType         string                      `db:"subject_type"`
	SubjectID           uuid.UUID                   `db:"subject_id"`
	SnapshotType        string                      `db:"snapshot_type"`
	ProgressAtSnapshot  sql.NullInt64               `db:"progress_at_snapshot"`
	TotalTimeAtSnapshot int64                       `db:"total_time_at_snapshot"`
	StateData           jsonValue[models.StateData] `db:"state_data"`
	CreatedAt           time.Time                   `db:"created_at"`
}

func (r *snapshotRow) toModel() (*models.Snapshot, error) {
	kind, err := models.ParseSubjectKind(r.SubjectType)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", r.ID, err)
	}
	typ, err := models.ParseSnapshotType(r.SnapshotType)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", r.ID, err)
	}
	s := &models.Snapshot{
		ID:                  r.ID,
		TaskID:              r.TaskID,
		Subject:             models.SubjectRef{Kind: kind, ID: r.SubjectID},
		Type:                typ,
		TotalTimeAtSnapshot: r.TotalTimeAtSnapshot,
		StateData:           r.StateData.V,
		CreatedAt:           r.CreatedAt.UTC(),
	}
	if r.ProgressAtSnapshot.Valid {
		p := int(r.ProgressAtSnapshot.Int64)
		s.ProgressAtSnapshot = &p
	}
	return s, nil
}

// jsonValue stores V as a JSON document column.
type jsonValue[T any] struct {
	V T
}

// Value encodes as a string: lib/pq would send []byte as bytea, which jsonb rejects.
func (j jsonValue[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *jsonValue[T]) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	return json.Unmarshal(b, &j.V)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
