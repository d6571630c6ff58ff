package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

// Task status constants
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// Priority constants
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusPaused, StatusCompleted}
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusPaused, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	case "":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("unknown priority: %s", s)
	}
}

// Scope identifies the actor on whose behalf an operation runs.
// Every task lookup is filtered by both ids.
type Scope struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
}

// Task is a unit of trackable work.
//
// TotalWorkingTime is in seconds and only grows, as a side effect of Pause and
// Complete. Version is bumped by the store on every write and is used to
// detect concurrent transitions.
type Task struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	AccountID        uuid.UUID  `json:"account_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Priority         Priority   `json:"priority"`
	Status           Status     `json:"status"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	TotalWorkingTime int64      `json:"total_working_time"`
	PauseCount       int        `json:"pause_count"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	LastResumedAt    *time.Time `json:"last_resumed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewTask builds a pending task owned by scope.
func NewTask(scope Scope, title, description string, priority Priority, dueAt *time.Time, now time.Time) *Task {
	if priority == "" {
		priority = PriorityLow
	}
	return &Task{
		ID:          uuid.New(),
		UserID:      scope.UserID,
		AccountID:   scope.AccountID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      StatusPending,
		DueAt:       dueAt,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (t *Task) IsPending() bool    { return t.Status == StatusPending }
func (t *Task) IsInProgress() bool { return t.Status == StatusInProgress }
func (t *Task) IsPaused() bool     { return t.Status == StatusPaused }
func (t *Task) IsCompleted() bool  { return t.Status == StatusCompleted }

// IsOverdue reports whether the due date has passed without completion.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueAt != nil && !t.IsCompleted() && t.DueAt.Before(now)
}

// CurrentSessionDuration is the time spent in the running session, 0 unless in progress.
func (t *Task) CurrentSessionDuration(now time.Time) int64 {
	if !t.IsInProgress() || t.LastResumedAt == nil {
		return 0
	}
	return ElapsedSeconds(*t.LastResumedAt, now)
}

// TotalElapsedTime is wall-clock time since the first start: up to completion
// for completed tasks, up to now otherwise.
func (t *Task) TotalElapsedTime(now time.Time) int64 {
	if t.StartedAt == nil {
		return 0
	}
	if t.IsCompleted() {
		end := t.UpdatedAt
		if t.CompletedAt != nil {
			end = *t.CompletedAt
		}
		return ElapsedSeconds(*t.StartedAt, end)
	}
	return ElapsedSeconds(*t.StartedAt, now)
}

// ElapsedSeconds returns whole seconds between from and to, truncated toward
// zero and clamped at zero when the clock went backwards.
func ElapsedSeconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
