package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transition is everything one lifecycle operation changed. The store persists
// it as a single unit.
type Transition struct {
	Task *Task
	// Pause is the entry created by a pause or closed by a resume.
	Pause    *Pause
	Event    Event
	Snapshot *Snapshot
	// NewPause is true when Pause must be inserted rather than updated.
	NewPause bool
}

// LifecycleEvent is the domain event handed to dispatchers after commit.
type LifecycleEvent struct {
	Type             EventType  `json:"type"`
	TaskID           uuid.UUID  `json:"task_id"`
	UserID           uuid.UUID  `json:"user_id"`
	AccountID        uuid.UUID  `json:"account_id"`
	Title            string     `json:"title"`
	Status           Status     `json:"status"`
	PauseID          *uuid.UUID `json:"pause_id,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	NeedsAttention   bool       `json:"needs_attention"`
	TotalWorkingTime int64      `json:"total_working_time"`
	PauseCount       int        `json:"pause_count"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// LifecycleEvent derives the domain event for this transition.
func (tr *Transition) LifecycleEvent() LifecycleEvent {
	ev := newLifecycleEvent(tr.Task, tr.Event.Type, tr.Event.CreatedAt)
	if tr.Pause != nil {
		id := tr.Pause.ID
		ev.PauseID = &id
		ev.Reason = tr.Pause.Reason
		ev.NeedsAttention = tr.Event.Type == EventPaused && tr.Pause.Reason == PauseReasonBlocker
	}
	return ev
}

// OverdueEvent builds the notification for a task past its due date.
func OverdueEvent(t *Task, now time.Time) LifecycleEvent {
	ev := newLifecycleEvent(t, EventOverdue, now)
	ev.NeedsAttention = true
	return ev
}

func newLifecycleEvent(t *Task, typ EventType, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		Type:             typ,
		TaskID:           t.ID,
		UserID:           t.UserID,
		AccountID:        t.AccountID,
		Title:            t.Title,
		Status:           t.Status,
		TotalWorkingTime: t.TotalWorkingTime,
		PauseCount:       t.PauseCount,
		DueAt:            t.DueAt,
		OccurredAt:       at,
	}
}

// Start moves a pending task into progress.
func (t *Task) Start(now time.Time) (*Transition, error) {
	if t.Status != StatusPending {
		return nil, &TransitionError{Op: "start", From: t.Status}
	}

	t.Status = StatusInProgress
	if t.StartedAt == nil {
		t.StartedAt = timePtr(now)
	}
	t.LastResumedAt = timePtr(now)
	t.UpdatedAt = now

	return &Transition{
		Task:  t,
		Event: newEvent(t, TaskSubject(t.ID), EventStarted, now),
	}, nil
}

// Pause closes the running session, adds it to the working time and opens a
// pause ledger entry.
func (t *Task) Pause(now time.Time, in PauseInput) (*Transition, error) {
	if t.Status != StatusInProgress {
		return nil, &TransitionError{Op: "pause", From: t.Status}
	}

	work := t.closeSession(now)
	progress := in.progress()

	pause := &Pause{
		ID:                 uuid.New(),
		TaskID:             t.ID,
		PausedAt:           now,
		WorkDuration:       work,
		Reason:             in.Reason,
		Comment:            in.Comment,
		ProgressPercentage: progress,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	t.PauseCount++
	t.Status = StatusPaused
	t.UpdatedAt = now

	subject := PauseSubject(pause.ID)
	return &Transition{
		Task:     t,
		Pause:    pause,
		NewPause: true,
		Event:    newEvent(t, subject, EventPaused, now),
		Snapshot: newSnapshot(t, subject, SnapshotPause, &progress, now),
	}, nil
}

// Resume closes the active pause and starts a new working session.
func (t *Task) Resume(now time.Time, active *Pause) (*Transition, error) {
	if t.Status != StatusPaused {
		return nil, &TransitionError{Op: "resume", From: t.Status}
	}
	if active == nil || !active.Active() || active.TaskID != t.ID {
		return nil, fmt.Errorf("active pause for task %s: %w", t.ID, ErrNotFound)
	}

	active.ResumedAt = timePtr(now)
	active.UpdatedAt = now

	t.Status = StatusInProgress
	t.LastResumedAt = timePtr(now)
	t.UpdatedAt = now

	return &Transition{
		Task:  t,
		Pause: active,
		Event: newEvent(t, PauseSubject(active.ID), EventResumed, now),
	}, nil
}

// Complete finishes an in-progress task, folding the running session into the
// working time.
func (t *Task) Complete(now time.Time) (*Transition, error) {
	if t.Status != StatusInProgress {
		return nil, &TransitionError{Op: "complete", From: t.Status}
	}

	t.closeSession(now)
	t.Status = StatusCompleted
	t.CompletedAt = timePtr(now)
	t.UpdatedAt = now

	full := 100
	subject := TaskSubject(t.ID)
	return &Transition{
		Task:     t,
		Event:    newEvent(t, subject, EventCompleted, now),
		Snapshot: newSnapshot(t, subject, SnapshotMilestone, &full, now),
	}, nil
}

// closeSession adds the time since the last resume to the working total and
// returns it.
func (t *Task) closeSession(now time.Time) int64 {
	if t.LastResumedAt == nil {
		return 0
	}
	work := ElapsedSeconds(*t.LastResumedAt, now)
	t.TotalWorkingTime += work
	return work
}

func timePtr(t time.Time) *time.Time {
	return &t
}
