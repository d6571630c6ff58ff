package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubjectKind discriminates what an event or snapshot refers to.
type SubjectKind string

const (
	SubjectTask  SubjectKind = "task"
	SubjectPause SubjectKind = "pause"
)

// SubjectRef points at either the task itself or one of its pauses.
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   uuid.UUID   `json:"id"`
}

func TaskSubject(id uuid.UUID) SubjectRef  { return SubjectRef{Kind: SubjectTask, ID: id} }
func PauseSubject(id uuid.UUID) SubjectRef { return SubjectRef{Kind: SubjectPause, ID: id} }

func ParseSubjectKind(s string) (SubjectKind, error) {
	switch SubjectKind(s) {
	case SubjectTask, SubjectPause:
		return SubjectKind(s), nil
	default:
		return "", fmt.Errorf("unknown subject kind: %s", s)
	}
}

// EventType is the kind of lifecycle transition an audit event records.
type EventType string

const (
	EventStarted   EventType = "started"
	EventPaused    EventType = "paused"
	EventResumed   EventType = "resumed"
	EventCompleted EventType = "completed"

	// EventOverdue is only ever dispatched, it is never written to the audit log.
	EventOverdue EventType = "overdue"
)

func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventStarted, EventPaused, EventResumed, EventCompleted:
		return EventType(s), nil
	default:
		return "", fmt.Errorf("unknown event type: %s", s)
	}
}

// EventMetadata captures task counters at the moment of the event.
type EventMetadata struct {
	TotalWorkingTime int64     `json:"total_working_time"`
	PauseCount       int       `json:"pause_count"`
	Timestamp        time.Time `json:"timestamp"`
}

// Event is an append-only audit record of one lifecycle transition.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	TaskID    uuid.UUID     `json:"task_id"`
	Subject   SubjectRef    `json:"subject"`
	Type      EventType     `json:"event_type"`
	Metadata  EventMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

// SnapshotType is the reason a snapshot was taken.
type SnapshotType string

const (
	SnapshotPause     SnapshotType = "pause"
	SnapshotResume    SnapshotType = "resume"
	SnapshotMilestone SnapshotType = "milestone"
)

func ParseSnapshotType(s string) (SnapshotType, error) {
	switch SnapshotType(s) {
	case SnapshotPause, SnapshotResume, SnapshotMilestone:
		return SnapshotType(s), nil
	default:
		return "", fmt.Errorf("unknown snapshot type: %s", s)
	}
}

// StateData is the task state captured alongside a snapshot.
type StateData struct {
	Status           Status `json:"status"`
	PauseCount       int    `json:"pause_count"`
	TotalWorkingTime int64  `json:"total_working_time"`
}

// Snapshot is a point-in-time capture of progress and working time.
type Snapshot struct {
	ID                  uuid.UUID    `json:"id"`
	TaskID              uuid.UUID    `json:"task_id"`
	Subject             SubjectRef   `json:"subject"`
	Type                SnapshotType `json:"snapshot_type"`
	ProgressAtSnapshot  *int         `json:"progress_at_snapshot"`
	TotalTimeAtSnapshot int64        `json:"total_time_at_snapshot"`
	StateData           StateData    `json:"state_data"`
	CreatedAt           time.Time    `json:"created_at"`
}

func newEvent(t *Task, subject SubjectRef, typ EventType, now time.Time) Event {
	return Event{
		ID:      uuid.New(),
		TaskID:  t.ID,
		Subject: subject,
		Type:    typ,
		Metadata: EventMetadata{
			TotalWorkingTime: t.TotalWorkingTime,
			PauseCount:       t.PauseCount,
			Timestamp:        now,
		},
		CreatedAt: now,
	}
}

func newSnapshot(t *Task, subject SubjectRef, typ SnapshotType, progress *int, now time.Time) *Snapshot {
	return &Snapshot{
		ID:                  uuid.New(),
		TaskID:              t.ID,
		Subject:             subject,
		Type:                typ,
		ProgressAtSnapshot:  progress,
		TotalTimeAtSnapshot: t.TotalWorkingTime,
		StateData: StateData{
			Status:           t.Status,
			PauseCount:       t.PauseCount,
			TotalWorkingTime: t.TotalWorkingTime,
		},
		CreatedAt: now,
	}
}
