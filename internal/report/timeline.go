package report

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
)

// EntryKind tags a timeline entry.
type EntryKind string

const (
	KindEvent    EntryKind = "event"
	KindSnapshot EntryKind = "snapshot"
)

// TimelineEntry is either an audit event or a snapshot; exactly one of Event
// and Snapshot is set, matching Kind. Description is set for events.
type TimelineEntry struct {
	Kind        EntryKind     `json:"type"`
	CreatedAt   time.Time     `json:"created_at"`
	Event       *models.Event `json:"event,omitempty"`
	Snapshot    *SnapshotView `json:"snapshot,omitempty"`
	Description string        `json:"description,omitempty"`
}

// SnapshotView is a snapshot with its change since the previous one.
type SnapshotView struct {
	*models.Snapshot
	// ProgressChange is nil when either progress value is unknown.
	ProgressChange *int  `json:"progress_change_since_last"`
	TimeChange     int64 `json:"time_change_since_last"`
}

// SnapshotDeltas annotates chronologically ordered snapshots with the change
// since the closest strictly earlier snapshot. The first snapshot's change is
// its own value.
func SnapshotDeltas(chrono []*models.Snapshot) []SnapshotView {
	views := make([]SnapshotView, len(chrono))
	for i, s := range chrono {
		var prev *models.Snapshot
		for j := i - 1; j >= 0; j-- {
			if chrono[j].CreatedAt.Before(s.CreatedAt) {
				prev = chrono[j]
				break
			}
		}

		v := SnapshotView{Snapshot: s, TimeChange: s.TotalTimeAtSnapshot}
		switch {
		case prev == nil:
			v.ProgressChange = s.ProgressAtSnapshot
		case s.ProgressAtSnapshot != nil && prev.ProgressAtSnapshot != nil:
			d := *s.ProgressAtSnapshot - *prev.ProgressAtSnapshot
			v.ProgressChange = &d
		}
		if prev != nil {
			v.TimeChange = s.TotalTimeAtSnapshot - prev.TotalTimeAtSnapshot
		}
		views[i] = v
	}
	return views
}

// Timeline merges events and snapshots newest first. On equal timestamps an
// event sorts before the snapshot taken with it.
func Timeline(events []*models.Event, snapshots []*models.Snapshot, pauses []*models.Pause) []TimelineEntry {
	byID := make(map[uuid.UUID]*models.Pause, len(pauses))
	for _, p := range pauses {
		byID[p.ID] = p
	}

	chrono := slices.Clone(snapshots)
	slices.SortStableFunc(chrono, func(a, b *models.Snapshot) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	entries := make([]TimelineEntry, 0, len(events)+len(snapshots))
	for _, e := range events {
		entries = append(entries, TimelineEntry{
			Kind:        KindEvent,
			CreatedAt:   e.CreatedAt,
			Event:       e,
			Description: Describe(e, byID[e.Subject.ID]),
		})
	}
	for _, v := range SnapshotDeltas(chrono) {
		entries = append(entries, TimelineEntry{
			Kind:      KindSnapshot,
			CreatedAt: v.CreatedAt,
			Snapshot:  &v,
		})
	}

	slices.SortStableFunc(entries, func(a, b TimelineEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return entries
}

// Describe renders a human description of an event. pause is the pause the
// event refers to, if any.
func Describe(e *models.Event, pause *models.Pause) string {
	switch e.Type {
	case models.EventStarted:
		return "Task started"
	case models.EventPaused:
		if pause == nil {
			return "Task paused"
		}
		return "Task paused - " + pause.Reason
	case models.EventResumed:
		if pause == nil {
			return "Task resumed"
		}
		if pause.Active() {
			return "Task resumed after Ongoing"
		}
		return "Task resumed after " + FormatClock(pause.Duration())
	case models.EventCompleted:
		return "Task completed"
	default:
		return string(e.Type)
	}
}
