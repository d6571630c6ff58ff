package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/tasktimer/internal/database/dbtest"
	"github.com/gurkanbulca/tasktimer/internal/events"
	"github.com/gurkanbulca/tasktimer/internal/logging"
	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
	"github.com/gurkanbulca/tasktimer/internal/repository"
)

var t0 = time.Date(2025, 10, 26, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev models.LifecycleEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return d.err
}

func (d *recordingDispatcher) types() []models.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.EventType, len(d.events))
	for i, ev := range d.events {
		out[i] = ev.Type
	}
	return out
}

type memStatsCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]report.Stats
	hits        int
	invalidated []uuid.UUID
}

func newMemStatsCache() *memStatsCache {
	return &memStatsCache{entries: map[uuid.UUID]report.Stats{}}
}

func (c *memStatsCache) Get(_ context.Context, id uuid.UUID) (*report.Stats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return &s, true, nil
}

func (c *memStatsCache) Set(_ context.Context, id uuid.UUID, s *report.Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = *s
	return nil
}

func (c *memStatsCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// TestHelpers wires every service against a fresh sqlite database, a fake
// clock and a recording dispatcher.
type TestHelpers struct {
	t          *testing.T
	Store      *repository.Store
	Clock      *fakeClock
	Dispatcher *recordingDispatcher
	Cache      *memStatsCache
	Scope      models.Scope

	Lifecycle *LifecycleService
	Pauses    *PauseService
	Tasks     *TaskService
	Reports   *ReportService
	Sweeper   *OverdueSweeper
}

func NewTestHelpers(t *testing.T) *TestHelpers {
	t.Helper()

	h := &TestHelpers{
		t:          t,
		Store:      repository.NewStore(dbtest.Open(t)),
		Clock:      &fakeClock{now: t0},
		Dispatcher: &recordingDispatcher{},
		Cache:      newMemStatsCache(),
		Scope:      models.Scope{AccountID: uuid.New(), UserID: uuid.New()},
	}

	opts := []Option{WithClock(h.Clock.Now), WithLogger(logging.Discard())}
	dispatcher := events.NewMultiDispatcher(h.Dispatcher, events.NewCacheInvalidator(h.Cache))

	h.Lifecycle = NewLifecycleService(h.Store, dispatcher, opts...)
	h.Pauses = NewPauseService(h.Lifecycle, h.Store, h.Cache, opts...)
	h.Tasks = NewTaskService(h.Store, h.Cache, opts...)
	h.Reports = NewReportService(h.Store, opts...)
	h.Sweeper = NewOverdueSweeper(h.Store, h.Dispatcher, opts...)
	return h
}

// CreateTask creates a pending task owned by h.Scope.
func (h *TestHelpers) CreateTask(title string) *models.Task {
	h.t.Helper()
	task, err := h.Tasks.CreateTask(context.Background(), h.Scope, TaskInput{Title: title})
	require.NoError(h.t, err)
	return task
}

// StartedTask creates a task and starts it at the current clock.
func (h *TestHelpers) StartedTask(title string) *models.Task {
	h.t.Helper()
	task := h.CreateTask(title)
	started, err := h.Lifecycle.Start(context.Background(), h.Scope, task.ID)
	require.NoError(h.t, err)
	return started
}

// Reload reads the task back from the store.
func (h *TestHelpers) Reload(id uuid.UUID) *models.Task {
	h.t.Helper()
	task, err := h.Store.GetTask(context.Background(), h.Scope, id)
	require.NoError(h.t, err)
	return task
}

// AssertAuditCounts checks how many events and snapshots a task has.
func (h *TestHelpers) AssertAuditCounts(id uuid.UUID, events, snapshots int) {
	h.t.Helper()
	ctx := context.Background()

	evs, err := h.Store.ListEvents(ctx, id)
	require.NoError(h.t, err)
	require.Len(h.t, evs, events)

	snaps, err := h.Store.ListSnapshots(ctx, id)
	require.NoError(h.t, err)
	require.Len(h.t, snaps, snapshots)
}

func intPtr(v int) *int { return &v }
