package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/tasktimer/internal/models"
)

func TestLifecycle_Scenario(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)

	task := h.CreateTask("Write report")
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Zero(t, task.TotalWorkingTime)

	started, err := h.Lifecycle.Start(ctx, h.Scope, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	h.Clock.Advance(100 * time.Second)
	pause, paused, err := h.Lifecycle.Pause(ctx, h.Scope, task.ID, models.PauseInput{Reason: "break"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, paused.Status)
	assert.Equal(t, int64(100), paused.TotalWorkingTime)
	assert.Equal(t, int64(100), pause.WorkDuration)
	assert.Nil(t, pause.ResumedAt)

	h.Clock.Advance(30 * time.Second)
	resumedPause, resumed, err := h.Lifecycle.Resume(ctx, h.Scope, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, resumed.Status)
	assert.Equal(t, pause.ID, resumedPause.ID)
	require.NotNil(t, resumedPause.ResumedAt)
	assert.Equal(t, h.Clock.Now(), *resumed.LastResumedAt)

	h.Clock.Advance(50 * time.Second)
	completed, err := h.Lifecycle.Complete(ctx, h.Scope, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, int64(150), completed.TotalWorkingTime)

	stored := h.Reload(task.ID)
	assert.Equal(t, int64(150), stored.TotalWorkingTime)
	assert.Equal(t, 1, stored.PauseCount)
	assert.Equal(t, int64(5), stored.Version)

	h.AssertAuditCounts(task.ID, 4, 2)
	assert.Equal(t, []models.EventType{
		models.EventStarted, models.EventPaused, models.EventResumed, models.EventCompleted,
	}, h.Dispatcher.types())
}

func TestLifecycle_PauseTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	task := h.StartedTask("twice")

	h.Clock.Advance(time.Minute)
	_, _, err := h.Lifecycle.Pause(ctx, h.Scope, task.ID, models.PauseInput{Reason: "break"})
	require.NoError(t, err)
	before := h.Reload(task.ID)

	h.Clock.Advance(time.Minute)
	_, _, err = h.Lifecycle.Pause(ctx, h.Scope, task.ID, models.PauseInput{Reason: "break"})
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	assert.Equal(t, before, h.Reload(task.ID))
	h.AssertAuditCounts(task.ID, 2, 1)

	pauses, err := h.Store.ListPauses(ctx, task.ID, false)
	require.NoError(t, err)
	assert.Len(t, pauses, 1)
}

func TestLifecycle_CompleteTwiceKeepsWorkingTime(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	task := h.StartedTask("done")

	h.Clock.Advance(42 * time.Second)
	first, err := h.Lifecycle.Complete(ctx, h.Scope, task.ID)
	require.NoError(t, err)

	h.Clock.Advance(time.Hour)
	_, err = h.Lifecycle.Complete(ctx, h.Scope, task.ID)
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	assert.Equal(t, first.TotalWorkingTime, h.Reload(task.ID).TotalWorkingTime)
	assert.Equal(t, int64(42), first.TotalWorkingTime)
}

func TestLifecycle_InvalidTransitionsFromState(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(h *TestHelpers) uuid.UUID
		call  func(h *TestHelpers, id uuid.UUID) error
		from  models.Status
	}{
		{
			name:  "resume pending",
			setup: func(h *TestHelpers) uuid.UUID { return h.CreateTask("x").ID },
			call: func(h *TestHelpers, id uuid.UUID) error {
				_, _, err := h.Lifecycle.Resume(ctx, h.Scope, id)
				return err
			},
			from: models.StatusPending,
		},
		{
			name:  "complete pending",
			setup: func(h *TestHelpers) uuid.UUID { return h.CreateTask("x").ID },
			call: func(h *TestHelpers, id uuid.UUID) error {
				_, err := h.Lifecycle.Complete(ctx, h.Scope, id)
				return err
			},
			from: models.StatusPending,
		},
		{
			name:  "start in progress",
			setup: func(h *TestHelpers) uuid.UUID { return h.StartedTask("x").ID },
			call: func(h *TestHelpers, id uuid.UUID) error {
				_, err := h.Lifecycle.Start(ctx, h.Scope, id)
				return err
			},
			from: models.StatusInProgress,
		},
		{
			name: "complete paused",
			setup: func(h *TestHelpers) uuid.UUID {
				id := h.StartedTask("x").ID
				_, _, err := h.Lifecycle.Pause(ctx, h.Scope, id, models.PauseInput{Reason: "break"})
				require.NoError(h.t, err)
				return id
			},
			call: func(h *TestHelpers, id uuid.UUID) error {
				_, err := h.Lifecycle.Complete(ctx, h.Scope, id)
				return err
			},
			from: models.StatusPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTestHelpers(t)
			id := tt.setup(h)
			dispatched := len(h.Dispatcher.types())

			err := tt.call(h, id)
			require.ErrorIs(t, err, models.ErrInvalidTransition)
			var terr *models.TransitionError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.from, terr.From)
			assert.Len(t, h.Dispatcher.types(), dispatched, "rejected transitions dispatch nothing")
		})
	}
}

func TestLifecycle_ValidationRunsFirst(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	task := h.CreateTask("pending")

	_, _, err := h.Lifecycle.Pause(ctx, h.Scope, task.ID, models.PauseInput{Reason: "  ", Progress: intPtr(150)})
	require.ErrorIs(t, err, models.ErrValidation)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestLifecycle_ScopeFailsClosed(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	task := h.CreateTask("private")

	stranger := models.Scope{AccountID: h.Scope.AccountID, UserID: uuid.New()}
	_, err := h.Lifecycle.Start(ctx, stranger, task.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = h.Lifecycle.Start(ctx, h.Scope, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, models.StatusPending, h.Reload(task.ID).Status)
}

func TestLifecycle_DispatchFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	h.Dispatcher.err = errors.New("broker down")
	task := h.CreateTask("resilient")

	started, err := h.Lifecycle.Start(ctx, h.Scope, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)
	assert.Equal(t, models.StatusInProgress, h.Reload(task.ID).Status)
}

func TestLifecycle_BlockerPauseNeedsAttention(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	task := h.StartedTask("blocked")

	_, _, err := h.Lifecycle.Pause(ctx, h.Scope, task.ID, models.PauseInput{Reason: models.PauseReasonBlocker})
	require.NoError(t, err)

	last := h.Dispatcher.events[len(h.Dispatcher.events)-1]
	assert.Equal(t, models.EventPaused, last.Type)
	assert.True(t, last.NeedsAttention)
	assert.Equal(t, h.Scope.AccountID, last.AccountID)
}

func TestLifecycle_ConcurrentPausesOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	task := h.StartedTask("contended")
	h.Clock.Advance(time.Minute)

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = h.Lifecycle.Pause(ctx, h.Scope, task.ID, models.PauseInput{Reason: "break"})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	}
	assert.Equal(t, 1, ok)

	stored := h.Reload(task.ID)
	assert.Equal(t, int64(60), stored.TotalWorkingTime)
	assert.Equal(t, 1, stored.PauseCount)
	h.AssertAuditCounts(task.ID, 2, 1)
}

func TestLifecycle_PausedIffOneActivePause(t *testing.T) {
	ctx := context.Background()
	h := NewTestHelpers(t)
	task := h.StartedTask("invariant")

	check := func() {
		t.Helper()
		stored := h.Reload(task.ID)
		_, err := h.Store.ActivePause(ctx, task.ID)
		if stored.IsPaused() {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, models.ErrNotFound)
		}
	}

	for i := 0; i < 3; i++ {
		check()
		h.Clock.Advance(10 * time.Second)
		_, _, err := h.Lifecycle.Pause(ctx, h.Scope, task.ID, models.PauseInput{Reason: "break"})
		require.NoError(t, err)
		check()
		h.Clock.Advance(5 * time.Second)
		_, _, err = h.Lifecycle.Resume(ctx, h.Scope, task.ID)
		require.NoError(t, err)
	}
	check()

	stored := h.Reload(task.ID)
	assert.Equal(t, 3, stored.PauseCount)
	assert.Equal(t, int64(30), stored.TotalWorkingTime)
}

func TestOptions_Retry(t *testing.T) {
	ctx := context.Background()
	o := newOptions([]Option{WithMaxRetries(2)})

	var calls int
	err := o.retry(ctx, "test", func() error {
		calls++
		if calls < 3 {
			return models.ErrConcurrencyConflict
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = o.retry(ctx, "test", func() error {
		calls++
		return models.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)
	assert.Equal(t, 3, calls)

	calls = 0
	err = o.retry(ctx, "test", func() error {
		calls++
		return models.ErrInvalidTransition
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, 1, calls, "only conflicts are retried")
}
