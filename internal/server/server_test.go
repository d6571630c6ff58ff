package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/gurkanbulca/tasktimer/internal/database/dbtest"
	"github.com/gurkanbulca/tasktimer/internal/events"
	"github.com/gurkanbulca/tasktimer/internal/logging"
	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
	"github.com/gurkanbulca/tasktimer/internal/repository"
	"github.com/gurkanbulca/tasktimer/internal/service"
)

var t0 = time.Date(2025, 10, 26, 9, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	client *Client
	conn   *grpc.ClientConn
	clock  *testClock
	scope  models.Scope
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.Discard()
	clock := &testClock{now: t0}
	opts := []service.Option{service.WithClock(clock.Now), service.WithLogger(logger)}

	store := repository.NewStore(dbtest.Open(t))
	lifecycle := service.NewLifecycleService(store, events.NopDispatcher{}, opts...)
	srv := New(
		service.NewTaskService(store, nil, opts...),
		lifecycle,
		service.NewPauseService(lifecycle, store, nil, opts...),
		service.NewReportService(store, opts...),
		logger,
	)

	lis := bufconn.Listen(1 << 20)
	grpcServer, _ := NewGRPCServer(srv, logger, GRPCOptions{})
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testEnv{
		client: NewClient(conn),
		conn:   conn,
		clock:  clock,
		scope:  models.Scope{AccountID: uuid.New(), UserID: uuid.New()},
	}
}

func (e *testEnv) ctx() context.Context {
	return WithActor(context.Background(), e.scope)
}

type taskResponse struct {
	Task models.Task `json:"task"`
}

func (e *testEnv) createTask(t *testing.T, title string) models.Task {
	t.Helper()
	var resp taskResponse
	require.NoError(t, e.client.Call(e.ctx(), "CreateTask", map[string]any{"title": title}, &resp))
	return resp.Task
}

func TestServer_LifecycleRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()
	task := env.createTask(t, "Ship release")
	assert.Equal(t, models.StatusPending, task.Status)
	id := task.ID.String()

	var started taskResponse
	require.NoError(t, env.client.Call(ctx, "StartTask", map[string]any{"id": id}, &started))
	assert.Equal(t, models.StatusInProgress, started.Task.Status)

	env.clock.Advance(100 * time.Second)
	var paused struct {
		Pause models.Pause `json:"pause"`
		Task  models.Task  `json:"task"`
		Stats report.Stats `json:"stats"`
	}
	require.NoError(t, env.client.Call(ctx, "PauseTask", map[string]any{
		"id":       id,
		"reason":   "  meeting ",
		"progress": 40,
	}, &paused))
	assert.Equal(t, models.StatusPaused, paused.Task.Status)
	assert.Equal(t, "meeting", paused.Pause.Reason)
	assert.Equal(t, 40, paused.Pause.ProgressPercentage)
	assert.Equal(t, int64(100), paused.Task.TotalWorkingTime)
	assert.Equal(t, 1, paused.Stats.TotalPauses)

	env.clock.Advance(60 * time.Second)
	require.NoError(t, env.client.Call(ctx, "ResumeTask", map[string]any{"id": id}, nil))

	env.clock.Advance(50 * time.Second)
	var completed taskResponse
	require.NoError(t, env.client.Call(ctx, "CompleteTask", map[string]any{"id": id}, &completed))
	assert.Equal(t, models.StatusCompleted, completed.Task.Status)
	assert.Equal(t, int64(150), completed.Task.TotalWorkingTime)

	var events struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, env.client.Call(ctx, "GetEvents", map[string]any{"id": id}, &events))
	require.Len(t, events.Events, 4)
	assert.Equal(t, models.EventCompleted, events.Events[0].Type)

	var timeline struct {
		Timeline []report.TimelineEntry `json:"timeline"`
	}
	require.NoError(t, env.client.Call(ctx, "GetTimeline", map[string]any{"id": id}, &timeline))
	require.Len(t, timeline.Timeline, 6)
	assert.Equal(t, "Task completed", timeline.Timeline[0].Description)

	var rep struct {
		Report report.Report `json:"report"`
	}
	require.NoError(t, env.client.Call(ctx, "GetReport", map[string]any{"id": id}, &rep))
	assert.Equal(t, int64(150), rep.Report.TimeSummary.TotalWorkingTime)
	require.Len(t, rep.Report.PauseHistory.Pauses, 1)
	assert.Equal(t, "meeting", rep.Report.PauseHistory.Pauses[0].Reason)
}

func TestServer_ErrorCodes(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "Codes")
	id := task.ID.String()

	tests := []struct {
		name   string
		ctx    context.Context
		method string
		req    map[string]any
		code   codes.Code
	}{
		{
			name:   "missing actor",
			ctx:    context.Background(),
			method: "GetTask",
			req:    map[string]any{"id": id},
			code:   codes.Unauthenticated,
		},
		{
			name:   "malformed id",
			ctx:    env.ctx(),
			method: "GetTask",
			req:    map[string]any{"id": "not-a-uuid"},
			code:   codes.InvalidArgument,
		},
		{
			name:   "missing id",
			ctx:    env.ctx(),
			method: "StartTask",
			req:    map[string]any{},
			code:   codes.InvalidArgument,
		},
		{
			name:   "unknown task",
			ctx:    env.ctx(),
			method: "GetTask",
			req:    map[string]any{"id": uuid.NewString()},
			code:   codes.NotFound,
		},
		{
			name:   "other owner",
			ctx:    WithActor(context.Background(), models.Scope{AccountID: uuid.New(), UserID: uuid.New()}),
			method: "GetTask",
			req:    map[string]any{"id": id},
			code:   codes.NotFound,
		},
		{
			name:   "invalid transition",
			ctx:    env.ctx(),
			method: "CompleteTask",
			req:    map[string]any{"id": id},
			code:   codes.FailedPrecondition,
		},
		{
			name:   "pause without reason",
			ctx:    env.ctx(),
			method: "PauseTask",
			req:    map[string]any{"id": id, "reason": "  "},
			code:   codes.InvalidArgument,
		},
		{
			name:   "progress out of range",
			ctx:    env.ctx(),
			method: "PauseTask",
			req:    map[string]any{"id": id, "reason": "lunch", "progress": 150},
			code:   codes.InvalidArgument,
		},
		{
			name:   "progress wrong type",
			ctx:    env.ctx(),
			method: "PauseTask",
			req:    map[string]any{"id": id, "reason": "lunch", "progress": "half"},
			code:   codes.InvalidArgument,
		},
		{
			name:   "empty title",
			ctx:    env.ctx(),
			method: "CreateTask",
			req:    map[string]any{"title": ""},
			code:   codes.InvalidArgument,
		},
		{
			name:   "unknown status filter",
			ctx:    env.ctx(),
			method: "ListTasks",
			req:    map[string]any{"status": "archived"},
			code:   codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.client.Call(tt.ctx, tt.method, tt.req, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err), err.Error())
		})
	}
}

func TestServer_ResumeRunningTaskIsDescriptive(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "Resume")
	id := task.ID.String()
	require.NoError(t, env.client.Call(env.ctx(), "StartTask", map[string]any{"id": id}, nil))

	err := env.client.Call(env.ctx(), "ResumeTask", map[string]any{"id": id}, nil)
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "Task must be paused to resume")
}

func TestServer_TaskManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx()

	first := env.createTask(t, "First")
	second := env.createTask(t, "Second")
	require.NoError(t, env.client.Call(ctx, "StartTask", map[string]any{"id": second.ID.String()}, nil))

	var updated taskResponse
	require.NoError(t, env.client.Call(ctx, "UpdateTask", map[string]any{
		"id":       first.ID.String(),
		"title":    "First, renamed",
		"priority": "high",
		"due_at":   t0.Add(48 * time.Hour).Format(time.RFC3339),
	}, &updated))
	assert.Equal(t, "First, renamed", updated.Task.Title)
	assert.Equal(t, models.PriorityHigh, updated.Task.Priority)
	require.NotNil(t, updated.Task.DueAt)

	var list struct {
		Tasks []models.Task `json:"tasks"`
	}
	require.NoError(t, env.client.Call(ctx, "ListTasks", map[string]any{"status": "in_progress"}, &list))
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, second.ID, list.Tasks[0].ID)

	var grouped struct {
		TasksByStatus map[models.Status][]service.TaskSummary `json:"tasks_by_status"`
	}
	require.NoError(t, env.client.Call(ctx, "TasksByStatus", nil, &grouped))
	assert.Len(t, grouped.TasksByStatus[models.StatusPending], 1)
	assert.Len(t, grouped.TasksByStatus[models.StatusInProgress], 1)
	assert.Empty(t, grouped.TasksByStatus[models.StatusCompleted])

	require.NoError(t, env.client.Call(ctx, "DeleteTask", map[string]any{"id": first.ID.String()}, nil))
	err := env.client.Call(ctx, "GetTask", map[string]any{"id": first.ID.String()}, nil)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_HealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	resp, err := healthpb.NewHealthClient(env.conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
