package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/tasktimer/internal/middleware"
	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/repository"
	"github.com/gurkanbulca/tasktimer/internal/service"
)

// Server implements TrackerServer on top of the domain services.
type Server struct {
	tasks     *service.TaskService
	lifecycle *service.LifecycleService
	pauses    *service.PauseService
	reports   *service.ReportService
	logger    *slog.Logger
}

var _ TrackerServer = (*Server)(nil)

func New(
	tasks *service.TaskService,
	lifecycle *service.LifecycleService,
	pauses *service.PauseService,
	reports *service.ReportService,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tasks:     tasks,
		lifecycle: lifecycle,
		pauses:    pauses,
		reports:   reports,
		logger:    logger,
	}
}

type idRequest struct {
	ID string `json:"id"`
}

type createRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueAt       *time.Time `json:"due_at"`
}

type updateRequest struct {
	ID          string     `json:"id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	DueAt       *time.Time `json:"due_at"`
	ClearDueAt  bool       `json:"clear_due_at"`
}

type listRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type pauseRequest struct {
	ID       string `json:"id"`
	Reason   string `json:"reason"`
	Comment  string `json:"comment"`
	Progress *int   `json:"progress"`
}

// call resolves the caller scope, runs fn and converts its result.
func (s *Server) call(ctx context.Context, fn func(models.Scope) (any, error)) (*structpb.Struct, error) {
	scope, ok := middleware.ScopeFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing actor scope")
	}
	resp, err := fn(scope)
	if err != nil {
		return nil, toStatus(ctx, s.logger, err)
	}
	return encode(resp)
}

// withID decodes an id-only request and runs fn with the parsed task id.
func (s *Server) withID(ctx context.Context, in *structpb.Struct, fn func(models.Scope, uuid.UUID) (any, error)) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, func(scope models.Scope) (any, error) {
		return fn(scope, id)
	})
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "invalid task id")
	}
	return id, nil
}

func (s *Server) CreateTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return s.call(ctx, func(scope models.Scope) (any, error) {
		task, err := s.tasks.CreateTask(ctx, scope, service.TaskInput{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			DueAt:       req.DueAt,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil
	})
}

func (s *Server) GetTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		task, err := s.tasks.GetTask(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil
	})
}

func (s *Server) UpdateTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, func(scope models.Scope) (any, error) {
		task, err := s.tasks.UpdateTask(ctx, scope, id, service.TaskUpdate{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			DueAt:       req.DueAt,
			ClearDueAt:  req.ClearDueAt,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil
	})
}

func (s *Server) DeleteTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		if err := s.tasks.DeleteTask(ctx, scope, id); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": true}, nil
	})
}

func (s *Server) ListTasks(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	filter, err := req.filter()
	if err != nil {
		return nil, err
	}
	return s.call(ctx, func(scope models.Scope) (any, error) {
		tasks, err := s.tasks.ListTasks(ctx, scope, filter)
		if err != nil {
			return nil, err
		}
		if tasks == nil {
			tasks = []*models.Task{}
		}
		return map[string]any{"tasks": tasks}, nil
	})
}

// filter parses a comma separated status list and the paging fields.
func (r listRequest) filter() (repository.TaskFilter, error) {
	verr := &models.ValidationError{}
	var f repository.TaskFilter
	for _, raw := range strings.Split(r.Status, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		st, err := models.ParseStatus(raw)
		if err != nil {
			verr.Addf("status", "unknown status %q", raw)
			continue
		}
		f.Statuses = append(f.Statuses, st)
	}
	if r.Priority != "" {
		p, err := models.ParsePriority(r.Priority)
		if err != nil {
			verr.Add("priority", "must be one of low, medium, high")
		}
		f.Priority = p
	}
	if r.Limit < 0 {
		verr.Add("limit", "must not be negative")
	}
	if r.Offset < 0 {
		verr.Add("offset", "must not be negative")
	}
	f.Limit, f.Offset = r.Limit, r.Offset
	if err := verr.OrNil(); err != nil {
		return f, status.Error(codes.InvalidArgument, err.Error())
	}
	return f, nil
}

func (s *Server) TasksByStatus(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.call(ctx, func(scope models.Scope) (any, error) {
		buckets, err := s.tasks.TasksByStatus(ctx, scope)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tasks_by_status": buckets}, nil
	})
}

func (s *Server) StartTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		task, err := s.lifecycle.Start(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil
	})
}

func (s *Server) PauseTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pauseRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, func(scope models.Scope) (any, error) {
		res, err := s.pauses.Pause(ctx, scope, id, models.PauseInput{
			Reason:   req.Reason,
			Comment:  req.Comment,
			Progress: req.Progress,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"pause": res.Pause,
			"task":  res.Task,
			"stats": res.Stats,
		}, nil
	})
}

func (s *Server) ResumeTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		pause, task, err := s.pauses.Resume(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"pause": pause, "task": task}, nil
	})
}

func (s *Server) CompleteTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		task, err := s.lifecycle.Complete(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil
	})
}

func (s *Server) GetPauseStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		stats, err := s.pauses.Stats(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"stats": stats}, nil
	})
}

func (s *Server) GetPauseHistory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		pauses, err := s.pauses.History(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		if pauses == nil {
			pauses = []*models.Pause{}
		}
		return map[string]any{"pauses": pauses}, nil
	})
}

func (s *Server) GetEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		evs, err := s.reports.Events(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		if evs == nil {
			evs = []*models.Event{}
		}
		return map[string]any{"events": evs}, nil
	})
}

func (s *Server) GetSnapshots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		snaps, err := s.reports.Snapshots(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"snapshots": snaps}, nil
	})
}

func (s *Server) GetTimeline(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		entries, err := s.reports.Timeline(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"timeline": entries}, nil
	})
}

func (s *Server) GetReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.withID(ctx, in, func(scope models.Scope, id uuid.UUID) (any, error) {
		rep, err := s.reports.Report(ctx, scope, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"report": rep}, nil
	})
}
