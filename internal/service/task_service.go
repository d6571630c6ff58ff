package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/repository"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// TaskService manages task records. Status and timing fields are owned by
// LifecycleService and are never written here.
type TaskService struct {
	store *repository.Store
	cache StatsCache
	opts  options
}

func NewTaskService(store *repository.Store, cache StatsCache, opts ...Option) *TaskService {
	return &TaskService{
		store: store,
		cache: cache,
		opts:  newOptions(opts),
	}
}

// TaskInput holds the fields accepted on create.
type TaskInput struct {
	Title       string
	Description string
	Priority    string
	DueAt       *time.Time
}

// TaskUpdate holds a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *string
	DueAt       *time.Time
	ClearDueAt  bool
}

// TaskSummary is the compact form used by TasksByStatus.
type TaskSummary struct {
	ID               uuid.UUID       `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Priority         models.Priority `json:"priority"`
	Status           models.Status   `json:"status"`
	DueAt            *time.Time      `json:"due_at,omitempty"`
	PauseCount       int             `json:"pause_count"`
	TotalWorkingTime int64           `json:"total_working_time"`
}

// CreateTask validates input and stores a new pending task.
func (s *TaskService) CreateTask(ctx context.Context, scope models.Scope, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)

	verr := &models.ValidationError{}
	validateTitle(verr, title)
	validateDescription(verr, description)
	priority, err := models.ParsePriority(strings.TrimSpace(in.Priority))
	if err != nil {
		verr.Add("priority", "must be one of low, medium, high")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	task := models.NewTask(scope, title, description, priority, utcPtr(in.DueAt), s.opts.clock())
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.opts.logger.Info("task created", "task_id", task.ID, "account_id", scope.AccountID)
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, scope models.Scope, id uuid.UUID) (*models.Task, error) {
	return s.store.GetTask(ctx, scope, id)
}

// UpdateTask applies a partial update to the editable fields of a task.
func (s *TaskService) UpdateTask(ctx context.Context, scope models.Scope, id uuid.UUID, upd TaskUpdate) (*models.Task, error) {
	verr := &models.ValidationError{}
	var priority models.Priority
	if upd.Title != nil {
		validateTitle(verr, strings.TrimSpace(*upd.Title))
	}
	if upd.Description != nil {
		validateDescription(verr, strings.TrimSpace(*upd.Description))
	}
	if upd.Priority != nil {
		p, err := models.ParsePriority(strings.TrimSpace(*upd.Priority))
		if err != nil {
			verr.Add("priority", "must be one of low, medium, high")
		}
		priority = p
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var task *models.Task
	err := s.opts.retry(ctx, "update", func() error {
		return s.store.InTx(ctx, func(tx *repository.Tx) error {
			t, err := tx.GetTask(ctx, scope, id)
			if err != nil {
				return err
			}
			if upd.Title != nil {
				t.Title = strings.TrimSpace(*upd.Title)
			}
			if upd.Description != nil {
				t.Description = strings.TrimSpace(*upd.Description)
			}
			if upd.Priority != nil {
				t.Priority = priority
			}
			switch {
			case upd.ClearDueAt:
				t.DueAt = nil
			case upd.DueAt != nil:
				t.DueAt = utcPtr(upd.DueAt)
			}
			t.UpdatedAt = s.opts.clock()

			if err := tx.UpdateTaskDetails(ctx, t); err != nil {
				return err
			}
			task = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task and its whole history.
func (s *TaskService) DeleteTask(ctx context.Context, scope models.Scope, id uuid.UUID) error {
	if err := s.store.DeleteTask(ctx, scope, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.opts.logger.Warn("invalidate stats cache", "task_id", id, "error", err)
		}
	}
	s.opts.logger.Info("task deleted", "task_id", id, "account_id", scope.AccountID)
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, scope models.Scope, filter repository.TaskFilter) ([]*models.Task, error) {
	return s.store.ListTasks(ctx, scope, filter)
}

// TasksByStatus groups every task of scope by status. All statuses are
// present in the result, possibly with no tasks.
func (s *TaskService) TasksByStatus(ctx context.Context, scope models.Scope) (map[models.Status][]TaskSummary, error) {
	tasks, err := s.store.ListTasks(ctx, scope, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	buckets := make(map[models.Status][]TaskSummary, 4)
	for _, st := range models.Statuses() {
		buckets[st] = []TaskSummary{}
	}
	for _, t := range tasks {
		buckets[t.Status] = append(buckets[t.Status], TaskSummary{
			ID:               t.ID,
			Title:            t.Title,
			Description:      t.Description,
			Priority:         t.Priority,
			Status:           t.Status,
			DueAt:            t.DueAt,
			PauseCount:       t.PauseCount,
			TotalWorkingTime: t.TotalWorkingTime,
		})
	}
	return buckets, nil
}

func validateTitle(verr *models.ValidationError, title string) {
	switch {
	case title == "":
		verr.Add("title", "is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		verr.Addf("title", "must be at most %d characters", maxTitleLength)
	case models.HasControlChars(title):
		verr.Add("title", "must not contain control characters")
	}
}

func validateDescription(verr *models.ValidationError, description string) {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		verr.Addf("description", "must be at most %d characters", maxDescriptionLength)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}
