package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/policy"
	repo "github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-ddd-task-manager/pkg/validation"
)

// TaskService runs every task operation through the ownership policy.
// A missing task is always reported before an authorization failure.
type TaskService struct {
	Repo     repo.TaskRepository
	Searcher repo.TaskSearcher
	Policy   policy.TaskPolicy
	Events   EventPublisher // optional
	Logger   *logrus.Logger
}

// NewTaskService falls back to the repository for search when searcher is nil.
func NewTaskService(r repo.TaskRepository, searcher repo.TaskSearcher, events EventPublisher, logger *logrus.Logger) *TaskService {
	if searcher == nil {
		searcher = r
	}
	return &TaskService{Repo: r, Searcher: searcher, Policy: policy.NewTaskPolicy(), Events: events, Logger: logger}
}

// CreateTaskInput is a validated create request.
type CreateTaskInput struct {
	Statement string
	TaskDate  time.Time
	SortOrder *int
}

func (s *TaskService) List(ctx context.Context, p entity.Principal) ([]entity.Task, error) {
	if p.ID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.Repo.List(ctx, p.ID)
}

func (s *TaskService) ListByDate(ctx context.Context, p entity.Principal, date time.Time) ([]entity.Task, error) {
	if p.ID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.Repo.ListByDate(ctx, p.ID, date)
}

// Search matches keyword as a case-insensitive substring of the statement.
func (s *TaskService) Search(ctx context.Context, p entity.Principal, keyword string) ([]entity.Task, error) {
	if p.ID == 0 {
		return nil, ErrUnauthenticated
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, validation.Field("keyword", "is required")
	}
	return s.Searcher.Search(ctx, p.ID, keyword)
}

func (s *TaskService) Create(ctx context.Context, p entity.Principal, in CreateTaskInput) (*entity.Task, error) {
	if p.ID == 0 {
		return nil, ErrUnauthenticated
	}
	if !s.Policy.CanCreate(p) {
		return nil, ErrForbidden
	}
	t := &entity.Task{
		UserID:    p.ID,
		Statement: strings.TrimSpace(in.Statement),
		TaskDate:  in.TaskDate,
	}
	if in.SortOrder != nil {
		if !validSortOrder(*in.SortOrder) {
			return nil, validation.Field("sort_order", sortOrderMsg)
		}
		t.SortOrder = *in.SortOrder
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		return nil, err
	}
	metrics.Add(metricTaskCreated, 1)
	publish(ctx, s.Events, s.Logger, taskEvent(TaskCreated, t))
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, p entity.Principal, id int64) (*entity.Task, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanView(p, t) {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, p entity.Principal, id int64, patch entity.TaskPatch) (*entity.Task, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanUpdate(p, t) {
		return nil, ErrForbidden
	}
	if patch.SortOrder != nil && !validSortOrder(*patch.SortOrder) {
		return nil, validation.Field("sort_order", sortOrderMsg)
	}
	if patch.Statement != nil {
		trimmed := strings.TrimSpace(*patch.Statement)
		patch.Statement = &trimmed
	}
	updated, err := s.Repo.Update(ctx, id, patch)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if !patch.Empty() {
		metrics.Add(metricTaskUpdated, 1)
		publish(ctx, s.Events, s.Logger, taskEvent(TaskUpdated, updated))
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, p entity.Principal, id int64) error {
	t, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !s.Policy.CanDelete(p, t) {
		return ErrForbidden
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	metrics.Add(metricTaskDeleted, 1)
	publish(ctx, s.Events, s.Logger, taskEvent(TaskDeleted, t))
	return nil
}

// Reorder resolves every id, then authorizes every task, and only then writes.
// Either step failing leaves all tasks untouched.
func (s *TaskService) Reorder(ctx context.Context, p entity.Principal, items []entity.SortOrderUpdate) error {
	if len(items) == 0 {
		return validation.Field("tasks", "is required")
	}
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return validation.Field("tasks", "must not contain duplicate ids")
		}
		seen[it.ID] = struct{}{}
		if !validSortOrder(it.SortOrder) {
			return validation.Field("tasks", "sort_order "+sortOrderMsg)
		}
	}

	tasks := make([]*entity.Task, 0, len(items))
	for _, it := range items {
		t, err := s.find(ctx, it.ID)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
	}
	if !s.Policy.CanReorder(p, tasks) {
		return ErrForbidden
	}

	if err := s.Repo.Reorder(ctx, items); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	metrics.Add(metricTaskReordered, 1)
	publish(ctx, s.Events, s.Logger, reorderEvent(p.ID, items))
	return nil
}

const sortOrderMsg = "must be an integer between 0 and 2147483647"

func validSortOrder(n int) bool { return n >= 0 && n <= entity.MaxSortOrder }

func (s *TaskService) find(ctx context.Context, id int64) (*entity.Task, error) {
	t, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
