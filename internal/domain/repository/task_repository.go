package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
)

// TaskSearcher finds an owner's tasks whose statement contains keyword,
// case-insensitively, ordered by task_date desc then sort_order asc.
type TaskSearcher interface {
	Search(ctx context.Context, ownerID int64, keyword string) ([]entity.Task, error)
}

// TaskRepository is the only data-access surface for tasks.
// GetByID, Update, Delete and Reorder are not scoped by owner; callers
// authorize first.
type TaskRepository interface {
	TaskSearcher
	List(ctx context.Context, ownerID int64) ([]entity.Task, error)
	ListByDate(ctx context.Context, ownerID int64, date time.Time) ([]entity.Task, error)
	GetByID(ctx context.Context, id int64) (*entity.Task, error)
	Create(ctx context.Context, t *entity.Task) error
	Update(ctx context.Context, id int64, patch entity.TaskPatch) (*entity.Task, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, items []entity.SortOrderUpdate) error
}
