package application

import (
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

// TaskResource is the client-facing shape of a task. The owner is never exposed.
type TaskResource struct {
	ID          int64  `json:"id"`
	Statement   string `json:"statement"`
	IsCompleted bool   `json:"is_completed"`
	TaskDate    string `json:"task_date"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func NewTaskResource(t *entity.Task) TaskResource {
	return TaskResource{
		ID:          t.ID,
		Statement:   t.Statement,
		IsCompleted: t.IsCompleted,
		TaskDate:    helpers.FormatDate(t.TaskDate),
		SortOrder:   t.SortOrder,
		CreatedAt:   helpers.FormatInstant(t.CreatedAt),
		UpdatedAt:   helpers.FormatInstant(t.UpdatedAt),
	}
}

func NewTaskResources(tasks []entity.Task) []TaskResource {
	out := make([]TaskResource, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResource(&tasks[i]))
	}
	return out
}

// UserResource is the client-facing shape of a user.
type UserResource struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	ImageURL  *string `json:"image_url"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func NewUserResource(u *entity.User) UserResource {
	r := UserResource{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: helpers.FormatInstant(u.CreatedAt),
		UpdatedAt: helpers.FormatInstant(u.UpdatedAt),
	}
	if u.ImageURL != "" {
		img := u.ImageURL
		r.ImageURL = &img
	}
	return r
}
