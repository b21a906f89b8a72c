package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
)

// Task event types published after a successful write.
const (
	TaskCreated   = "task.created"
	TaskUpdated   = "task.updated"
	TaskDeleted   = "task.deleted"
	TaskReordered = "task.reordered"
)

// EventPublisher is satisfied by helpers.RabbitPublisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// SortOrderItem is one entry of a reorder event.
type SortOrderItem struct {
	ID        int64 `json:"id"`
	SortOrder int   `json:"sort_order"`
}

// TaskEvent is the message put on the task events queue. Unlike TaskResource
// it carries the owner id, since consumers are internal.
type TaskEvent struct {
	Type       string          `json:"type"`
	OwnerID    int64           `json:"owner_id"`
	TaskID     int64           `json:"task_id,omitempty"`
	Task       *TaskResource   `json:"task,omitempty"`
	Order      []SortOrderItem `json:"order,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func taskEvent(typ string, t *entity.Task) TaskEvent {
	ev := TaskEvent{Type: typ, OwnerID: t.UserID, TaskID: t.ID, OccurredAt: time.Now().UTC()}
	if typ != TaskDeleted {
		res := NewTaskResource(t)
		ev.Task = &res
	}
	return ev
}

func reorderEvent(ownerID int64, items []entity.SortOrderUpdate) TaskEvent {
	order := make([]SortOrderItem, 0, len(items))
	for _, it := range items {
		order = append(order, SortOrderItem{ID: it.ID, SortOrder: it.SortOrder})
	}
	return TaskEvent{Type: TaskReordered, OwnerID: ownerID, Order: order, OccurredAt: time.Now().UTC()}
}

// publish never fails the request; the write already happened.
func publish(ctx context.Context, pub EventPublisher, logger *logrus.Logger, ev TaskEvent) {
	if pub == nil {
		return
	}
	if err := pub.PublishJSON(ctx, ev); err != nil && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{"type": ev.Type, "task_id": ev.TaskID}).Warn("publish task event failed")
	}
}
