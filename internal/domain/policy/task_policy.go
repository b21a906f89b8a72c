package policy

import "github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"

// TaskPolicy decides which task operations a principal may perform.
// Ownership is the only rule: a task belongs to exactly one user and only
// that user may see or change it.
type TaskPolicy struct{}

func NewTaskPolicy() TaskPolicy { return TaskPolicy{} }

func (TaskPolicy) owns(p entity.Principal, t *entity.Task) bool {
	return t != nil && p.ID != 0 && t.UserID == p.ID
}

// CanCreate is true for any authenticated principal; the new task is assigned to them.
func (TaskPolicy) CanCreate(p entity.Principal) bool { return p.ID != 0 }

func (tp TaskPolicy) CanView(p entity.Principal, t *entity.Task) bool   { return tp.owns(p, t) }
func (tp TaskPolicy) CanUpdate(p entity.Principal, t *entity.Task) bool { return tp.owns(p, t) }
func (tp TaskPolicy) CanDelete(p entity.Principal, t *entity.Task) bool { return tp.owns(p, t) }

// CanReorder requires the principal to own every task in the batch.
func (tp TaskPolicy) CanReorder(p entity.Principal, tasks []*entity.Task) bool {
	for _, t := range tasks {
		if !tp.owns(p, t) {
			return false
		}
	}
	return true
}
