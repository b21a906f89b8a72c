package entity

import (
	"math"
	"time"
)

// MaxStatementLength is the maximum number of characters in a task statement.
const MaxStatementLength = 1000

// MaxSortOrder is the largest sort_order the tasks.sort_order INTEGER column holds.
const MaxSortOrder = math.MaxInt32

// Task is a single to-do item owned by exactly one user.
//
// SortOrder is a relative ordering key within the owner's tasks. It is not
// unique and not required to be contiguous.
type Task struct {
	ID          int64
	UserID      int64
	Statement   string
	IsCompleted bool
	TaskDate    time.Time // calendar date, time component is always midnight UTC
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch carries the fields of a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Statement   *string
	IsCompleted *bool
	TaskDate    *time.Time
	SortOrder   *int
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Statement == nil && p.IsCompleted == nil && p.TaskDate == nil && p.SortOrder == nil
}

// Apply copies the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Statement != nil {
		t.Statement = *p.Statement
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.TaskDate != nil {
		t.TaskDate = *p.TaskDate
	}
	if p.SortOrder != nil {
		t.SortOrder = *p.SortOrder
	}
}

// SortOrderUpdate is one element of a reorder batch.
type SortOrderUpdate struct {
	ID        int64
	SortOrder int
}
