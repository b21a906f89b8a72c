package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
)

var taskCols = []string{"id", "user_id", "statement", "is_completed", "task_date", "sort_order", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func assertMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReorderCommitsAllUpdatesInOneTransaction(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET sort_order = $1")).
		WithArgs(0, int64(2)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET sort_order = $1")).
		WithArgs(1, int64(1)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.Reorder(context.Background(), []entity.SortOrderUpdate{{ID: 2, SortOrder: 0}, {ID: 1, SortOrder: 1}})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	assertMet(t, mock)
}

func TestReorderRollsBackWhenARowIsMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET sort_order = $1")).
		WithArgs(0, int64(1)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET sort_order = $1")).
		WithArgs(1, int64(404)).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Reorder(context.Background(), []entity.SortOrderUpdate{{ID: 1, SortOrder: 0}, {ID: 404, SortOrder: 1}})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assertMet(t, mock)
}

func TestReorderEmptyBatchIsNoop(t *testing.T) {
	mock := newMock(t)
	if err := NewTaskRepository(mock).Reorder(context.Background(), nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	assertMet(t, mock)
}

func TestGetByIDMissReturnsErrNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1")).
		WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

	task, err := repo.GetByID(context.Background(), 99)
	if task != nil || !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected nil task and ErrNotFound, got %v, %v", task, err)
	}
	assertMet(t, mock)
}

func TestListScansOwnerTasksInQueryOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)
	now := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	d9 := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	d8 := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY task_date DESC, sort_order ASC, id ASC")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(taskCols).
			AddRow(int64(2), int64(7), "Task 2", false, d9, 0, now, now).
			AddRow(int64(1), int64(7), "Task 1", true, d8, 3, now, now))

	tasks, err := repo.List(context.Background(), 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != 2 || tasks[1].SortOrder != 3 || !tasks[1].IsCompleted {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	assertMet(t, mock)
}

func TestSearchEscapesLikeWildcards(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("statement ILIKE '%' || $2 || '%'")).
		WithArgs(int64(7), `50\%\_off`).
		WillReturnRows(pgxmock.NewRows(taskCols))

	tasks, err := repo.Search(context.Background(), 7, "50%_off")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
	assertMet(t, mock)
}

func TestUpdateSetsOnlyProvidedColumns(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)
	now := time.Now().UTC()
	d := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	done := true

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET is_completed = $1, updated_at = now() WHERE id = $2")).
		WithArgs(true, int64(3)).
		WillReturnRows(pgxmock.NewRows(taskCols).AddRow(int64(3), int64(7), "Task", true, d, 0, now, now))

	task, err := repo.Update(context.Background(), 3, entity.TaskPatch{IsCompleted: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !task.IsCompleted {
		t.Fatalf("expected completed task")
	}
	assertMet(t, mock)
}

func TestUpdateMissReturnsErrNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)
	s := "x"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET statement = $1")).
		WithArgs("x", int64(5)).WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Update(context.Background(), 5, entity.TaskPatch{Statement: &s}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assertMet(t, mock)
}

func TestDeleteMissReturnsErrNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1")).
		WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), 5); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assertMet(t, mock)
}

func TestCreateSendsCalendarDate(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(int64(7), "Buy milk", false, "2025-01-08", 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	task := &entity.Task{UserID: 7, Statement: "Buy milk", TaskDate: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != 11 {
		t.Fatalf("expected id 11, got %d", task.ID)
	}
	assertMet(t, mock)
}

func TestAllReturnsEveryOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock)
	now := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	d := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks ORDER BY id ASC")).
		WillReturnRows(pgxmock.NewRows(taskCols).
			AddRow(int64(1), int64(7), "Mine", false, d, 0, now, now).
			AddRow(int64(2), int64(8), "Theirs", false, d, 0, now, now))

	tasks, err := repo.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(tasks) != 2 || tasks[1].UserID != 8 {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	assertMet(t, mock)
}
