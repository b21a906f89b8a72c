package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
)

type TaskRepository struct {
	db DB
}

func NewTaskRepository(db DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, statement, is_completed, task_date, sort_order, created_at, updated_at`

// id breaks ties so equal (task_date, sort_order) pairs come back in a stable order.
const (
	orderByDateThenSort = ` ORDER BY task_date DESC, sort_order ASC, id ASC`
	orderBySort         = ` ORDER BY sort_order ASC, id ASC`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanTask(row pgx.Row) (*entity.Task, error) {
	t := &entity.Task{}
	if err := row.Scan(&t.ID, &t.UserID, &t.Statement, &t.IsCompleted, &t.TaskDate,
		&t.SortOrder, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, sql string, args ...any) ([]entity.Task, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TaskRepository) List(ctx context.Context, ownerID int64) ([]entity.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1`+orderByDateThenSort, ownerID)
}

func (r *TaskRepository) ListByDate(ctx context.Context, ownerID int64, date time.Time) ([]entity.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND task_date = $2::date`+orderBySort,
		ownerID, date.Format("2006-01-02"))
}

// Search matches keyword as a literal substring; LIKE wildcards in it are escaped.
func (r *TaskRepository) Search(ctx context.Context, ownerID int64, keyword string) ([]entity.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND statement ILIKE '%' || $2 || '%'`+orderByDateThenSort,
		ownerID, likeEscaper.Replace(keyword))
}

// All returns every task of every owner; the search indexer rebuilds from it.
func (r *TaskRepository) All(ctx context.Context) ([]entity.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id ASC`)
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return t, err
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO tasks (user_id, statement, is_completed, task_date, sort_order)
		VALUES ($1, $2, $3, $4::date, $5)
		RETURNING id, created_at, updated_at
	`, t.UserID, t.Statement, t.IsCompleted, t.TaskDate.Format("2006-01-02"), t.SortOrder).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update applies the non-nil fields of patch and returns the stored row.
// An empty patch leaves the row (and updated_at) untouched.
func (r *TaskRepository) Update(ctx context.Context, id int64, patch entity.TaskPatch) (*entity.Task, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(col string, v any, cast string) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args))+cast)
	}
	if patch.Statement != nil {
		add("statement", *patch.Statement, "")
	}
	if patch.IsCompleted != nil {
		add("is_completed", *patch.IsCompleted, "")
	}
	if patch.TaskDate != nil {
		add("task_date", patch.TaskDate.Format("2006-01-02"), "::date")
	}
	if patch.SortOrder != nil {
		add("sort_order", *patch.SortOrder, "")
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	sql := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + taskColumns
	t, err := scanTask(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return t, err
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Reorder writes each sort_order as an independent point update inside one
// transaction, so readers never observe a partially applied batch. A missing
// id rolls the whole batch back.
func (r *TaskRepository) Reorder(ctx context.Context, items []entity.SortOrderUpdate) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range items {
		res, err := tx.Exec(ctx, `UPDATE tasks SET sort_order = $1, updated_at = now() WHERE id = $2`, it.SortOrder, it.ID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
	}
	return tx.Commit(ctx)
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
