// Package memstore holds in-memory repositories for tests. Tasks follows the
// same ordering rules as the Postgres repository.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
)

type Users struct {
	mu   sync.Mutex
	byID map[int64]*entity.User
}

func NewUsers(users ...*entity.User) *Users {
	m := &Users{byID: map[int64]*entity.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *Users) GetByID(_ context.Context, id int64) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Users) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Users) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return repo.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

type Tokens struct {
	mu      sync.Mutex
	rows    map[string]entity.AuthToken
	touched int
}

func NewTokens() *Tokens { return &Tokens{rows: map[string]entity.AuthToken{}} }

// Touched counts Touch calls.
func (m *Tokens) Touched() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touched
}

func (m *Tokens) Create(_ context.Context, t *entity.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now().UTC()
	m.rows[t.ID] = *t
	return nil
}

func (m *Tokens) GetByID(_ context.Context, id string) (*entity.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &t, nil
}

func (m *Tokens) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.rows[id]; ok {
		now := time.Now().UTC()
		t.LastUsedAt = &now
		m.rows[id] = t
	}
	m.touched++
	return nil
}

func (m *Tokens) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type Tasks struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]entity.Task
	writes int
}

func NewTasks() *Tasks { return &Tasks{nextID: 1, rows: map[int64]entity.Task{}} }

// Seed inserts a task and returns its id.
func (m *Tasks) Seed(owner int64, statement string, date time.Time, sortOrder int) int64 {
	t := &entity.Task{UserID: owner, Statement: statement, TaskDate: date, SortOrder: sortOrder}
	_ = m.Create(context.Background(), t)
	return t.ID
}

// Writes counts rows created, changed or removed.
func (m *Tasks) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Tasks) filter(keep func(entity.Task) bool, byDate bool) []entity.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Task, 0)
	for _, t := range m.rows {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if byDate && !a.TaskDate.Equal(b.TaskDate) {
			return a.TaskDate.After(b.TaskDate)
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
	return out
}

func (m *Tasks) List(_ context.Context, owner int64) ([]entity.Task, error) {
	return m.filter(func(t entity.Task) bool { return t.UserID == owner }, true), nil
}

func (m *Tasks) ListByDate(_ context.Context, owner int64, date time.Time) ([]entity.Task, error) {
	return m.filter(func(t entity.Task) bool { return t.UserID == owner && t.TaskDate.Equal(date) }, false), nil
}

func (m *Tasks) Search(_ context.Context, owner int64, keyword string) ([]entity.Task, error) {
	kw := strings.ToLower(keyword)
	return m.filter(func(t entity.Task) bool {
		return t.UserID == owner && strings.Contains(strings.ToLower(t.Statement), kw)
	}, true), nil
}

func (m *Tasks) GetByID(_ context.Context, id int64) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &t, nil
}

func (m *Tasks) Create(_ context.Context, t *entity.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	m.rows[t.ID] = *t
	m.writes++
	return nil
}

func (m *Tasks) Update(_ context.Context, id int64, patch entity.TaskPatch) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if patch.Empty() {
		return &t, nil
	}
	patch.Apply(&t)
	t.UpdatedAt = time.Now().UTC()
	m.rows[id] = t
	m.writes++
	return &t, nil
}

func (m *Tasks) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.rows, id)
	m.writes++
	return nil
}

// Reorder checks every id before writing, like the transactional repository.
func (m *Tasks) Reorder(_ context.Context, items []entity.SortOrderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		if _, ok := m.rows[it.ID]; !ok {
			return repo.ErrNotFound
		}
	}
	now := time.Now().UTC()
	for _, it := range items {
		t := m.rows[it.ID]
		t.SortOrder = it.SortOrder
		t.UpdatedAt = now
		m.rows[it.ID] = t
		m.writes++
	}
	return nil
}

var (
	_ repo.UserRepository  = (*Users)(nil)
	_ repo.TokenRepository = (*Tokens)(nil)
	_ repo.TaskRepository  = (*Tasks)(nil)
)
