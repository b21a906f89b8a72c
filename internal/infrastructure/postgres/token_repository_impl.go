package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
)

type TokenRepository struct {
	db DB
}

func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *entity.AuthToken) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO auth_tokens (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, t.ID, t.UserID, t.Name).Scan(&t.CreatedAt)
}

func (r *TokenRepository) GetByID(ctx context.Context, id string) (*entity.AuthToken, error) {
	t := &entity.AuthToken{}
	err := r.db.QueryRow(ctx, `
		SELECT id::text, user_id, name, created_at, last_used_at
		FROM auth_tokens
		WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt, &t.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TokenRepository) Touch(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE auth_tokens SET last_used_at = now() WHERE id = $1`, id)
	return err
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
