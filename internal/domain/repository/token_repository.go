package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
)

// TokenRepository stores issued bearer tokens by id.
type TokenRepository interface {
	Create(ctx context.Context, t *entity.AuthToken) error
	GetByID(ctx context.Context, id string) (*entity.AuthToken, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
