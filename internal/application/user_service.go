package application

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

// AvatarStore uploads an object and returns its public URL.
type AvatarStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// GCSAvatarStore stores avatars in a Google Cloud Storage bucket.
type GCSAvatarStore struct {
	Client *storage.Client
	Bucket string
}

func (g *GCSAvatarStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	return helpers.UploadObject(ctx, g.Client, g.Bucket, objectPath, contentType, r)
}

type UserService struct {
	Repo    repo.UserRepository
	Avatars AvatarStore // nil when no bucket is configured
	Logger  *logrus.Logger
}

// NewUserService wires GCS avatar storage only when both client and bucket are set.
func NewUserService(r repo.UserRepository, gcs *storage.Client, bucket string, logger *logrus.Logger) *UserService {
	s := &UserService{Repo: r, Logger: logger}
	if gcs != nil && bucket != "" {
		s.Avatars = &GCSAvatarStore{Client: gcs, Bucket: bucket}
	}
	return s
}

func (s *UserService) GetProfile(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// UploadAvatar stores the image under a fresh object path and points image_url at it.
func (s *UserService) UploadAvatar(ctx context.Context, userID int64, filename, contentType string, r io.Reader) (*entity.User, error) {
	if s.Avatars == nil {
		return nil, ErrStorageUnavailable
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.Avatars.Upload(ctx, helpers.AvatarObjectPath(userID, filename), contentType, r)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Error("avatar upload failed")
		}
		return nil, err
	}
	u.ImageURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
