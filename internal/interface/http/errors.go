package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-task-manager/pkg/response"
	"github.com/oksasatya/go-ddd-task-manager/pkg/validation"
)

const msgInvalidData = "The given data was invalid."

// writeError maps application errors onto HTTP statuses. Unknown errors are
// logged and returned as a bare 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var fe validation.FieldErrors
	switch {
	case errors.As(err, &fe):
		response.Error[any](c, http.StatusUnprocessableEntity, msgInvalidData, validation.ToDetails(err))
	case errors.Is(err, application.ErrUnauthenticated):
		response.Error[any](c, http.StatusUnauthorized, "Unauthenticated.", nil)
	case errors.Is(err, application.ErrForbidden):
		response.Error[any](c, http.StatusForbidden, "This action is unauthorized.", nil)
	case errors.Is(err, application.ErrTaskNotFound):
		response.Error[any](c, http.StatusNotFound, "Task not found", nil)
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, application.ErrStorageUnavailable):
		response.Error[any](c, http.StatusServiceUnavailable, "Avatar storage is not configured", nil)
	default:
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			}).Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}

func bindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusUnprocessableEntity, msgInvalidData, validation.ToDetails(err))
}

// principal is only called behind middleware.Auth.
func principal(c *gin.Context) (p entity.Principal, ok bool) {
	p, ok = middleware.PrincipalFrom(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "Unauthenticated.", nil)
	}
	return p, ok
}
