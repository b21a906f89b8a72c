package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/pkg/response"
	"github.com/oksasatya/go-ddd-task-manager/pkg/validation"
)

const maxAvatarBytes = 2 << 20

var avatarTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true, "image/gif": true}

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	u, err := h.Svc.GetProfile(c.Request.Context(), p.ID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewUserResource(u), "user", nil)
}

// UploadAvatar accepts a multipart "avatar" image up to 2 MiB.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1<<10)
	fh, err := c.FormFile("avatar")
	if err != nil {
		writeError(c, h.Logger, validation.Field("avatar", "is required"))
		return
	}
	if fh.Size > maxAvatarBytes {
		writeError(c, h.Logger, validation.Field("avatar", "must not be larger than 2048 kilobytes"))
		return
	}
	ct := strings.ToLower(fh.Header.Get("Content-Type"))
	if !avatarTypes[ct] {
		writeError(c, h.Logger, validation.Field("avatar", "must be an image (jpeg, png, webp, gif)"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Svc.UploadAvatar(c.Request.Context(), p.ID, fh.Filename, ct, f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewUserResource(u), "avatar updated", nil)
}
