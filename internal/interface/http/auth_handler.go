package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
	"github.com/oksasatya/go-ddd-task-manager/pkg/response"
)

const (
	msgThrottled          = "Too many login attempts. Please try again later."
	msgInvalidCredentials = "The provided credentials are incorrect."
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	User  application.UserResource `json:"user"`
	Token string                   `json:"token"`
}

// Login answers throttling and bad credentials with 422 on the email field,
// so clients cannot tell an unknown account from a wrong password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	var rl *application.RateLimitError
	switch {
	case errors.As(err, &rl):
		if secs := int((rl.RetryAfter + time.Second - 1) / time.Second); secs > 0 {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
		response.Error[any](c, http.StatusUnprocessableEntity, msgThrottled, map[string]string{"email": msgThrottled})
		return
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnprocessableEntity, msgInvalidCredentials, map[string]string{"email": msgInvalidCredentials})
		return
	case err != nil:
		writeError(c, h.Logger, err)
		return
	}

	h.Cookies.SetToken(c, res.Token, res.ExpiresAt)
	var meta map[string]any
	if !res.ExpiresAt.IsZero() {
		meta = map[string]any{"expires_at": helpers.FormatInstant(res.ExpiresAt)}
	}
	response.Success(c, http.StatusOK, loginResponse{User: application.NewUserResource(res.User), Token: res.Token}, "login successful", meta)
}

// Logout revokes only the token used for this request.
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Svc.Logout(c.Request.Context(), p); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "Logged out successfully", nil)
}
