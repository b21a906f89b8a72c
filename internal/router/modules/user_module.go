package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-task-manager/internal/interface/http"
)

// UserModule exposes the authenticated user.
// Protected: GET /api/user, POST /api/user/avatar
type UserModule struct {
	Handler   *handlers.UserHandler
	Auth      gin.HandlerFunc
	UserLimit gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, auth, userLimit gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Auth: auth, UserLimit: userLimit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/user", chain(m.Auth, m.UserLimit)...)
	g.GET("", m.Handler.Me)
	g.POST("/avatar", m.Handler.UploadAvatar)
}
