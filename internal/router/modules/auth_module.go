package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-task-manager/internal/interface/http"
)

// AuthModule registers token issue and revocation.
// Public: POST /api/login. Protected: POST /api/logout.
type AuthModule struct {
	Handler    *handlers.AuthHandler
	Auth       gin.HandlerFunc
	LoginLimit gin.HandlerFunc // per-IP, on top of the per-email throttle
}

func NewAuthModule(h *handlers.AuthHandler, auth, loginLimit gin.HandlerFunc) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, LoginLimit: loginLimit}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/login", append(chain(m.LoginLimit), m.Handler.Login)...)
	rg.POST("/logout", append(chain(m.Auth), m.Handler.Logout)...)
}
