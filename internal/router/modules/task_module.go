package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-task-manager/internal/interface/http"
)

// TaskModule registers the task resource. Every route requires a token.
type TaskModule struct {
	Handler   *handlers.TaskHandler
	Auth      gin.HandlerFunc
	UserLimit gin.HandlerFunc
}

func NewTaskModule(h *handlers.TaskHandler, auth, userLimit gin.HandlerFunc) *TaskModule {
	return &TaskModule{Handler: h, Auth: auth, UserLimit: userLimit}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/tasks", chain(m.Auth, m.UserLimit)...)
	// static segments before :id
	g.GET("/search", m.Handler.Search)
	g.PATCH("/reorder", m.Handler.Reorder)

	g.GET("", m.Handler.List)
	g.POST("", m.Handler.Create)
	g.GET("/:id", m.Handler.Show)
	g.PUT("/:id", m.Handler.Update)
	g.PATCH("/:id", m.Handler.Update)
	g.DELETE("/:id", m.Handler.Delete)
}
