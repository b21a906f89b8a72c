package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
	"github.com/oksasatya/go-ddd-task-manager/pkg/response"
	"github.com/oksasatya/go-ddd-task-manager/pkg/validation"
)

type TaskHandler struct {
	Svc    *application.TaskService
	Logger *logrus.Logger
}

func NewTaskHandler(svc *application.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{Svc: svc, Logger: logger}
}

type createTaskRequest struct {
	Statement string `json:"statement" binding:"required,statement"`
	TaskDate  string `json:"task_date" binding:"required,date"`
	SortOrder *int   `json:"sort_order" binding:"omitempty,sortorder"`
}

type updateTaskRequest struct {
	Statement   *string `json:"statement" binding:"omitempty,statement"`
	IsCompleted *bool   `json:"is_completed"`
	TaskDate    *string `json:"task_date" binding:"omitempty,date"`
	SortOrder   *int    `json:"sort_order" binding:"omitempty,sortorder"`
}

type reorderItem struct {
	ID        int64 `json:"id" binding:"required,gt=0"`
	SortOrder *int  `json:"sort_order" binding:"required,sortorder"`
}

type reorderRequest struct {
	Tasks []reorderItem `json:"tasks" binding:"required,min=1,unique=ID,dive"`
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusNotFound, "Task not found", nil)
		return 0, false
	}
	return id, true
}

// List returns the caller's tasks, optionally limited to one calendar date.
func (h *TaskHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var (
		tasks []entity.Task
		err   error
	)
	if raw := c.Query("date"); raw != "" {
		date, perr := helpers.ParseDate(raw)
		if perr != nil {
			writeError(c, h.Logger, validation.Field("date", "must be a valid date (YYYY-MM-DD)"))
			return
		}
		tasks, err = h.Svc.ListByDate(c.Request.Context(), p, date)
	} else {
		tasks, err = h.Svc.List(c.Request.Context(), p)
	}
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewTaskResources(tasks), "tasks", nil)
}

func (h *TaskHandler) Search(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	tasks, err := h.Svc.Search(c.Request.Context(), p, c.Query("keyword"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewTaskResources(tasks), "tasks", nil)
}

func (h *TaskHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	date, _ := helpers.ParseDate(req.TaskDate) // validated by the date tag

	t, err := h.Svc.Create(c.Request.Context(), p, application.CreateTaskInput{
		Statement: req.Statement,
		TaskDate:  date,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, application.NewTaskResource(t), "task created", nil)
}

func (h *TaskHandler) Show(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}
	t, err := h.Svc.Get(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewTaskResource(t), "task", nil)
}

// Update serves both PUT and PATCH; fields left out of the body are unchanged.
func (h *TaskHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}
	patch := entity.TaskPatch{Statement: req.Statement, IsCompleted: req.IsCompleted, SortOrder: req.SortOrder}
	if req.TaskDate != nil {
		date, _ := helpers.ParseDate(*req.TaskDate)
		patch.TaskDate = &date
	}

	t, err := h.Svc.Update(c.Request.Context(), p, id, patch)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.NewTaskResource(t), "task updated", nil)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), p, id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Task deleted successfully", nil)
}

func (h *TaskHandler) Reorder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	items := make([]entity.SortOrderUpdate, 0, len(req.Tasks))
	for _, it := range req.Tasks {
		items = append(items, entity.SortOrderUpdate{ID: it.ID, SortOrder: *it.SortOrder})
	}
	if err := h.Svc.Reorder(c.Request.Context(), p, items); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Tasks reordered successfully", nil)
}
