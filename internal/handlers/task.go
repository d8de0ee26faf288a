package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskforge/backend/internal/middleware"
	"github.com/taskforge/backend/internal/services"
	"github.com/taskforge/backend/pkg/response"
	"gorm.io/gorm"
)

type TaskHandler struct {
	taskService *services.TaskService
	permService *services.PermissionService
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	perms := services.NewPermissionService(db)
	return &TaskHandler{
		taskService: services.NewTaskService(db, perms),
		permService: perms,
	}
}

// ListByProject returns a project's tasks in display order
// GET /api/projects/:id/tasks
func (h *TaskHandler) ListByProject(c *gin.Context) {
	tasks, err := h.taskService.ListTasks(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tasks)
}

// Create adds a task to a project
// POST /api/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.CreateTask(middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Get returns one task
// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Update applies a partial task update
// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// UpdateStatus moves a task to a new workflow status
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req services.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateStatus(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Assign sets or clears a task's assignee
// PATCH /api/tasks/:id/assign
func (h *TaskHandler) Assign(c *gin.Context) {
	var req services.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Assign(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Reorder moves a task within its project's display order
// PATCH /api/tasks/:id/reorder
func (h *TaskHandler) Reorder(c *gin.Context) {
	var req services.ReorderTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	err := h.taskService.Reorder(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "task reordered"})
}

// Delete soft-deletes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.taskService.Delete(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "task deleted"})
}

// CanEdit reports whether the caller may mutate the task
// GET /api/tasks/:id/can-edit
func (h *TaskHandler) CanEdit(c *gin.Context) {
	ok, err := h.permService.CanEditTask(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"canEdit": ok})
}
