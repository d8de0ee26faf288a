package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskforge/backend/internal/middleware"
	"github.com/taskforge/backend/internal/services"
	"github.com/taskforge/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	permService    *services.PermissionService
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	perms := services.NewPermissionService(db)
	return &ProjectHandler{
		projectService: services.NewProjectService(db, perms),
		permService:    perms,
	}
}

// List returns the projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.ListProjects(middleware.GetUserID(c), middleware.GetRoles(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, projects)
}

// Get returns one project with its team roster
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Create creates a project with its team
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.CreateProject(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// Update applies a partial project update
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateProject(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Delete soft-deletes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projectService.DeleteProject(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "project deleted"})
}

// CanEdit reports whether the caller may mutate the project
// GET /api/projects/:id/can-edit
func (h *ProjectHandler) CanEdit(c *gin.Context) {
	ok, err := h.permService.CanEditProject(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"canEdit": ok})
}
