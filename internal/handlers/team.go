package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskforge/backend/internal/middleware"
	"github.com/taskforge/backend/internal/services"
	"github.com/taskforge/backend/pkg/response"
	"gorm.io/gorm"
)

type TeamHandler struct {
	teamService *services.TeamService
	permService *services.PermissionService
}

func NewTeamHandler(db *gorm.DB) *TeamHandler {
	perms := services.NewPermissionService(db)
	return &TeamHandler{
		teamService: services.NewTeamService(db, perms),
		permService: perms,
	}
}

// Get returns a team with its members
// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teamService.GetTeam(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// GetByProject returns the team belonging to a project
// GET /api/projects/:id/team
func (h *TeamHandler) GetByProject(c *gin.Context) {
	team, err := h.teamService.GetTeamByProject(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// Update renames a team
// PUT /api/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	var req services.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.teamService.UpdateTeam(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

// ListMembers returns the team's active members
// GET /api/teams/:id/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	members, err := h.teamService.ListMembers(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// AddMember adds a user to the team
// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.teamService.AddMember(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// UpdateMember changes a member's team role
// PUT /api/teams/:id/members/:memberId
func (h *TeamHandler) UpdateMember(c *gin.Context) {
	var req services.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.teamService.UpdateMember(
		middleware.GetUserID(c), middleware.GetRoles(c),
		c.Param("id"), c.Param("memberId"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}

// RemoveMember soft-deletes a membership
// DELETE /api/teams/:id/members/:memberId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	err := h.teamService.RemoveMember(
		middleware.GetUserID(c), middleware.GetRoles(c),
		c.Param("id"), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "member removed"})
}

// CanManage reports whether the caller may manage the team
// GET /api/teams/:id/can-manage
func (h *TeamHandler) CanManage(c *gin.Context) {
	ok, err := h.permService.CanManageTeam(middleware.GetUserID(c), middleware.GetRoles(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"canManage": ok})
}
