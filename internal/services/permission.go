package services

import (
	"errors"

	"github.com/taskforge/backend/internal/models"
	"gorm.io/gorm"
)

// PermissionService decides whether a principal may mutate a project, team or
// task. Authority sources are consulted in fixed order: global Admin role,
// resource ownership, team-scoped role, direct assignment. The first source
// that grants access wins; there is no explicit deny, only absence of grant.
//
// Decisions are evaluated at call time against current data, never cached, so
// a demotion takes effect on the next request.
type PermissionService struct {
	db *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// CanEditProject reports whether the user may mutate the project.
func (s *PermissionService) CanEditProject(userID string, roles models.RoleSet, projectID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if roles.Has(models.RoleAdmin) {
		return true, nil
	}

	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if project.OwnerID == userID {
		return true, nil
	}

	if roles.Has(models.RoleManager) {
		return s.holdsTeamRoleOnProject(userID, projectID, models.TeamRoleLead)
	}
	return false, nil
}

// CanManageTeam reports whether the user may mutate the team or its
// membership roster.
func (s *PermissionService) CanManageTeam(userID string, roles models.RoleSet, teamID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if roles.Has(models.RoleAdmin) {
		return true, nil
	}

	var team models.Team
	if err := s.db.Preload("Project").First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if team.Project != nil && team.Project.OwnerID == userID {
		return true, nil
	}

	if roles.Has(models.RoleManager) {
		return s.holdsTeamRole(userID, teamID, models.TeamRoleLead)
	}
	return false, nil
}

// CanEditTask reports whether the user may mutate the task. A team Lead may
// edit any task in the project; a plain Member only tasks assigned to them;
// an Observer none.
func (s *PermissionService) CanEditTask(userID string, roles models.RoleSet, taskID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if roles.Has(models.RoleAdmin) {
		return true, nil
	}

	var task models.Task
	if err := s.db.Preload("Project").First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if task.Project != nil && task.Project.OwnerID == userID {
		return true, nil
	}

	member, err := s.membershipOnProject(userID, task.ProjectID)
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, nil
	}

	switch member.Role {
	case models.TeamRoleLead:
		return true, nil
	case models.TeamRoleMember:
		return task.AssigneeID != nil && *task.AssigneeID == userID, nil
	default:
		return false, nil
	}
}

func (s *PermissionService) holdsTeamRole(userID, teamID string, role models.TeamRole) (bool, error) {
	var count int64
	err := s.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND role = ?", teamID, userID, role).
		Count(&count).Error
	return count > 0, err
}

func (s *PermissionService) holdsTeamRoleOnProject(userID, projectID string, role models.TeamRole) (bool, error) {
	var count int64
	err := s.db.Model(&models.TeamMember{}).
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("teams.project_id = ? AND teams.deleted_at IS NULL", projectID).
		Where("team_members.user_id = ? AND team_members.role = ?", userID, role).
		Count(&count).Error
	return count > 0, err
}

func (s *PermissionService) membershipOnProject(userID, projectID string) (*models.TeamMember, error) {
	var member models.TeamMember
	err := s.db.
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("teams.project_id = ? AND teams.deleted_at IS NULL", projectID).
		Where("team_members.user_id = ?", userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}
