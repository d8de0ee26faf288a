package services

import (
	"errors"
	"strings"
	"time"

	"github.com/taskforge/backend/internal/models"
	"github.com/taskforge/backend/pkg/logger"
	"github.com/taskforge/backend/pkg/response"
	"gorm.io/gorm"
)

// TeamService manages teams and their membership rosters. Structural
// mutations run inside a transaction so the roster guards (last lead, owner
// membership) hold even under concurrent requests.
type TeamService struct {
	db    *gorm.DB
	perms *PermissionService
}

func NewTeamService(db *gorm.DB, perms *PermissionService) *TeamService {
	return &TeamService{db: db, perms: perms}
}

type UpdateTeamRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role"`
}

type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

type TeamMemberDTO struct {
	ID       string    `json:"id"`
	TeamID   string    `json:"teamId"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type TeamDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ProjectID   string          `json:"projectId"`
	Members     []TeamMemberDTO `json:"members"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// GetTeam returns the team with its active members.
func (s *TeamService) GetTeam(teamID string) (*TeamDTO, error) {
	team, err := s.loadTeam(s.db, teamID)
	if err != nil {
		return nil, err
	}
	return mapTeamDTO(team), nil
}

// GetTeamByProject returns the project's team with its active members.
func (s *TeamService) GetTeamByProject(projectID string) (*TeamDTO, error) {
	var team models.Team
	if err := s.db.Preload("Members.User").
		First(&team, "project_id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("team not found")
		}
		return nil, err
	}
	return mapTeamDTO(&team), nil
}

// UpdateTeam renames the team. Requires manage permission.
func (s *TeamService) UpdateTeam(userID string, roles models.RoleSet, teamID string, req *UpdateTeamRequest) (*TeamDTO, error) {
	if err := s.requireManage(userID, roles, teamID); err != nil {
		return nil, err
	}

	team, err := s.loadTeam(s.db, teamID)
	if err != nil {
		return nil, err
	}

	team.Name = strings.TrimSpace(req.Name)
	team.Description = strings.TrimSpace(req.Description)
	if err := s.db.Model(team).Updates(map[string]interface{}{
		"name":        team.Name,
		"description": team.Description,
	}).Error; err != nil {
		return nil, err
	}
	return mapTeamDTO(team), nil
}

// ListMembers returns the team's active members ordered by role then join
// time.
func (s *TeamService) ListMembers(teamID string) ([]TeamMemberDTO, error) {
	if _, err := s.loadTeam(s.db, teamID); err != nil {
		return nil, err
	}

	var members []models.TeamMember
	if err := s.db.Preload("User").
		Where("team_id = ?", teamID).
		Order("role, joined_at").
		Find(&members).Error; err != nil {
		return nil, err
	}

	out := make([]TeamMemberDTO, 0, len(members))
	for i := range members {
		out = append(out, mapMemberDTO(&members[i]))
	}
	return out, nil
}

// AddMember adds a user to the team. A membership that was previously
// soft-deleted is reactivated in place rather than duplicated, keeping the
// unique (team, user) pair intact.
func (s *TeamService) AddMember(userID string, roles models.RoleSet, teamID string, req *AddMemberRequest) (*TeamMemberDTO, error) {
	if err := s.requireManage(userID, roles, teamID); err != nil {
		return nil, err
	}

	role := models.TeamRoleMember
	if req.Role != "" {
		parsed, err := models.ParseTeamRole(req.Role)
		if err != nil {
			return nil, response.NewValidation("invalid team role")
		}
		role = parsed
	}

	var member *models.TeamMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadTeam(tx, teamID); err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, "id = ?", req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("user not found")
			}
			return err
		}

		var active int64
		if err := tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, req.UserID).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return response.NewValidation("user is already a member of this team")
		}

		now := time.Now().UTC()

		var deleted models.TeamMember
		err := tx.Unscoped().
			Where("team_id = ? AND user_id = ? AND deleted_at IS NOT NULL", teamID, req.UserID).
			First(&deleted).Error
		switch {
		case err == nil:
			if err := tx.Unscoped().Model(&deleted).Updates(map[string]interface{}{
				"deleted_at": nil,
				"role":       role,
				"joined_at":  now,
			}).Error; err != nil {
				return err
			}
			deleted.Role = role
			deleted.JoinedAt = now
			deleted.DeletedAt = gorm.DeletedAt{}
			member = &deleted
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = &models.TeamMember{
				TeamID:   teamID,
				UserID:   req.UserID,
				Role:     role,
				JoinedAt: now,
			}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return tx.Preload("User").First(member, "id = ?", member.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("team_id", teamID).
		Str("user_id", req.UserID).
		Str("actor_id", userID).
		Msg("team member added")

	dto := mapMemberDTO(member)
	return &dto, nil
}

// UpdateMember changes a member's team role. Demoting the only lead is
// rejected: promote another member first.
func (s *TeamService) UpdateMember(userID string, roles models.RoleSet, teamID, memberID string, req *UpdateMemberRequest) (*TeamMemberDTO, error) {
	if err := s.requireManage(userID, roles, teamID); err != nil {
		return nil, err
	}

	newRole, err := models.ParseTeamRole(req.Role)
	if err != nil {
		return nil, response.NewValidation("invalid team role")
	}

	var member models.TeamMember
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("User").
			First(&member, "id = ? AND team_id = ?", memberID, teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("team member not found")
			}
			return err
		}

		if member.Role == models.TeamRoleLead && newRole != models.TeamRoleLead {
			leads, err := s.countLeads(tx, teamID)
			if err != nil {
				return err
			}
			if leads <= 1 {
				return response.NewValidation("cannot demote the last team lead, promote another member first")
			}
		}

		member.Role = newRole
		return tx.Model(&member).Update("role", newRole).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("team_id", teamID).
		Str("member_id", memberID).
		Str("actor_id", userID).
		Str("role", string(newRole)).
		Msg("team member role updated")

	dto := mapMemberDTO(&member)
	return &dto, nil
}

// RemoveMember soft-deletes a membership. The project owner can never be
// removed from the team, and the only lead cannot be removed.
func (s *TeamService) RemoveMember(userID string, roles models.RoleSet, teamID, memberID string) error {
	if err := s.requireManage(userID, roles, teamID); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var member models.TeamMember
		if err := tx.Preload("Team.Project").
			First(&member, "id = ? AND team_id = ?", memberID, teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("team member not found")
			}
			return err
		}

		if member.Team != nil && member.Team.Project != nil &&
			member.Team.Project.OwnerID == member.UserID {
			return response.NewValidation("cannot remove the project owner from the team")
		}

		if member.Role == models.TeamRoleLead {
			leads, err := s.countLeads(tx, teamID)
			if err != nil {
				return err
			}
			if leads <= 1 {
				return response.NewValidation("cannot remove the last team lead, promote another member first")
			}
		}

		return tx.Delete(&member).Error
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("team_id", teamID).
		Str("member_id", memberID).
		Str("actor_id", userID).
		Msg("team member removed")
	return nil
}

func (s *TeamService) requireManage(userID string, roles models.RoleSet, teamID string) error {
	ok, err := s.perms.CanManageTeam(userID, roles, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return response.NewForbidden("you do not have permission to manage this team")
	}
	return nil
}

func (s *TeamService) loadTeam(tx *gorm.DB, teamID string) (*models.Team, error) {
	var team models.Team
	if err := tx.Preload("Members.User").First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("team not found")
		}
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) countLeads(tx *gorm.DB, teamID string) (int64, error) {
	var count int64
	err := tx.Model(&models.TeamMember{}).
		Where("team_id = ? AND role = ?", teamID, models.TeamRoleLead).
		Count(&count).Error
	return count, err
}

func mapTeamDTO(team *models.Team) *TeamDTO {
	dto := &TeamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		ProjectID:   team.ProjectID,
		Members:     make([]TeamMemberDTO, 0, len(team.Members)),
		CreatedAt:   team.CreatedAt,
	}
	for i := range team.Members {
		dto.Members = append(dto.Members, mapMemberDTO(&team.Members[i]))
	}
	return dto
}

func mapMemberDTO(m *models.TeamMember) TeamMemberDTO {
	dto := TeamMemberDTO{
		ID:       m.ID,
		TeamID:   m.TeamID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}
	if m.User != nil {
		dto.UserName = m.User.FullName()
		dto.Email = m.User.Email
	}
	return dto
}
