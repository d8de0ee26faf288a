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

// ProjectService manages projects and their associated teams. Creating a
// project seeds its team with the owner as the first lead, which keeps the
// last-lead invariant satisfiable from day one.
type ProjectService struct {
	db    *gorm.DB
	perms *PermissionService
}

func NewProjectService(db *gorm.DB, perms *PermissionService) *ProjectService {
	return &ProjectService{db: db, perms: perms}
}

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=2000"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	OwnerID     string     `json:"ownerId"`
}

type UpdateProjectRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	OwnerID     string     `json:"ownerId"`
}

type ProjectDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	StartDate   *time.Time      `json:"startDate,omitempty"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	OwnerID     string          `json:"ownerId"`
	OwnerName   string          `json:"ownerName,omitempty"`
	TeamID      string          `json:"teamId,omitempty"`
	TeamName    string          `json:"teamName,omitempty"`
	TeamMembers []TeamMemberDTO `json:"teamMembers"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ListProjects returns all projects visible to the caller. Admins and
// managers see everything; everyone else sees projects they own or belong to.
func (s *ProjectService) ListProjects(userID string, roles models.RoleSet) ([]ProjectDTO, error) {
	q := s.db.Preload("Owner").Preload("Team.Members.User")

	if !roles.Has(models.RoleAdmin) && !roles.Has(models.RoleManager) {
		q = q.Where(
			"owner_id = ? OR id IN (?)",
			userID,
			s.db.Model(&models.TeamMember{}).
				Select("teams.project_id").
				Joins("JOIN teams ON teams.id = team_members.team_id").
				Where("team_members.user_id = ? AND teams.deleted_at IS NULL", userID),
		)
	}

	var projects []models.Project
	if err := q.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	out := make([]ProjectDTO, 0, len(projects))
	for i := range projects {
		out = append(out, *mapProjectDTO(&projects[i]))
	}
	return out, nil
}

// GetProject returns the project with its owner and team roster.
func (s *ProjectService) GetProject(projectID string) (*ProjectDTO, error) {
	project, err := s.loadProject(s.db, projectID)
	if err != nil {
		return nil, err
	}
	return mapProjectDTO(project), nil
}

// CreateProject creates a project together with its team and seeds the owner
// as the team's first lead. Project names are unique case-insensitively.
func (s *ProjectService) CreateProject(userID string, req *CreateProjectRequest) (*ProjectDTO, error) {
	if userID == "" {
		return nil, response.NewUnauthorized("user not authenticated")
	}

	name := strings.TrimSpace(req.Name)
	status := req.Status
	if status == "" {
		status = models.ProjectStatusActive
	}

	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = userID
	}

	var project *models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).
			Where("LOWER(name) = LOWER(?)", name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewValidation("a project with this name already exists")
		}

		project = &models.Project{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Status:      status,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			OwnerID:     ownerID,
		}
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		team := &models.Team{
			Name:        name + " Team",
			Description: "Team for project: " + name,
			ProjectID:   project.ID,
		}
		if err := tx.Create(team).Error; err != nil {
			return err
		}

		return tx.Create(&models.TeamMember{
			TeamID:   team.ID,
			UserID:   ownerID,
			Role:     models.TeamRoleLead,
			JoinedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("project_id", project.ID).
		Str("actor_id", userID).
		Msg("project created")

	return s.GetProject(project.ID)
}

// UpdateProject applies a partial update. The default "<name> Team" team name
// follows a project rename.
func (s *ProjectService) UpdateProject(userID string, roles models.RoleSet, projectID string, req *UpdateProjectRequest) (*ProjectDTO, error) {
	project, err := s.loadProject(s.db, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.requireEdit(userID, roles, projectID); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		newName := strings.TrimSpace(req.Name)
		if newName != "" && !strings.EqualFold(newName, project.Name) {
			var count int64
			if err := tx.Model(&models.Project{}).
				Where("id <> ? AND LOWER(name) = LOWER(?)", projectID, newName).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return response.NewValidation("a project with this name already exists")
			}

			project.Name = newName
			if project.Team != nil && strings.HasSuffix(project.Team.Name, " Team") {
				if err := tx.Model(project.Team).Update("name", newName+" Team").Error; err != nil {
					return err
				}
			}
		}

		if req.Description != nil {
			project.Description = *req.Description
		}
		if req.Status != "" {
			project.Status = req.Status
		}
		if req.StartDate != nil {
			project.StartDate = req.StartDate
		}
		if req.EndDate != nil {
			project.EndDate = req.EndDate
		}
		if req.OwnerID != "" {
			project.OwnerID = req.OwnerID
		}

		return tx.Model(project).Updates(map[string]interface{}{
			"name":        project.Name,
			"description": project.Description,
			"status":      project.Status,
			"start_date":  project.StartDate,
			"end_date":    project.EndDate,
			"owner_id":    project.OwnerID,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("project_id", projectID).
		Str("actor_id", userID).
		Msg("project updated")

	return s.GetProject(projectID)
}

// DeleteProject soft-deletes the project together with its team and
// memberships.
func (s *ProjectService) DeleteProject(userID string, roles models.RoleSet, projectID string) error {
	project, err := s.loadProject(s.db, projectID)
	if err != nil {
		return err
	}

	if err := s.requireEdit(userID, roles, projectID); err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if project.Team != nil {
			if err := tx.Where("team_id = ?", project.Team.ID).
				Delete(&models.TeamMember{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(project.Team).Error; err != nil {
				return err
			}
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("project_id", projectID).
		Str("actor_id", userID).
		Msg("project deleted")
	return nil
}

func (s *ProjectService) requireEdit(userID string, roles models.RoleSet, projectID string) error {
	ok, err := s.perms.CanEditProject(userID, roles, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return response.NewForbidden("you do not have permission to edit this project")
	}
	return nil
}

func (s *ProjectService) loadProject(tx *gorm.DB, projectID string) (*models.Project, error) {
	var project models.Project
	if err := tx.Preload("Owner").Preload("Team.Members.User").
		First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}
	return &project, nil
}

func mapProjectDTO(p *models.Project) *ProjectDTO {
	dto := &ProjectDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		OwnerID:     p.OwnerID,
		TeamMembers: []TeamMemberDTO{},
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Owner != nil {
		dto.OwnerName = p.Owner.FullName()
	}
	if p.Team != nil {
		dto.TeamID = p.Team.ID
		dto.TeamName = p.Team.Name
		for i := range p.Team.Members {
			dto.TeamMembers = append(dto.TeamMembers, mapMemberDTO(&p.Team.Members[i]))
		}
	}
	return dto
}
