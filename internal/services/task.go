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

// TaskService manages work items within a project. Tasks carry a per-project
// display order maintained as a dense sequence by Reorder.
type TaskService struct {
	db    *gorm.DB
	perms *PermissionService
}

func NewTaskService(db *gorm.DB, perms *PermissionService) *TaskService {
	return &TaskService{db: db, perms: perms}
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=4000"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeID  string     `json:"assigneeId"`
	Tags        string     `json:"tags"`
}

type UpdateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeID  *string    `json:"assigneeId"`
	Tags        *string    `json:"tags"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignTaskRequest struct {
	AssigneeID string `json:"assigneeId"`
}

type ReorderTaskRequest struct {
	NewDisplayOrder int `json:"newDisplayOrder" binding:"min=1"`
}

type TaskDTO struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ProjectID    string     `json:"projectId"`
	AssigneeID   *string    `json:"assigneeId,omitempty"`
	AssigneeName string     `json:"assigneeName,omitempty"`
	DisplayOrder int        `json:"displayOrder"`
	Tags         string     `json:"tags"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ListTasks returns the project's tasks in display order.
func (s *TaskService) ListTasks(projectID string) ([]TaskDTO, error) {
	var count int64
	if err := s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}

	var tasks []models.Task
	if err := s.db.Preload("Assignee").
		Where("project_id = ?", projectID).
		Order("display_order").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	out := make([]TaskDTO, 0, len(tasks))
	for i := range tasks {
		out = append(out, *mapTaskDTO(&tasks[i]))
	}
	return out, nil
}

// GetTask returns a single task.
func (s *TaskService) GetTask(taskID string) (*TaskDTO, error) {
	task, err := s.loadTask(s.db, taskID)
	if err != nil {
		return nil, err
	}
	return mapTaskDTO(task), nil
}

// CreateTask adds a task at the end of the project's display order. The
// creator must be on the project's team or own the project; the assignee, if
// given, likewise.
func (s *TaskService) CreateTask(userID string, projectID string, req *CreateTaskRequest) (*TaskDTO, error) {
	project, err := s.loadProjectWithTeam(projectID)
	if err != nil {
		return nil, err
	}

	if !s.onProject(project, userID) {
		return nil, response.NewForbidden("you do not have permission to create tasks in this project")
	}

	var assigneeID *string
	if req.AssigneeID != "" {
		if !s.onProject(project, req.AssigneeID) {
			return nil, response.NewValidation("assignee must be a team member")
		}
		id := req.AssigneeID
		assigneeID = &id
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusOpen
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	var task *models.Task
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		row := tx.Model(&models.Task{}).
			Where("project_id = ?", projectID).
			Select("COALESCE(MAX(display_order), 0)").
			Row()
		if err := row.Scan(&maxOrder); err != nil {
			return err
		}

		task = &models.Task{
			Title:        strings.TrimSpace(req.Title),
			Description:  req.Description,
			Status:       status,
			Priority:     priority,
			DueDate:      req.DueDate,
			ProjectID:    projectID,
			AssigneeID:   assigneeID,
			DisplayOrder: maxOrder + 1,
			Tags:         req.Tags,
		}
		return tx.Create(task).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("task_id", task.ID).
		Str("project_id", projectID).
		Str("actor_id", userID).
		Msg("task created")

	return s.GetTask(task.ID)
}

// UpdateTask applies a partial update. Guarded by the task edit permission.
func (s *TaskService) UpdateTask(userID string, roles models.RoleSet, taskID string, req *UpdateTaskRequest) (*TaskDTO, error) {
	task, err := s.loadTask(s.db, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.requireEdit(userID, roles, taskID); err != nil {
		return nil, err
	}

	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			task.AssigneeID = nil
		} else {
			project, err := s.loadProjectWithTeam(task.ProjectID)
			if err != nil {
				return nil, err
			}
			if !s.onProject(project, *req.AssigneeID) {
				return nil, response.NewValidation("assignee must be a team member")
			}
			task.AssigneeID = req.AssigneeID
		}
	}

	if strings.TrimSpace(req.Title) != "" {
		task.Title = strings.TrimSpace(req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != "" {
		task.Status = req.Status
	}
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Tags != nil {
		task.Tags = *req.Tags
	}

	if err := s.db.Model(task).Updates(map[string]interface{}{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"due_date":    task.DueDate,
		"assignee_id": task.AssigneeID,
		"tags":        task.Tags,
	}).Error; err != nil {
		return nil, err
	}

	logger.Info().
		Str("task_id", taskID).
		Str("actor_id", userID).
		Msg("task updated")

	return s.GetTask(taskID)
}

// UpdateStatus moves the task to a new workflow status.
func (s *TaskService) UpdateStatus(userID string, roles models.RoleSet, taskID string, req *UpdateTaskStatusRequest) (*TaskDTO, error) {
	task, err := s.loadTask(s.db, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.requireEdit(userID, roles, taskID); err != nil {
		return nil, err
	}

	if err := s.db.Model(task).Update("status", req.Status).Error; err != nil {
		return nil, err
	}

	logger.Info().
		Str("task_id", taskID).
		Str("status", req.Status).
		Str("actor_id", userID).
		Msg("task status updated")

	return s.GetTask(taskID)
}

// Assign sets or clears the task's assignee. An empty assignee unassigns.
func (s *TaskService) Assign(userID string, roles models.RoleSet, taskID string, req *AssignTaskRequest) (*TaskDTO, error) {
	task, err := s.loadTask(s.db, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.requireEdit(userID, roles, taskID); err != nil {
		return nil, err
	}

	var assigneeID *string
	if req.AssigneeID != "" {
		project, err := s.loadProjectWithTeam(task.ProjectID)
		if err != nil {
			return nil, err
		}
		if !s.onProject(project, req.AssigneeID) {
			return nil, response.NewValidation("assignee must be a team member")
		}
		id := req.AssigneeID
		assigneeID = &id
	}

	if err := s.db.Model(task).Update("assignee_id", assigneeID).Error; err != nil {
		return nil, err
	}

	logger.Info().
		Str("task_id", taskID).
		Str("actor_id", userID).
		Msg("task assigned")

	return s.GetTask(taskID)
}

// Delete soft-deletes the task.
func (s *TaskService) Delete(userID string, roles models.RoleSet, taskID string) error {
	task, err := s.loadTask(s.db, taskID)
	if err != nil {
		return err
	}

	if err := s.requireEdit(userID, roles, taskID); err != nil {
		return err
	}

	if err := s.db.Delete(task).Error; err != nil {
		return err
	}

	logger.Info().
		Str("task_id", taskID).
		Str("actor_id", userID).
		Msg("task deleted")
	return nil
}

// Reorder moves the task to a new position in its project's display order.
// Siblings between the old and new position shift by one so the sequence
// stays dense; an unchanged position is a no-op.
func (s *TaskService) Reorder(userID string, roles models.RoleSet, taskID string, req *ReorderTaskRequest) error {
	task, err := s.loadTask(s.db, taskID)
	if err != nil {
		return err
	}

	if err := s.requireEdit(userID, roles, taskID); err != nil {
		return err
	}

	oldOrder := task.DisplayOrder
	newOrder := req.NewDisplayOrder
	if oldOrder == newOrder {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if newOrder > oldOrder {
			// Moving down: siblings in (old, new] shift up by one.
			if err := tx.Model(&models.Task{}).
				Where("project_id = ? AND display_order > ? AND display_order <= ? AND id <> ?",
					task.ProjectID, oldOrder, newOrder, taskID).
				UpdateColumn("display_order", gorm.Expr("display_order - 1")).Error; err != nil {
				return err
			}
		} else {
			// Moving up: siblings in [new, old) shift down by one.
			if err := tx.Model(&models.Task{}).
				Where("project_id = ? AND display_order >= ? AND display_order < ? AND id <> ?",
					task.ProjectID, newOrder, oldOrder, taskID).
				UpdateColumn("display_order", gorm.Expr("display_order + 1")).Error; err != nil {
				return err
			}
		}
		return tx.Model(task).UpdateColumn("display_order", newOrder).Error
	})
}

func (s *TaskService) requireEdit(userID string, roles models.RoleSet, taskID string) error {
	ok, err := s.perms.CanEditTask(userID, roles, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return response.NewForbidden("you do not have permission to edit this task")
	}
	return nil
}

func (s *TaskService) loadTask(tx *gorm.DB, taskID string) (*models.Task, error) {
	var task models.Task
	if err := tx.Preload("Assignee").First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("task not found")
		}
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) loadProjectWithTeam(projectID string) (*models.Project, error) {
	var project models.Project
	if err := s.db.Preload("Team.Members").First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}
	return &project, nil
}

// onProject reports whether the user owns the project or holds an active
// team membership on it.
func (s *TaskService) onProject(project *models.Project, userID string) bool {
	if project.OwnerID == userID {
		return true
	}
	if project.Team == nil {
		return false
	}
	for _, m := range project.Team.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func mapTaskDTO(t *models.Task) *TaskDTO {
	dto := &TaskDTO{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		ProjectID:    t.ProjectID,
		AssigneeID:   t.AssigneeID,
		DisplayOrder: t.DisplayOrder,
		Tags:         t.Tags,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.Assignee != nil {
		dto.AssigneeName = t.Assignee.FullName()
	}
	return dto
}
