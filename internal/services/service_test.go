package services

import (
	"testing"
	"time"

	"github.com/taskforge/backend/internal/config"
	"github.com/taskforge/backend/internal/models"
	"github.com/taskforge/backend/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	utils.SetJWTSecret("test-secret-for-service-testing")
}

// testDB opens a fresh in-memory database with the full schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserRole{},
		&models.Project{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:              "test-secret-for-service-testing",
		AccessExpireMinutes: 15,
		RefreshExpireDays:   7,
	}
}

// createUser inserts a user with the given global roles. The password hash is
// a placeholder; tests that exercise login create users through Register
// instead.
func createUser(t *testing.T, db *gorm.DB, email string, roles ...models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	for _, r := range roles {
		if err := db.Create(&models.UserRole{UserID: user.ID, Role: r}).Error; err != nil {
			t.Fatalf("failed to assign role %s: %v", r, err)
		}
	}
	return user
}

// createProjectTree inserts a project, its team, and the owner's lead
// membership, mirroring what CreateProject does.
func createProjectTree(t *testing.T, db *gorm.DB, name string, owner *models.User) (*models.Project, *models.Team) {
	t.Helper()

	project := &models.Project{
		Name:    name,
		Status:  models.ProjectStatusActive,
		OwnerID: owner.ID,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	team := &models.Team{
		Name:      name + " Team",
		ProjectID: project.ID,
	}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	addMembership(t, db, team.ID, owner.ID, models.TeamRoleLead)
	return project, team
}

func addMembership(t *testing.T, db *gorm.DB, teamID, userID string, role models.TeamRole) *models.TeamMember {
	t.Helper()

	member := &models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
	return member
}

func createTask(t *testing.T, db *gorm.DB, projectID string, order int, assigneeID *string) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:        "Task",
		Status:       models.TaskStatusOpen,
		Priority:     models.TaskPriorityMedium,
		ProjectID:    projectID,
		AssigneeID:   assigneeID,
		DisplayOrder: order,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

func rolesOf(u ...models.Role) models.RoleSet {
	set := make(models.RoleSet, len(u))
	for _, r := range u {
		set[r] = struct{}{}
	}
	return set
}
