package main

import (
	"github.com/taskforge/backend/internal/config"
	"github.com/taskforge/backend/internal/handlers"
	"github.com/taskforge/backend/internal/models"
	"github.com/taskforge/backend/internal/services"
	"github.com/taskforge/backend/internal/utils"
	"github.com/taskforge/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cleanupService *services.CleanupService
	authHandler    *handlers.AuthHandler
	projectHandler *handlers.ProjectHandler
	teamHandler    *handlers.TeamHandler
	taskHandler    *handlers.TaskHandler
	healthHandler  *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)
	utils.SetJWTIssuer(cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Start expired refresh token cleanup scheduler
	cleanupService := services.NewCleanupService(models.GetDB())
	cleanupService.StartScheduler()

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cleanupService: cleanupService,
		authHandler:    authHandler,
		projectHandler: handlers.NewProjectHandler(models.GetDB()),
		teamHandler:    handlers.NewTeamHandler(models.GetDB()),
		taskHandler:    handlers.NewTaskHandler(models.GetDB()),
		healthHandler:  handlers.NewHealthHandler(),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.cleanupService.StopScheduler()
	logger.Info().Msg("All schedulers stopped")
}
