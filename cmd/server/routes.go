package main

import (
	"github.com/gin-gonic/gin"
	"github.com/taskforge/backend/internal/middleware"
	"github.com/taskforge/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for credential endpoints
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh-token", svc.authHandler.Refresh)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/revoke-token", svc.authHandler.Revoke)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.GET("/projects/:id", svc.projectHandler.Get)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)
			protected.GET("/projects/:id/can-edit", svc.projectHandler.CanEdit)
			protected.GET("/projects/:id/team", svc.teamHandler.GetByProject)

			// Tasks nested under a project
			protected.GET("/projects/:id/tasks", svc.taskHandler.ListByProject)
			protected.POST("/projects/:id/tasks", svc.taskHandler.Create)

			// Tasks
			protected.GET("/tasks/:id", svc.taskHandler.Get)
			protected.PUT("/tasks/:id", svc.taskHandler.Update)
			protected.PATCH("/tasks/:id/status", svc.taskHandler.UpdateStatus)
			protected.PATCH("/tasks/:id/assign", svc.taskHandler.Assign)
			protected.PATCH("/tasks/:id/reorder", svc.taskHandler.Reorder)
			protected.DELETE("/tasks/:id", svc.taskHandler.Delete)
			protected.GET("/tasks/:id/can-edit", svc.taskHandler.CanEdit)

			// Teams
			protected.GET("/teams/:id", svc.teamHandler.Get)
			protected.PUT("/teams/:id", svc.teamHandler.Update)
			protected.GET("/teams/:id/members", svc.teamHandler.ListMembers)
			protected.POST("/teams/:id/members", svc.teamHandler.AddMember)
			protected.PUT("/teams/:id/members/:memberId", svc.teamHandler.UpdateMember)
			protected.DELETE("/teams/:id/members/:memberId", svc.teamHandler.RemoveMember)
			protected.GET("/teams/:id/can-manage", svc.teamHandler.CanManage)
		}
	}
}
