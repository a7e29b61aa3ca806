package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/karjoohq/karjoo/internal/auth"
	"github.com/karjoohq/karjoo/internal/handlers"
	"github.com/karjoohq/karjoo/internal/middleware"
	"github.com/karjoohq/karjoo/internal/models"
	"github.com/karjoohq/karjoo/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
	appHandler *handlers.ApplicationHandler,
	contactHandler *handlers.ContactHandler,
	dashboardHandler *handlers.DashboardHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
	blockRepo *repositories.UserBlockRepository,
) {
	// Rate limiting config for credential endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()
	limited := middleware.RateLimitByIP(rateLimitConfig)

	router.Get("/health", healthHandler.Check)

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(limited)

		r.Post("/auth/login", authHandler.Login)
		r.Get("/auth/otp", authHandler.RequestLoginCode)
		r.Post("/auth/otp", authHandler.VerifyLoginCode)
		r.Post("/auth/refresh", authHandler.RefreshToken)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/register/code", authHandler.RequestRegistrationCode)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/password-reset", authHandler.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", authHandler.ConfirmPasswordReset)
	})

	router.Get("/jobs", jobHandler.List)
	router.Get("/jobs/{id}", jobHandler.Get)
	router.Post("/contact", contactHandler.Submit)

	// Protected routes - authentication required. Blocked users are
	// rejected here on every request.
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager, blockRepo))

		// Any authenticated user
		r.With(limited).Get("/auth/confirm-email", authHandler.RequestEmailConfirmation)
		r.With(limited).Post("/auth/confirm-email", authHandler.ConfirmEmail)
		r.Get("/users/me", userHandler.Me)
		r.Get("/dashboard", dashboardHandler.Counts)
		r.Get("/applications", appHandler.List)

		// Job seekers
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleJobSeeker))
			r.Post("/jobs/{id}/apply", appHandler.Apply)
		})

		// Employers
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleEmployer))
			r.Post("/jobs", jobHandler.Create)
			r.Get("/jobs/mine", jobHandler.Mine)
			r.Put("/jobs/{id}", jobHandler.Update)
			r.Post("/jobs/{id}/close", jobHandler.Close)
			r.Post("/applications/{id}/status", appHandler.SetStatus)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin))
			r.Get("/users", userHandler.ListUsers)
			r.Get("/users/blocked", userHandler.ListBlocked)
			r.Post("/users/{id}/block", userHandler.BlockUser)
			r.Delete("/users/{id}/block", userHandler.UnblockUser)
			r.Post("/jobs/{id}/approve", jobHandler.Approve)
			r.Get("/contact", contactHandler.List)
			r.Post("/contact/{id}/read", contactHandler.MarkRead)
			r.Post("/contact/{id}/reply", contactHandler.Reply)
		})
	})
}
