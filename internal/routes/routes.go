package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tmcnulty/registrar/internal/auth"
	"github.com/tmcnulty/registrar/internal/handlers"
	"github.com/tmcnulty/registrar/internal/middleware"
	"github.com/tmcnulty/registrar/internal/models"
	"github.com/tmcnulty/registrar/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	studentHandler *handlers.StudentHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/signup", authHandler.Signup)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/forgot-password", authHandler.ForgotPassword)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/reset-password/{token}", authHandler.ResetPassword)

	// Verification links arrive from email clients, keep them public
	router.Get("/api/auth/verify-student/{token}", authHandler.VerifyStudent)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager, userRepo))

		r.Get("/api/auth/profile", authHandler.GetProfile)
		r.Put("/api/auth/profile", authHandler.UpdateProfile)
		r.Put("/api/auth/change-password", authHandler.ChangePassword)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/send-verification", authHandler.SendVerification)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin))
			r.Get("/api/students", studentHandler.List)
			r.Post("/api/students", studentHandler.Create)
			r.Get("/api/students/{id}", studentHandler.Get)
			r.Put("/api/students/{id}", studentHandler.Update)
			r.Delete("/api/students/{id}", studentHandler.Delete)
		})
	})
}
