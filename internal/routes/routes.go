package routes

import (
	"github.com/Darkthan/AffichApp/internal/auth"
	"github.com/Darkthan/AffichApp/internal/handlers"
	"github.com/Darkthan/AffichApp/internal/middleware"
	"github.com/Darkthan/AffichApp/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes under /api.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	fail2banHandler *handlers.Fail2BanHandler,
	tokenManager *auth.TokenManager,
	userFetcher auth.UserFetcher,
) {
	requireAuth := auth.RequireAuth(tokenManager, userFetcher)
	requireAdmin := auth.RequireRole(models.RoleAdmin)

	router.Route("/api", func(r chi.Router) {
		// Public routes - no authentication required
		r.With(middleware.RateLimitByIP(middleware.LoginRateLimit())).
			Post("/auth/login", authHandler.Login)

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", authHandler.Me)
			r.With(middleware.RateLimitByIP(middleware.PasswordChangeRateLimit())).
				Patch("/auth/me/password", authHandler.ChangePassword)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Post("/auth/register", authHandler.Register)

				r.Get("/users", userHandler.ListUsers)
				r.Post("/users", userHandler.CreateUser)
				r.Get("/users/{id}", userHandler.GetUser)
				r.Patch("/users/{id}", userHandler.UpdateUser)
				r.Delete("/users/{id}", userHandler.DeleteUser)

				r.Get("/fail2ban/config", fail2banHandler.GetConfig)
				r.Patch("/fail2ban/config", fail2banHandler.UpdateConfig)
				r.Get("/fail2ban/banned", fail2banHandler.GetBanned)
				r.Delete("/fail2ban/banned/{ip}", fail2banHandler.Unban)
				r.Get("/fail2ban/stats", fail2banHandler.GetStats)
			})
		})
	})
}
