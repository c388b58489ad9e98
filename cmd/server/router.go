package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digicapsule/capsule-api/internal/api"
	apiMiddleware "github.com/digicapsule/capsule-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
// It accepts the application dependencies to create handlers and register routes.
// Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.verification,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	capsuleHandler := api.NewCapsuleHandler(app.capsuleService, app.logger)
	mediaHandler := api.NewMediaHandler(app.mediaStorage, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)
		r.Post("/auth/verify", authHandler.VerifyEmail)
		r.Post("/auth/resend-verification", authHandler.ResendVerification)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Capsule endpoints
			r.Get("/capsules", capsuleHandler.ListCapsules)
			r.Post("/capsules", capsuleHandler.CreateCapsule)
			r.Get("/capsules/{id}", capsuleHandler.GetCapsule)
			r.Put("/capsules/{id}", capsuleHandler.UpdateCapsule)
			r.Delete("/capsules/{id}", capsuleHandler.DeleteCapsule)
			r.Post("/capsules/{id}/open", capsuleHandler.OpenCapsule)

			// Recipient lookup for addressed capsules
			r.Get("/recipients/check", capsuleHandler.CheckRecipient)

			// Media uploads for image and video capsules
			r.Post("/media", mediaHandler.UploadMedia)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
