/**
 * @description
 * This file sets up the HTTP router for the wallet backend. It defines
 * the API endpoints, associates them with their handlers, and applies
 * middleware. Signup, login, the recovery flow and the health check are
 * reachable without credentials; everything else requires a bearer token.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: Cross-origin configuration for the web client.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// WalletRoutes creates and returns the router for the wallet backend.
func WalletRoutes(h *WalletHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public endpoints: signup, login signer fetch, and the recovery
	// flow, which by definition runs without a valid session.
	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", h.CreateUserHandler)
		r.Post("/login", h.LoginSignerHandler)

		r.Route("/recover", func(r chi.Router) {
			r.Post("/lookup", h.RecoverLookupHandler)
			r.Post("/operations", h.RecoverOperationsHandler)
			r.Post("/confirm", h.RecoverConfirmHandler)
			r.Get("/status/{channelID}", h.RelayStatusHandler)
		})

		// Protected endpoints.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Get("/users", h.ListUsersHandler)
			r.Get("/users/search", h.SearchUsersHandler)
			r.Get("/users/{userID}", h.GetUserHandler)
			r.Patch("/users/{userID}", h.UpdateUserHandler)
			r.Delete("/users/{userID}", h.DeleteUserHandler)

			r.Post("/users/{userID}/wallet", h.CreateWalletHandler)
			r.Get("/users/{userID}/wallet", h.GetWalletHandler)

			r.Post("/relay", h.RelayHandler)
		})
	})

	return r
}
