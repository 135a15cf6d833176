package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"planpal-backend/internal/handlers"
	"planpal-backend/internal/middleware"
	"planpal-backend/internal/websocket"
)

func New(
	agentHandler *handlers.AgentHandler,
	taskHandler *handlers.TaskHandler,
	wsHub *websocket.Hub,
	planLimiter *middleware.RateLimiter,
	health func(ctx context.Context) error,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Each plan-day call spends LLM quota, so only this route is limited.
		r.Route("/agent", func(r chi.Router) {
			if planLimiter != nil {
				r.Use(planLimiter.Middleware)
			}
			r.Post("/plan-day/", agentHandler.PlanDay)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Get("/{id}/", taskHandler.Get)
			r.Post("/{id}/complete/", taskHandler.Complete)
			r.Delete("/{id}/", taskHandler.Delete)
		})

		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
