// internal/api/routes/routes.go
package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/annolab/annolab/internal/api/handlers"
	"github.com/annolab/annolab/internal/config"
	"github.com/annolab/annolab/internal/engine"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(cfg *config.Config, e *engine.Engine, queue engine.Publisher) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	})

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(e)
	queryHandler := handlers.NewQueryHandler(e)
	notificationHandler := handlers.NewNotificationHandler(queue)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Task lifecycle endpoints
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.CreateTasks)
			r.Get("/{id}", taskHandler.GetTask)
			r.Delete("/{id}", taskHandler.DeleteTask)
			r.Post("/{id}/submit", taskHandler.SubmitTask)
			r.Put("/{id}/status", taskHandler.SetStatus)
			r.Put("/{id}/assignment", taskHandler.ChangeAssignment)
			r.Put("/{id}/reviewer", taskHandler.AssignReviewer)
			r.Get("/{id}/reworks", taskHandler.ListReworks)
		})

		// Project-scoped endpoints
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/tasks", queryHandler.ListProjectTasks)
			r.Post("/notifications", notificationHandler.Broadcast)
		})

		// Caller-scoped views
		r.Get("/review-queue", queryHandler.ReviewQueue)
		r.Get("/projects", queryHandler.DistinctProjects)

		// Onboarding seed endpoints
		r.Route("/repeat-tasks", func(r chi.Router) {
			r.Post("/", taskHandler.SaveRepeatTasks)
			r.Get("/", taskHandler.ListRepeatTasks)
		})
		r.Post("/annotators/{id}/enroll", taskHandler.EnrollAnnotator)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	return r
}
