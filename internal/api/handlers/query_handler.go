// internal/api/handlers/query_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/annolab/annolab/internal/engine"
	"github.com/annolab/annolab/internal/models"
	"github.com/go-chi/chi/v5"
)

type QueryHandler struct {
	engine *engine.Engine
}

func NewQueryHandler(e *engine.Engine) *QueryHandler {
	return &QueryHandler{
		engine: e,
	}
}

func (h *QueryHandler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	filter := models.TaskFilter(r.URL.Query().Get("filter"))

	result, err := h.engine.ListTasks(r.Context(), projectID, page, pageSize, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

// ReviewQueue lists the calling reviewer's tasks, submitted work first.
func (h *QueryHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.engine.ListReviewQueue(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(tasks)
}

// DistinctProjects lists the unique projects the caller's tasks touch,
// either as annotator (default) or as reviewer (?by=reviewer).
func (h *QueryHandler) DistinctProjects(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = "annotator"
	}

	projects, err := h.engine.DistinctProjects(r.Context(), by, callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(projects)
}
