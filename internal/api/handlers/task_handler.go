// internal/api/handlers/task_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/annolab/annolab/internal/engine"
	"github.com/annolab/annolab/internal/models"
	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	engine *engine.Engine
}

func NewTaskHandler(e *engine.Engine) *TaskHandler {
	return &TaskHandler{
		engine: e,
	}
}

// callerID returns the already-authenticated caller identity. Session
// establishment happens upstream; the engine only needs the resolved id.
func callerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// writeError maps engine failures to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, engine.ErrInvalidID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrConfig):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *TaskHandler) CreateTasks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tasks []models.TaskDraft `json:"tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tasks, err := h.engine.CreateTasks(r.Context(), callerID(r), body.Tasks)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.engine.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content   string `json:"content"`
		TimeTaken int    `json:"timeTaken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.engine.Submit(r.Context(), chi.URLParam(r, "id"), body.Content, body.TimeTaken)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status    string  `json:"status"`
		Feedback  string  `json:"feedback"`
		Annotator *string `json:"annotator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	status, err := h.engine.SetStatus(r.Context(), callerID(r), chi.URLParam(r, "id"),
		models.Status(body.Status), body.Feedback, body.Annotator)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}

func (h *TaskHandler) ChangeAssignment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Assignee   string `json:"assignee"`
		AsAI       bool   `json:"asAI"`
		AsReviewer bool   `json:"asReviewer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.engine.ChangeAssignment(r.Context(), chi.URLParam(r, "id"), body.Assignee,
		engine.AssignmentOptions{AsAI: body.AsAI, AsReviewer: body.AsReviewer})
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) AssignReviewer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reviewer *string `json:"reviewer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.engine.AssignReviewer(r.Context(), callerID(r), chi.URLParam(r, "id"), body.Reviewer)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) ListReworks(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.ListReworks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(records)
}

func (h *TaskHandler) SaveRepeatTasks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tasks []models.TaskDraft `json:"tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	seeds, err := h.engine.SaveRepeatTasks(r.Context(), callerID(r), body.Tasks)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(seeds)
}

func (h *TaskHandler) ListRepeatTasks(w http.ResponseWriter, r *http.Request) {
	seeds, err := h.engine.ListRepeatTasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(seeds)
}

func (h *TaskHandler) EnrollAnnotator(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.engine.EnrollAnnotator(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tasks)
}
