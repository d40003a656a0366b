// internal/api/handlers/notification_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/annolab/annolab/internal/engine"
	"github.com/annolab/annolab/internal/models"
	"github.com/go-chi/chi/v5"
)

type NotificationHandler struct {
	queue engine.Publisher
}

func NewNotificationHandler(queue engine.Publisher) *NotificationHandler {
	return &NotificationHandler{
		queue: queue,
	}
}

// Broadcast queues a custom notification for a set of recipients. The
// response acknowledges queuing, not delivery: the dispatcher resolves the
// project's "custom" template and sends independently per recipient.
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recipients []string `json:"recipients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Recipients) == 0 {
		http.Error(w, "recipients required", http.StatusBadRequest)
		return
	}

	req := &models.NotificationRequest{
		Trigger:    models.TriggerCustom,
		Recipients: body.Recipients,
		ProjectID:  chi.URLParam(r, "id"),
	}

	if err := h.queue.PublishNotification(r.Context(), req); err != nil {
		http.Error(w, "failed to queue notification", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Notification queued successfully",
	})
}
