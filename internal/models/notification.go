// internal/models/notification.go
package models

import (
	"encoding/json"
	"time"
)

// Notification trigger names with engine-level meaning. Projects may define
// templates for arbitrary trigger names; these two are the ones the engine
// itself fires.
const (
	TriggerAssigned = "assigned"
	TriggerCustom   = "custom"
)

// NotificationTemplate is a per-project, per-trigger message definition.
// The engine consumes templates read-only; at most one active template per
// (project, trigger) pair is used.
type NotificationTemplate struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	TriggerName string `json:"triggerName"`
	Active      bool   `json:"active"`
	TriggerBody string `json:"triggerBody"` // opaque HTML payload
}

// NotificationRequest is the message handed to the dispatch queue when a
// lifecycle transition wants an email sent. Single-recipient requests
// carry a TaskID and Trigger; custom broadcasts carry Recipients and
// ProjectID with the "custom" trigger.
type NotificationRequest struct {
	TaskID     string   `json:"taskId,omitempty"`
	Trigger    string   `json:"trigger"`
	Recipients []string `json:"recipients,omitempty"`
	ProjectID  string   `json:"projectId,omitempty"`
}

// ToJSON converts the notification request to JSON.
func (n *NotificationRequest) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// FromJSON populates the notification request from JSON.
func (n *NotificationRequest) FromJSON(data []byte) error {
	return json.Unmarshal(data, n)
}

// StatusMessage is the lifecycle event envelope published for downstream
// consumers whenever a task transition lands.
type StatusMessage struct {
	Type      string      `json:"type"`      // "task"
	ID        string      `json:"id"`        // task id
	Status    string      `json:"status"`    // resulting status
	Timestamp time.Time   `json:"timestamp"` // when the transition landed
	Metadata  interface{} `json:"metadata"`  // transition-specific details
}
