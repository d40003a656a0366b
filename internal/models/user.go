// internal/models/user.go
package models

// User is the identity record the engine consumes from the external
// identity store. Registration and authentication live elsewhere.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Project is the ownership link for tasks. Only the fields the engine's
// read-side joins need are modeled here.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
