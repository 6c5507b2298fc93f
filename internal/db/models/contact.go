// Package models - contact.go defines the Contact model. Contacts are the one
// resource type that can be unarchived.
package models

import "time"

// Contact represents an address-book entry (advisor, lawyer, plumber, ...)
type Contact struct {
	ID        string     `json:"id"`
	TeamID    string     `json:"team_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Company   string     `json:"company"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
