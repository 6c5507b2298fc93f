// Package models - activity.go defines the ActivityEntry model, the per-team
// audit trail of mutations.
package models

import "time"

// ActivityEntry is a single recorded action. Metadata is an opaque JSON blob.
type ActivityEntry struct {
	ID           string    `db:"id" json:"id"`
	TeamID       string    `db:"team_id" json:"team_id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   string    `db:"resource_id" json:"resource_id"`
	Metadata     []byte    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
