// Package models - event.go defines the Event model for the family calendar.
package models

import "time"

// Event represents a calendar entry. Listings are ordered by start time, not
// creation time, unlike the other resource types.
type Event struct {
	ID        string     `db:"id" json:"id"`
	TeamID    string     `db:"team_id" json:"team_id"`
	Title     string     `db:"title" json:"title"`
	StartsAt  time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt    *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	Location  string     `db:"location" json:"location"`
	Notes     string     `db:"notes" json:"notes"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
