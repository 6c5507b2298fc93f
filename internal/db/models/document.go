// Package models - document.go defines the Document model. Documents are the
// one resource type with a hard-delete path: deleting removes the row and then
// attempts to remove the backing file from blob storage.
package models

import "time"

// Document represents an uploaded family document (will, deed, statement, ...)
type Document struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	StoragePath string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
	UploadedBy  *string   `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
