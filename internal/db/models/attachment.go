// Package models - attachment.go defines the Attachment model: a file tied to
// an asset. Attachments are child records and are hard-deleted (row plus
// best-effort backing file) rather than archived.
package models

import "time"

// Attachment represents a file attached to an asset (photo, receipt, appraisal)
type Attachment struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	AssetID     string    `json:"asset_id"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
	UploadedBy  *string   `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
