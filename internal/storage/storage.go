// Package storage defines the blob backend interface used for FamilyVault
// document and attachment files.
//
// A backend registers itself with the factory from its own init():
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// cmd/server blank-imports each backend package, so wiring a new one needs no
// factory changes.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrSignedURLUnsupported is returned by GetURL on backends that cannot mint
// time-limited URLs. Handlers fall back to streaming the file through the API.
var ErrSignedURLUnsupported = errors.New("storage: backend does not support signed URLs")

// Storage is implemented by every blob backend. Paths are forward-slash keys
// scoped under the owning team ("teams/{team_id}/...").
type Storage interface {
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error

	// GetURL mints a signed download URL valid for ttl, or returns
	// ErrSignedURLUnsupported.
	GetURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata reads size, checksum, and modification time without
	// downloading the whole file.
	GetMetadata(ctx context.Context, path string) (*FileMetadata, error)
}

// UploadResult describes a stored blob. Checksum is the hex SHA256 of the
// contents as written.
type UploadResult struct {
	Path     string
	Size     int64
	Checksum string
}

// FileMetadata describes a blob already in storage.
type FileMetadata struct {
	Path         string
	Size         int64
	Checksum     string
	LastModified time.Time
}
