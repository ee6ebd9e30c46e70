// Package storage archives the raw files received by the upload endpoints so
// a disputed import can be replayed or inspected after the fact.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for raw upload archival
type Storage interface {
	// Save stores the raw bytes of an upload and returns its metadata
	Save(ctx context.Context, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// GetReader returns a reader over a stored file for replay
	GetReader(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, error)

	// GetInfo returns metadata for a stored file
	GetInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error)

	// Delete removes a stored file and its metadata
	Delete(ctx context.Context, fileID uuid.UUID) error

	// List returns metadata for every stored file
	List(ctx context.Context) ([]*FileInfo, error)

	// PurgeBefore removes files stored before the cutoff, returning how many
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string `yaml:"local_path" env:"STORAGE_LOCAL_PATH" envDefault:"./uploads"`
}

// New creates the Storage implementation for the configuration
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
