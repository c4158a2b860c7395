// Package storage keeps the export files of an extraction run so they can be
// downloaded after the request that produced them.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run or one of its files does not exist
var ErrNotFound = errors.New("stored file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	RunID       uuid.UUID `json:"run_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the run artifact operations
type Storage interface {
	// Save stores a file under a run, replacing one with the same name
	Save(ctx context.Context, runID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for a stored file and its metadata
	Open(ctx context.Context, runID uuid.UUID, name string) (io.ReadCloser, *FileInfo, error)

	// List returns all files of a run
	List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error)

	// Delete removes a run and all its files
	Delete(ctx context.Context, runID uuid.UUID) error

	// PurgeOlderThan deletes runs whose newest file was created before cutoff
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string
}

// New creates the local filesystem storage
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
