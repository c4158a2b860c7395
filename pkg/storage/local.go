package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDirName = ".meta"

// LocalStorage implements Storage using the local filesystem.
// Layout: <base>/<runID>/<file> with metadata in <base>/<runID>/.meta/<file>.json
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

// Save stores a file under a run
func (s *LocalStorage) Save(ctx context.Context, runID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runDir := s.runDir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	storedName := sanitizeFilename(name)
	filePath := filepath.Join(runDir, storedName)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		RunID:       runID,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Path:        storedName,
		CreatedAt:   s.now(),
	}

	if err := s.saveMetadata(runID, info); err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, err
	}

	return info, nil
}

// Open retrieves a file by run and name
func (s *LocalStorage) Open(ctx context.Context, runID uuid.UUID, name string) (io.ReadCloser, *FileInfo, error) {
	info, err := s.getInfo(runID, name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.runDir(runID), info.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, name)
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, info, nil
}

// List returns all files of a run
func (s *LocalStorage) List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.runDir(runID), metaDirName)
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := s.readMetadata(filepath.Join(metaDir, entry.Name()))
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	return files, nil
}

// Delete removes a run directory
func (s *LocalStorage) Delete(ctx context.Context, runID uuid.UUID) error {
	runDir := s.runDir(runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes every run whose newest file predates cutoff. Runs without
// metadata are treated as abandoned and removed as well.
func (s *LocalStorage) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list runs: %w", err)
	}

	purged := 0
	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if !entry.IsDir() {
			continue
		}

		runID, err := uuid.Parse(entry.Name())
		if err != nil {
			continue
		}

		files, err := s.List(ctx, runID)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if newest(files).After(cutoff) {
			continue
		}

		if err := s.Delete(ctx, runID); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
	}

	return purged, errors.Join(errs...)
}

func newest(files []*FileInfo) time.Time {
	var t time.Time
	for _, f := range files {
		if f.CreatedAt.After(t) {
			t = f.CreatedAt
		}
	}
	return t
}

func (s *LocalStorage) runDir(runID uuid.UUID) string {
	return filepath.Join(s.basePath, runID.String())
}

func (s *LocalStorage) getInfo(runID uuid.UUID, name string) (*FileInfo, error) {
	metaPath := filepath.Join(s.runDir(runID), metaDirName, sanitizeFilename(name)+".json")
	info, err := s.readMetadata(metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, name)
		}
		return nil, err
	}
	return info, nil
}

func (s *LocalStorage) readMetadata(path string) (*FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

// saveMetadata saves file metadata to a JSON file
func (s *LocalStorage) saveMetadata(runID uuid.UUID, info *FileInfo) error {
	metaDir := filepath.Join(s.runDir(runID), metaDirName)
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	metaPath := filepath.Join(metaDir, info.Path+".json")
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
