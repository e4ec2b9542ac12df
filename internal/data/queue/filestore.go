package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/flowpulse/flowpulse/internal/core/model"
)

// FileStore persists the queue as a JSON file, written atomically via a
// temp-file rename so a crash mid-write never truncates the queue.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path, creating parent directories.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Save writes the full queue contents.
func (s *FileStore) Save(intervals []model.ActivityInterval) error {
	data, err := sonic.Marshal(intervals)
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

// Load reads the persisted queue; a missing file is an empty queue.
func (s *FileStore) Load() ([]model.ActivityInterval, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	var intervals []model.ActivityInterval
	if err := sonic.Unmarshal(data, &intervals); err != nil {
		return nil, fmt.Errorf("decode queue file: %w", err)
	}
	return intervals, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
