package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileUserStore keeps the user list as a JSON array of records in one
// file. Appends rewrite the whole file under the lock.
type FileUserStore struct {
	mu   sync.Mutex
	path string
}

func NewFileUserStore(path string) *FileUserStore {
	return &FileUserStore{path: path}
}

func (that *FileUserStore) Load(_ context.Context) ([]UserRecord, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.loadLocked()
}

func (that *FileUserStore) Append(_ context.Context, record UserRecord) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	records, err := that.loadLocked()
	if err != nil {
		return err
	}

	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user list: %w", err)
	}

	if err = os.WriteFile(that.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write user list: %w", err)
	}

	return nil
}

func (that *FileUserStore) loadLocked() ([]UserRecord, error) {
	data, err := os.ReadFile(that.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read user list: %w", err)
	}

	var records []UserRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("user list is not a valid JSON array: %w", err)
	}

	return records, nil
}
