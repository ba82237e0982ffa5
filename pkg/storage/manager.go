package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tweetutil/pkg/twitter"
)

// Manager owns one JSON results file holding an array of tweets
type Manager struct {
	path string
	mu   sync.Mutex
}

// NewManager creates a storage manager writing to path
func NewManager(path string) (*Manager, error) {
	if path == "" {
		return nil, errors.New("output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{path: path}, nil
}

// Save replaces the results file with tweets
func (m *Manager) Save(tweets []twitter.Tweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tweets == nil {
		tweets = []twitter.Tweet{}
	}
	return WriteJSON(m.path, tweets)
}

// Load reads previously saved tweets; a missing file yields none
func (m *Manager) Load() ([]twitter.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tweets []twitter.Tweet
	found, err := ReadJSON(m.path, &tweets)
	if err != nil || !found {
		return nil, err
	}
	return tweets, nil
}

// Path returns the results file path
func (m *Manager) Path() string {
	return m.path
}

// WriteJSON writes v as indented JSON through a temp file and rename,
// so readers never observe a partially written file.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = append(data, '\n')

	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tempFile)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// ReadJSON decodes path into v. It reports false when the file does not exist.
func ReadJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}
