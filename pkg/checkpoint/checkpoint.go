package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"tweetutil/pkg/logger"
	"tweetutil/pkg/storage"
)

// Version is the current checkpoint format
const Version = 1

// Checkpoint is the resumable state of a paginated search
type Checkpoint struct {
	Query       string    `json:"query"`
	Place       string    `json:"place,omitempty"`
	Output      string    `json:"output"`
	NextToken   string    `json:"next_token"`
	Pages       int       `json:"pages"`
	EmptyStreak int       `json:"empty_streak"`
	Collected   int       `json:"collected"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// Manager handles checkpoint operations for one search
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// Key identifies a search by its query, place filter and output file
func Key(query, place, output string) string {
	sum := sha256.Sum256([]byte(query + "\x00" + place + "\x00" + output))
	return hex.EncodeToString(sum[:8])
}

// NewManager creates a checkpoint manager under the user data directory
func NewManager(key string) (*Manager, error) {
	dataDir, err := DataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerIn(filepath.Join(dataDir, "checkpoints"), key)
}

// NewManagerIn creates a checkpoint manager storing files in dir
func NewManagerIn(dir, key string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", key)),
		logger:         logger.GetLogger(),
	}, nil
}

// SetLogger replaces the manager logger
func (m *Manager) SetLogger(l logger.Logger) {
	m.logger = l
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create creates and saves a fresh checkpoint
func (m *Manager) Create(query, place, output string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		Query:     query,
		Place:     place,
		Output:    output,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   Version,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"query": query,
		"path":  m.checkpointPath,
	})

	return cp, nil
}

// Load loads an existing checkpoint; it returns nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	var cp Checkpoint
	found, err := storage.ReadJSON(m.checkpointPath, &cp)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if !found {
		return nil, nil
	}
	if cp.Version != Version {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"query":      cp.Query,
		"pages":      cp.Pages,
		"collected":  cp.Collected,
		"next_token": cp.NextToken,
		"updated_at": cp.UpdatedAt,
	})

	return &cp, nil
}

// Save writes the checkpoint atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	if err := storage.WriteJSON(m.checkpointPath, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"query":      cp.Query,
		"pages":      cp.Pages,
		"next_token": cp.NextToken,
	})
	return nil
}

// UpdateProgress records the position after a processed page
func (m *Manager) UpdateProgress(cp *Checkpoint, nextToken string, pages, emptyStreak, collected int) error {
	cp.NextToken = nextToken
	cp.Pages = pages
	cp.EmptyStreak = emptyStreak
	cp.Collected = collected
	return m.Save(cp)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// DataDirectory returns the tweetutil data directory for the current OS
func DataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "tweetutil")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "tweetutil")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "tweetutil")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "tweetutil")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
