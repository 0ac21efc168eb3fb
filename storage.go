package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ledger represents the contents of the local installed.json file.
// Structure: group → name → entry
type ledger map[string]map[string]ledgerEntry

// ledgerEntry records a single verified install.
type ledgerEntry struct {
	// Digest is the verified digest in "algo:hex" form.
	Digest string `json:"digest"`

	// File is the artifact file name within the group directory.
	File string `json:"file"`

	// Size is the artifact file size in bytes.
	Size int64 `json:"size"`

	// InstalledAt is when the artifact was installed.
	InstalledAt time.Time `json:"installed_at"`
}

// storageInterface defines operations for local filesystem management.
// Implemented by *storage for production and mock storage types for tests.
type storageInterface interface {
	// loadLedger reads and parses the local installed.json file.
	loadLedger() (ledger, error)

	// saveLedger atomically writes the ledger to installed.json.
	saveLedger(reg ledger) error

	// artifactPath returns the absolute path to an artifact's file.
	artifactPath(a Artifact) string

	// catalogPath returns the path to the user catalog.json overlay.
	catalogPath() string

	// ensureDir creates a directory and all parent directories if they
	// don't exist.
	ensureDir(path string) error

	// removeArtifact removes an artifact file and its metadata.
	removeArtifact(a Artifact) error
}

// storage handles all local filesystem operations.
// Implements storageInterface.
type storage struct {
	// baseDir is the base directory for all storage operations.
	baseDir string

	// appName is the application name.
	appName string

	// lockTimeout is the maximum duration to wait for file lock acquisition.
	lockTimeout time.Duration

	// ledgerMu protects concurrent in-process access to installed.json.
	ledgerMu sync.RWMutex
}

// Ensure storage implements storageInterface.
var _ storageInterface = (*storage)(nil)

// envVarName constructs an environment variable name from the app name.
// Example: envVarName("facegate") returns "FACEGATE_MODELS_DIR".
func envVarName(appName string) string {
	return strings.ToUpper(appName) + "_MODELS_DIR"
}

// newStorage creates a new storage instance for the given configuration.
func newStorage(cfg Config) (*storage, error) {
	var baseDir string

	// Priority: env var > Config.DataDir > platform default
	if envDir := os.Getenv(envVarName(cfg.AppName)); envDir != "" {
		baseDir = envDir
	} else if cfg.DataDir != "" {
		baseDir = cfg.DataDir
	} else {
		defaultDir, err := getDefaultDataDir(cfg.AppName)
		if err != nil {
			return nil, fmt.Errorf("failed to get default data dir: %w", err)
		}
		baseDir = defaultDir
	}

	s := &storage{baseDir: baseDir, appName: cfg.AppName, lockTimeout: DefaultLockTimeout}

	if err := s.ensureDir(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return s, nil
}

// loadLedger reads and parses the local installed.json file.
// Returns an empty ledger if the file doesn't exist.
func (s *storage) loadLedger() (ledger, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()

	path := filepath.Join(s.baseDir, "installed.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(ledger), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	var reg ledger
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: invalid installed.json: %v", ErrStorageError, err)
	}

	return reg, nil
}

// saveLedger atomically writes the ledger to installed.json.
// Uses cross-process file locking to prevent concurrent writes from
// multiple processes.
func (s *storage) saveLedger(reg ledger) error {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	lockPath := filepath.Join(s.baseDir, "installed.json.lock")
	lock, err := newFileLock(lockPath, s.lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: failed to create lock: %v", ErrStorageError, err)
	}
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: failed to acquire lock: %v", ErrStorageError, err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal ledger: %v", ErrStorageError, err)
	}

	path := filepath.Join(s.baseDir, "installed.json")
	return s.atomicWrite(path, data)
}

// atomicWrite writes data to a file using write-then-rename for atomicity.
func (s *storage) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrStorageError, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write temp file: %v", ErrStorageError, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // cleanup on failure
		return fmt.Errorf("%w: failed to rename temp file: %v", ErrStorageError, err)
	}

	return nil
}

// artifactPath returns the absolute path to an artifact's file,
// e.g. <baseDir>/dlib/shape_predictor_68_face_landmarks.dat.
func (s *storage) artifactPath(a Artifact) string {
	return filepath.Join(s.baseDir, a.Ref.Group, a.FileName)
}

// catalogPath returns the path to the user catalog.json overlay.
func (s *storage) catalogPath() string {
	return filepath.Join(s.baseDir, "catalog.json")
}

// ensureDir creates a directory and all parent directories if they don't exist.
func (s *storage) ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrStorageError, path, err)
	}
	return nil
}

// removeArtifact removes an artifact file together with any leftover
// intermediates, then prunes the group directory if it became empty.
func (s *storage) removeArtifact(a Artifact) error {
	path := s.artifactPath(a)
	for _, p := range []string{path, path + ".partial", path + ".tmp", path + ".lock"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: failed to remove %s: %v", ErrStorageError, p, err)
		}
	}

	// Best effort: drop the group dir when nothing else lives in it.
	groupDir := filepath.Dir(path)
	if entries, err := os.ReadDir(groupDir); err == nil && len(entries) == 0 {
		os.Remove(groupDir)
	}

	return nil
}
