package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped when the cached snapshot layout changes.
const CacheVersion = "1.0"

// ErrCacheMiss is returned when no snapshot is cached for a key.
var ErrCacheMiss = errors.New("no cached snapshot")

// CacheManager keeps the last loaded dashboard snapshot per organization
type CacheManager struct {
	cacheDir string
	now      func() time.Time
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	CacheVersion string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// SnapshotIndexEntry describes one cached snapshot
type SnapshotIndexEntry struct {
	Key              string    `yaml:"key"`
	OrganizationName string    `yaml:"organization_name,omitempty"`
	Role             string    `yaml:"role,omitempty"`
	LoadedAt         time.Time `yaml:"loaded_at"`
	Failures         int       `yaml:"failures,omitempty"`
}

// SnapshotIndex represents the YAML index of all cached snapshots
type SnapshotIndex struct {
	Snapshots []SnapshotIndexEntry `yaml:"snapshots"`
	Metadata  CacheMetadata        `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
		now:      time.Now,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	if err := os.MkdirAll(cm.cacheDir, 0700); err != nil {
		return &StorageError{Path: cm.cacheDir, Op: "mkdir", Err: err}
	}
	return nil
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the snapshot index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "snapshots.yaml")
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// GetSnapshotPath returns the path to a snapshot's cache file
func (cm *CacheManager) GetSnapshotPath(key string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("snapshot_%s.json", unsafeKeyChars.ReplaceAllString(key, "_")))
}

// LoadIndex loads the snapshot index
func (cm *CacheManager) LoadIndex() (*SnapshotIndex, error) {
	indexPath := cm.GetIndexPath()
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}

	var index SnapshotIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: indexPath, Key: "index", Err: err}
	}

	return &index, nil
}

// SaveIndex saves the snapshot index
func (cm *CacheManager) SaveIndex(index *SnapshotIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	indexPath := cm.GetIndexPath()
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.WriteFile(indexPath, data, 0600); err != nil {
		return &StorageError{Path: indexPath, Op: "write", Err: err}
	}
	return nil
}

// SaveSnapshot writes snapshot as JSON and records entry in the index,
// replacing any previous entry with the same key.
func (cm *CacheManager) SaveSnapshot(entry SnapshotIndexEntry, snapshot any) error {
	if entry.Key == "" {
		return fmt.Errorf("cache key is required")
	}
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	path := cm.GetSnapshotPath(entry.Key)
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}

	now := cm.now()
	index, err := cm.LoadIndex()
	if err != nil || index.Metadata.CacheVersion != CacheVersion {
		if err != nil && !os.IsNotExist(err) {
			LogWarn("Rebuilding unreadable snapshot index: %v", err)
		}
		index = &SnapshotIndex{Metadata: CacheMetadata{CacheVersion: CacheVersion, CreatedAt: now}}
	}
	index.Metadata.UpdatedAt = now

	found := false
	for i, e := range index.Snapshots {
		if e.Key == entry.Key {
			index.Snapshots[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Snapshots = append(index.Snapshots, entry)
	}

	return cm.SaveIndex(index)
}

// LoadSnapshot decodes the snapshot cached under key into snapshot.
func (cm *CacheManager) LoadSnapshot(key string, snapshot any) (*SnapshotIndexEntry, error) {
	index, err := cm.LoadIndex()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var entry *SnapshotIndexEntry
	for i := range index.Snapshots {
		if index.Snapshots[i].Key == key {
			entry = &index.Snapshots[i]
			break
		}
	}
	if entry == nil {
		return nil, ErrCacheMiss
	}

	path := cm.GetSnapshotPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, &ParseError{Source: path, Key: key, Err: err}
	}
	return entry, nil
}

// IsCacheValid reports whether a snapshot for key exists and is younger than maxAge.
func (cm *CacheManager) IsCacheValid(key string, maxAge time.Duration) bool {
	index, err := cm.LoadIndex()
	if err != nil || index.Metadata.CacheVersion != CacheVersion {
		return false
	}
	for _, e := range index.Snapshots {
		if e.Key != key {
			continue
		}
		if _, err := os.Stat(cm.GetSnapshotPath(key)); err != nil {
			return false
		}
		return cm.now().Sub(e.LoadedAt) < maxAge
	}
	return false
}

// ClearCache removes every cached snapshot and the index
func (cm *CacheManager) ClearCache() error {
	indexPath := cm.GetIndexPath()

	index, err := cm.LoadIndex()
	if err == nil {
		for _, entry := range index.Snapshots {
			_ = os.Remove(cm.GetSnapshotPath(entry.Key))
		}
	}

	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return &StorageError{Path: indexPath, Op: "remove", Err: err}
	}

	return nil
}
