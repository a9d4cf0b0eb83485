package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/miradorstack/autoops/internal/cache"
	"github.com/miradorstack/autoops/internal/models"
)

// HealthStore persists the small health document written after a successful fix
// and read back by demo ingestion. ok is false when nothing has been written yet.
type HealthStore interface {
	Load(ctx context.Context) (status models.HealthStatus, ok bool, err error)
	Save(ctx context.Context, status models.HealthStatus) error
}

// FileHealthStore keeps the health document as pretty-printed JSON on disk.
type FileHealthStore struct {
	path string
}

// NewFileHealthStore targets path; parent directories are created on first Save.
func NewFileHealthStore(path string) *FileHealthStore {
	return &FileHealthStore{path: path}
}

// Path returns the backing file.
func (s *FileHealthStore) Path() string { return s.path }

// Load reads the document. A missing file is not an error.
func (s *FileHealthStore) Load(_ context.Context) (models.HealthStatus, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.HealthStatus{}, false, nil
		}
		return models.HealthStatus{}, false, fmt.Errorf("read health file: %w", err)
	}
	var status models.HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return models.HealthStatus{}, false, fmt.Errorf("decode health file: %w", err)
	}
	return status, true, nil
}

// Save replaces the document via a temp file and rename.
func (s *FileHealthStore) Save(_ context.Context, status models.HealthStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode health status: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create health dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("create temp health file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write health file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// CacheHealthStore keeps the health document under one key of a shared cache
// backend so several replicas observe the same fix.
type CacheHealthStore struct {
	provider cache.Provider
	key      string
}

// NewCacheHealthStore stores the document under key.
func NewCacheHealthStore(provider cache.Provider, key string) *CacheHealthStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if key == "" {
		key = "autoops:health"
	}
	return &CacheHealthStore{provider: provider, key: key}
}

// Load fetches the document. A cache miss is not an error.
func (s *CacheHealthStore) Load(ctx context.Context) (models.HealthStatus, bool, error) {
	data, err := s.provider.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.HealthStatus{}, false, nil
		}
		return models.HealthStatus{}, false, fmt.Errorf("load health status: %w", err)
	}
	var status models.HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return models.HealthStatus{}, false, fmt.Errorf("decode health status: %w", err)
	}
	return status, true, nil
}

// Save writes the document without expiry.
func (s *CacheHealthStore) Save(ctx context.Context, status models.HealthStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode health status: %w", err)
	}
	if err := s.provider.Set(ctx, s.key, data, 0); err != nil {
		return fmt.Errorf("save health status: %w", err)
	}
	return nil
}
