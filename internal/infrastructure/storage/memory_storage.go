package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
)

var _ shared.ObjectStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps objects in process memory.
// It is used when no bucket is configured and in tests.
type MemoryObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage(baseURL string) *MemoryObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/media"
	}
	return &MemoryObjectStorage{BaseURL: baseURL, objects: make(map[string][]byte)}
}

// GenerateUploadURL returns a fake URL; nothing listens on it
func (s *MemoryObjectStorage) GenerateUploadURL(_ context.Context, key, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/upload/" + key + "?expires=" + expiresAt.Format(time.RFC3339), expiresAt, nil
}

// PublicURL returns BaseURL/key
func (s *MemoryObjectStorage) PublicURL(key string) string {
	return s.BaseURL + "/" + key
}

// Upload stores a copy of data
func (s *MemoryObjectStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Download returns a copy of the object
func (s *MemoryObjectStorage) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, shared.ErrNotFound.WithMessage("object %s not found", key)
	}
	return append([]byte(nil), data...), nil
}

// ObjectExists reports whether key was uploaded
func (s *MemoryObjectStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// DeleteObject removes key
func (s *MemoryObjectStorage) DeleteObject(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
