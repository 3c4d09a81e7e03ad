// Package setting serves operator-editable runtime configuration to integrations
// and the admin API.
package setting

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dronehub/backend/internal/domain/setting"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how stale a cached value may be when no invalidation arrives
const DefaultCacheTTL = 60 * time.Second

// SettingView is a setting as shown to admins. Secret values are masked.
type SettingView struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Secret    bool      `json:"secret"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

type snapshot struct {
	values   map[string]string
	loadedAt time.Time
}

// Service caches the whole settings table in process. A write through the service
// drops the local snapshot and publishes the key so other instances drop theirs.
type Service struct {
	repo        setting.Repository
	invalidator setting.Invalidator
	ttl         time.Duration
	now         func() time.Time
	logger      *zap.Logger

	mu    sync.RWMutex
	cache *snapshot
}

// Option configures Service
type Option func(*Service)

// WithInvalidator fans out writes to other processes
func WithInvalidator(inv setting.Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithTTL overrides DefaultCacheTTL
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now in tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the setting service
func NewService(repo setting.Repository, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ setting.Reader = (*Service)(nil)

// Listen subscribes to remote invalidations until ctx is done
func (s *Service) Listen(ctx context.Context) error {
	if s.invalidator == nil {
		return nil
	}
	return s.invalidator.Subscribe(ctx, func(key string) {
		s.logger.Debug("Setting cache invalidated remotely", zap.String("key", key))
		s.Invalidate()
	})
}

// Invalidate drops the local snapshot
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

func (s *Service) load(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	c := s.cache
	s.mu.RUnlock()
	if c != nil && s.now().Sub(c.loadedAt) < s.ttl {
		return c.values, nil
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		if c != nil {
			s.logger.Warn("Serving stale settings after load failure", zap.Error(err))
			return c.values, nil
		}
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}

	s.mu.Lock()
	s.cache = &snapshot{values: values, loadedAt: s.now()}
	s.mu.Unlock()
	return values, nil
}

// Get returns the value of key and whether it is set
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	values, err := s.load(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// GetPrefix returns every setting whose key starts with prefix
func (s *Service) GetPrefix(ctx context.Context, prefix string) (setting.Values, error) {
	values, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := setting.Values{}
	for k, v := range values {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

// List returns all settings sorted by key with secrets masked
func (s *Service) List(ctx context.Context) ([]SettingView, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SettingView, 0, len(rows))
	for _, r := range rows {
		out = append(out, toView(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Set writes key and invalidates caches everywhere
func (s *Service) Set(ctx context.Context, key, value, actor string) (*SettingView, error) {
	if err := setting.ValidateKey(key); err != nil {
		return nil, err
	}
	row := &setting.Setting{Key: key, Value: value, UpdatedAt: s.now(), UpdatedBy: actor}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	s.changed(ctx, key)
	s.logger.Info("Setting updated", zap.String("key", key), zap.String("actor", actor))
	view := toView(row)
	return &view, nil
}

// Delete removes key and invalidates caches everywhere
func (s *Service) Delete(ctx context.Context, key, actor string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.changed(ctx, key)
	s.logger.Info("Setting deleted", zap.String("key", key), zap.String("actor", actor))
	return nil
}

func (s *Service) changed(ctx context.Context, key string) {
	s.Invalidate()
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.PublishChange(ctx, key); err != nil {
		// other instances converge after the TTL
		s.logger.Warn("Failed to publish setting change", zap.String("key", key), zap.Error(err))
	}
}

func toView(r *setting.Setting) SettingView {
	v := SettingView{
		Key:       r.Key,
		Value:     r.Value,
		Secret:    setting.IsSecret(r.Key),
		UpdatedAt: r.UpdatedAt,
		UpdatedBy: r.UpdatedBy,
	}
	if v.Secret {
		v.Value = setting.Mask(r.Value)
	}
	return v
}
