package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dronehub/backend/internal/domain/setting"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultSettingChannel carries setting changes between API replicas
const DefaultSettingChannel = "shop:settings:changed"

var ErrAlreadySubscribed = errors.New("cache: setting subscription already running")

// settingChange is the pub/sub payload. Origin lets a replica skip its own
// writes, which it has already applied locally.
type settingChange struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// RedisSettingInvalidator fans setting writes out over Redis pub/sub.
// The Redis client stays owned by the caller.
type RedisSettingInvalidator struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ setting.Invalidator = (*RedisSettingInvalidator)(nil)

func NewRedisSettingInvalidator(client *redis.Client, channel string, logger *zap.Logger) *RedisSettingInvalidator {
	if channel == "" {
		channel = DefaultSettingChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSettingInvalidator{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.With(zap.String("channel", channel)),
	}
}

func (i *RedisSettingInvalidator) PublishChange(ctx context.Context, key string) error {
	payload, err := json.Marshal(settingChange{Key: key, Origin: i.origin})
	if err != nil {
		return err
	}
	if err := i.client.Publish(ctx, i.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish setting change %s: %w", key, err)
	}
	i.logger.Debug("Published setting change", zap.String("key", key))
	return nil
}

// Subscribe calls onChange for each change made by another replica. It
// blocks until ctx ends or Close is called and allows one caller at a time.
func (i *RedisSettingInvalidator) Subscribe(ctx context.Context, onChange func(key string)) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	i.mu.Lock()
	if i.cancel != nil {
		i.mu.Unlock()
		cancel()
		return ErrAlreadySubscribed
	}
	i.cancel, i.done = cancel, done
	i.mu.Unlock()

	defer func() {
		cancel()
		i.mu.Lock()
		i.cancel, i.done = nil, nil
		i.mu.Unlock()
		close(done)
	}()

	sub := i.client.Subscribe(ctx, i.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", i.channel, err)
	}
	i.logger.Info("Listening for setting changes")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var change settingChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				i.logger.Warn("Dropping malformed setting change", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if change.Origin != i.origin {
				i.notify(onChange, change.Key)
			}
		}
	}
}

func (i *RedisSettingInvalidator) notify(onChange func(string), key string) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Setting change callback panicked", zap.String("key", key), zap.Any("panic", r))
		}
	}()
	onChange(key)
}

// Close ends a running Subscribe and waits for it to return
func (i *RedisSettingInvalidator) Close() error {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
