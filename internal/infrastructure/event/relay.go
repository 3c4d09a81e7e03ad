package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RelayConfig tunes the outbox relay. Zero fields take the defaults below.
type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Backoff      shared.Backoff
	// Lease is how long an entry may stay PROCESSING before it is requeued
	Lease time.Duration
	// Retention keeps SENT entries this long; zero disables purging
	Retention         time.Duration
	HousekeepingEvery time.Duration
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Backoff.Base <= 0 {
		c.Backoff = shared.DefaultBackoff
	}
	if c.Lease <= 0 {
		c.Lease = 5 * time.Minute
	}
	if c.HousekeepingEvery <= 0 {
		c.HousekeepingEvery = time.Hour
	}
	return c
}

// Relay moves committed outbox entries to the in-process handlers. Entries
// that fail are retried with backoff until their budget is spent and they
// turn DEAD, where an admin can replay them.
type Relay struct {
	repo    shared.OutboxRepository
	target  shared.EventPublisher
	codec   *Codec
	cfg     RelayConfig
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type RelayOption func(*Relay)

// WithRelayMetrics counts deliveries per event type and outcome
func WithRelayMetrics(m *telemetry.BusinessMetrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func NewRelay(repo shared.OutboxRepository, target shared.EventPublisher, codec *Codec, cfg RelayConfig, logger *zap.Logger, opts ...RelayOption) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Relay{
		repo:   repo,
		target: target,
		codec:  codec,
		cfg:    cfg.withDefaults(),
		logger: logger.Named("outbox"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs the poll and housekeeping loop until Stop or ctx ends
func (r *Relay) Start(ctx context.Context) {
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(ctx)
	r.logger.Info("Outbox relay started",
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Duration("poll_interval", r.cfg.PollInterval),
		zap.Duration("lease", r.cfg.Lease),
	)
}

// Stop waits for the batch in flight, or gives up when ctx ends
func (r *Relay) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	r.once.Do(func() { close(r.stop) })
	select {
	case <-r.done:
		r.logger.Info("Outbox relay stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.done)
	poll := time.NewTicker(r.cfg.PollInterval)
	defer poll.Stop()
	housekeeping := time.NewTicker(r.cfg.HousekeepingEvery)
	defer housekeeping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-poll.C:
			if _, err := r.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("Outbox batch failed", zap.Error(err))
			}
		case <-housekeeping.C:
			r.Housekeep(ctx)
		}
	}
}

// RelayOnce claims one batch and delivers it. It returns how many entries
// were delivered; failed deliveries are recorded on the entries, not returned.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	claimed, err := r.repo.Claim(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, entry := range claimed {
		if r.deliver(ctx, entry) {
			delivered++
		}
	}
	return delivered, nil
}

// Drain relays batches until a claim comes back empty or short
func (r *Relay) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		claimed, err := r.repo.Claim(ctx, r.now(), r.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		for _, entry := range claimed {
			if r.deliver(ctx, entry) {
				total++
			}
		}
		if len(claimed) < r.cfg.BatchSize {
			return total, nil
		}
	}
}

func (r *Relay) deliver(ctx context.Context, entry *shared.OutboxEntry) bool {
	ctx, span := telemetry.StartServiceSpan(ctx, "outbox", "deliver",
		telemetry.AttrEventType.String(entry.EventType),
	)
	defer span.End()

	err := r.publish(ctx, entry)
	now := r.now()
	outcome := telemetry.OutcomeSuccess
	if err == nil {
		entry.Delivered(now)
	} else {
		telemetry.RecordError(span, err)
		entry.Undelivered(err, now, r.cfg.Backoff)
		outcome = telemetry.OutcomeFailed
		log := r.logger.With(
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("attempt", entry.RetryCount),
			zap.Error(err),
		)
		if entry.IsDead() {
			outcome = telemetry.OutcomeDead
			log.Error("Outbox entry is dead, replay it from the admin API")
		} else {
			log.Warn("Outbox delivery failed, will retry", zap.Timep("next_retry_at", entry.NextRetryAt))
		}
	}
	r.metrics.RecordOutboxDelivery(ctx, entry.EventType, outcome)

	// the lease requeues the entry if this write is lost
	if saveErr := r.repo.Save(ctx, entry); saveErr != nil {
		r.logger.Error("Failed to record outbox delivery",
			zap.String("entry_id", entry.ID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(saveErr),
		)
	}
	return err == nil
}

func (r *Relay) publish(ctx context.Context, entry *shared.OutboxEntry) error {
	ev, err := r.codec.Decode(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}
	return r.target.Publish(ctx, ev)
}

// Housekeep requeues entries whose lease expired and purges old SENT entries
func (r *Relay) Housekeep(ctx context.Context) {
	now := r.now()
	if n, err := r.repo.Requeue(ctx, now.Add(-r.cfg.Lease)); err != nil {
		r.logger.Error("Failed to requeue stuck outbox entries", zap.Error(err))
	} else if n > 0 {
		r.logger.Warn("Requeued outbox entries with an expired lease", zap.Int64("count", n))
	}

	if r.cfg.Retention <= 0 {
		return
	}
	cutoff := now.Add(-r.cfg.Retention)
	if n, err := r.repo.PurgeSent(ctx, cutoff); err != nil {
		r.logger.Error("Failed to purge sent outbox entries", zap.Error(err))
	} else if n > 0 {
		r.logger.Info("Purged sent outbox entries", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
}
