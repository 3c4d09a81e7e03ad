package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type relayFixture struct {
	db     *gorm.DB
	repo   *GormOutboxRepository
	pub    *OutboxPublisher
	mailer *recorder
	relay  *Relay
	clock  time.Time
}

func newRelayFixture(t *testing.T, cfg RelayConfig, opts ...RelayOption) *relayFixture {
	t.Helper()
	db := outboxDB(t)
	codec := parcelCodec()
	f := &relayFixture{
		db:     db,
		repo:   NewGormOutboxRepository(db),
		pub:    NewOutboxPublisher(codec, 3),
		mailer: &recorder{name: "mailer", types: []string{"ParcelDispatched"}},
		clock:  time.Now(),
	}
	d := NewDispatcher(zap.NewNop())
	d.Subscribe(f.mailer)
	f.relay = NewRelay(f.repo, d, codec, cfg, zap.NewNop(), opts...)
	f.relay.now = func() time.Time { return f.clock }
	return f
}

func (f *relayFixture) write(t *testing.T, events ...shared.DomainEvent) {
	t.Helper()
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.pub.SaveEvents(context.Background(), tx, events...)
	}))
}

func (f *relayFixture) only(t *testing.T) *shared.OutboxEntry {
	t.Helper()
	var rows []models.OutboxEntryModel
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	return rows[0].ToDomain()
}

func TestRelay_DeliversAndMarksSent(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"),
	})
	require.NoError(t, err)

	f := newRelayFixture(t, RelayConfig{BatchSize: 2}, WithRelayMetrics(bm))
	for i := 0; i < 5; i++ {
		f.write(t, newParcelEvent("ParcelDispatched"))
	}

	n, err := f.relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one batch")

	n, err = f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.mailer.got(), 5)

	counts, err := f.repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[shared.OutboxStatus]int64{shared.OutboxStatusSent: 5}, counts)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var delivered int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "shop_outbox_delivery_total" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					delivered += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(5), delivered)
}

func TestRelay_RetriesWithBackoffThenDelivers(t *testing.T) {
	f := newRelayFixture(t, RelayConfig{Backoff: shared.Backoff{Base: time.Minute}})
	f.write(t, newParcelEvent("ParcelDispatched"))
	f.mailer.failWith(errors.New("smtp 421"))
	ctx := context.Background()

	n, err := f.relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	e := f.only(t)
	assert.Equal(t, shared.OutboxStatusFailed, e.Status)
	assert.Equal(t, 1, e.RetryCount)
	assert.Contains(t, e.LastError, "mailer: smtp 421")

	n, _ = f.relay.RelayOnce(ctx)
	assert.Zero(t, n, "not due before the backoff")
	assert.Len(t, f.mailer.got(), 1)

	f.mailer.failWith(nil)
	f.clock = f.clock.Add(time.Minute)
	n, err = f.relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	e = f.only(t)
	assert.Equal(t, shared.OutboxStatusSent, e.Status)
	assert.Empty(t, e.LastError)
}

func TestRelay_DeadAfterBudget(t *testing.T) {
	f := newRelayFixture(t, RelayConfig{Backoff: shared.Backoff{Base: time.Second}})
	f.write(t, newParcelEvent("ParcelDispatched"))
	f.mailer.failWith(errors.New("mailbox full"))

	for i := 0; i < 3; i++ {
		_, err := f.relay.RelayOnce(context.Background())
		require.NoError(t, err)
		f.clock = f.clock.Add(time.Hour)
	}

	e := f.only(t)
	assert.True(t, e.IsDead())
	assert.Equal(t, 3, e.RetryCount)
	assert.Len(t, f.mailer.got(), 3)

	n, err := f.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "dead entries wait for a replay")
}

func TestRelay_UndecodablePayloadFails(t *testing.T) {
	f := newRelayFixture(t, RelayConfig{})
	e := shared.NewOutboxEntry(newParcelEvent("ParcelReturned"), []byte(`{}`), 1)
	require.NoError(t, f.repo.Append(context.Background(), e))

	_, err := f.relay.RelayOnce(context.Background())
	require.NoError(t, err)
	got := f.only(t)
	assert.True(t, got.IsDead())
	assert.Contains(t, got.LastError, "ParcelReturned")
	assert.Empty(t, f.mailer.got())
}

func TestRelay_Housekeep(t *testing.T) {
	f := newRelayFixture(t, RelayConfig{Lease: time.Minute, Retention: 24 * time.Hour})
	ctx := context.Background()

	stuck := shared.NewOutboxEntry(newParcelEvent("ParcelDispatched"), []byte(`{}`), 3)
	stuck.Status = shared.OutboxStatusProcessing
	stuck.UpdatedAt = f.clock.Add(-2 * time.Minute)
	sent := shared.NewOutboxEntry(newParcelEvent("ParcelDispatched"), []byte(`{}`), 3)
	sent.Delivered(f.clock.Add(-48 * time.Hour))
	require.NoError(t, f.repo.Append(ctx, stuck, sent))

	f.relay.Housekeep(ctx)

	got, err := f.repo.Get(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusPending, got.Status)
	_, err = f.repo.Get(ctx, sent.ID)
	assert.ErrorIs(t, err, ErrOutboxEntryNotFound)
}

func TestRelay_StartStop(t *testing.T) {
	f := newRelayFixture(t, RelayConfig{PollInterval: 10 * time.Millisecond})
	f.relay.now = time.Now
	f.write(t, newParcelEvent("ParcelDispatched"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.relay.Start(ctx)

	assert.Eventually(t, func() bool { return len(f.mailer.got()) == 1 }, 2*time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, f.relay.Stop(stopCtx))
	require.NoError(t, f.relay.Stop(stopCtx), "second stop is a no-op")
}
