package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
	eventinfra "github.com/dronehub/backend/internal/infrastructure/event"
	"github.com/dronehub/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type shipmentBooked struct {
	shared.BaseDomainEvent
}

func booked() *shipmentBooked {
	return &shipmentBooked{BaseDomainEvent: shared.NewBaseDomainEvent("ShipmentBooked", "Order", uuid.New())}
}

type outboxFixture struct {
	repo    *eventinfra.GormOutboxRepository
	service *OutboxService
}

func newOutboxFixture(t *testing.T) *outboxFixture {
	t.Helper()
	repo := eventinfra.NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	return &outboxFixture{repo: repo, service: NewOutboxService(repo, zap.NewNop())}
}

// add stores an entry that has gone through n failed attempts
func (f *outboxFixture) add(t *testing.T, payload string, failures int, budget int) *shared.OutboxEntry {
	t.Helper()
	e := shared.NewOutboxEntry(booked(), []byte(payload), budget)
	now := time.Now()
	for i := 0; i < failures; i++ {
		e.Undelivered(errors.New("inpost: 503"), now, shared.DefaultBackoff)
	}
	require.NoError(t, f.repo.Append(context.Background(), e))
	return e
}

func TestOutboxService_DeadLetters(t *testing.T) {
	f := newOutboxFixture(t)
	for i := 0; i < 3; i++ {
		f.add(t, `{}`, 2, 2)
	}
	f.add(t, `{}`, 1, 2)
	f.add(t, `{}`, 0, 2)

	views, total, err := f.service.DeadLetters(context.Background(), Page{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, "DEAD", v.Status)
		assert.Equal(t, "ShipmentBooked", v.EventType)
		assert.Equal(t, 2, v.RetryCount)
		assert.Equal(t, "inpost: 503", v.LastError)
	}

	views, _, err = f.service.DeadLetters(context.Background(), Page{})
	require.NoError(t, err)
	assert.Len(t, views, 3, "zero page falls back to the default page size")
}

func TestOutboxService_Replay(t *testing.T) {
	f := newOutboxFixture(t)
	dead := f.add(t, `{}`, 3, 3)

	view, err := f.service.Replay(context.Background(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", view.Status)
	assert.Zero(t, view.RetryCount)
	assert.Empty(t, view.LastError)
	assert.Nil(t, view.NextRetryAt)

	claimed, err := f.repo.Claim(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1, "a replayed entry is picked up by the relay")
	assert.Equal(t, dead.ID, claimed[0].ID)
}

func TestOutboxService_ReplayRejects(t *testing.T) {
	f := newOutboxFixture(t)
	retrying := f.add(t, `{}`, 1, 3)

	_, err := f.service.Replay(context.Background(), retrying.ID)
	assert.ErrorIs(t, err, ErrEntryNotDead)

	_, err = f.service.Replay(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = f.service.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOutboxService_ReplayAll(t *testing.T) {
	f := newOutboxFixture(t)
	for i := 0; i < replayBatch+30; i++ {
		f.add(t, `{}`, 1, 1)
	}
	f.add(t, `{}`, 0, 1)

	count, err := f.service.ReplayAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(replayBatch+30), count)

	stats, err := f.service.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Dead)
	assert.Equal(t, int64(replayBatch+31), stats.Pending)
}

func TestOutboxService_Stats(t *testing.T) {
	f := newOutboxFixture(t)
	f.add(t, `{}`, 0, 3)
	f.add(t, `{}`, 0, 3)
	f.add(t, `{}`, 1, 3)
	f.add(t, `{}`, 3, 3)
	sent := f.add(t, `{}`, 0, 3)
	sent.Delivered(time.Now())
	require.NoError(t, f.repo.Save(context.Background(), sent))
	_, err := f.repo.Claim(context.Background(), time.Now(), 1)
	require.NoError(t, err)

	stats, err := f.service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1, Processing: 1, Sent: 1, Failed: 1, Dead: 1, Total: 5}, *stats)
}

func TestOutboxService_GetIncludesPayload(t *testing.T) {
	f := newOutboxFixture(t)
	e := f.add(t, `{"tracking_number":"620000000000000000000000"}`, 0, 3)
	broken := f.add(t, `not json`, 0, 3)

	view, err := f.service.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tracking_number":"620000000000000000000000"}`, string(view.Payload))
	assert.Equal(t, e.AggregateID, view.AggregateID)

	view, err = f.service.Get(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Payload)
}
