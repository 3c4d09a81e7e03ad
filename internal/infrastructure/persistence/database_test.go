package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dronehub/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pingableDatabase wires sqlmock with ping monitoring so readiness failures can be scripted
func pingableDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })

	// gorm pings once while opening
	mock.ExpectPing()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &Database{DB: db}, mock
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := pingableDatabase(t)

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err := db.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDatabase_PingHonoursCancelledContext(t *testing.T) {
	db, _ := pingableDatabase(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, db.Ping(ctx), context.Canceled)
}

func TestDatabase_Close(t *testing.T) {
	m := testutil.NewMockDB(t)
	db := &Database{DB: m.DB}

	m.Mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.Error(t, m.SqlDB.Ping(), "pool is closed")
}
