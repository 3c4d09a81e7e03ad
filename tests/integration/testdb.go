// Package integration runs repository and checkout flows against a real
// PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dronehub/backend/internal/infrastructure/migration"
	"github.com/dronehub/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// tables that survive CleanTables: migration state, the order counter row and seeded settings
var keptTables = []string{"schema_migrations", "order_sequences", "settings"}

// postgres is a migrated database inside a container
type postgres struct {
	container testcontainers.Container
	dsn       string
}

func startPostgres(ctx context.Context, t *testing.T, name string) *postgres {
	t.Helper()
	c, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(name),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("dronehub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		require.NoError(t, err, "container connection string")
	}
	pg := &postgres{container: c, dsn: dsn}

	db := pg.open(t)
	m, err := migration.NewEmbedded(db.SqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "apply migrations")
	_ = db.SqlDB.Close()
	return pg
}

// open connects with enough connections for the concurrent checkout tests
// to contend on row locks. TEST_DB_DEBUG=1 logs every statement.
func (pg *postgres) open(t *testing.T) *TestDB {
	t.Helper()
	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(pg.dsn), &gorm.Config{Logger: logger.Default.LogMode(level)})
	require.NoError(t, err, "connect to test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return &TestDB{DB: db, SqlDB: sqlDB, t: t}
}

func (pg *postgres) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = pg.container.Terminate(ctx)
}

var (
	sharedMu sync.Mutex
	sharedPG *postgres
)

// TestDB is one connection to a migrated database
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	t     *testing.T
}

// NewTestDB starts a dedicated container that is removed when the test ends
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	pg := startPostgres(context.Background(), t, "dronehub_test")
	db := pg.open(t)
	t.Cleanup(func() {
		_ = db.SqlDB.Close()
		pg.stop()
	})
	return db
}

// NewSharedTestDB connects to the package's shared container, starting it
// on first use. Tests call CleanTables or work on disjoint rows.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	sharedMu.Lock()
	if sharedPG == nil {
		sharedPG = startPostgres(context.Background(), t, "dronehub_shared_test")
	}
	pg := sharedPG
	sharedMu.Unlock()

	db := pg.open(t)
	t.Cleanup(func() { _ = db.SqlDB.Close() })
	return db
}

// CleanupSharedContainer stops the shared container; TestMain calls it
func CleanupSharedContainer() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedPG != nil {
		sharedPG.stop()
		sharedPG = nil
	}
}

// CleanTables empties every application table and restarts order numbering
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	var tables []string
	require.NoError(tdb.t, tdb.DB.Raw(
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename NOT IN ?`,
		keptTables,
	).Scan(&tables).Error)
	if len(tables) > 0 {
		require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE").Error)
	}
	require.NoError(tdb.t, tdb.DB.Exec("UPDATE order_sequences SET value = 0").Error)
}
