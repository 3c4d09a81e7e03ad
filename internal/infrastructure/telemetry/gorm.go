package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowQueryThreshold = 200 * time.Millisecond
	queryStartKey             = "telemetry:query_start"
)

// DBConfig selects the database instrumentation
type DBConfig struct {
	// TraceEnabled adds a client span per statement, bind variables left out
	TraceEnabled bool
	DBName       string
	// SlowQueryThreshold feeds db_slow_query_total, 200ms when zero
	SlowQueryThreshold time.Duration
}

// DBInstrumentation holds the gorm query metrics and the pool gauges
type DBInstrumentation struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	slowQuery      time.Duration
	registration   metric.Registration
	logger         *zap.Logger
}

// InstrumentDB registers otelgorm tracing and query metrics on db. Either
// half is skipped when tracing or metrics are off; the result is never nil.
func InstrumentDB(db *gorm.DB, mp *MeterProvider, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	inst := &DBInstrumentation{slowQuery: cfg.SlowQueryThreshold, logger: logger}
	if inst.slowQuery <= 0 {
		inst.slowQuery = defaultSlowQueryThreshold
	}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithoutQueryVariables()}
		if cfg.DBName != "" {
			opts = append(opts, otelgorm.WithDBName(cfg.DBName))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, fmt.Errorf("register otelgorm: %w", err)
		}
		logger.Info("Database tracing enabled")
	}

	if !mp.IsEnabled() {
		return inst, nil
	}
	meter := mp.Meter("dronehub/db")
	if err := inst.initInstruments(meter); err != nil {
		return nil, err
	}
	if err := inst.observePool(db, meter); err != nil {
		return nil, err
	}
	if err := inst.registerCallbacks(db); err != nil {
		return nil, err
	}
	logger.Info("Database metrics enabled", zap.Duration("slow_query_threshold", inst.slowQuery))
	return inst, nil
}

func (d *DBInstrumentation) initInstruments(meter metric.Meter) error {
	var err error
	if d.queryTotal, err = NewCounter(meter, "db_query_total", "Database statements by operation", "{query}"); err != nil {
		return err
	}
	if d.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the threshold by table", "{query}"); err != nil {
		return err
	}
	d.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	return err
}

// observePool reports sql.DB pool stats on every collection
func (d *DBInstrumentation) observePool(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Pool size limit"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	d.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, conns, maxConns)
	return err
}

func (d *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	start := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	finish := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			op := operation
			if op == "" {
				op = operationOf(tx.Statement.SQL.String())
			}
			d.observe(tx, op)
		}
	}

	cb := db.Callback()
	steps := []struct {
		name   string
		before func(string) error
		after  func(string) error
	}{
		{"create",
			func(n string) error { return cb.Create().Before("gorm:create").Register(n, start) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, finish("INSERT")) }},
		{"query",
			func(n string) error { return cb.Query().Before("gorm:query").Register(n, start) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, finish("SELECT")) }},
		{"update",
			func(n string) error { return cb.Update().Before("gorm:update").Register(n, start) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, finish("UPDATE")) }},
		{"delete",
			func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, start) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, finish("DELETE")) }},
		{"row",
			func(n string) error { return cb.Row().Before("gorm:row").Register(n, start) },
			func(n string) error { return cb.Row().After("gorm:row").Register(n, finish("")) }},
		{"raw",
			func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, start) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, finish("")) }},
	}
	for _, s := range steps {
		if err := s.before("telemetry:before_" + s.name); err != nil {
			return err
		}
		if err := s.after("telemetry:after_" + s.name); err != nil {
			return err
		}
	}
	return nil
}

func (d *DBInstrumentation) observe(tx *gorm.DB, operation string) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	elapsed := time.Since(started)

	d.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	d.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(operation))
	if elapsed > d.slowQuery {
		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		d.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// operationOf classifies raw SQL by its leading keyword
func operationOf(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	if strings.HasPrefix(sql, "WITH") {
		return "SELECT"
	}
	return "OTHER"
}

// Stop detaches the pool gauges
func (d *DBInstrumentation) Stop() {
	if d == nil || d.registration == nil {
		return
	}
	if err := d.registration.Unregister(); err != nil {
		d.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
	}
	d.registration = nil
}
