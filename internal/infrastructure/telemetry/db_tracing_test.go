package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func setupRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func TestDBTracingConfigFrom(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "production"
	cfg.Database.Driver = "postgres"
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.DBTraceEnabled = true

	got := DBTracingConfigFrom(cfg)
	assert.True(t, got.Enabled)
	assert.False(t, got.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, got.SlowQueryThresh)
	assert.Equal(t, "postgresql", got.DBSystem)

	cfg.App.Env = "development"
	cfg.Database.Driver = "sqlite"
	cfg.Telemetry.DBSlowQueryThresh = time.Second
	got = DBTracingConfigFrom(cfg)
	assert.True(t, got.LogFullSQL)
	assert.Equal(t, time.Second, got.SlowQueryThresh)
	assert.Equal(t, "sqlite", got.DBSystem)

	cfg.Telemetry.Enabled = false
	assert.False(t, DBTracingConfigFrom(cfg).Enabled)
}

func TestDBTracingPlugin_Initialize(t *testing.T) {
	t.Run("disabled registers nothing", func(t *testing.T) {
		db := setupTestDB(t)
		plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

		require.NoError(t, db.Use(plugin))
		assert.Nil(t, db.Callback().Query().Get("ledger_timing:after_query"))
	})

	t.Run("enabled registers callbacks once", func(t *testing.T) {
		db := setupTestDB(t)
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		cfg.DBSystem = "sqlite"

		require.NoError(t, db.Use(NewDBTracingPlugin(cfg, zap.NewNop())))
		assert.NotNil(t, db.Callback().Query().Get("ledger_timing:after_query"))

		assert.Error(t, db.Use(NewDBTracingPlugin(cfg, zap.NewNop())), "a plugin name can only be used once")
	})
}

func TestDBTracingPlugin_AnnotatesSpans(t *testing.T) {
	db := setupTestDB(t)
	tp, sr := setupRecorder(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "write")
	tx := db.WithContext(ctx)
	require.NoError(t, tx.Create(&tracedRow{Name: "a"}).Error)
	tx.Statement.Table = "traced_rows"
	tx.Statement.RowsAffected = 1
	plugin.after(tx)
	span.End()

	ended := sr.Ended()
	require.NotEmpty(t, ended)
	attrs := ended[len(ended)-1].Attributes()
	found := map[string]bool{}
	for _, a := range attrs {
		found[string(a.Key)] = true
	}
	assert.True(t, found["db.rows_affected"])
	assert.True(t, found["db.sql.table"])
}

func TestDBTracingPlugin_SlowQuery(t *testing.T) {
	db := setupTestDB(t)
	tp, sr := setupRecorder(t)
	core, logs := observer.New(zapcore.WarnLevel)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.SlowQueryThresh = time.Nanosecond
	plugin := NewDBTracingPlugin(cfg, zap.New(core))

	ctx, span := tp.Tracer("test").Start(context.Background(), "slow")
	ctx = WithQueryStartTime(ctx)
	time.Sleep(2 * time.Millisecond)

	tx := db.WithContext(ctx).Session(&gorm.Session{})
	tx.Statement.Context = ctx
	plugin.after(tx)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	var names []string
	for _, e := range ended[0].Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "slow_query_warning")
	assert.Equal(t, 1, logs.FilterMessage("Slow query").Len())
}

func TestDBTracingPlugin_RecordsErrors(t *testing.T) {
	db := setupTestDB(t)
	tp, sr := setupRecorder(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "broken")
	tx := db.WithContext(ctx).Session(&gorm.Session{})
	tx.Statement.Context = ctx
	_ = tx.AddError(assert.AnError)
	plugin.after(tx)
	span.End()

	assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)

	t.Run("record not found is not an error", func(t *testing.T) {
		ctx, span := tp.Tracer("test").Start(context.Background(), "missing")
		tx := db.WithContext(ctx).Session(&gorm.Session{})
		tx.Statement.Context = ctx
		_ = tx.AddError(gorm.ErrRecordNotFound)
		plugin.after(tx)
		span.End()

		ended := sr.Ended()
		assert.NotEqual(t, codes.Error, ended[len(ended)-1].Status().Code)
	})
}
