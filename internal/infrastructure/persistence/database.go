package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// Option adjusts the gorm configuration before the connection is opened
type Option func(*gorm.Config)

// WithLogger routes gorm's logging through l
func WithLogger(l gormlogger.Interface) Option {
	return func(c *gorm.Config) {
		c.Logger = l
	}
}

// NewDatabase opens a postgres or sqlite connection according to cfg
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres", "":
		gormCfg.PrepareStmt = true
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows one writer; a single connection also keeps ":memory:" shared
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Models lists every table the ledger owns, in dependency order
func Models() []any {
	return []any{
		&ledger.Account{},
		&ledger.Dimension{},
		&ledger.Voucher{},
		&ledger.VoucherEntry{},
		&ledger.Balance{},
		&ledger.Period{},
		&ledger.Approval{},
		&ledger.AuditLogEntry{},
		&shared.NotificationEvent{},
		&ledger.FxRate{},
		&ledger.Budget{},
		&ledger.AuditRule{},
		&ledger.Company{},
		&ledger.ConsolidationRuleRecord{},
		&ledger.ReportTemplateRecord{},
	}
}

// AutoMigrate creates or updates the schema from the model definitions.
// Production databases are migrated with the SQL files instead.
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, key := range scopedUniqueKeys {
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)", key.name, key.table, strings.Join(key.columns, ", "))
		if err := d.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("auto migrate %s: %w", key.name, err)
		}
	}
	return nil
}

// scopedUniqueKeys are the per-ledger natural keys of the SQL migrations.
// tenant_id and org_id come from shared.ScopedEntity, which every scoped
// table embeds, so these composite keys cannot live on the model tags.
var scopedUniqueKeys = []struct {
	table   string
	name    string
	columns []string
}{
	{"ledger_accounts", "uq_ledger_accounts_code", []string{"tenant_id", "org_id", "code"}},
	{"ledger_dimensions", "uq_ledger_dimensions_code", []string{"tenant_id", "org_id", "type", "code"}},
	{"ledger_vouchers", "uq_ledger_vouchers_no", []string{"tenant_id", "org_id", "voucher_no"}},
	{"ledger_periods", "uq_ledger_periods", []string{"tenant_id", "org_id", "period"}},
}

// Use registers a gorm plugin such as tracing
func (d *Database) Use(plugin gorm.Plugin) error {
	return d.DB.Use(plugin)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// WithScope returns a new GORM DB instance restricted to one ledger scope.
// Panics if the tenant is empty to prevent data leakage.
func (d *Database) WithScope(scope shared.Scope) *gorm.DB {
	if scope.TenantID == "" {
		panic("WithScope called with empty tenant ID - this is a programming error")
	}
	return d.DB.Scopes(scoped(scope))
}

// scoped filters a query to one (tenant, org) pair
func scoped(scope shared.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", scope.TenantID).Where("org_id = ?", scope.OrgID)
	}
}
