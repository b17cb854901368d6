package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
)

// Version is stamped at build time
var Version = "dev"

// App carries the flags and lazily opened resources shared by every command
type App struct {
	configPath string
	tenant     string
	org        string
	actor      string
	verbose    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	db       *persistence.Database
	ownsDB   bool
	log      *zap.Logger
	services *ledgerapp.Services
	validate *validator.Validate
	started  bool
}

// Option configures an App
type Option func(*App)

// WithIO replaces the process streams
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithConfig uses cfg instead of loading config.toml
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.cfg = cfg
	}
}

// WithDatabase uses an already open database. The caller keeps ownership.
func WithDatabase(db *persistence.Database) Option {
	return func(a *App) {
		a.db = db
	}
}

func newApp(opts ...Option) *App {
	a := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.validate = validator.New()
	a.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	return a
}

// Execute runs ledgerctl with args and returns the process exit code
func Execute(ctx context.Context, args []string, opts ...Option) int {
	app := newApp(opts...)
	root := app.rootCommand()
	root.SetArgs(args)
	root.SetIn(app.stdin)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	err := root.ExecuteContext(ctx)
	app.close()
	if err == nil {
		return 0
	}
	app.fail(err)
	return 1
}

// config loads the configuration once
func (a *App) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	return a.cfg, err
}

// database opens the configured database once. Sqlite databases, and
// postgres when auto_migrate is set, get their schema created on open.
func (a *App) database() (*persistence.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	gormLog := logger.NewGormLogger(a.log, logger.MapGormLogLevel(cfg.Database.LogLevel), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" || cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	a.db = db
	a.ownsDB = true
	return db, nil
}

// ledger returns the services and a context carrying the caller's scope
func (a *App) ledger(ctx context.Context) (context.Context, *ledgerapp.Services, error) {
	if a.services == nil {
		cfg, err := a.config()
		if err != nil {
			return nil, nil, err
		}
		db, err := a.database()
		if err != nil {
			return nil, nil, err
		}
		uow := persistence.NewGormUnitOfWork(db.DB)
		a.services = ledgerapp.NewServices(uow, ledgerapp.SettingsFrom(cfg.Ledger))
	}

	scope := shared.NewScope(a.tenant, a.org)
	ctx = shared.WithScope(ctx, scope)
	ctx = shared.WithActor(ctx, a.actor)
	ctx = logger.WithContext(ctx, a.log)
	ctx = logger.WithScope(ctx, scope.TenantID, scope.OrgID)
	ctx = logger.WithActor(ctx, a.actor)
	return ctx, a.services, nil
}

func (a *App) close() {
	if a.ownsDB && a.db != nil {
		if err := a.db.Close(); err != nil && a.log != nil {
			a.log.Warn("failed to close database", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// print writes the command result as one JSON object
func (a *App) print(v any) error {
	return json.NewEncoder(a.stdout).Encode(v)
}

// fail writes err as one JSON error object. Errors raised before a command
// started are usage errors.
func (a *App) fail(err error) {
	var resp dto.ErrorResponse
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		_, resp = dto.FromError(err, "")
	case !a.started:
		resp = dto.NewErrorResponse(shared.CodeInvalidInput, err.Error())
	default:
		if a.log != nil {
			a.log.Error("command failed", zap.Error(err))
		}
		resp = dto.NewErrorResponse(shared.CodeInternal, err.Error())
	}
	_ = json.NewEncoder(a.stderr).Encode(resp)
}

// check validates req with its validate tags
func (a *App) check(req any) error {
	if err := a.validate.Struct(req); err != nil {
		if fields := middleware.ValidationDetails(err); fields != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "request validation failed").
				WithDetails(map[string]any{"fields": fields})
		}
		return err
	}
	return nil
}

// readJSON decodes the document at path, or stdin for "-", into v and validates it
func (a *App) readJSON(path string, v any) error {
	if err := a.decode(path, v); err != nil {
		return err
	}
	return a.check(v)
}

func (a *App) decode(path string, v any) error {
	if path == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "--file is required")
	}
	var r io.Reader = a.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "cannot read input file").
				WithDetails(map[string]any{"path": path, "reason": err.Error()})
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return shared.NewDomainError(shared.CodeInvalidJSON, "input is not valid JSON").
			WithDetails(map[string]any{"reason": err.Error()})
	}
	return nil
}

// readRaw returns the document at path as raw JSON, or nil when path is empty
func (a *App) readRaw(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	var raw json.RawMessage
	if err := a.decode(path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
