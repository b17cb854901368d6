package cli

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
)

// ledgerFunc runs one ledger operation and returns the value to print
type ledgerFunc func(ctx context.Context, svc *ledgerapp.Services, args []string) (any, error)

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "ledgerctl",
		Short:   "Multi-tenant double-entry ledger",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			a.log = logger.NewCLI(a.stderr, a.verbose)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to config.toml")
	flags.StringVar(&a.tenant, "tenant", shared.DefaultTenant, "tenant id")
	flags.StringVar(&a.org, "org", shared.DefaultOrg, "organization id")
	flags.StringVar(&a.actor, "actor", "cli", "name recorded in the audit log")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.voucherCommand(),
		a.periodCommand(),
		a.fxCommand(),
		a.consolidateCommand(),
		a.allocateCommand(),
		a.reportCommand(),
		a.accountCommand(),
		a.dimensionCommand(),
		a.budgetCommand(),
		a.ruleCommand(),
		a.companyCommand(),
		a.migrateCommand(),
		a.issuerKeyHashCommand(),
	)
	return root
}

// run adapts fn into a cobra RunE that prints its result
func (a *App) run(fn ledgerFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, svc, err := a.ledger(cmd.Context())
		if err != nil {
			return err
		}
		out, err := fn(ctx, svc, args)
		if err != nil {
			return err
		}
		return a.print(out)
	}
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, shared.NewDomainError(shared.CodeInvalidInput, "voucher id must be a UUID").
			WithDetails(map[string]any{"value": arg})
	}
	return id, nil
}

// periodArg validates a YYYY-MM period argument
func (a *App) periodArg(period string) error {
	return a.check(struct {
		Period string `json:"period" validate:"required,len=7"`
	}{Period: period})
}

func (a *App) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	// withMigrator runs fn against the embedded postgres migrations
	withMigrator := func(fn func(m *migration.Migrator) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "sqlite" {
				return shared.NewDomainError(shared.CodeInvalidInput, "sqlite schemas are managed by migrate up only")
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			m, err := migration.New(sqlDB, a.log)
			if err != nil {
				return err
			}
			defer m.Close()
			out, err := fn(m)
			if err != nil {
				return err
			}
			return a.print(out)
		}
	}

	version := func(m *migration.Migrator) (any, error) {
		v, dirty, err := m.Version()
		if err != nil {
			return nil, err
		}
		return map[string]any{"version": v, "dirty": dirty}, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "sqlite" {
				if _, err := a.database(); err != nil {
					return err
				}
				return a.print(map[string]any{"status": "migrated", "driver": "sqlite"})
			}
			return withMigrator(func(m *migration.Migrator) (any, error) {
				if err := m.Up(); err != nil {
					return nil, err
				}
				return version(m)
			})(cmd, args)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(m *migration.Migrator) (any, error) {
			if err := m.Down(); err != nil {
				return nil, err
			}
			return version(m)
		}),
	}

	current := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(version),
	}

	var steps int
	step := &cobra.Command{
		Use:   "steps",
		Short: "Apply (n > 0) or roll back (n < 0) n migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(m *migration.Migrator) (any, error) {
			if steps == 0 {
				return nil, shared.NewDomainError(shared.CodeInvalidInput, "--n must not be zero")
			}
			if err := m.Steps(steps); err != nil {
				return nil, err
			}
			return version(m)
		}),
	}
	step.Flags().IntVarP(&steps, "n", "n", 0, "number of migrations")

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return shared.NewDomainError(shared.CodeInvalidInput, "version must be an integer")
			}
			return withMigrator(func(m *migration.Migrator) (any, error) {
				if err := m.Force(v); err != nil {
					return nil, err
				}
				return version(m)
			})(cmd, args)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the migrations compiled into ledgerctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := migration.Embedded()
			if err != nil {
				return err
			}
			return a.print(map[string]any{"migrations": names})
		},
	}

	cmd.AddCommand(up, down, current, step, force, list)
	return cmd
}

func (a *App) issuerKeyHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "issuer-key-hash <key>",
		Short: "Hash a token issuer key for auth.issuer_key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashIssuerKey(args[0])
			if err != nil {
				return err
			}
			return a.print(map[string]string{"issuer_key_hash": hash})
		},
	}
}
