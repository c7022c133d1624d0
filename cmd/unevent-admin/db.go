package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/unevent/unevent-api/internal/bootstrap"
	"github.com/unevent/unevent-api/internal/devseed"
)

type migrateOptions struct {
	Timeout time.Duration
}

type dbResetOptions struct {
	Timeout     time.Duration
	Yes         bool
	Seed        bool
	AllowRemote bool
}

type dbSeedOptions struct {
	Timeout     time.Duration
	AllowRemote bool
	OwnerEmail  string
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	f := newCmdFlags("migrate", defaultMigrationTimeout, "Maximum duration for the migration run")
	timeout, err := f.parse(args)
	return migrateOptions{Timeout: timeout}, err
}

func parseDBResetFlags(args []string) (dbResetOptions, error) {
	var opts dbResetOptions
	f := newCmdFlags("db-reset", defaultMigrationTimeout, "Maximum duration for reset, migrate and seed")
	f.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt for local hosts")
	f.BoolVar(&opts.Seed, "seed", false, "Seed development data once migrations finish")
	f.allowRemote(&opts.AllowRemote)

	timeout, err := f.parse(args)
	if err != nil {
		return dbResetOptions{}, err
	}
	opts.Timeout = timeout
	return opts, nil
}

func parseDBSeedFlags(args []string) (dbSeedOptions, error) {
	var opts dbSeedOptions
	f := newCmdFlags("db-seed", defaultMigrationTimeout, "Maximum duration for migrate and seed")
	f.StringVar(&opts.OwnerEmail, "owner", "", "Account email that owns the seeded listings (default DEV_AUTH_EMAIL)")
	f.allowRemote(&opts.AllowRemote)

	timeout, err := f.parse(args)
	if err != nil {
		return dbSeedOptions{}, err
	}
	opts.Timeout = timeout
	opts.OwnerEmail = strings.TrimSpace(opts.OwnerEmail)
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		return migrateSchema(ctx, db, cmdCtx.Logger)
	})
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBResetFlags(args)
	if err != nil {
		return err
	}

	pg := cmdCtx.Config.Postgres
	confirm := dbResetConfirmOptions{
		yes:    opts.Yes,
		target: fmt.Sprintf("database %q on %s:%d", pg.Name, pg.Host, pg.Port),
	}
	if isLikelyRemoteHost(pg.Host) {
		if guardErr := cmdCtx.confirmRemote(opts.AllowRemote, "drop and recreate the public schema"); guardErr != nil {
			return guardErr
		}
		confirm.remoteHost = pg.Host
	}
	if !confirm.IsYes() {
		if confirmErr := cmdCtx.prompt.confirm(confirm, "reset database schema"); confirmErr != nil {
			return confirmErr
		}
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("dropping public schema", "database", pg.Name)
		for _, stmt := range resetStatements(pg.User) {
			cmdCtx.Logger.DebugContext(ctx, "reset", "sql", stmt)
			if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
				return fmt.Errorf("exec %q: %w", stmt, execErr)
			}
		}
		if migrateErr := migrateSchema(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		if !opts.Seed {
			return nil
		}
		return cmdCtx.seed(ctx, db, "")
	})
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBSeedFlags(args)
	if err != nil {
		return err
	}
	if isLikelyRemoteHost(cmdCtx.Config.Postgres.Host) {
		if guardErr := cmdCtx.confirmRemote(opts.AllowRemote, "seed development data on the configured database"); guardErr != nil {
			return guardErr
		}
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if migrateErr := migrateSchema(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		return cmdCtx.seed(ctx, db, opts.OwnerEmail)
	})
}

func migrateSchema(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// seed falls back to the dev-auth identity as owner so seeded listings show
// up under "my listings" after a dev login.
func (cmdCtx *commandContext) seed(ctx context.Context, db *sql.DB, owner string) error {
	if owner == "" {
		owner = cmdCtx.Config.Auth.DevAuth.Email
	}
	cmdCtx.Logger.Info("seeding development data", "owner", owner)
	if err := devseed.Run(ctx, devseed.NewServices(db), devseed.Options{OwnerEmail: owner}, cmdCtx.Logger); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}
	return nil
}

// withDatabase connects once for fn and cancels on SIGINT, SIGTERM or timeout.
func withDatabase(cmdCtx *commandContext, timeout time.Duration, fn func(context.Context, *sql.DB) error) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	if runErr := fn(ctx, db); runErr != nil {
		return runErr
	}
	cmdCtx.Logger.Info("done")
	return nil
}

// resetStatements leaves the schema usable by the configured role.
func resetStatements(user string) []string {
	stmts := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	user = strings.TrimSpace(user)
	if user == "" || strings.EqualFold(user, "public") {
		return stmts
	}
	return append(stmts, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(user))
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
