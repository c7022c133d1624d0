// Command unevent runs the API, the notification workers and the reaper,
// whichever ENABLED_SERVICES selects.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // non-zero exit for supervisors
	}
	logger := bootstrap.InitLogger(&cfg)

	if runErr := serve(ctx, logger, &cfg); runErr != nil {
		logger.ErrorContext(ctx, "fatal error", "error", runErr)
		os.Exit(1) //nolint:forbidigo // non-zero exit for supervisors
	}
}

// closers releases connections in reverse acquisition order.
type closers []struct {
	name string
	c    io.Closer
}

func (cs *closers) add(name string, c io.Closer) {
	*cs = append(*cs, struct {
		name string
		c    io.Closer
	}{name, c})
}

func (cs closers) closeAll() error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", cs[i].name, err))
		}
	}
	return errors.Join(errs...)
}

func serve(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) (err error) {
	logger.InfoContext(ctx, "starting unevent",
		"db", fmt.Sprintf("%s:%d/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Name),
		"auth_mode", cfg.Auth.Mode,
		"services", bootstrap.GetEnabledServices(cfg),
	)
	if err = bootstrap.ValidateServiceConfig(cfg); err != nil {
		return err
	}

	var open closers
	defer func() {
		if cerr := open.closeAll(); cerr != nil {
			logger.ErrorContext(ctx, "shutdown cleanup", "error", cerr)
		}
	}()

	conn := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}
	db, err := bootstrap.ConnectDB(ctx, conn)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	open.add("database", db)

	rdb, err := bootstrap.ConnectRedis(ctx, conn)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	open.add("redis", rdb)

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "startup migrations disabled")
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: rdb,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	return bootstrap.RunServicesWithShutdown(ctx, &bootstrap.ServiceOrchestrationConfig{
		Config:      cfg,
		Services:    services,
		DB:          db,
		RedisClient: rdb,
		Logger:      logger,
	})
}
