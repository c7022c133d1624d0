package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/migrate"
)

const connectTimeout = 5 * time.Second

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// postgresDSN builds the DSN with url.URL so credentials are escaped.
func postgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB opens the pool and fails unless the database answers a ping.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	dbc := cfg.DBConfig
	db, err := sql.Open("pgx", postgresDSN(dbc))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(dbc.MaxOpenConns)
	db.SetMaxIdleConns(dbc.MaxIdleConns)
	db.SetConnMaxLifetime(dbc.ConnMaxLifetime)

	if err := pingOrClose(ctx, "database", db.PingContext, db); err != nil {
		return nil, err
	}
	logf(ctx, cfg.Logger, "database connected", "host", dbc.Host, "port", dbc.Port, "database", dbc.Name)
	return db, nil
}

// ConnectRedis builds the single, sentinel or cluster client chosen by config.
// Sessions and the revalidation debounce share it.
//
//nolint:ireturn // the client kind is picked at runtime.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, desc, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch {
	case cfg.RedisConfig.UseCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case cfg.RedisConfig.UseSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		client = redis.NewClient(opts.Simple())
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := pingOrClose(ctx, "redis", ping, client); err != nil {
		return nil, err
	}
	logf(ctx, cfg.Logger, "redis connected", "addr", desc)
	return client, nil
}

// pingOrClose closes c when ping does not succeed within connectTimeout.
func pingOrClose(ctx context.Context, what string, ping func(context.Context) error, c io.Closer) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	err := ping(ctx)
	if err == nil {
		return nil
	}
	if closeErr := c.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close %s: %w", what, closeErr))
	}
	return fmt.Errorf("ping %s: %w", what, err)
}

func logf(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.InfoContext(ctx, msg, args...)
	}
}

// redisOptions maps config onto UniversalOptions. The description is safe to
// log and never carries credentials.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	switch {
	case cfg.UseCluster:
		return clusterOptions(cfg)
	case cfg.UseSentinel:
		nodes := compactAddrs(cfg.SentinelNodes)
		if len(nodes) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		return &redis.UniversalOptions{
			Addrs:            nodes,
			MasterName:       cfg.SentinelMasterName,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
		}, "sentinel:" + cfg.SentinelMasterName, nil
	}

	direct, err := parseRedisURI(cfg.URI, cfg.Password)
	switch {
	case err != nil:
		return nil, "", fmt.Errorf("parse redis url: %w", err)
	case direct == nil:
		return nil, "", errors.New("redis direct configuration requires a URI")
	}
	return &redis.UniversalOptions{
		Addrs:     []string{direct.Addr},
		Username:  direct.Username,
		Password:  direct.Password,
		DB:        direct.DB,
		TLSConfig: direct.TLSConfig,
	}, direct.Addr, nil
}

// clusterOptions uses REDIS_CLUSTER_NODES, or the seed node in REDIS_URI.
func clusterOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	opts := &redis.UniversalOptions{Addrs: compactAddrs(cfg.ClusterNodes), Password: cfg.Password}
	if len(opts.Addrs) == 0 {
		seed, err := parseRedisURI(cfg.URI, cfg.Password)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis cluster url: %w", err)
		}
		if seed == nil {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		opts.Addrs = []string{seed.Addr}
		opts.Username, opts.Password, opts.TLSConfig = seed.Username, seed.Password, seed.TLSConfig
	}
	return opts, "cluster:" + strings.Join(opts.Addrs, ","), nil
}

// parseRedisURI takes a redis:// or rediss:// URL, or a bare host:port. An
// empty uri gives nil options.
func parseRedisURI(uri, defaultPassword string) (*redis.Options, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return &redis.Options{Addr: uri, Password: defaultPassword}, nil
	}
	opt, err := redis.ParseURL(uri)
	if err != nil {
		return nil, err
	}
	if opt.Password == "" {
		opt.Password = defaultPassword
	}
	return opt, nil
}

func compactAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// RunMigrations applies pending schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	applied, err := migrate.Run(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logf(ctx, logger, "database migrations completed", "applied", len(applied))
	return nil
}
