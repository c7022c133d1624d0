package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/redis/go-redis/v9"

	"github.com/unevent/unevent-api/internal/migrate"
)

// DBConfig locates the test Postgres. Fields read TEST_DB_* variables.
// The default port matches the compose test profile; CI sets TEST_DB_PORT=5432.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"55432"`
	User     string `env:"USER"     envDefault:"unevent"`
	Password string `env:"PASSWORD" envDefault:"unevent"`
	Name     string `env:"NAME"     envDefault:"unevent"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
	// Shared runs tests against the public schema instead of a throwaway
	// schema per test. Parallel packages then race on the same rows.
	Shared bool `env:"SHARED"`
}

// LoadDBConfig parses TEST_DB_* from the environment.
func LoadDBConfig() (DBConfig, error) {
	var cfg DBConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TEST_DB_"}); err != nil {
		return DBConfig{}, fmt.Errorf("parse test db config: %w", err)
	}
	return cfg, nil
}

// DSN renders a pgx URL. A non-empty schema is placed first on search_path.
func (c DBConfig) DSN(schema string) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := url.Values{"sslmode": {c.SSLMode}}
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func envTrue(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// unavailable fails under TEST_REQUIRE_INFRA and skips otherwise.
func unavailable(t testing.TB, what string, err error) {
	t.Helper()
	if envTrue("TEST_REQUIRE_INFRA") {
		t.Fatalf("%s not available: %v", what, err)
	}
	t.Skipf("%s not available: %v", what, err)
}

func mustDBConfig(t testing.TB) DBConfig {
	t.Helper()
	cfg, err := LoadDBConfig()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func openPinged(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SkipIfNoTestDB skips t when Postgres cannot be reached.
func SkipIfNoTestDB(t testing.TB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db, err := openPinged(ctx, mustDBConfig(t).DSN(""))
	if err != nil {
		unavailable(t, "test database", err)
		return
	}
	_ = db.Close()
}

// WithAutoDB hands fn a migrated database. By default every call gets a
// fresh schema that is dropped on cleanup.
func WithAutoDB(t testing.TB, fn func(*sql.DB)) {
	t.Helper()
	fn(SetupDB(t))
}

// SetupDB returns a migrated handle that is closed on cleanup.
func SetupDB(t testing.TB) *sql.DB {
	t.Helper()
	cfg := mustDBConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	admin, err := openPinged(ctx, cfg.DSN(""))
	if err != nil {
		unavailable(t, "test database", err)
		return nil
	}

	schema := ""
	if !cfg.Shared {
		schema = newSchemaName()
		if _, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
			_ = admin.Close()
			t.Fatalf("create schema %s: %v", schema, err)
		}
		t.Logf("using schema %s", schema)
	}

	db, err := openPinged(ctx, cfg.DSN(schema))
	if err != nil {
		_ = admin.Close()
		t.Fatalf("open test database: %v", err)
	}
	db.SetMaxOpenConns(10)

	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		if schema == "" {
			truncateAll(cctx, t, db)
		}
		_ = db.Close()
		if schema != "" {
			if _, dropErr := admin.ExecContext(cctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); dropErr != nil {
				t.Logf("drop schema %s: %v", schema, dropErr)
			}
		}
		_ = admin.Close()
	})

	if _, err = migrate.Run(ctx, db, nil); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if schema == "" {
		truncateAll(ctx, t, db)
	}
	return db
}

// Children first so foreign keys never block the delete.
var sharedTables = []string{"jobs", "listings", "media", "accounts", "profiles"}

func truncateAll(ctx context.Context, t testing.TB, db *sql.DB) {
	t.Helper()
	for _, table := range sharedTables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}
}

func newSchemaName() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

// TestTime is the fixed clock reading used across fixtures.
func TestTime() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

const redisSlots = 15

// SetupTestRedis connects to TEST_REDIS_ADDR (default localhost:56379) and
// reserves one logical DB for t so packages running in parallel never flush
// each other. The reservation lives in DB 0 and is released on cleanup.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:56379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	meta := redis.NewClient(&redis.Options{Addr: addr})
	if err := meta.Ping(ctx).Err(); err != nil {
		_ = meta.Close()
		unavailable(t, "test redis at "+addr, err)
		return nil
	}

	slot, lockKey := 1, ""
	for i := 1; i <= redisSlots; i++ {
		key := "unevent:testutil:slot:" + strconv.Itoa(i)
		if ok, err := meta.SetNX(ctx, key, os.Getpid(), 30*time.Minute).Result(); err == nil && ok {
			slot, lockKey = i, key
			break
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: slot})
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis db %d: %v", slot, err)
	}
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer ccancel()
		_ = client.Close()
		if lockKey != "" {
			_ = meta.Del(cctx, lockKey).Err()
		}
		_ = meta.Close()
	})
	return client
}
