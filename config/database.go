package config

import (
	"errors"
	"time"
)

// DBConfig is read from DB_*. Use SSL_MODE=require in production.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"unevent"`
	Password string `env:"PASSWORD" envDefault:"unevent"`
	Name     string `env:"NAME"     envDefault:"unevent"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`

	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// Sanitize keeps the pool usable: at least one open conn and no more idle
// than open.
func (c *DBConfig) Sanitize() {
	c.MaxOpenConns = max(c.MaxOpenConns, 1)
	c.MaxIdleConns = min(max(c.MaxIdleConns, 0), c.MaxOpenConns)
	if c.ConnMaxLifetime < 0 {
		c.ConnMaxLifetime = 0
	}
}

// RedisConfig is read from REDIS_*. URI accepts redis://, rediss:// or host:port.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`

	UseSentinel        bool     `env:"USE_SENTINEL"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"`

	UseCluster   bool     `env:"USE_CLUSTER"`
	ClusterNodes []string `env:"CLUSTER_NODES"`
}

var errRedisTopology = errors.New("REDIS_USE_SENTINEL and REDIS_USE_CLUSTER are mutually exclusive")

// Validate rejects topologies go-redis cannot serve at once.
func (c RedisConfig) Validate() error {
	if c.UseSentinel && c.UseCluster {
		return errRedisTopology
	}
	return nil
}
