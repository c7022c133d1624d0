package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/unevent/unevent-api/config"
)

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (config.AppConfig, error) {
	var cfg config.AppConfig
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env file: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// InitLogger installs and returns the process logger: text on stderr in
// development, JSON on stdout otherwise.
func InitLogger(cfg *config.AppConfig) *slog.Logger {
	var (
		level = slog.LevelInfo
		dev   bool
	)
	if cfg != nil {
		level, dev = parseLogLevel(cfg.LogLevel), cfg.IsDev
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if dev {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel accepts slog level names plus "warning", falling back to info.
func parseLogLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ValidateServiceConfig rejects an empty or unknown SERVICES list, and mock
// auth on an HTTP server outside development.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	switch {
	case err != nil:
		return fmt.Errorf("invalid service configuration: %w", err)
	case len(services) == 0:
		return errors.New("no services enabled")
	case services[config.ServiceModeHTTP] && cfg.Auth.Mode == config.AuthModeMock && !cfg.IsDev:
		return errors.New("AUTH_MODE=mock requires DEV=true")
	}
	return nil
}

// GetEnabledServices lists enabled service names in order, or none when the
// list does not parse.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(services))
	for _, mode := range slices.Sorted(maps.Keys(services)) {
		names = append(names, string(mode))
	}
	return names
}
