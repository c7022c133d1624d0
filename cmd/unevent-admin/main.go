// Command unevent-admin holds the operator tasks that do not belong in the
// API process: schema migration and reset, dev seeding, a manual reaper pass
// and notification previews.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/unevent/unevent-api/config"
	"github.com/unevent/unevent-api/internal/bootstrap"
)

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig

	prompt *prompter
}

type command struct {
	name        string
	description string
	run         func(cmdCtx *commandContext, args []string) error
}

// registry is kept in the order usage prints it.
var registry = []command{
	{"db-reset", "Drop the public schema, migrate again and optionally seed", runDBReset},
	{"db-seed", "Migrate and insert development listings", runDBSeed},
	{"migrate", "Apply pending schema migrations", runMigrations},
	{"purge", "Run one reaper pass: expired jobs, stale temporary media, old soft-deleted listings", runPurge},
	{"test-notify", "Render a notification, then enqueue or send it", runTestNotify},
}

func commands() map[string]command {
	byName := make(map[string]command, len(registry))
	for _, c := range registry {
		byName[c.name] = c
	}
	return byName
}

func main() {
	os.Exit(run(os.Args[1:])) //nolint:forbidigo // exit status is the CLI contract
}

func run(args []string) int {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		return 1
	}
	logger := bootstrap.InitLogger(&cfg)

	if len(args) == 0 {
		printUsage(os.Stdout)
		return 2
	}
	cmd, ok := commands()[args[0]]
	if !ok {
		if werr := writef(os.Stderr, "unknown command %q\n\n", args[0]); werr != nil {
			logger.Error("write stderr", "error", werr)
		}
		printUsage(os.Stderr)
		return 2
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		prompt: newPrompter(os.Stdin, os.Stderr),
	}
	if runErr := cmd.run(cmdCtx, args[1:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmd.name, "error", runErr)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_ = writef(tw, "Usage: unevent-admin <command> [flags]\n\nCommands:\n")
	for _, c := range registry {
		_ = writef(tw, "  %s\t%s\n", c.name, c.description)
	}
	_ = tw.Flush()
}
