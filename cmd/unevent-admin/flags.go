package main

import (
	"errors"
	"flag"
	"os"
	"time"
)

const defaultMigrationTimeout = 5 * time.Minute

var errTimeout = errors.New("--timeout must be greater than zero")

// cmdFlags is a flag set with the --timeout every subcommand takes.
type cmdFlags struct {
	*flag.FlagSet
	timeout time.Duration
}

func newCmdFlags(name string, timeout time.Duration, usage string) *cmdFlags {
	f := &cmdFlags{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.SetOutput(os.Stderr)
	f.DurationVar(&f.timeout, "timeout", timeout, usage)
	return f
}

func (f *cmdFlags) allowRemote(p *bool) {
	f.BoolVar(p, "allow-remote", false, "Permit running against database hosts that do not look local")
}

func (f *cmdFlags) parse(args []string) (time.Duration, error) {
	if err := f.Parse(args); err != nil {
		return 0, err
	}
	if f.timeout <= 0 {
		return 0, errTimeout
	}
	return f.timeout, nil
}
