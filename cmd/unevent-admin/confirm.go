package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

var errAborted = errors.New("aborted by user")

// prompter shares one buffered reader so a second prompt sees input that the
// first one already buffered.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints the prompt and returns the trimmed answer. A read error with
// nothing typed counts as an abort.
func (p *prompter) ask(format string, args ...any) (string, error) {
	if err := writef(p.out, format, args...); err != nil {
		return "", fmt.Errorf("print prompt: %w", err)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", errAborted
	}
	return strings.TrimSpace(line), nil
}

type dbResetConfirmOptions struct {
	yes        bool
	target     string
	remoteHost string
}

// IsYes is false for a remote host whatever --yes says.
func (d dbResetConfirmOptions) IsYes() bool { return d.yes && d.remoteHost == "" }

func (d dbResetConfirmOptions) GetWarning() string {
	var b strings.Builder
	b.WriteString("WARNING: this will drop and recreate the public schema for the configured database.")
	if d.remoteHost != "" {
		fmt.Fprintf(&b, " Host %q appears to be remote; double-check before proceeding.", d.remoteHost)
	}
	return b.String()
}

func (p *prompter) confirm(opts dbResetConfirmOptions, action string) error {
	msg := opts.GetWarning() + "\n"
	if opts.target != "" {
		msg += fmt.Sprintf("About to %s for %s.\n", action, opts.target)
	}
	if err := writef(p.out, "%s", msg); err != nil {
		return fmt.Errorf("print warning: %w", err)
	}
	answer, err := p.ask("Continue? [y/N]: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	}
	return errAborted
}

func promptConfirm(in io.Reader, out io.Writer, opts dbResetConfirmOptions, action string) error {
	return newPrompter(in, out).confirm(opts, action)
}

// confirmRemote refuses a remote host unless allowed, then makes the operator
// type the host name back.
func (cmdCtx *commandContext) confirmRemote(allow bool, action string) error {
	host := cmdCtx.Config.Postgres.Host
	if !allow {
		return fmt.Errorf("refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional", host)
	}
	answer, err := cmdCtx.prompt.ask(
		"\nWARNING: database host %q does not look like a local address.\nThis operation will %s.\nType %q to continue or press enter to abort: ",
		host, action, host,
	)
	if err != nil {
		return err
	}
	if answer != host {
		_ = writef(cmdCtx.prompt.out, "\nRemote safeguard check failed; aborting.\n")
		return errAborted
	}
	return nil
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	switch {
	case h == "", h == "localhost", strings.HasSuffix(h, ".local"):
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
