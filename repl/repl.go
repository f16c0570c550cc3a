// Copyright © 2018 The ELPS authors

// Package repl implements an interactive inspector that prints the
// inferred type of Lua expressions against an analysis database.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/diagnostic"
)

type config struct {
	stdin       io.ReadCloser
	stderr      io.WriteCloser
	historyFile string
	color       diagnostic.ColorMode
}

func newConfig(opts ...Option) *config {
	config := &config{
		historyFile: historyPath(),
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output to the REPL.
func WithStderr(stderr io.WriteCloser) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithHistoryFile sets the file line history is kept in.  An empty path
// disables history.
func WithHistoryFile(path string) Option {
	return func(c *config) {
		c.historyFile = path
	}
}

// WithColor sets how syntax errors are colored.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) {
		c.color = mode
	}
}

const helpText = `Enter a Lua expression to print its inferred type.
  :help      show this message
  :quit, :q  leave the inspector`

// Run reads expressions until end of input and prints the type inferred
// for each against db.
func Run(ctx context.Context, db *analysis.Database, prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	var out io.Writer = os.Stderr
	if cfg.stderr != nil {
		out = cfg.stderr
	}

	in := NewInspector(db)
	defer in.Close() //nolint:errcheck // best-effort cleanup

	ensureHistoryFilePermissions(cfg.historyFile)
	rlCfg := &readline.Config{
		Stdout:            out,
		Stderr:            out,
		Prompt:            prompt,
		HistoryFile:       cfg.historyFile,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{ctx: ctx, in: in},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return err
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":q", ":quit":
			return nil
		case ":help":
			fmt.Fprintln(out, helpText) //nolint:errcheck // best-effort REPL output
			continue
		}

		typ, diags, err := in.Inspect(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintln(out, err) //nolint:errcheck // best-effort error display
			continue
		}
		if len(diags) > 0 {
			renderErrors(out, line, diags, cfg.color)
			continue
		}
		fmt.Fprintln(out, typ) //nolint:errcheck // best-effort REPL output
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".emmylua_history")
}

// ensureHistoryFilePermissions creates the history file if needed and
// restricts it to the current user.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // path is the user's own history file
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0o600)
}
