// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/lint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// stdinName is the file name diagnostics for standard input are reported
// under.
const stdinName = "<stdin>"

// Exit codes of the check command.
const (
	exitOK       = 0
	exitProblems = 1
	exitUsage    = 2
)

type checkOptions struct {
	json     bool
	checks   string
	list     bool
	excludes []string
	libs     []string
	stats    bool
	trace    bool
}

// CheckCommand creates the "check" cobra command.  Embedders can pass
// WithDatabase to check against preloaded declarations and WithAnalyzers
// to add checks of their own.
func CheckCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var o checkOptions

	cmd := &cobra.Command{
		Use:     "check [flags] [files...]",
		Aliases: []string{"lint"},
		Short:   "Run static analysis checks on Lua source files",
		Long: `Run static analysis checks on Lua source files.

The checker analyzes every file together, so globals, classes and
attributes declared in one file are known in the others. Each check is an
independent analyzer that reports diagnostics; checks never change what
analysis concluded about a program.

With no files, reads from stdin. A directory argument, or a path ending in
"/...", is expanded to every .lua file below it.

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation (invalid flags, unreadable files)

To suppress diagnostics, add a doc comment:
  ---@diagnostic disable-next-line: readonly
  ---@diagnostic disable-line: deprecated
  ---@diagnostic disable: param-type-mismatch

Available checks (use --checks to select specific ones):
` + checksDoc(cfg.resolveAnalyzers()) + `
Examples:
  emmylua check main.lua                             # Check a single file
  emmylua check ./...                                # Check a directory tree
  emmylua check --json main.lua                      # Output diagnostics as JSON
  emmylua check --checks=readonly ./...              # Run only specific checks
  emmylua check --lib=/usr/share/lua/meta ./...      # Add a library of declarations
  emmylua check --exclude='vendor' ./...             # Exclude directories
  cat main.lua | emmylua check                       # Check from stdin`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("json") {
				o.json = viper.GetBool(keyCheckJSON)
			}
			code := runCheck(cmd.Context(), cfg, &o, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != exitOK {
				os.Exit(code)
			}
		},
	}

	cmd.Flags().BoolVar(&o.json, "json", false,
		"Output diagnostics as JSON.")
	cmd.Flags().StringVar(&o.checks, "checks", "",
		"Comma-separated list of checks to run (default: all).")
	cmd.Flags().BoolVar(&o.list, "list", false,
		"List available checks and exit.")
	cmd.Flags().StringArrayVar(&o.excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	cmd.Flags().StringArrayVar(&o.libs, "lib", nil,
		"Directory of library declarations to load (may be repeated).")
	cmd.Flags().BoolVar(&o.stats, "stats", false,
		"Print analysis statistics to stderr when done.")
	cmd.Flags().BoolVar(&o.trace, "trace", false,
		"Log a span for every analysis step (needs -vv).")

	return cmd
}

// runCheck checks args and writes the results.  It returns the exit code.
func runCheck(ctx context.Context, cfg *cmdConfig, o *checkOptions, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	analyzers := cfg.resolveAnalyzers()
	if o.list {
		for _, a := range analyzers {
			fmt.Fprintln(stdout, a.Name) //nolint:errcheck // best-effort output
		}
		return exitOK
	}
	analyzers, err := selectAnalyzers(analyzers, o.checks)
	if err != nil {
		fmt.Fprintf(stderr, "emmylua check: %v\n", err) //nolint:errcheck // best-effort output
		return exitUsage
	}

	if o.trace {
		defer startTracing()()
	}
	if o.stats {
		stop, err := startStats(stderr)
		if err != nil {
			fmt.Fprintf(stderr, "emmylua check: %v\n", err) //nolint:errcheck // best-effort output
			return exitUsage
		}
		defer stop()
	}

	sources, err := readSources(args, o.excludes, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort output
		return exitUsage
	}

	db, err := cfg.loadDatabase(ctx, o.libs)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort output
		return exitUsage
	}
	for _, path := range sources.paths {
		if _, err := db.AddFile(ctx, analysis.PathToURI(path), analysis.WorkspaceMain, string(sources.data[path])); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err) //nolint:errcheck // best-effort output
			return exitUsage
		}
	}

	l := &lint.Linter{Analyzers: analyzers, Jobs: viper.GetInt(keyJobs)}
	diags, err := l.CheckWorkspace(ctx, db, analysis.WorkspaceMain)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort output
		return exitUsage
	}
	if len(diags) == 0 {
		return exitOK
	}

	if o.json {
		err = lint.FormatJSON(stdout, diags)
	} else {
		err = renderLintDiagnostics(stderr, diags, sources.data)
	}
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort output
		return exitUsage
	}
	return exitProblems
}

// selectAnalyzers returns the analyzers named in the comma separated
// list checks, or all of them when checks is empty.
func selectAnalyzers(analyzers []*lint.Analyzer, checks string) ([]*lint.Analyzer, error) {
	if checks == "" {
		return analyzers, nil
	}
	selected := make(map[string]bool)
	for _, name := range strings.Split(checks, ",") {
		if name = strings.TrimSpace(name); name != "" {
			selected[name] = true
		}
	}
	var filtered []*lint.Analyzer
	for _, a := range analyzers {
		if selected[a.Name] {
			filtered = append(filtered, a)
			delete(selected, a.Name)
		}
	}
	for name := range selected {
		return nil, fmt.Errorf("unknown check: %s", name)
	}
	return filtered, nil
}

type sourceSet struct {
	paths []string
	data  map[string][]byte
}

// readSources reads the files named by args, or stdin when there are
// none.
func readSources(args []string, excludes []string, stdin io.Reader) (*sourceSet, error) {
	set := &sourceSet{data: make(map[string][]byte)}
	if len(args) == 0 {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		set.paths = append(set.paths, stdinName)
		set.data[stdinName] = src
		return set, nil
	}
	patterns := make([]string, len(args))
	for i, arg := range args {
		patterns[i] = arg
		if !strings.HasSuffix(arg, "/...") && isDir(arg) {
			patterns[i] = strings.TrimSuffix(arg, "/") + "/..."
		}
	}
	paths, err := expandArgs(patterns, excludes)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if _, seen := set.data[path]; seen {
			continue
		}
		src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		set.paths = append(set.paths, path)
		set.data[path] = src
	}
	return set, nil
}

// checksDoc formats the name and summary of each analyzer for help text.
func checksDoc(analyzers []*lint.Analyzer) string {
	var b strings.Builder
	for _, a := range analyzers {
		summary, _, _ := strings.Cut(a.Doc, "\n")
		fmt.Fprintf(&b, "  %-22s %s\n", a.Name, summary)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(CheckCommand())
}
