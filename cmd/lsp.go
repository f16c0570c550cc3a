// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"os"

	"github.com/luthersystems/emmylua/lint"
	"github.com/luthersystems/emmylua/lsp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LSPCommand creates the "lsp" cobra command with optional embedder
// configuration. Embedders can pass WithDatabase to serve requests from
// preloaded declarations and WithAnalyzers to publish their own checks.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		stdio bool
		port  int
		libs  []string
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the Lua Language Server Protocol server",
		Long: `Start an LSP server for annotated Lua source files.

The language server provides real-time IDE features including diagnostics,
hover documentation, go-to-definition, find references, completion,
signature help and document symbols.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Library directories given with --lib are indexed before the client's
workspace, so their declarations resolve in every file.

Each request is cancelled after lsp.request-timeout (default 5s).

Examples:
  emmylua lsp                        Start with stdio transport
  emmylua lsp --stdio                Same as above (explicit)
  emmylua lsp --port 7998            Start with TCP on port 7998

Editor configuration (VS Code):
  Install a generic LSP client extension and configure it to run
  "emmylua lsp --stdio" for .lua files.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			db, err := cfg.loadDatabase(cmd.Context(), libs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "lsp server error: %v\n", err)
				os.Exit(1)
			}
			srv := lsp.New(
				lsp.WithDatabase(db),
				lsp.WithRequestTimeout(viper.GetDuration(keyRequestTimeout)),
				lsp.WithLinter(&lint.Linter{Analyzers: cfg.resolveAnalyzers()}),
			)

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				log.Noticef("emmylua LSP server listening on %s", addr)
				if err := srv.RunTCP(addr); err != nil {
					fmt.Fprintf(os.Stderr, "lsp server error: %v\n", err)
					os.Exit(1)
				}
			} else {
				if err := srv.RunStdio(); err != nil {
					fmt.Fprintf(os.Stderr, "lsp server error: %v\n", err)
					os.Exit(1)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")
	cmd.Flags().StringArrayVar(&libs, "lib", nil,
		"Directory of library declarations to load (may be repeated).")

	return cmd
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
