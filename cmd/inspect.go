// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/repl"
	"github.com/spf13/cobra"
)

// InspectCommand creates the "inspect" cobra command.
func InspectCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var (
		workspace string
		libs      []string
	)

	cmd := &cobra.Command{
		Use:     "inspect",
		Aliases: []string{"repl"},
		Short:   "Print the inferred types of Lua expressions interactively",
		Long: `Start an interactive inspector for Lua types.

Each line is read as a Lua expression and the type inferred for it is
printed. The builtin library is always loaded; use --workspace to load a
project so its globals, classes and functions are known. Line editing,
tab completion of globals and members, and command history are supported
via readline. Use Ctrl-D or :quit to exit.

Example session:
  lua> string.format
  fun(fmt: string, ...: any): string
  lua> Config.port
  integer
  lua> 1, "a"
  1, "a"`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			db, err := cfg.loadDatabase(ctx, libs)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if workspace != "" {
				n, err := db.LoadWorkspace(ctx, workspace, analysis.WorkspaceMain)
				if err != nil {
					fmt.Fprintf(os.Stderr, "loading workspace %s: %v\n", workspace, err)
					os.Exit(1)
				}
				log.Infof("loaded %d files from %s", n, workspace)
			}
			prompt := filepath.Base(os.Args[0]) + "> "
			if err := repl.Run(ctx, db, prompt, repl.WithColor(colorMode())); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "",
		"Directory whose .lua files are loaded before inspecting.")
	cmd.Flags().StringArrayVar(&libs, "lib", nil,
		"Directory of library declarations to load (may be repeated).")

	return cmd
}

func init() {
	rootCmd.AddCommand(InspectCommand())
}
