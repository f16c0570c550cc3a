// Copyright © 2021 The ELPS authors

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
)

// errNotFound is returned by docExec for names without a declaration.
var errNotFound = errors.New("no declaration found")

const docWidth = 72

type docOptions struct {
	sourceFiles []string
	libs        []string
	listTypes   bool
}

// DocCommand creates the "doc" cobra command.
func DocCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var o docOptions

	cmd := &cobra.Command{
		Use:   "doc [flags] QUERY",
		Short: "Show documentation for Lua globals, members and types",
		Long: `Show the documentation of a global, a member or a declared type.

QUERY is a dotted name such as print, string.format or Config.port, or
the name of a class, alias, enum or attribute. The inferred type, the
description from its doc comment and its members are printed.

The builtin library is always loaded. Use -f to load source files first
(useful for documenting your own code) and --lib for directories of
declarations.

Examples:
  emmylua doc print                    Show docs for print
  emmylua doc string.format            Show docs for a member
  emmylua doc string                   List the members of string
  emmylua doc -f app.lua Config        Load a file, then show docs for Config
  emmylua doc -t                       List every declared type`,
		Run: func(cmd *cobra.Command, args []string) {
			if !o.listTypes && len(args) != 1 {
				_ = cmd.Help()
				os.Exit(1)
			}
			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush() //nolint:errcheck // best-effort flush on exit
			var query string
			if len(args) > 0 {
				query = args[0]
			}
			if err := docExec(cmd.Context(), cfg, &o, out, query); err != nil {
				_ = out.Flush()
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringArrayVarP(&o.sourceFiles, "source-file", "f", nil,
		"Load a Lua source file before querying documentation (may be repeated).")
	cmd.Flags().StringArrayVar(&o.libs, "lib", nil,
		"Directory of library declarations to load (may be repeated).")
	cmd.Flags().BoolVarP(&o.listTypes, "types", "t", false,
		"List all declared types with descriptions.")

	return cmd
}

func docExec(ctx context.Context, cfg *cmdConfig, o *docOptions, w io.Writer, query string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := cfg.loadDatabase(ctx, o.libs)
	if err != nil {
		return err
	}
	for _, path := range o.sourceFiles {
		src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
		if err != nil {
			return err
		}
		if _, err := db.AddFile(ctx, analysis.PathToURI(path), analysis.WorkspaceMain, string(src)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return db.Read(func(snap *analysis.Snapshot) error {
		f, ok := snap.FileByURI(analysis.StdURI)
		if !ok {
			return analysis.ErrUnknownFile
		}
		d := &docWriter{w: w, ctx: ctx, snap: snap, model: semantic.NewModel(snap, f)}
		if o.listTypes {
			d.typeList()
			return nil
		}
		return d.query(query)
	})
}

type docWriter struct {
	w     io.Writer
	ctx   context.Context
	snap  *analysis.Snapshot
	model *semantic.Model
}

func (d *docWriter) printf(format string, args ...any) {
	fmt.Fprintf(d.w, format, args...) //nolint:errcheck // best-effort doc output
}

func (d *docWriter) typeList() {
	for _, id := range d.snap.TypeNames() {
		td, ok := d.snap.TypeDecl(id)
		if !ok {
			continue
		}
		d.printf("%-24s %s\n", id, td.Kind)
		if desc := d.summary(analysis.TypeDeclOwner(id)); desc != "" {
			d.printf("%s\n", indent.String(desc, 2))
		}
	}
}

func (d *docWriter) query(query string) error {
	path := strings.Split(query, ".")
	if td, ok := d.snap.TypeDecl(luatype.TypeDeclID(query)); ok && len(d.snap.Globals(query)) == 0 {
		d.printf("(%s) %s\n", td.Kind, td.ID)
		d.property(analysis.TypeDeclOwner(td.ID))
		d.memberList(d.snap.Members(analysis.TypeOwner(td.ID)))
		return nil
	}

	var owner analysis.SemanticDeclID
	var t luatype.Type
	var err error
	if len(path) == 1 {
		decl, ok := d.snap.Global(query)
		if !ok {
			return fmt.Errorf("%s: %w", query, errNotFound)
		}
		owner = analysis.DeclOwner(decl.ID)
		t, err = d.model.DeclType(d.ctx, decl)
	} else {
		parent, perr := d.model.PathMembers(d.ctx, 0, path[:len(path)-1])
		if errors.Is(perr, semantic.ErrCancelled) {
			return perr
		}
		name := path[len(path)-1]
		var member *analysis.Member
		for _, m := range parent {
			if m.Name == name {
				member = m
				break
			}
		}
		if member == nil {
			return fmt.Errorf("%s: %w", query, errNotFound)
		}
		owner = analysis.MemberDeclOwner(member.ID)
		t, err = d.model.MemberType(d.ctx, member)
	}
	if errors.Is(err, semantic.ErrCancelled) {
		return err
	}
	d.printf("%s: %s\n", query, d.typeString(t, err))
	d.property(owner)

	members, err := d.model.PathMembers(d.ctx, 0, path)
	if errors.Is(err, semantic.ErrCancelled) {
		return err
	}
	d.memberList(members)
	return nil
}

// property writes the readonly and deprecated markers and the wrapped
// description of owner.
func (d *docWriter) property(owner analysis.SemanticDeclID) {
	prop, ok := d.snap.Property(owner)
	if !ok {
		return
	}
	if prop.Features().Has(analysis.FeatureReadOnly) {
		d.printf("  readonly\n")
	}
	if dep, ok := prop.Deprecated(); ok {
		if dep.HasMessage && dep.Message != "" {
			d.printf("  deprecated: %s\n", dep.Message)
		} else {
			d.printf("  deprecated\n")
		}
	}
	if desc, ok := prop.Description(); ok && strings.TrimSpace(desc) != "" {
		d.printf("\n%s\n", indent.String(wordwrap.String(strings.TrimSpace(desc), docWidth), 2))
	}
	for _, use := range d.snap.AttributeUses(owner) {
		d.printf("  @[%s]\n", use)
	}
}

// summary returns the first line of the description of owner.
func (d *docWriter) summary(owner analysis.SemanticDeclID) string {
	prop, ok := d.snap.Property(owner)
	if !ok {
		return ""
	}
	desc, _ := prop.Description()
	line, _, _ := strings.Cut(strings.TrimSpace(desc), "\n")
	return line
}

func (d *docWriter) memberList(members []*analysis.Member) {
	if len(members) == 0 {
		return
	}
	d.printf("\nMembers:\n")
	for _, m := range members {
		t, err := d.model.MemberType(d.ctx, m)
		d.printf("  %s: %s\n", m.Name, d.typeString(t, err))
		if desc := d.summary(analysis.MemberDeclOwner(m.ID)); desc != "" {
			d.printf("%s\n", indent.String(wordwrap.String(desc, docWidth-4), 4))
		}
	}
}

func (d *docWriter) typeString(t luatype.Type, err error) string {
	if err != nil || t == nil {
		return luatype.Unknown.String()
	}
	if s, ok := t.(luatype.Signature); ok {
		if sig, ok := d.snap.Signature(luatype.SignatureID(s)); ok {
			return sig.FunctionType().String()
		}
	}
	return t.String()
}

func init() {
	rootCmd.AddCommand(DocCommand())
}
