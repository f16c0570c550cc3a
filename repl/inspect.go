// Copyright © 2024 The ELPS authors

package repl

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/luthersystems/emmylua/syntax"
)

// inputURI names the scratch file expressions are analyzed in.
const inputURI = "untitled:inspect.lua"

// returnPrefix turns an expression into a chunk.
const returnPrefix = "return "

// Inspector infers the types of expressions typed by a user.  Each
// expression replaces the content of a scratch file in the database, so
// it sees every global the database knows.
type Inspector struct {
	db  *analysis.Database
	uri string
}

// NewInspector returns an inspector over db.
func NewInspector(db *analysis.Database) *Inspector {
	return &Inspector{db: db, uri: inputURI}
}

// Close removes the scratch file from the database.
func (in *Inspector) Close() error {
	err := in.db.RemoveFile(in.uri)
	if errors.Is(err, analysis.ErrUnknownFile) {
		return nil
	}
	return err
}

// Inspect returns the inferred type of expr.  A list of expressions
// yields a comma separated list of types.  Syntax errors are returned as
// diagnostics positioned within expr.
func (in *Inspector) Inspect(ctx context.Context, expr string) (string, []analysis.Diagnostic, error) {
	if _, err := in.db.UpdateFile(ctx, in.uri, returnPrefix+expr+"\n"); err != nil {
		return "", nil, err
	}
	var typ string
	var diags []analysis.Diagnostic
	err := in.db.Read(func(snap *analysis.Snapshot) error {
		f, ok := snap.FileByURI(in.uri)
		if !ok {
			return analysis.ErrUnknownFile
		}
		for _, d := range f.Diagnostics {
			if d.Code == analysis.CodeSyntaxError {
				diags = append(diags, d)
			}
		}
		if len(diags) > 0 {
			return nil
		}
		exprs := returnExprs(f.Tree)
		if len(exprs) == 0 {
			diags = append(diags, analysis.Diagnostic{
				Code:    analysis.CodeSyntaxError,
				Message: "expected an expression",
				Range:   f.Tree.Root.Range(),
			})
			return nil
		}
		m := semantic.NewModel(snap, f)
		types := make([]string, 0, len(exprs))
		for _, n := range exprs {
			t, err := m.InferExpr(ctx, n)
			if errors.Is(err, semantic.ErrCancelled) {
				return err
			}
			types = append(types, displayType(snap, t, err))
		}
		typ = strings.Join(types, ", ")
		return nil
	})
	return typ, diags, err
}

// returnExprs returns the expressions of the scratch chunk's return
// statement.
func returnExprs(tree *syntax.Tree) []*syntax.Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	block := tree.Root.ChildOfKind(syntax.KindBlock)
	if block == nil {
		return nil
	}
	ret := block.ChildOfKind(syntax.KindReturnStat)
	if ret == nil {
		return nil
	}
	return ret.Children()
}

func displayType(snap *analysis.Snapshot, t luatype.Type, err error) string {
	if err != nil || t == nil {
		return luatype.Unknown.String()
	}
	if s, ok := t.(luatype.Signature); ok {
		if sig, ok := snap.Signature(luatype.SignatureID(s)); ok {
			return sig.FunctionType().String()
		}
	}
	return t.String()
}

// Complete returns the names that complete the last word of text and the
// word itself.  After "a.b." the members of a.b are offered, elsewhere
// the global names.
func (in *Inspector) Complete(ctx context.Context, text string) ([]string, string) {
	start := len(text)
	for start > 0 && isNameByte(text[start-1]) {
		start--
	}
	prefix := text[start:]

	var names []string
	if start > 0 && (text[start-1] == '.' || text[start-1] == ':') {
		path := dottedPath(text[:start-1])
		if len(path) == 0 {
			return nil, prefix
		}
		if _, ok := in.scratch(ctx); !ok {
			return nil, prefix
		}
		_ = in.db.Read(func(snap *analysis.Snapshot) error {
			f, ok := snap.FileByURI(in.uri)
			if !ok {
				return nil
			}
			members, err := semantic.NewModel(snap, f).PathMembers(ctx, 0, path)
			if err != nil {
				return nil
			}
			for _, m := range members {
				names = append(names, m.Name)
			}
			return nil
		})
	} else {
		_ = in.db.Read(func(snap *analysis.Snapshot) error {
			names = snap.GlobalNames()
			return nil
		})
	}

	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) && name != prefix {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, prefix
}

// scratch makes sure the scratch file exists.
func (in *Inspector) scratch(ctx context.Context) (*analysis.FileIndex, bool) {
	var f *analysis.FileIndex
	_ = in.db.Read(func(snap *analysis.Snapshot) error {
		f, _ = snap.FileByURI(in.uri)
		return nil
	})
	if f != nil {
		return f, true
	}
	f, err := in.db.UpdateFile(ctx, in.uri, "")
	return f, err == nil
}

// dottedPath returns the dotted name path that ends text.
func dottedPath(text string) []string {
	var path []string
	end := len(text)
	for {
		start := end
		for start > 0 && isNameByte(text[start-1]) {
			start--
		}
		if start == end {
			return nil
		}
		path = append([]string{text[start:end]}, path...)
		if start == 0 || text[start-1] != '.' {
			return path
		}
		end = start - 1
	}
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
