// Copyright © 2024 The ELPS authors

package lint

import (
	"errors"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/astutil"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/luthersystems/emmylua/syntax"
)

// Diagnostic codes of the built-in checks.
const (
	CodeReadOnly          = "readonly"
	CodeDeprecated        = "deprecated"
	CodeParamTypeMismatch = "param-type-mismatch"
	CodeUndefinedDocName  = "undefined-doc-name"
)

// ReadOnlyMessage is reported for assignments to readonly declarations.
const ReadOnlyMessage = "The variable is marked as readonly and cannot be assigned to."

// AnalyzerSyntax surfaces the syntax errors and misplaced doc tags found
// while analyzing a file.
var AnalyzerSyntax = &Analyzer{
	Name:     analysis.CodeSyntaxError,
	Doc:      "Report syntax errors and doc tags that document nothing.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		for _, d := range pass.File.Diagnostics {
			switch d.Code {
			case analysis.CodeSyntaxError:
				pass.Report(Diagnostic{Range: d.Range, Message: d.Message, Code: d.Code})
			case analysis.CodeOrphanTag:
				pass.Report(Diagnostic{Range: d.Range, Message: d.Message, Code: d.Code, Severity: SeverityWarning})
			}
		}
		return nil
	},
}

// AnalyzerOrphanAttribute reports attribute uses that no declaration owns.
var AnalyzerOrphanAttribute = &Analyzer{
	Name:     analysis.CodeOrphanAttribute,
	Doc:      "Report ---@[...] attribute uses that are not attached to a declaration.\n\nAn attribute use documents the declaration that follows its comment, or the ---@field tag right after it. Anywhere else it has no owner and is dropped.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		for _, d := range pass.File.Diagnostics {
			if d.Code == analysis.CodeOrphanAttribute {
				pass.Reportf(d.Range, "%s", d.Message)
			}
		}
		return nil
	},
}

// AnalyzerReadOnly reports assignments to readonly variables and members.
var AnalyzerReadOnly = &Analyzer{
	Name:     CodeReadOnly,
	Doc:      "Report assignments to declarations marked readonly.\n\nA declaration is readonly when it is annotated ---@readonly or ---@[readonly], or is a <const> local. Assigning through a readonly table, t.x = v, is reported as well.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		var err error
		astutil.WalkKind(pass.Tree, syntax.KindAssignStat, func(n *syntax.Node) {
			for _, target := range syntax.AssignTargets(n) {
				if err != nil {
					return
				}
				err = checkReadOnlyTarget(pass, target)
			}
		})
		return err
	},
}

// checkReadOnlyTarget reports an assignment to target when target names a
// readonly declaration.  For an index target the prefix is checked too and
// reported over its own range, so t.x = v flags t when t is readonly.
// Deeper prefixes are not considered.
func checkReadOnlyTarget(pass *Pass, target *syntax.Node) error {
	if err := pass.Context().Err(); err != nil {
		return err
	}
	if isReadOnly(pass, target, true) {
		pass.Reportf(target.Range(), "%s", ReadOnlyMessage)
	}
	if target.Kind() != syntax.KindIndexExpr {
		return nil
	}
	prefix := target.Child(0)
	if prefix != nil && isReadOnly(pass, prefix, false) {
		pass.Reportf(prefix.Range(), "%s", ReadOnlyMessage)
	}
	return nil
}

// isReadOnly reports whether n names a readonly declaration.  The
// declaration made by n itself does not count, and a <const> local only
// counts when it is assigned directly.
func isReadOnly(pass *Pass, n *syntax.Node, direct bool) bool {
	switch n.Kind() {
	case syntax.KindNameExpr, syntax.KindIndexExpr:
	default:
		return false
	}
	id, ok := pass.Model.FindDecl(pass.Context(), n)
	if !ok {
		return false
	}
	db := pass.Snapshot()
	for _, owner := range declarations(db, id) {
		if direct && owner.File == pass.File.File && owner.Pos == n.Pos() {
			continue
		}
		if db.HasFeature(owner, analysis.FeatureReadOnly) {
			return true
		}
	}
	if direct && id.Kind == analysis.SemanticDecl {
		decl, ok := db.Decl(analysis.DeclID{File: id.File, Pos: id.Pos})
		return ok && decl.Attrib == "const"
	}
	return false
}

// declarations returns id and, for a global, every declaration of the
// same name.
func declarations(db *analysis.Snapshot, id analysis.SemanticDeclID) []analysis.SemanticDeclID {
	if id.Kind != analysis.SemanticDecl {
		return []analysis.SemanticDeclID{id}
	}
	decl, ok := db.Decl(analysis.DeclID{File: id.File, Pos: id.Pos})
	if !ok || decl.Kind != analysis.DeclGlobal {
		return []analysis.SemanticDeclID{id}
	}
	globals := db.Globals(decl.Name)
	ids := make([]analysis.SemanticDeclID, 0, len(globals))
	for _, g := range globals {
		ids = append(ids, analysis.DeclOwner(g.ID))
	}
	return ids
}

// AnalyzerDeprecated reports uses of deprecated declarations.
var AnalyzerDeprecated = &Analyzer{
	Name:     CodeDeprecated,
	Doc:      "Report uses of deprecated variables, functions and members.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		ctx := pass.Context()
		db := pass.Snapshot()
		var err error
		pass.Tree.Root.Walk(func(n *syntax.Node) bool {
			if err != nil {
				return false
			}
			switch n.Kind() {
			case syntax.KindNameExpr, syntax.KindIndexExpr:
			default:
				return true
			}
			if astutil.IsDefinition(n) {
				return true
			}
			if err = ctx.Err(); err != nil {
				return false
			}
			id, ok := pass.Model.FindDecl(ctx, n)
			if !ok {
				return true
			}
			prop, ok := db.Property(id)
			if !ok {
				return true
			}
			dep, ok := prop.Deprecated()
			if !ok {
				return true
			}
			name, rng := n.Text(), n.Range()
			if n.Kind() == syntax.KindIndexExpr {
				rng = fieldRange(n)
				if n.Style() == syntax.IndexBracket {
					name = pass.Tree.NodeText(n)
				}
			}
			if dep.HasMessage && dep.Message != "" {
				pass.Reportf(rng, "'%s' is deprecated: %s", name, dep.Message)
			} else {
				pass.Reportf(rng, "'%s' is deprecated", name)
			}
			return true
		})
		return err
	},
}

// fieldRange returns the range of the field name of an index expression,
// from the end of its prefix to its own end.
func fieldRange(n *syntax.Node) syntax.Range {
	rng := n.Range()
	if prefix := n.Child(0); prefix != nil && n.Style() != syntax.IndexBracket {
		rng.Start = prefix.Range().End
	}
	return rng
}

// AnalyzerParamTypeMismatch reports call arguments and attribute arguments
// whose type does not fit the declared parameter.
var AnalyzerParamTypeMismatch = &Analyzer{
	Name:     CodeParamTypeMismatch,
	Doc:      "Report arguments whose type does not fit the parameter.\n\nCalls are checked against the overload selected for them. Attribute uses are checked against the parameters of their ---@attribute declaration.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		var err error
		astutil.WalkKind(pass.Tree, syntax.KindCallExpr, func(call *syntax.Node) {
			if err != nil {
				return
			}
			bad, cerr := pass.Model.CheckCallArgs(pass.Context(), call)
			if cerr != nil {
				if errors.Is(cerr, semantic.ErrCancelled) {
					err = cerr
				}
				return
			}
			for _, m := range bad {
				pass.Reportf(m.Arg.Range(), "Cannot assign `%s` to parameter `%s: %s`.", m.Type, m.Param.Name, m.Param.Type)
			}
		})
		if err != nil {
			return err
		}
		checkAttributeArgs(pass)
		return nil
	},
}

func checkAttributeArgs(pass *Pass) {
	db := pass.Snapshot()
	for _, site := range pass.File.Attributes {
		td, ok := attributeDecl(db, site.Use.Type)
		if !ok {
			continue
		}
		for i, arg := range site.Use.Args {
			if i >= len(td.Params) {
				pass.Reportf(site.Range, "Attribute `%s` takes %d argument(s) but %d were given.", site.Use.Type, len(td.Params), len(site.Use.Args))
				break
			}
			p := td.Params[i]
			if luatype.IsAny(p.Type) {
				continue
			}
			err := semantic.CheckCompatible(db, semantic.NewInferGuard(), p.Type, arg)
			if errors.Is(err, semantic.ErrTypeMismatch) {
				pass.Reportf(site.Range, "Cannot assign `%s` to parameter `%s: %s`.", arg, p.Name, p.Type)
			}
		}
	}
}

func attributeDecl(db *analysis.Snapshot, id luatype.TypeDeclID) (*analysis.TypeDecl, bool) {
	for _, td := range db.TypeDecls(id) {
		if td.Kind == analysis.TypeAttribute {
			return td, true
		}
	}
	return nil, false
}

// AnalyzerUndefinedDocName reports doc comments naming types that are
// never declared.
var AnalyzerUndefinedDocName = &Analyzer{
	Name:     CodeUndefinedDocName,
	Doc:      "Report attribute uses and type annotations that name undeclared types.\n\nAttributes other than the built-in deprecated, readonly, nodiscard and constructor need an ---@attribute declaration. Names in ---@type and ---@field annotations need a class, alias or enum.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		db := pass.Snapshot()
		for _, site := range pass.File.Attributes {
			name := string(site.Use.Type)
			if analysis.IsBuiltinAttribute(name) {
				continue
			}
			if _, ok := attributeDecl(db, site.Use.Type); !ok {
				pass.Reportf(site.Range, "Undefined attribute `%s`.", name)
			}
		}
		for _, decl := range pass.File.Decls {
			if decl.Kind == analysis.DeclParam && decl.Name == "self" {
				continue
			}
			for _, name := range undefinedNames(db, decl.Type, nil) {
				pass.Reportf(decl.Range, "Undefined type `%s`.", name)
			}
		}
		for _, m := range pass.File.Members {
			var generics []luatype.GenericParam
			if m.Owner.Kind == analysis.OwnerType {
				if td, ok := db.TypeDecl(m.Owner.Type); ok {
					generics = td.Generics
				}
			}
			for _, name := range undefinedNames(db, m.Type, generics) {
				pass.Reportf(m.Range, "Undefined type `%s`.", name)
			}
		}
		return nil
	},
}

// undefinedNames returns the named types in t that are not declared and
// are not one of generics.
func undefinedNames(db *analysis.Snapshot, t luatype.Type, generics []luatype.GenericParam) []string {
	var names []string
	var visit func(t luatype.Type)
	visit = func(t luatype.Type) {
		switch t := t.(type) {
		case luatype.Ref:
			for _, g := range generics {
				if g.Name == string(t) {
					return
				}
			}
			if len(db.TypeDecls(t.ID())) == 0 {
				names = append(names, string(t))
			}
		case *luatype.Generic:
			visit(luatype.Ref(t.Base))
			for _, a := range t.Args {
				visit(a)
			}
		case *luatype.Array:
			visit(t.Elem)
		case *luatype.TableOf:
			visit(t.Key)
			visit(t.Value)
		case *luatype.Union:
			for _, m := range t.Types {
				visit(m)
			}
		case *luatype.FunctionType:
			for _, p := range t.Params {
				visit(p.Type)
			}
			for _, r := range t.Returns {
				visit(r)
			}
		}
	}
	visit(t)
	return names
}
