// Copyright © 2024 The ELPS authors

package analysis

import (
	"testing"

	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/parser"
	"github.com/luthersystems/emmylua/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFile luatype.FileID = 1

func analyzeSource(t *testing.T, src string) *FileIndex {
	t.Helper()
	tree := parser.Parse("test.lua", src)
	require.Empty(t, tree.Errors, "unexpected syntax errors")
	return Analyze(testFile, "file:///test.lua", WorkspaceMain, tree)
}

func findMember(t *testing.T, idx *FileIndex, owner MemberOwner, name string) *Member {
	t.Helper()
	for _, m := range idx.Members {
		if m.Owner == owner && m.Name == name {
			return m
		}
	}
	require.Failf(t, "member not found", "%s in %+v", name, owner)
	return nil
}

func declNamed(idx *FileIndex, name string) *Decl {
	for _, d := range idx.Decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func diagnosticCodes(idx *FileIndex) []string {
	var codes []string
	for _, d := range idx.Diagnostics {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestAnalyzeLocals(t *testing.T) {
	idx := analyzeSource(t, `local a, b = 1, 2
print(a)
do
  local a = "shadow"
  print(a)
end
`)
	var outer, inner *Decl
	for _, d := range idx.Decls {
		if d.Name != "a" {
			continue
		}
		if d.Range.Start.Line == 1 {
			outer = d
		} else {
			inner = d
		}
	}
	require.NotNil(t, outer)
	require.NotNil(t, inner)
	assert.Equal(t, DeclLocal, outer.Kind)
	assert.Equal(t, 1, outer.References)
	assert.Equal(t, 1, inner.References)
	assert.NotNil(t, idx.Scope.LookupLocal("b"))
	assert.Nil(t, idx.Scope.LookupLocal("print"))
	assert.Empty(t, idx.Globals)
}

func TestAnalyzeGlobals(t *testing.T) {
	idx := analyzeSource(t, `x = 1
x = 2
function f() return x end
`)
	var names []string
	for _, g := range idx.Globals {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"x", "f"}, names)
	x := idx.Globals[0]
	assert.Equal(t, DeclGlobal, x.Kind)
	assert.Equal(t, 2, x.References, "second assignment and the read in f")
}

func TestAnalyzeParamsAndSignature(t *testing.T) {
	idx := analyzeSource(t, `---@param a string
---@param b? integer
---@return boolean
local function f(a, b, ...)
  return a == b
end
`)
	require.Len(t, idx.Signatures, 1)
	var sig *Signature
	for _, s := range idx.Signatures {
		sig = s
	}
	assert.Equal(t, "f", sig.Name)
	assert.Equal(t, []string{"a", "b", "..."}, sig.Params)
	assert.Equal(t, luatype.String, sig.ParamTypes["a"])
	assert.True(t, luatype.IsNullable(sig.ParamTypes["b"]))
	assert.Equal(t, []luatype.Type{luatype.Boolean}, sig.Returns)

	a := declNamed(idx, "a")
	require.NotNil(t, a)
	assert.Equal(t, DeclParam, a.Kind)
	assert.Equal(t, luatype.String, a.Type)
	assert.Nil(t, declNamed(idx, "..."))
}

func TestAnalyzeClassMembers(t *testing.T) {
	idx := analyzeSource(t, `---@class Point: Shape
---@field x number
---@field private y number
local Point = {}

function Point:len()
  return self.x
end

Point.origin = nil
`)
	require.Len(t, idx.Types, 1)
	td := idx.Types[0]
	assert.Equal(t, luatype.TypeDeclID("Point"), td.ID)
	assert.Equal(t, TypeClass, td.Kind)
	assert.Equal(t, []luatype.Type{luatype.Ref("Shape")}, td.Supers)

	owner := TypeOwner("Point")
	x := findMember(t, idx, owner, "x")
	assert.Equal(t, MemberField, x.Kind)
	assert.Equal(t, luatype.Number, x.Type)

	y := findMember(t, idx, owner, "y")
	prop, ok := idx.Properties.Get(MemberDeclOwner(y.ID))
	require.True(t, ok)
	assert.Equal(t, VisibilityPrivate, prop.Visibility())

	m := findMember(t, idx, owner, "len")
	assert.Equal(t, MemberMethod, m.Kind)
	assert.Equal(t, MemberAssign, findMember(t, idx, owner, "origin").Kind)

	self := declNamed(idx, "self")
	require.NotNil(t, self)
	assert.Equal(t, luatype.Ref("Point"), self.Type)
}

func TestAnalyzeTableFields(t *testing.T) {
	idx := analyzeSource(t, `local M = { name = "m", ["key"] = 1, 3 }
M.extra = true
function M.run() end
`)
	decl := declNamed(idx, "M")
	require.NotNil(t, decl)
	owner := TableOwner(luatype.TableLiteral{File: testFile, Pos: decl.Value.Pos()})
	var names []string
	for _, m := range idx.Members {
		if m.Owner == owner {
			names = append(names, m.Name)
		}
	}
	assert.Equal(t, []string{"name", "key", "extra", "run"}, names)
}

func TestAnalyzeGlobalTableMembers(t *testing.T) {
	idx := analyzeSource(t, `lib.sub.value = 1
function lib.sub.f() end
`)
	owner := GlobalOwner("lib.sub")
	assert.Equal(t, MemberAssign, findMember(t, idx, owner, "value").Kind)
	assert.Equal(t, MemberMethod, findMember(t, idx, owner, "f").Kind)
}

func TestAnalyzeProperties(t *testing.T) {
	idx := analyzeSource(t, `---Adds two numbers.
---@deprecated use plus
---@nodiscard
---@version >5.3
---@source math.lua
---@export namespace
---@see other
---@see another
function add(a, b) return a + b end
`)
	require.Len(t, idx.Globals, 1)
	prop, ok := idx.Properties.Get(DeclOwner(idx.Globals[0].ID))
	require.True(t, ok)

	desc, ok := prop.Description()
	assert.True(t, ok)
	assert.Equal(t, "Adds two numbers.", desc)

	dep, ok := prop.Deprecated()
	assert.True(t, ok)
	assert.Equal(t, Deprecation{Message: "use plus", HasMessage: true}, dep)

	assert.True(t, prop.Features().Has(FeatureNoDiscard))
	assert.False(t, prop.Features().Has(FeatureReadOnly))

	conds, ok := prop.VersionConds()
	assert.True(t, ok)
	assert.Equal(t, []string{">5.3"}, conds)

	src, ok := prop.Source()
	assert.True(t, ok)
	assert.Equal(t, "math.lua", src)

	scope, ok := prop.Export()
	assert.True(t, ok)
	assert.Equal(t, ExportNamespace, scope)

	tags, ok := prop.Tags()
	assert.True(t, ok)
	assert.Equal(t, []Tag{{Name: "see", Content: "other"}, {Name: "see", Content: "another"}}, tags)
}

func TestAttributeOnClassFields(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"with declaration", `---@class A
---@field a string
---@[deprecated]
---@field b string
local A = {}
`},
		{"standalone", `---@class A
---@field a string
---@[deprecated]
---@field b string
`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			idx := analyzeSource(t, test.src)
			a := findMember(t, idx, TypeOwner("A"), "a")
			b := findMember(t, idx, TypeOwner("A"), "b")

			if prop, ok := idx.Properties.Get(MemberDeclOwner(a.ID)); ok {
				_, deprecated := prop.Deprecated()
				assert.False(t, deprecated)
			}
			assert.Empty(t, idx.Properties.AttributeUses(MemberDeclOwner(a.ID)))

			prop, ok := idx.Properties.Get(MemberDeclOwner(b.ID))
			require.True(t, ok)
			dep, ok := prop.Deprecated()
			assert.True(t, ok)
			assert.False(t, dep.HasMessage)
			assert.Equal(t,
				[]luatype.AttributeUse{{Type: AttributeDeprecated}},
				idx.Properties.AttributeUses(MemberDeclOwner(b.ID)))

			if prop, ok := idx.Properties.Get(TypeDeclOwner("A")); ok {
				_, deprecated := prop.Deprecated()
				assert.False(t, deprecated, "the class itself is not deprecated")
			}
			assert.Empty(t, idx.Diagnostics)
		})
	}
}

func TestAttributeOwnerFallsBackToComment(t *testing.T) {
	idx := analyzeSource(t, `---@[readonly, nodiscard]
local config = {}
`)
	decl := declNamed(idx, "config")
	require.NotNil(t, decl)
	owner := DeclOwner(decl.ID)
	prop, ok := idx.Properties.Get(owner)
	require.True(t, ok)
	assert.True(t, prop.Features().Has(FeatureReadOnly))
	assert.True(t, prop.Features().Has(FeatureNoDiscard))
	assert.Equal(t, []luatype.AttributeUse{
		{Type: AttributeReadOnly},
		{Type: AttributeNoDiscard},
	}, idx.Properties.AttributeUses(owner))
	require.Len(t, idx.Attributes, 2)
	assert.Equal(t, owner, idx.Attributes[0].Owner)
}

func TestAttributeOrphan(t *testing.T) {
	idx := analyzeSource(t, `---@[deprecated]

print("x")
`)
	assert.Equal(t, []string{CodeOrphanAttribute}, diagnosticCodes(idx))
	assert.Empty(t, idx.Attributes)
	assert.Empty(t, idx.Properties.Owners())
}

func TestAttributeArgs(t *testing.T) {
	idx := analyzeSource(t, `---@[check("s", 1, 2.5, true, nil, ..., ?)]
local v = 1
`)
	decl := declNamed(idx, "v")
	require.NotNil(t, decl)
	uses := idx.Properties.AttributeUses(DeclOwner(decl.ID))
	require.Len(t, uses, 1)
	assert.Equal(t, luatype.TypeDeclID("check"), uses[0].Type)
	assert.Equal(t, []luatype.Type{
		luatype.StringConst("s"),
		luatype.IntegerConst(1),
		luatype.Number,
		luatype.BooleanConst(true),
		luatype.Nil,
		luatype.Any,
		luatype.Nil,
	}, uses[0].Args)
}

func TestAttributeArgType(t *testing.T) {
	tests := []struct {
		lit  syntax.Literal
		want luatype.Type
	}{
		{syntax.Literal{Kind: syntax.LitString, Str: "x"}, luatype.StringConst("x")},
		{syntax.Literal{Kind: syntax.LitInt, Int: -4}, luatype.IntegerConst(-4)},
		{syntax.Literal{Kind: syntax.LitFloat, Float: 1.5}, luatype.Number},
		{syntax.Literal{Kind: syntax.LitBool, Bool: false}, luatype.BooleanConst(false)},
		{syntax.Literal{Kind: syntax.LitNil}, luatype.Nil},
		{syntax.Literal{Kind: syntax.LitDots}, luatype.Any},
		{syntax.Literal{Kind: syntax.LitQuestion}, luatype.Nil},
		{syntax.Literal{Kind: syntax.LitInvalid, Raw: "x.y"}, luatype.Unknown},
	}
	for _, test := range tests {
		t.Run(test.lit.Kind.String(), func(t *testing.T) {
			assert.Equal(t, test.want, AttributeArgType(test.lit))
		})
	}
}

func TestAttributeDeclaration(t *testing.T) {
	idx := analyzeSource(t, `---@attribute range(min: integer, max: integer?)

---@[range(1, 10)]
local n = 5
`)
	require.Len(t, idx.Types, 1)
	td := idx.Types[0]
	assert.Equal(t, TypeAttribute, td.Kind)
	assert.Equal(t, luatype.TypeDeclID("range"), td.ID)
	require.Len(t, td.Params, 2)
	assert.Equal(t, "min", td.Params[0].Name)
	assert.False(t, IsBuiltinAttribute("range"))
	assert.True(t, IsBuiltinAttribute(AttributeDeprecated))
}

func TestOrphanField(t *testing.T) {
	idx := analyzeSource(t, `---@field x number

print(1)
`)
	assert.Equal(t, []string{CodeOrphanTag}, diagnosticCodes(idx))
	assert.Empty(t, idx.Members)
}

func TestAnalyzeSyntaxErrors(t *testing.T) {
	tree := parser.Parse("bad.lua", "local = 1\nlocal ok = 2\n")
	idx := Analyze(testFile, "file:///bad.lua", WorkspaceMain, tree)
	require.NotEmpty(t, idx.Diagnostics)
	assert.Equal(t, CodeSyntaxError, idx.Diagnostics[0].Code)
	assert.NotNil(t, declNamed(idx, "ok"))
}
