// Copyright © 2024 The ELPS authors

package parser

import (
	"testing"

	"github.com/luthersystems/emmylua/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *syntax.Node {
	t.Helper()
	tree := Parse("test.lua", src)
	for _, err := range tree.Errors {
		t.Errorf("unexpected error: %v", err)
	}
	block := tree.Root.Child(0)
	require.NotNil(t, block)
	require.Equal(t, syntax.KindBlock, block.Kind())
	return block
}

func kinds(nodes []*syntax.Node) []syntax.Kind {
	ks := make([]syntax.Kind, 0, len(nodes))
	for _, n := range nodes {
		ks = append(ks, n.Kind())
	}
	return ks
}

func TestParseStatements(t *testing.T) {
	block := parseOK(t, `
local a, b <const> = 1, "x"
x = a
t.f, t[1] = 1, 2
function M.f(a, ...) end
function M:m() return self end
local function g() end
print("hi")
if a then elseif b then else end
while true do break end
repeat until false
for i = 1, 10, 2 do end
for k, v in pairs(t) do end
do goto done end
::done::
return a
`)
	assert.Equal(t, []syntax.Kind{
		syntax.KindLocalStat,
		syntax.KindAssignStat,
		syntax.KindAssignStat,
		syntax.KindFuncStat,
		syntax.KindFuncStat,
		syntax.KindLocalFuncStat,
		syntax.KindCallStat,
		syntax.KindIfStat,
		syntax.KindWhileStat,
		syntax.KindRepeatStat,
		syntax.KindNumericForStat,
		syntax.KindGenericForStat,
		syntax.KindDoStat,
		syntax.KindLabelStat,
		syntax.KindReturnStat,
	}, kinds(block.Children()))

	local := block.Child(0)
	names := syntax.LocalNames(local)
	require.Len(t, names, 2)
	assert.Equal(t, "a", names[0].Text())
	assert.Nil(t, names[0].Payload())
	assert.Equal(t, syntax.LocalAttrib("const"), names[1].Payload())
	assert.Len(t, syntax.LocalValues(local), 2)

	assign := block.Child(2)
	targets := syntax.AssignTargets(assign)
	require.Len(t, targets, 2)
	assert.Equal(t, syntax.IndexDot, targets[0].Style())
	assert.Equal(t, "f", targets[0].Text())
	assert.Equal(t, syntax.IndexBracket, targets[1].Style())
	assert.Len(t, syntax.AssignValues(assign), 2)

	fn := block.Child(3)
	closure := fn.Child(1)
	require.Equal(t, syntax.KindClosureExpr, closure.Kind())
	assert.False(t, closure.Payload().(syntax.FuncInfo).Colon)
	params := closure.ChildOfKind(syntax.KindParamList).Children()
	require.Len(t, params, 2)
	assert.Equal(t, "...", params[1].Text())

	method := block.Child(4)
	assert.Equal(t, syntax.IndexColon, method.Child(0).Style())
	assert.True(t, method.Child(1).Payload().(syntax.FuncInfo).Colon)

	forIn := block.Child(11)
	assert.Equal(t, syntax.ForInfo{Names: 2}, forIn.Payload())

	ifStat := block.Child(7)
	assert.Equal(t, []syntax.Kind{
		syntax.KindNameExpr,
		syntax.KindBlock,
		syntax.KindElseIfClause,
		syntax.KindElseClause,
	}, kinds(ifStat.Children()))
}

func firstValue(t *testing.T, src string) *syntax.Node {
	t.Helper()
	block := parseOK(t, "local x = "+src)
	vals := syntax.LocalValues(block.Child(0))
	require.Len(t, vals, 1)
	return vals[0]
}

// sexpr renders an expression tree compactly for precedence assertions.
func sexpr(n *syntax.Node) string {
	switch n.Kind() {
	case syntax.KindBinaryExpr:
		return "(" + sexpr(n.Child(0)) + " " + n.Text() + " " + sexpr(n.Child(1)) + ")"
	case syntax.KindUnaryExpr:
		return "(" + n.Text() + " " + sexpr(n.Child(0)) + ")"
	case syntax.KindParenExpr:
		return sexpr(n.Child(0))
	}
	return n.Text()
}

func TestParseExprPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"a .. b .. c", "(a .. (b .. c))"},
		{"2 ^ 3 ^ 2", "(2 ^ (3 ^ 2))"},
		{"-x ^ 2", "(- (x ^ 2))"},
		{"not a == b", "((not a) == b)"},
		{"a or b and c", "(a or (b and c))"},
		{"a < b or c", "((a < b) or c)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"#t - 1", "((# t) - 1)"},
		{"a | b ~ c & d << 1", "(a | (b ~ (c & (d << 1))))"},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			assert.Equal(t, test.want, sexpr(firstValue(t, test.src)))
		})
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want syntax.Literal
	}{
		{"42", syntax.Literal{Kind: syntax.LitInt, Raw: "42", Int: 42}},
		{"0x10", syntax.Literal{Kind: syntax.LitInt, Raw: "0x10", Int: 16}},
		{"1.5", syntax.Literal{Kind: syntax.LitFloat, Raw: "1.5", Float: 1.5}},
		{"9223372036854775808", syntax.Literal{Kind: syntax.LitFloat, Raw: "9223372036854775808", Float: 9223372036854775808}},
		{`"a\tb"`, syntax.Literal{Kind: syntax.LitString, Raw: `"a\tb"`, Str: "a\tb"}},
		{"[[raw]]", syntax.Literal{Kind: syntax.LitString, Raw: "[[raw]]", Str: "raw"}},
		{"true", syntax.Literal{Kind: syntax.LitBool, Raw: "true", Bool: true}},
		{"false", syntax.Literal{Kind: syntax.LitBool, Raw: "false"}},
		{"nil", syntax.Literal{Kind: syntax.LitNil, Raw: "nil"}},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			n := firstValue(t, test.src)
			require.Equal(t, syntax.KindLiteralExpr, n.Kind())
			lit, ok := n.Literal()
			require.True(t, ok)
			assert.Equal(t, test.want, lit)
		})
	}
}

func TestParseTable(t *testing.T) {
	n := firstValue(t, `{ a = 1, ["b"] = 2; 3, }`)
	require.Equal(t, syntax.KindTableExpr, n.Kind())
	fields := n.Children()
	require.Len(t, fields, 3)
	assert.Equal(t, syntax.FieldNamed, fields[0].Payload())
	assert.Equal(t, "a", fields[0].Text())
	assert.Equal(t, syntax.FieldKeyed, fields[1].Payload())
	assert.Len(t, fields[1].Children(), 2)
	assert.Equal(t, syntax.FieldPositional, fields[2].Payload())
}

func TestParseCalls(t *testing.T) {
	block := parseOK(t, `
obj:method(1, 2)
f "str"
f { 1 }
a.b.c(x)(y)
`)
	require.Len(t, block.Children(), 4)

	call := block.Child(0).Child(0)
	require.Equal(t, syntax.KindCallExpr, call.Kind())
	assert.True(t, syntax.IsColonCall(call))
	assert.Equal(t, "method", call.Child(0).Text())
	assert.Len(t, syntax.CallArgs(call), 2)

	strCall := block.Child(1).Child(0)
	assert.False(t, syntax.IsColonCall(strCall))
	args := syntax.CallArgs(strCall)
	require.Len(t, args, 1)
	lit, _ := args[0].Literal()
	assert.Equal(t, "str", lit.Str)

	tblCall := block.Child(2).Child(0)
	require.Len(t, syntax.CallArgs(tblCall), 1)
	assert.Equal(t, syntax.KindTableExpr, syntax.CallArgs(tblCall)[0].Kind())

	chained := block.Child(3).Child(0)
	require.Equal(t, syntax.KindCallExpr, chained.Kind())
	assert.Equal(t, syntax.KindCallExpr, chained.Child(0).Kind())
}

func TestParseDocComments(t *testing.T) {
	block := parseOK(t, `---@class A
---@field x integer
local A = {}

---detached

---@type string
local s = ""
---trailing
`)
	assert.Equal(t, []syntax.Kind{
		syntax.KindComment,
		syntax.KindLocalStat,
		syntax.KindComment,
		syntax.KindComment,
		syntax.KindLocalStat,
		syntax.KindComment,
	}, kinds(block.Children()))

	first := block.Child(0)
	owner, ok := syntax.CommentOwner(first)
	require.True(t, ok)
	assert.Equal(t, block.Child(1), owner)
	comment, ok := syntax.Comment(block.Child(1))
	require.True(t, ok)
	assert.Equal(t, first, comment)
	assert.Len(t, first.Children(), 2)

	_, ok = syntax.CommentOwner(block.Child(2))
	assert.False(t, ok)
	_, ok = syntax.CommentOwner(block.Child(3))
	assert.True(t, ok)
	_, ok = syntax.CommentOwner(block.Child(5))
	assert.False(t, ok)
}

func TestParseDocCommentSeparatedByBlankLine(t *testing.T) {
	block := parseOK(t, "---@type string\n\nlocal s\n")
	require.Len(t, block.Children(), 2)
	_, ok := syntax.CommentOwner(block.Child(0))
	assert.False(t, ok)
}

func TestParseNestedDocComments(t *testing.T) {
	block := parseOK(t, `function f()
  ---@type integer
  local n = 1
end
`)
	body := block.Child(0).Child(1).ChildOfKind(syntax.KindBlock)
	require.NotNil(t, body)
	assert.Equal(t, []syntax.Kind{syntax.KindComment, syntax.KindLocalStat}, kinds(body.Children()))
}

func TestParseErrorRecovery(t *testing.T) {
	tree := Parse("bad.lua", `local = 1
local ok = 2
x +
y = 3
`)
	require.NotEmpty(t, tree.Errors)
	assert.Equal(t, 1, tree.Errors[0].Range.Start.Line)

	block := tree.Root.Child(0)
	var found bool
	for _, stat := range block.Children() {
		if stat.Kind() != syntax.KindLocalStat {
			continue
		}
		names := syntax.LocalNames(stat)
		if len(names) == 1 && names[0].Text() == "ok" {
			found = true
		}
	}
	assert.True(t, found, "statement after the error should parse")
}

func TestParseStrayEnd(t *testing.T) {
	tree := Parse("stray.lua", "end\nlocal a = 1\n")
	require.Len(t, tree.Errors, 1)
	assert.Contains(t, tree.Errors[0].Msg, "'end'")
	block := tree.Root.Child(0)
	require.Len(t, block.Children(), 1)
	assert.Equal(t, syntax.KindLocalStat, block.Child(0).Kind())
}

func TestParseNotAStatement(t *testing.T) {
	tree := Parse("x.lua", "a.b\n")
	require.Len(t, tree.Errors, 1)
	assert.Contains(t, tree.Errors[0].Msg, "not a statement")
}

func TestParseRanges(t *testing.T) {
	src := "local value = call(1)\n"
	block := parseOK(t, src)
	stat := block.Child(0)
	assert.Equal(t, 0, stat.Range().Start.Offset)
	assert.Equal(t, len("local value = call(1)"), stat.Range().End.Offset)
	call := syntax.LocalValues(stat)[0]
	assert.Equal(t, "call(1)", src[call.Range().Start.Offset:call.Range().End.Offset])
	name := syntax.LocalNames(stat)[0]
	assert.Equal(t, 1, name.Range().Start.Line)
	assert.Equal(t, 7, name.Range().Start.Col)
}
