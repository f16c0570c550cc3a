// Copyright © 2024 The ELPS authors

/*
Package doc parses EmmyLua doc comments.

Doc type expressions follow the grammar

	type     := postfix ('|' postfix)*
	postfix  := primary ('[]' | '?')*
	primary  := function | table | '(' type ')' | string | integer | boolean
	          | name '<' type (',' type)* '>' | name
	function := 'fun' '(' (param (',' param)*)? ')' (':' type (',' type)*)?
	param    := (name | '...') '?'? (':' type)?
	table    := '{' (field (',' field)*)? '}'
	field    := (name | '[' type ']') '?'? ':' type
*/
package doc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luthersystems/emmylua/luatype"
	parsec "github.com/prataprc/goparsec"
)

// maximum number of bytes of unparsed text quoted in error messages
const quoteLimit = 16

type returnList struct {
	types []luatype.Type
}

type suffix string

type paramList struct {
	params []luatype.Param
}

var typeParser = newTypeParser()

func newTypeParser() parsec.Parser {
	openP := parsec.Atom("(", "OPENP")
	closeP := parsec.Atom(")", "CLOSEP")
	openA := parsec.Atom("<", "OPENA")
	closeA := parsec.Atom(">", "CLOSEA")
	openC := parsec.Atom("{", "OPENC")
	closeC := parsec.Atom("}", "CLOSEC")
	openB := parsec.Atom("[", "OPENB")
	closeB := parsec.Atom("]", "CLOSEB")
	comma := parsec.Atom(",", "COMMA")
	colon := parsec.Atom(":", "COLON")
	bar := parsec.Atom("|", "BAR")
	question := parsec.Atom("?", "QUESTION")
	dots := parsec.Atom("...", "DOTS")
	arraySuffix := parsec.Atom("[]", "ARRAY")
	fun := parsec.Token(`fun\b`, "FUN")
	name := parsec.Token(`[A-Za-z_][A-Za-z0-9_.]*`, "NAME")
	str := parsec.Token(`"[^"]*"|'[^']*'`, "STRING")
	integer := parsec.Token(`-?[0-9]+\b`, "INT")

	var typ parsec.Parser // forward declaration allows for recursive parsing

	paramName := parsec.OrdChoice(nil, dots, name)
	param := parsec.And(buildParam,
		paramName,
		parsec.Maybe(nil, question),
		parsec.Maybe(nil, parsec.And(nil, colon, &typ)),
	)
	params := parsec.Kleene(buildParams, param, comma)
	returns := parsec.And(buildReturns, colon, parsec.Kleene(nil, &typ, comma))
	function := parsec.And(buildFunction,
		fun, openP, params, closeP, parsec.Maybe(nil, returns),
	)

	fieldKey := parsec.OrdChoice(nil, name, parsec.And(nil, openB, &typ, closeB))
	field := parsec.And(nil, fieldKey, parsec.Maybe(nil, question), colon, &typ)
	table := parsec.And(buildTable, openC, parsec.Kleene(nil, field, comma), closeC)

	paren := parsec.And(buildParen, openP, &typ, closeP)
	generic := parsec.And(buildGeneric, name, openA, parsec.Kleene(nil, &typ, comma), closeA)
	literal := parsec.OrdChoice(buildLiteral, str, integer)
	named := parsec.And(buildName, name)

	primary := parsec.OrdChoice(nil, function, table, paren, literal, generic, named)
	suffixes := parsec.Kleene(nil, parsec.OrdChoice(buildSuffix, arraySuffix, question))
	postfix := parsec.And(buildPostfix, primary, suffixes)
	typ = parsec.And(buildUnion, postfix, parsec.Kleene(nil, parsec.And(nil, bar, postfix)))
	return typ
}

// ParseType parses a doc type expression at the beginning of text.  It
// returns the type and the unparsed remainder of text.
func ParseType(text string) (luatype.Type, string, error) {
	s := parsec.NewScanner([]byte(text))
	root, s := typeParser(s)
	t, ok := asType(root)
	if !ok {
		return nil, text, fmt.Errorf("expected type: %s", quote(text))
	}
	return t, text[s.GetCursor():], nil
}

// ParseTypeList parses a comma separated list of types.
func ParseTypeList(text string) ([]luatype.Type, string, error) {
	var types []luatype.Type
	for {
		t, rest, err := ParseType(text)
		if err != nil {
			return types, text, err
		}
		types = append(types, t)
		trimmed := strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(trimmed, ",") {
			return types, rest, nil
		}
		text = trimmed[1:]
	}
}

// ParseParams parses the parenthesized parameter list of an attribute
// definition, "(a: string, b?: integer)".
func ParseParams(text string) ([]luatype.Param, string, error) {
	sig, rest, err := ParseType("fun" + text)
	if err != nil {
		return nil, text, fmt.Errorf("expected parameter list: %s", quote(text))
	}
	f, ok := sig.(*luatype.FunctionType)
	if !ok {
		return nil, text, fmt.Errorf("expected parameter list: %s", quote(text))
	}
	return f.Params, rest, nil
}

func quote(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > quoteLimit {
		text = text[:quoteLimit] + "..."
	}
	return strconv.Quote(text)
}

func asType(n parsec.ParsecNode) (luatype.Type, bool) {
	switch n := unwrap(n).(type) {
	case luatype.Type:
		return n, true
	}
	return nil, false
}

// unwrap removes the single element slices produced by combinators without
// a callback.
func unwrap(n parsec.ParsecNode) parsec.ParsecNode {
	for {
		nodes, ok := n.([]parsec.ParsecNode)
		if !ok || len(nodes) != 1 {
			return n
		}
		n = nodes[0]
	}
}

func terminal(n parsec.ParsecNode) (*parsec.Terminal, bool) {
	t, ok := unwrap(n).(*parsec.Terminal)
	return t, ok
}

func collectTypes(n parsec.ParsecNode) []luatype.Type {
	var types []luatype.Type
	var walk func(parsec.ParsecNode)
	walk = func(n parsec.ParsecNode) {
		switch n := n.(type) {
		case luatype.Type:
			types = append(types, n)
		case []parsec.ParsecNode:
			for _, c := range n {
				walk(c)
			}
		}
	}
	walk(n)
	return types
}

func nameType(name string) luatype.Type {
	switch name {
	case "true":
		return luatype.BooleanConst(true)
	case "false":
		return luatype.BooleanConst(false)
	}
	if b, ok := luatype.LookupBasic(name); ok {
		return b
	}
	return luatype.Ref(name)
}

func buildName(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, ok := terminal(nodes[0])
	if !ok {
		return luatype.Unknown
	}
	return nameType(t.GetValue())
}

func buildLiteral(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, ok := terminal(nodes[0])
	if !ok {
		return luatype.Unknown
	}
	switch t.GetName() {
	case "STRING":
		v := t.GetValue()
		return luatype.StringConst(v[1 : len(v)-1])
	case "INT":
		x, err := strconv.ParseInt(t.GetValue(), 10, 64)
		if err != nil {
			return luatype.Integer
		}
		return luatype.IntegerConst(x)
	}
	return luatype.Unknown
}

func buildGeneric(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, _ := terminal(nodes[0])
	args := collectTypes(nodes[2])
	name := t.GetValue()
	switch {
	case name == "table" && len(args) == 2:
		return &luatype.TableOf{Key: args[0], Value: args[1]}
	case name == "table" && len(args) == 1:
		return &luatype.TableOf{Key: luatype.Integer, Value: args[0]}
	}
	return &luatype.Generic{Base: luatype.TypeDeclID(name), Args: args}
}

func buildParen(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, ok := asType(nodes[1])
	if !ok {
		return luatype.Unknown
	}
	return t
}

func buildTable(nodes []parsec.ParsecNode) parsec.ParsecNode {
	return luatype.Table
}

func buildSuffix(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, ok := terminal(nodes[0])
	if !ok {
		return suffix("")
	}
	return suffix(t.GetValue())
}

func buildPostfix(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, ok := asType(nodes[0])
	if !ok {
		return luatype.Unknown
	}
	var walk func(parsec.ParsecNode)
	walk = func(n parsec.ParsecNode) {
		switch n := n.(type) {
		case suffix:
			switch n {
			case "[]":
				t = &luatype.Array{Elem: t}
			case "?":
				t = luatype.NewUnion(t, luatype.Nil)
			}
		case []parsec.ParsecNode:
			for _, c := range n {
				walk(c)
			}
		}
	}
	walk(nodes[1])
	return t
}

func buildUnion(nodes []parsec.ParsecNode) parsec.ParsecNode {
	return luatype.NewUnion(collectTypes(nodes)...)
}

func buildParam(nodes []parsec.ParsecNode) parsec.ParsecNode {
	var p luatype.Param
	if t, ok := terminal(nodes[0]); ok {
		p.Name = t.GetValue()
	}
	optional := false
	if t, ok := terminal(nodes[1]); ok && t.GetValue() == "?" {
		optional = true
	}
	if types := collectTypes(nodes[2]); len(types) > 0 {
		p.Type = types[0]
	}
	if optional {
		if p.Type == nil {
			p.Type = luatype.Any
		}
		p.Type = luatype.NewUnion(p.Type, luatype.Nil)
	}
	return p
}

func buildParams(nodes []parsec.ParsecNode) parsec.ParsecNode {
	list := paramList{}
	for _, n := range nodes {
		if p, ok := unwrap(n).(luatype.Param); ok {
			list.params = append(list.params, p)
		}
	}
	return list
}

func buildReturns(nodes []parsec.ParsecNode) parsec.ParsecNode {
	return returnList{types: collectTypes(nodes[1])}
}

func buildFunction(nodes []parsec.ParsecNode) parsec.ParsecNode {
	f := &luatype.FunctionType{}
	if params, ok := unwrap(nodes[2]).(paramList); ok {
		f.Params = params.params
	}
	if ret, ok := unwrap(nodes[4]).(returnList); ok {
		f.Returns = ret.types
	}
	if len(f.Params) > 0 && f.Params[0].Name == "self" {
		f.Colon = true
		f.Params = f.Params[1:]
	}
	return f
}
