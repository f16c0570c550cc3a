// Copyright © 2024 The ELPS authors

package doc

import (
	"fmt"
	"strconv"

	"github.com/luthersystems/emmylua/parser/lexer"
	"github.com/luthersystems/emmylua/syntax"
	parsec "github.com/prataprc/goparsec"
)

// AttributeArg is one argument of an attribute use with its offset in the
// text handed to ParseAttributeUse.
type AttributeArg struct {
	Literal syntax.Literal
	Offset  int
	Len     int
}

// AttributeItem is one entry of an attribute use, name(args...).
type AttributeItem struct {
	Name   string
	Offset int
	Len    int
	Args   []AttributeArg
}

var attributeUseParser = newAttributeUseParser()

func newAttributeUseParser() parsec.Parser {
	openB := parsec.Atom("[", "OPENB")
	closeB := parsec.Atom("]", "CLOSEB")
	openP := parsec.Atom("(", "OPENP")
	closeP := parsec.Atom(")", "CLOSEP")
	comma := parsec.Atom(",", "COMMA")
	name := parsec.Token(`[A-Za-z_][A-Za-z0-9_.]*`, "NAME")

	str := parsec.Token(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`, "STRING")
	float := parsec.Token(`-?[0-9]+\.[0-9]*(?:[eE][+-]?[0-9]+)?|-?[0-9]+[eE][+-]?[0-9]+`, "FLOAT")
	integer := parsec.Token(`-?(?:0[xX][0-9a-fA-F]+|[0-9]+)\b`, "INT")
	boolean := parsec.Token(`(?:true|false)\b`, "BOOL")
	null := parsec.Token(`nil\b`, "NIL")
	dots := parsec.Atom("...", "DOTS")
	question := parsec.Atom("?", "QUESTION")
	other := parsec.Token(`[^,)\s]+`, "OTHER")

	arg := parsec.OrdChoice(buildAttributeArg, str, float, integer, boolean, null, dots, question, other)
	args := parsec.And(nil, openP, parsec.Kleene(nil, arg, comma), closeP)
	item := parsec.And(buildAttributeItem, name, parsec.Maybe(nil, args))
	return parsec.And(nil, openB, parsec.Kleene(nil, item, comma), closeB)
}

// ParseAttributeUse parses the attribute list of ---@[a, b(1, "x")].  text
// begins at the opening bracket.
func ParseAttributeUse(text string) ([]AttributeItem, error) {
	s := parsec.NewScanner([]byte(text))
	root, s := attributeUseParser(s)
	if root == nil {
		return nil, fmt.Errorf("malformed attribute use: %s", quote(text))
	}
	var items []AttributeItem
	var walk func(parsec.ParsecNode)
	walk = func(n parsec.ParsecNode) {
		switch n := n.(type) {
		case AttributeItem:
			items = append(items, n)
		case []parsec.ParsecNode:
			for _, c := range n {
				walk(c)
			}
		}
	}
	walk(root)
	if len(items) == 0 {
		return nil, fmt.Errorf("empty attribute use")
	}
	_, s = s.SkipWS()
	if !s.Endof() {
		return items, fmt.Errorf("unexpected text after attribute use: %s", quote(text[s.GetCursor():]))
	}
	return items, nil
}

func buildAttributeArg(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, ok := terminal(nodes[0])
	if !ok {
		return AttributeArg{Literal: syntax.Literal{Kind: syntax.LitInvalid}}
	}
	return AttributeArg{
		Literal: argLiteral(t.GetName(), t.GetValue()),
		Offset:  t.Position,
		Len:     len(t.GetValue()),
	}
}

func argLiteral(kind, raw string) syntax.Literal {
	lit := syntax.Literal{Raw: raw}
	switch kind {
	case "STRING":
		s, err := lexer.Unquote(raw)
		if err != nil {
			s = raw[1 : len(raw)-1]
		}
		lit.Kind = syntax.LitString
		lit.Str = s
	case "INT":
		x, err := strconv.ParseInt(raw, 0, 64)
		if err != nil {
			return syntax.Literal{Kind: syntax.LitInvalid, Raw: raw}
		}
		lit.Kind = syntax.LitInt
		lit.Int = x
	case "FLOAT":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return syntax.Literal{Kind: syntax.LitInvalid, Raw: raw}
		}
		lit.Kind = syntax.LitFloat
		lit.Float = f
	case "BOOL":
		lit.Kind = syntax.LitBool
		lit.Bool = raw == "true"
	case "NIL":
		lit.Kind = syntax.LitNil
	case "DOTS":
		lit.Kind = syntax.LitDots
	case "QUESTION":
		lit.Kind = syntax.LitQuestion
	default:
		lit.Kind = syntax.LitInvalid
	}
	return lit
}

func buildAttributeItem(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t, ok := terminal(nodes[0])
	if !ok {
		return AttributeItem{}
	}
	item := AttributeItem{
		Name:   t.GetValue(),
		Offset: t.Position,
		Len:    len(t.GetValue()),
	}
	var walk func(parsec.ParsecNode)
	walk = func(n parsec.ParsecNode) {
		switch n := n.(type) {
		case AttributeArg:
			item.Args = append(item.Args, n)
		case []parsec.ParsecNode:
			for _, c := range n {
				walk(c)
			}
		}
	}
	walk(nodes[1])
	return item
}
