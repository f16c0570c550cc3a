// Copyright © 2024 The ELPS authors

package parser

import (
	"github.com/luthersystems/emmylua/parser/lexer"
	"github.com/luthersystems/emmylua/parser/token"
	"github.com/luthersystems/emmylua/syntax"
)

// binary operator priorities as {left, right}.  Right associative operators
// have a lower right priority.
var binaryPriority = map[string][2]int{
	"or":  {1, 1},
	"and": {2, 2},
	"<":   {3, 3}, ">": {3, 3}, "<=": {3, 3}, ">=": {3, 3}, "~=": {3, 3}, "==": {3, 3},
	"|":  {4, 4},
	"~":  {5, 5},
	"&":  {6, 6},
	"<<": {7, 7}, ">>": {7, 7},
	"..": {9, 8},
	"+":  {10, 10}, "-": {10, 10},
	"*": {11, 11}, "/": {11, 11}, "//": {11, 11}, "%": {11, 11},
	"^": {14, 13},
}

const unaryPriority = 12

func binaryOp(tok *token.Token) (string, bool) {
	switch tok.Type {
	case token.OP:
	case token.KEYWORD:
		if tok.Text != "and" && tok.Text != "or" {
			return "", false
		}
	default:
		return "", false
	}
	_, ok := binaryPriority[tok.Text]
	return tok.Text, ok
}

func unaryOp(tok *token.Token) bool {
	switch {
	case tok.Is(token.KEYWORD, "not"):
		return true
	case tok.Type == token.OP:
		return tok.Text == "-" || tok.Text == "#" || tok.Text == "~"
	}
	return false
}

func (p *Parser) parseExpr() *syntax.Node {
	return p.parseSubExpr(0)
}

func (p *Parser) parseSubExpr(limit int) *syntax.Node {
	var left *syntax.Node
	if tok := p.peek(); unaryOp(tok) {
		p.next()
		operand := p.parseSubExpr(unaryPriority)
		left = syntax.New(syntax.KindUnaryExpr, p.rangeFrom(tok), tok.Text, nil, operand)
	} else {
		left = p.parseSimpleExpr()
	}
	for {
		op, ok := binaryOp(p.peek())
		if !ok || binaryPriority[op][0] <= limit {
			return left
		}
		p.next()
		right := p.parseSubExpr(binaryPriority[op][1])
		left = syntax.New(syntax.KindBinaryExpr, p.rangeFromNode(left), op, nil, left, right)
	}
}

func (p *Parser) parseSimpleExpr() *syntax.Node {
	tok := p.peek()
	switch {
	case tok.Type == token.INT, tok.Type == token.FLOAT:
		p.next()
		return p.numberLiteral(tok)
	case tok.Type == token.STRING, tok.Type == token.STRING_LONG:
		p.next()
		return p.stringLiteral(tok)
	case tok.Is(token.KEYWORD, "nil"):
		p.next()
		return literal(tok, syntax.Literal{Kind: syntax.LitNil, Raw: tok.Text})
	case tok.Is(token.KEYWORD, "true"), tok.Is(token.KEYWORD, "false"):
		p.next()
		return literal(tok, syntax.Literal{Kind: syntax.LitBool, Raw: tok.Text, Bool: tok.Text == "true"})
	case tok.Type == token.DOTS:
		p.next()
		return literal(tok, syntax.Literal{Kind: syntax.LitDots, Raw: tok.Text})
	case tok.Is(token.OP, "{"):
		return p.parseTable()
	case tok.Is(token.KEYWORD, "function"):
		p.next()
		return p.parseFuncBody(tok, false)
	}
	return p.parseSuffixedExpr()
}

func literal(tok *token.Token, lit syntax.Literal) *syntax.Node {
	return syntax.New(syntax.KindLiteralExpr, tokenRange(tok), tok.Text, lit)
}

func (p *Parser) numberLiteral(tok *token.Token) *syntax.Node {
	lit := syntax.Literal{Raw: tok.Text}
	if tok.Type == token.INT {
		if n, ok := lexer.ParseInt(tok.Text); ok {
			lit.Kind = syntax.LitInt
			lit.Int = n
			return literal(tok, lit)
		}
	}
	f, err := lexer.ParseFloat(tok.Text)
	if err != nil {
		p.errorAt(tok, "malformed number near '%s'", tok.Text)
	}
	lit.Kind = syntax.LitFloat
	lit.Float = f
	return literal(tok, lit)
}

func (p *Parser) stringLiteral(tok *token.Token) *syntax.Node {
	s, err := lexer.Unquote(tok.Text)
	if err != nil {
		p.errorAt(tok, "%v", err)
	}
	return literal(tok, syntax.Literal{Kind: syntax.LitString, Raw: tok.Text, Str: s})
}

func (p *Parser) parsePrimaryExpr() *syntax.Node {
	tok := p.peek()
	switch {
	case tok.Type == token.NAME:
		p.next()
		return syntax.New(syntax.KindNameExpr, tokenRange(tok), tok.Text, nil)
	case tok.Is(token.OP, "("):
		p.next()
		inner := p.parseExpr()
		p.expectOp(")")
		return syntax.New(syntax.KindParenExpr, p.rangeFrom(tok), "", nil, inner)
	}
	p.fail("unexpected symbol near %s", describe(tok))
	return nil
}

func (p *Parser) parseSuffixedExpr() *syntax.Node {
	expr := p.parsePrimaryExpr()
	for {
		tok := p.peek()
		switch {
		case tok.Is(token.OP, "."):
			p.next()
			field := p.expect(token.NAME, "")
			expr = syntax.New(syntax.KindIndexExpr, p.rangeFromNode(expr), field.Text, syntax.IndexDot, expr)
		case tok.Is(token.OP, "["):
			p.next()
			key := p.parseExpr()
			p.expectOp("]")
			expr = syntax.New(syntax.KindIndexExpr, p.rangeFromNode(expr), "", syntax.IndexBracket, expr, key)
		case tok.Is(token.OP, ":"):
			p.next()
			field := p.expect(token.NAME, "")
			method := syntax.New(syntax.KindIndexExpr, p.rangeFromNode(expr), field.Text, syntax.IndexColon, expr)
			args := p.parseCallArgs()
			expr = syntax.New(syntax.KindCallExpr, p.rangeFromNode(expr), "", nil, method, args)
		case tok.Is(token.OP, "("), tok.Is(token.OP, "{"), tok.Type == token.STRING, tok.Type == token.STRING_LONG:
			args := p.parseCallArgs()
			expr = syntax.New(syntax.KindCallExpr, p.rangeFromNode(expr), "", nil, expr, args)
		default:
			return expr
		}
	}
}

func (p *Parser) parseCallArgs() *syntax.Node {
	tok := p.peek()
	switch {
	case tok.Type == token.STRING, tok.Type == token.STRING_LONG:
		p.next()
		return syntax.New(syntax.KindArgList, tokenRange(tok), "", nil, p.stringLiteral(tok))
	case tok.Is(token.OP, "{"):
		table := p.parseTable()
		return syntax.New(syntax.KindArgList, table.Range(), "", nil, table)
	}
	open := p.expectOp("(")
	var args []*syntax.Node
	if !p.check(token.OP, ")") {
		args = p.parseExprList()
	}
	p.expectOp(")")
	return syntax.New(syntax.KindArgList, p.rangeFrom(open), "", nil, args...)
}

func (p *Parser) parseTable() *syntax.Node {
	open := p.expectOp("{")
	var fields []*syntax.Node
	for !p.check(token.OP, "}") {
		fields = append(fields, p.parseTableField())
		if !p.accept(token.OP, ",") && !p.accept(token.OP, ";") {
			break
		}
	}
	p.expectOp("}")
	return syntax.New(syntax.KindTableExpr, p.rangeFrom(open), "", nil, fields...)
}

func (p *Parser) parseTableField() *syntax.Node {
	tok := p.peek()
	switch {
	case tok.Type == token.NAME && p.peekAt(1).Is(token.OP, "="):
		p.next()
		p.next()
		value := p.parseExpr()
		return syntax.New(syntax.KindTableField, p.rangeFrom(tok), tok.Text, syntax.FieldNamed, value)
	case tok.Is(token.OP, "["):
		p.next()
		key := p.parseExpr()
		p.expectOp("]")
		p.expectOp("=")
		value := p.parseExpr()
		return syntax.New(syntax.KindTableField, p.rangeFrom(tok), "", syntax.FieldKeyed, key, value)
	}
	value := p.parseExpr()
	return syntax.New(syntax.KindTableField, p.rangeFrom(tok), "", syntax.FieldPositional, value)
}
