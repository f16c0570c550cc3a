// Copyright © 2024 The ELPS authors

// Package parser builds syntax trees from Lua source text.  Doc comments
// (lines beginning with ---) are grouped and placed in the enclosing block
// ahead of the statement they document.
package parser

import (
	"fmt"

	"github.com/luthersystems/emmylua/parser/doc"
	"github.com/luthersystems/emmylua/parser/lexer"
	"github.com/luthersystems/emmylua/parser/token"
	"github.com/luthersystems/emmylua/syntax"
)

// Parse parses the Lua source text src.  Parse always returns a tree; syntax
// errors are recorded in the tree and the parser recovers at the next
// statement.
func Parse(file string, src string) *syntax.Tree {
	p := New(token.NewScanner(file, src))
	root := p.ParseChunk()
	return syntax.NewTree(file, src, root, p.errs)
}

// Parser is a recursive descent Lua parser.
type Parser struct {
	toks []*token.Token
	pos  int
	last *token.Token
	errs []*syntax.Error
}

// bailout unwinds the parser to the enclosing statement after a syntax
// error has been recorded.
type bailout struct{}

// New initializes and returns a new Parser that reads tokens from scanner.
func New(scanner *token.Scanner) *Parser {
	toks := lexer.New(scanner).Tokens()
	return &Parser{
		toks: toks,
		last: toks[0],
	}
}

// ParseChunk parses an entire file.
func (p *Parser) ParseChunk() *syntax.Node {
	first := p.toks[0]
	var stats []*syntax.Node
	for {
		block := p.parseBlock()
		stats = append(stats, block.Children()...)
		tok := p.peek()
		if tok.Is(token.EOF, "") {
			break
		}
		p.errorAt(tok, "unexpected %s", describe(tok))
		p.next()
	}
	rng := p.rangeFrom(first)
	block := syntax.New(syntax.KindBlock, rng, "", nil, stats...)
	return syntax.New(syntax.KindChunk, rng, "", nil, block)
}

// peek returns the next significant token without consuming anything.
func (p *Parser) peek() *token.Token {
	return p.peekAt(0)
}

// peekAt returns the significant token n positions past the next one.
func (p *Parser) peekAt(n int) *token.Token {
	for i := p.pos; i < len(p.toks); i++ {
		tok := p.toks[i]
		switch tok.Type {
		case token.COMMENT, token.DOC_COMMENT, token.HASH_BANG, token.ERROR, token.INVALID:
			continue
		}
		if n == 0 {
			return tok
		}
		n--
	}
	return p.toks[len(p.toks)-1]
}

// next consumes and returns the next significant token.  Comments preceding
// it are discarded.
func (p *Parser) next() *token.Token {
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		if tok.Type == token.EOF {
			return tok
		}
		p.pos++
		switch tok.Type {
		case token.COMMENT, token.DOC_COMMENT, token.HASH_BANG:
			continue
		case token.ERROR, token.INVALID:
			p.errorAt(tok, "%s", tok.Text)
			continue
		}
		p.last = tok
		return tok
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) check(typ token.Type, text string) bool {
	return p.peek().Is(typ, text)
}

func (p *Parser) accept(typ token.Type, text string) bool {
	if p.check(typ, text) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(typ token.Type, text string) *token.Token {
	if !p.check(typ, text) {
		want := text
		if want == "" {
			want = typ.String()
		}
		p.fail("%q expected near %s", want, describe(p.peek()))
	}
	return p.next()
}

func (p *Parser) expectOp(op string) *token.Token {
	return p.expect(token.OP, op)
}

func (p *Parser) expectKeyword(kw string) *token.Token {
	return p.expect(token.KEYWORD, kw)
}

func (p *Parser) errorAt(tok *token.Token, format string, v ...interface{}) {
	p.errs = append(p.errs, &syntax.Error{
		Range: tokenRange(tok),
		Msg:   fmt.Sprintf(format, v...),
	})
}

func (p *Parser) fail(format string, v ...interface{}) {
	p.errorAt(p.peek(), format, v...)
	panic(bailout{})
}

func describe(tok *token.Token) string {
	if tok.Type == token.EOF {
		return "<eof>"
	}
	return fmt.Sprintf("'%s'", tok.Text)
}

func position(loc *token.Location) syntax.Position {
	return syntax.Position{Offset: loc.Pos, Line: loc.Line, Col: loc.Col}
}

func tokenRange(tok *token.Token) syntax.Range {
	return syntax.Range{Start: position(tok.Source), End: position(tok.End)}
}

// rangeFrom returns the range from the start of tok through the last
// consumed token.
func (p *Parser) rangeFrom(tok *token.Token) syntax.Range {
	end := p.last.End
	if end.Pos < tok.Source.Pos {
		end = tok.End
	}
	return syntax.Range{Start: position(tok.Source), End: position(end)}
}

func (p *Parser) rangeFromNode(n *syntax.Node) syntax.Range {
	return syntax.Range{Start: n.Range().Start, End: position(p.last.End)}
}

func blockFollow(tok *token.Token) bool {
	switch {
	case tok.Type == token.EOF:
		return true
	case tok.Type != token.KEYWORD:
		return false
	}
	switch tok.Text {
	case "end", "else", "elseif", "until":
		return true
	}
	return false
}

func (p *Parser) parseBlock() *syntax.Node {
	start := p.peek()
	var stats []*syntax.Node
	for {
		stats = append(stats, p.parseDocComments()...)
		tok := p.peek()
		if blockFollow(tok) {
			break
		}
		if p.accept(token.OP, ";") {
			continue
		}
		if tok.Is(token.KEYWORD, "return") {
			stats = append(stats, p.parseStatSafe())
			stats = append(stats, p.parseDocComments()...)
			break
		}
		stats = append(stats, p.parseStatSafe())
	}
	rng := syntax.Range{Start: position(start.Source), End: position(start.Source)}
	if len(stats) > 0 {
		rng = syntax.Range{Start: stats[0].Range().Start, End: stats[len(stats)-1].Range().End}
	}
	return syntax.New(syntax.KindBlock, rng, "", nil, stats...)
}

// parseDocComments collects the doc comment groups ahead of the next
// significant token.  A group is a run of doc lines on consecutive lines.
// The final group is attached when the next token begins on the line after
// it and starts a statement.
func (p *Parser) parseDocComments() []*syntax.Node {
	var groups [][]*token.Token
	var group []*token.Token
	flush := func() {
		if len(group) > 0 {
			groups = append(groups, group)
			group = nil
		}
	}
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		switch tok.Type {
		case token.DOC_COMMENT:
			if len(group) > 0 && group[len(group)-1].Source.Line+1 != tok.Source.Line {
				flush()
			}
			group = append(group, tok)
		case token.COMMENT:
			flush()
		default:
			flush()
			return p.buildComments(groups)
		}
		p.pos++
	}
	flush()
	return p.buildComments(groups)
}

func (p *Parser) buildComments(groups [][]*token.Token) []*syntax.Node {
	if len(groups) == 0 {
		return nil
	}
	next := p.peek()
	nodes := make([]*syntax.Node, 0, len(groups))
	for i, g := range groups {
		lastLine := g[len(g)-1].Source.Line
		attached := i == len(groups)-1 && next.Source.Line == lastLine+1 && !blockFollow(next)
		comment, errs := doc.ParseComment(g, attached)
		p.errs = append(p.errs, errs...)
		nodes = append(nodes, comment)
	}
	return nodes
}

// parseStatSafe parses a statement, recovering from syntax errors by
// skipping to the next line that can begin a statement.
func (p *Parser) parseStatSafe() (stat *syntax.Node) {
	start := p.peek()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(bailout); !ok {
			panic(r)
		}
		p.skipStatement(start)
		stat = syntax.New(syntax.KindInvalid, p.rangeFrom(start), "", nil)
	}()
	return p.parseStat()
}

// skipStatement skips tokens until the start of a later line, always
// consuming at least one token.
func (p *Parser) skipStatement(start *token.Token) {
	line := p.peek().Source.Line
	if p.peek() == start && !p.check(token.EOF, "") {
		p.next()
	}
	for {
		tok := p.peek()
		if tok.Type == token.EOF || blockFollow(tok) || tok.Source.Line > line {
			return
		}
		p.next()
	}
}

func (p *Parser) parseStat() *syntax.Node {
	tok := p.peek()
	switch {
	case tok.Is(token.KEYWORD, "local"):
		p.next()
		if p.accept(token.KEYWORD, "function") {
			name := p.parseLocalName(false)
			body := p.parseFuncBody(p.last, false)
			return syntax.New(syntax.KindLocalFuncStat, p.rangeFrom(tok), "", nil, name, body)
		}
		return p.parseLocal(tok)
	case tok.Is(token.KEYWORD, "function"):
		p.next()
		return p.parseFunctionStat(tok)
	case tok.Is(token.KEYWORD, "return"):
		p.next()
		var exprs []*syntax.Node
		if !blockFollow(p.peek()) && !p.check(token.OP, ";") {
			exprs = p.parseExprList()
		}
		p.accept(token.OP, ";")
		return syntax.New(syntax.KindReturnStat, p.rangeFrom(tok), "", nil, exprs...)
	case tok.Is(token.KEYWORD, "if"):
		return p.parseIf()
	case tok.Is(token.KEYWORD, "while"):
		p.next()
		cond := p.parseExpr()
		p.expectKeyword("do")
		body := p.parseBlock()
		p.expectKeyword("end")
		return syntax.New(syntax.KindWhileStat, p.rangeFrom(tok), "", nil, cond, body)
	case tok.Is(token.KEYWORD, "repeat"):
		p.next()
		body := p.parseBlock()
		p.expectKeyword("until")
		cond := p.parseExpr()
		return syntax.New(syntax.KindRepeatStat, p.rangeFrom(tok), "", nil, body, cond)
	case tok.Is(token.KEYWORD, "for"):
		return p.parseFor()
	case tok.Is(token.KEYWORD, "do"):
		p.next()
		body := p.parseBlock()
		p.expectKeyword("end")
		return syntax.New(syntax.KindDoStat, p.rangeFrom(tok), "", nil, body)
	case tok.Is(token.KEYWORD, "break"):
		p.next()
		return syntax.New(syntax.KindBreakStat, p.rangeFrom(tok), "", nil)
	case tok.Is(token.KEYWORD, "goto"):
		p.next()
		label := p.expect(token.NAME, "")
		return syntax.New(syntax.KindGotoStat, p.rangeFrom(tok), label.Text, nil)
	case tok.Is(token.OP, "::"):
		p.next()
		label := p.expect(token.NAME, "")
		p.expectOp("::")
		return syntax.New(syntax.KindLabelStat, p.rangeFrom(tok), label.Text, nil)
	}
	return p.parseExprStat()
}

func (p *Parser) parseLocalName(attribs bool) *syntax.Node {
	name := p.expect(token.NAME, "")
	var attrib any
	if attribs && p.accept(token.OP, "<") {
		a := p.expect(token.NAME, "")
		if a.Text != "const" && a.Text != "close" {
			p.errorAt(a, "unknown attribute '%s'", a.Text)
		}
		p.expectOp(">")
		attrib = syntax.LocalAttrib(a.Text)
	}
	return syntax.New(syntax.KindLocalName, p.rangeFrom(name), name.Text, attrib)
}

func (p *Parser) parseLocal(start *token.Token) *syntax.Node {
	children := []*syntax.Node{p.parseLocalName(true)}
	for p.accept(token.OP, ",") {
		children = append(children, p.parseLocalName(true))
	}
	if p.accept(token.OP, "=") {
		children = append(children, p.parseExprList()...)
	}
	return syntax.New(syntax.KindLocalStat, p.rangeFrom(start), "", nil, children...)
}

func (p *Parser) parseFunctionStat(start *token.Token) *syntax.Node {
	nameTok := p.expect(token.NAME, "")
	target := syntax.New(syntax.KindNameExpr, tokenRange(nameTok), nameTok.Text, nil)
	colon := false
	for p.check(token.OP, ".") || p.check(token.OP, ":") {
		style := syntax.IndexDot
		if p.next().Text == ":" {
			style = syntax.IndexColon
			colon = true
		}
		field := p.expect(token.NAME, "")
		target = syntax.New(syntax.KindIndexExpr, p.rangeFromNode(target), field.Text, style, target)
		if colon {
			break
		}
	}
	body := p.parseFuncBody(p.last, colon)
	return syntax.New(syntax.KindFuncStat, p.rangeFrom(start), "", nil, target, body)
}

// parseFuncBody parses a parameter list and block through the closing end.
// start is the token that begins the function, used for its range.
func (p *Parser) parseFuncBody(start *token.Token, colon bool) *syntax.Node {
	open := p.expectOp("(")
	var params []*syntax.Node
	if !p.check(token.OP, ")") {
		for {
			if p.check(token.DOTS, "") {
				dots := p.next()
				params = append(params, syntax.New(syntax.KindParamName, tokenRange(dots), dots.Text, nil))
				break
			}
			name := p.expect(token.NAME, "")
			params = append(params, syntax.New(syntax.KindParamName, tokenRange(name), name.Text, nil))
			if !p.accept(token.OP, ",") {
				break
			}
		}
	}
	p.expectOp(")")
	paramList := syntax.New(syntax.KindParamList, p.rangeFrom(open), "", nil, params...)
	body := p.parseBlock()
	p.expectKeyword("end")
	return syntax.New(syntax.KindClosureExpr, p.rangeFrom(start), "", syntax.FuncInfo{Colon: colon}, paramList, body)
}

func (p *Parser) parseIf() *syntax.Node {
	start := p.expectKeyword("if")
	cond := p.parseExpr()
	p.expectKeyword("then")
	children := []*syntax.Node{cond, p.parseBlock()}
	for p.check(token.KEYWORD, "elseif") {
		tok := p.next()
		cond := p.parseExpr()
		p.expectKeyword("then")
		body := p.parseBlock()
		children = append(children, syntax.New(syntax.KindElseIfClause, p.rangeFrom(tok), "", nil, cond, body))
	}
	if p.check(token.KEYWORD, "else") {
		tok := p.next()
		body := p.parseBlock()
		children = append(children, syntax.New(syntax.KindElseClause, p.rangeFrom(tok), "", nil, body))
	}
	p.expectKeyword("end")
	return syntax.New(syntax.KindIfStat, p.rangeFrom(start), "", nil, children...)
}

func (p *Parser) parseFor() *syntax.Node {
	start := p.expectKeyword("for")
	first := p.parseLocalName(false)
	if p.accept(token.OP, "=") {
		children := []*syntax.Node{first, p.parseExpr()}
		p.expectOp(",")
		children = append(children, p.parseExpr())
		if p.accept(token.OP, ",") {
			children = append(children, p.parseExpr())
		}
		p.expectKeyword("do")
		children = append(children, p.parseBlock())
		p.expectKeyword("end")
		return syntax.New(syntax.KindNumericForStat, p.rangeFrom(start), "", nil, children...)
	}
	names := []*syntax.Node{first}
	for p.accept(token.OP, ",") {
		names = append(names, p.parseLocalName(false))
	}
	p.expectKeyword("in")
	children := append(names, p.parseExprList()...)
	p.expectKeyword("do")
	children = append(children, p.parseBlock())
	p.expectKeyword("end")
	return syntax.New(syntax.KindGenericForStat, p.rangeFrom(start), "", syntax.ForInfo{Names: len(names)}, children...)
}

// parseExprStat parses an assignment or a call statement.
func (p *Parser) parseExprStat() *syntax.Node {
	start := p.peek()
	expr := p.parseSuffixedExpr()
	if p.check(token.OP, "=") || p.check(token.OP, ",") {
		targets := []*syntax.Node{expr}
		for p.accept(token.OP, ",") {
			targets = append(targets, p.parseSuffixedExpr())
		}
		p.expectOp("=")
		for _, t := range targets {
			if t.Kind() != syntax.KindNameExpr && t.Kind() != syntax.KindIndexExpr {
				p.errs = append(p.errs, &syntax.Error{Range: t.Range(), Msg: "cannot assign to this expression"})
			}
		}
		values := p.parseExprList()
		children := append(targets, values...)
		return syntax.New(syntax.KindAssignStat, p.rangeFrom(start), "", syntax.AssignInfo{Targets: len(targets)}, children...)
	}
	if expr.Kind() != syntax.KindCallExpr {
		p.errs = append(p.errs, &syntax.Error{Range: expr.Range(), Msg: "syntax error: expression is not a statement"})
	}
	return syntax.New(syntax.KindCallStat, p.rangeFrom(start), "", nil, expr)
}

func (p *Parser) parseExprList() []*syntax.Node {
	exprs := []*syntax.Node{p.parseExpr()}
	for p.accept(token.OP, ",") {
		exprs = append(exprs, p.parseExpr())
	}
	return exprs
}
