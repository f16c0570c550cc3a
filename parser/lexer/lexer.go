// Copyright © 2024 The ELPS authors

package lexer

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/luthersystems/emmylua/parser/token"
)

type LexFn func(*Lexer) []*token.Token

// operators ordered so that longer operators are matched first.
var operators = []string{
	"...", "..", "==", "~=", "<=", ">=", "<<", ">>", "//", "::",
	"+", "-", "*", "/", "%", "^", "#", "&", "~", "|", "<", ">", "=",
	"(", ")", "{", "}", "[", "]", ";", ":", ",", ".",
}

type Lexer struct {
	scanner *token.Scanner
	lex     LexFn
	first   bool
}

func New(s *token.Scanner) *Lexer {
	lex := &Lexer{
		scanner: s,
		lex:     (*Lexer).readToken,
		first:   true,
	}
	return lex
}

// ReadToken returns the next token.  At the end of input ReadToken returns a
// token with type token.EOF for every call.
func (lex *Lexer) ReadToken() []*token.Token {
	return lex.lex(lex)
}

// Tokens reads every remaining token, including the final EOF token.
func (lex *Lexer) Tokens() []*token.Token {
	var toks []*token.Token
	for {
		tok := lex.ReadToken()
		toks = append(toks, tok...)
		if tok[len(tok)-1].Type == token.EOF {
			return toks
		}
	}
}

func (lex *Lexer) readToken() []*token.Token {
	if lex.first {
		lex.first = false
		if lex.scanner.AcceptString("#!") {
			lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
			return lex.emitText(token.HASH_BANG)
		}
	}
	lex.skipWhitespace()
	if lex.scanner.EOF() {
		return lex.emit(token.EOF, "")
	}
	c, ok := lex.scanner.Peek()
	if !ok {
		err := lex.scanner.ScanRune()
		lex.scanner.SkipByte()
		return lex.emitError(err)
	}
	switch {
	case lex.scanner.HasPrefix("--"):
		return lex.readComment()
	case c == '"' || c == '\'':
		return lex.readString(c)
	case c == '[' && lex.longBracketLevel() >= 0:
		return lex.readLongString(token.STRING_LONG)
	case isDigit(c):
		return lex.readNumber()
	case c == '.' && isDigitAt(lex.scanner, 1):
		return lex.readNumber()
	case isWordStart(c):
		return lex.readName()
	}
	for _, op := range operators {
		if lex.scanner.AcceptString(op) {
			if op == "..." {
				return lex.emitText(token.DOTS)
			}
			return lex.emitText(token.OP)
		}
	}
	_ = lex.scanner.ScanRune()
	return lex.errorf("unexpected text starting with %q", c)
}

func (lex *Lexer) skipWhitespace() {
	lex.scanner.AcceptSeq(unicode.IsSpace)
	lex.scanner.Ignore()
}

func (lex *Lexer) readComment() []*token.Token {
	lex.scanner.AcceptString("--")
	if lex.longBracketLevel() >= 0 {
		return lex.readLongString(token.COMMENT)
	}
	typ := token.COMMENT
	if lex.scanner.HasPrefix("-") && !lex.scanner.HasPrefix("--") {
		typ = token.DOC_COMMENT
	}
	lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
	return lex.emitText(typ)
}

// longBracketLevel returns the level of a long bracket opening at the
// scanner position, [[ is level 0 and [==[ level 2.  It returns -1 when the
// input is not an opening long bracket.
func (lex *Lexer) longBracketLevel() int {
	c, ok := lex.scanner.PeekAt(0)
	if !ok || c != '[' {
		return -1
	}
	level := 0
	for {
		c, ok = lex.scanner.PeekAt(level + 1)
		if !ok {
			return -1
		}
		switch c {
		case '=':
			level++
		case '[':
			return level
		default:
			return -1
		}
	}
}

func (lex *Lexer) readLongString(typ token.Type) []*token.Token {
	level := lex.longBracketLevel()
	closing := "]" + strings.Repeat("=", level) + "]"
	lex.scanner.AcceptString("[" + strings.Repeat("=", level) + "[")
	for !lex.scanner.AcceptString(closing) {
		if lex.scanner.ScanRune() != nil {
			if typ == token.COMMENT {
				return lex.errorf("unfinished long comment")
			}
			return lex.errorf("unfinished long string")
		}
	}
	return lex.emitText(typ)
}

func (lex *Lexer) readString(quote rune) []*token.Token {
	_ = lex.scanner.ScanRune()
	for {
		if lex.scanner.AcceptRune(quote) {
			return lex.emitText(token.STRING)
		}
		c, ok := lex.scanner.Peek()
		if !ok || c == '\n' {
			return lex.errorf("unfinished string")
		}
		_ = lex.scanner.ScanRune()
		if c == '\\' {
			if lex.scanner.ScanRune() != nil {
				return lex.errorf("unfinished string")
			}
		}
	}
}

func (lex *Lexer) readNumber() []*token.Token {
	typ := token.INT
	if lex.scanner.AcceptString("0x") || lex.scanner.AcceptString("0X") {
		lex.scanner.AcceptSeq(isHexDigit)
		if lex.scanner.AcceptRune('.') {
			typ = token.FLOAT
			lex.scanner.AcceptSeq(isHexDigit)
		}
		if lex.scanner.AcceptAny("pP") {
			typ = token.FLOAT
			lex.scanner.AcceptAny("+-")
			lex.scanner.AcceptSeqDigit()
		}
	} else {
		lex.scanner.AcceptSeqDigit()
		if lex.scanner.AcceptRune('.') {
			typ = token.FLOAT
			lex.scanner.AcceptSeqDigit()
		}
		if lex.scanner.AcceptAny("eE") {
			typ = token.FLOAT
			lex.scanner.AcceptAny("+-")
			if lex.scanner.AcceptSeqDigit() == 0 {
				return lex.errorf("malformed number near %q", lex.scanner.Text())
			}
		}
	}
	if typ == token.INT {
		// LuaJIT integer suffixes: 1LL, 1ULL
		lex.scanner.AcceptSeqAny("uUlL")
	}
	if c, ok := lex.scanner.Peek(); ok && isWordStart(c) {
		lex.scanner.AcceptSeq(isWordRune)
		return lex.errorf("malformed number near %q", lex.scanner.Text())
	}
	return lex.emitText(typ)
}

func (lex *Lexer) readName() []*token.Token {
	lex.scanner.AcceptSeq(isWordRune)
	if token.Keywords[lex.scanner.Text()] {
		return lex.emitText(token.KEYWORD)
	}
	return lex.emitText(token.NAME)
}

func (lex *Lexer) emit(typ token.Type, text string) []*token.Token {
	tok := []*token.Token{{
		Type:   typ,
		Text:   text,
		Source: lex.scanner.LocStart(),
		End:    lex.scanner.Loc(),
	}}
	lex.scanner.Ignore()
	return tok
}

func (lex *Lexer) emitText(typ token.Type) []*token.Token {
	return []*token.Token{lex.scanner.EmitToken(typ)}
}

func (lex *Lexer) emitError(err error) []*token.Token {
	if err == io.EOF {
		return lex.emit(token.ERROR, "unexpected EOF")
	}
	return lex.emit(token.ERROR, err.Error())
}

func (lex *Lexer) errorf(format string, v ...interface{}) []*token.Token {
	return lex.emitError(fmt.Errorf(format, v...))
}

func isDigitAt(s *token.Scanner, n int) bool {
	c, ok := s.PeekAt(n)
	return ok && isDigit(c)
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c rune) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isWordStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isWordRune(c rune) bool {
	return isWordStart(c) || isDigit(c)
}
