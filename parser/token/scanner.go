// Copyright © 2024 The ELPS authors

package token

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scanner facilitates construction of tokens from source text held in
// memory.
type Scanner struct {
	file string
	path string
	src  string

	start     int // offset of the first byte of the current token
	startLine int
	startCol  int

	pos  int // offset of the next rune to scan
	line int // line number at pos
	col  int // column at pos
	c    rune
}

// NewScanner initializes and returns a new Scanner over src.
func NewScanner(file string, src string) *Scanner {
	return &Scanner{
		file:      file,
		src:       src,
		line:      1,
		col:       1,
		startLine: 1,
		startCol:  1,
	}
}

// SetPath associates a physical location (e.g. filesystem path) with s to aid
// in debugging projects which scan many ungrouped files.
func (s *Scanner) SetPath(path string) {
	s.path = path
}

// EmitToken returns a token containing the text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) EmitToken(typ Type) *Token {
	tok := &Token{
		Type:   typ,
		Text:   s.Text(),
		Source: s.LocStart(),
		End:    s.Loc(),
	}
	s.Ignore()
	return tok
}

// Ignore causes the scanner to skip all text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) Ignore() {
	s.start = s.pos
	s.startLine = s.line
	s.startCol = s.col
}

// Text returns a string containing text scanned since the last call to either
// EmitToken or Ignore.
func (s *Scanner) Text() string {
	return s.src[s.start:s.pos]
}

// Rune returns the most recently scanned rune.
func (s *Scanner) Rune() rune {
	return s.c
}

// Peek returns the next rune to be scanned.  Peek returns false at the end
// of input or when the input holds an invalid utf-8 sequence.
func (s *Scanner) Peek() (rune, bool) {
	return s.PeekAt(0)
}

// PeekAt returns the rune n bytes past the next rune to be scanned.  It is
// intended for ASCII lookahead.
func (s *Scanner) PeekAt(n int) (rune, bool) {
	i := s.pos + n
	if i >= len(s.src) {
		return 0, false
	}
	c, size := utf8.DecodeRuneInString(s.src[i:])
	if c == utf8.RuneError && size == 1 {
		return utf8.RuneError, false
	}
	return c, true
}

// HasPrefix reports whether the unscanned input begins with lit.
func (s *Scanner) HasPrefix(lit string) bool {
	return strings.HasPrefix(s.src[s.pos:], lit)
}

// ScanRune scans one rune into the current token.
func (s *Scanner) ScanRune() error {
	if s.pos >= len(s.src) {
		return io.EOF
	}
	c, size := utf8.DecodeRuneInString(s.src[s.pos:])
	if c == utf8.RuneError && size == 1 {
		return fmt.Errorf("invalid utf-8 sequence in source text starting with byte %q", s.src[s.pos])
	}
	s.c = c
	s.pos += size
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col += size
	}
	return nil
}

// SkipByte advances past one byte of input that cannot be scanned as a
// rune.
func (s *Scanner) SkipByte() {
	if s.pos < len(s.src) {
		s.pos++
		s.col++
	}
}

// EOF reports whether all input has been scanned.
func (s *Scanner) EOF() bool {
	return s.pos >= len(s.src)
}

func (s *Scanner) Accept(fn func(rune) bool) bool {
	peek, ok := s.Peek()
	if !ok || !fn(peek) {
		return false
	}
	return s.ScanRune() == nil
}

func (s *Scanner) AcceptRune(c rune) bool {
	return s.Accept(func(r rune) bool { return r == c })
}

func (s *Scanner) AcceptDigit() bool {
	return s.Accept(isDigit)
}

func (s *Scanner) AcceptSpace() bool {
	return s.Accept(unicode.IsSpace)
}

func (s *Scanner) AcceptAny(charset string) bool {
	return s.Accept(func(r rune) bool { return strings.ContainsRune(charset, r) })
}

func (s *Scanner) AcceptSeq(fn func(rune) bool) int {
	var n int
	for s.Accept(fn) {
		n++
	}
	return n
}

func (s *Scanner) AcceptSeqRune(c rune) int {
	var n int
	for s.AcceptRune(c) {
		n++
	}
	return n
}

func (s *Scanner) AcceptSeqAny(charset string) int {
	var n int
	for s.AcceptAny(charset) {
		n++
	}
	return n
}

func (s *Scanner) AcceptSeqDigit() int {
	var n int
	for s.AcceptDigit() {
		n++
	}
	return n
}

// AcceptString scans literal if the input begins with it.  Nothing is
// consumed when the input does not match.
func (s *Scanner) AcceptString(literal string) bool {
	if !s.HasPrefix(literal) {
		return false
	}
	for range literal {
		if s.ScanRune() != nil {
			return false
		}
	}
	return true
}

// LocStart returns a Location referencing the beginning of the current token.
func (s *Scanner) LocStart() *Location {
	return &Location{
		File: s.file,
		Path: s.path,
		Pos:  s.start,
		Line: s.startLine,
		Col:  s.startCol,
	}
}

// Loc returns a Location referencing the current scanner position, just past
// the last scanned rune.
func (s *Scanner) Loc() *Location {
	return &Location{
		File: s.file,
		Path: s.path,
		Pos:  s.pos,
		Line: s.line,
		Col:  s.col,
	}
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}
