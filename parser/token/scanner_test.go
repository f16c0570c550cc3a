// Copyright © 2024 The ELPS authors

package token

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerEmit(t *testing.T) {
	s := NewScanner("test.lua", "local x\n  = 1")
	assert.Equal(t, 5, s.AcceptSeq(func(c rune) bool { return c != ' ' }))
	tok := s.EmitToken(KEYWORD)
	assert.Equal(t, "local", tok.Text)
	assert.Equal(t, 0, tok.Source.Pos)
	assert.Equal(t, 1, tok.Source.Line)
	assert.Equal(t, 1, tok.Source.Col)
	assert.Equal(t, 5, tok.End.Pos)

	s.AcceptSeqAny(" ")
	s.Ignore()
	require.True(t, s.AcceptRune('x'))
	tok = s.EmitToken(NAME)
	assert.Equal(t, "x", tok.Text)
	assert.Equal(t, 7, tok.Source.Col)

	s.AcceptSpace()
	s.AcceptSeqAny(" ")
	s.Ignore()
	require.True(t, s.AcceptRune('='))
	tok = s.EmitToken(OP)
	assert.Equal(t, 2, tok.Source.Line)
	assert.Equal(t, 3, tok.Source.Col)
}

func TestScannerEOF(t *testing.T) {
	s := NewScanner("", "ab")
	require.NoError(t, s.ScanRune())
	require.NoError(t, s.ScanRune())
	assert.True(t, s.EOF())
	assert.Equal(t, io.EOF, s.ScanRune())
	assert.False(t, s.Accept(func(rune) bool { return true }))
	assert.Equal(t, 'b', s.Rune())
}

func TestScannerAcceptString(t *testing.T) {
	s := NewScanner("", "--[[ x ]]")
	assert.False(t, s.AcceptString("--[=["))
	assert.Equal(t, "", s.Text())
	assert.True(t, s.AcceptString("--[["))
	assert.Equal(t, "--[[", s.Text())
	assert.True(t, s.HasPrefix(" x"))
	c, ok := s.PeekAt(1)
	assert.True(t, ok)
	assert.Equal(t, 'x', c)
}

func TestScannerInvalidUTF8(t *testing.T) {
	s := NewScanner("", "\xff")
	_, ok := s.Peek()
	assert.False(t, ok)
	assert.Error(t, s.ScanRune())
}

func TestScannerDigits(t *testing.T) {
	s := NewScanner("", "123abc")
	assert.Equal(t, 3, s.AcceptSeqDigit())
	assert.False(t, s.AcceptDigit())
	assert.Equal(t, "123", s.Text())
}
