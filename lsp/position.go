// Copyright © 2024 The ELPS authors

package lsp

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"
	"github.com/luthersystems/emmylua/syntax"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// lineIndex converts between byte offsets into a source and LSP positions,
// which count UTF-16 code units within a line.
type lineIndex struct {
	src    string
	starts []int
}

func newLineIndex(src string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{src: src, starts: starts}
}

// offset returns the byte offset of pos, clamped to the source.
func (li *lineIndex) offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(li.starts) {
		return len(li.src)
	}
	off := li.starts[line]
	end := len(li.src)
	if line+1 < len(li.starts) {
		end = li.starts[line+1] - 1
	}
	units := int(pos.Character)
	for off < end && units > 0 {
		r, size := utf8.DecodeRuneInString(li.src[off:end])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if n > units {
			break
		}
		units -= n
		off += size
	}
	return off
}

// position returns the LSP position of a byte offset.
func (li *lineIndex) position(offset int) protocol.Position {
	offset = max(0, min(offset, len(li.src)))
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	units := 0
	for _, r := range li.src[li.starts[line]:offset] {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
	}
	return protocol.Position{Line: safeUint(line), Character: safeUint(units)}
}

// rangeOf converts a syntax range of the indexed source.
func (li *lineIndex) rangeOf(r syntax.Range) protocol.Range {
	return protocol.Range{Start: li.position(r.Start.Offset), End: li.position(r.End.Offset)}
}

// safeUint converts a non-negative int to protocol.UInteger, clamping
// values out of range.
func safeUint(n int) protocol.UInteger {
	u, err := safecast.Conv[protocol.UInteger](n)
	if err != nil {
		if n < 0 {
			return 0
		}
		return protocol.UInteger(^uint32(0))
	}
	return u
}

// wordAt returns the start offset of the Lua name that ends at offset and
// the name itself.
func wordAt(src string, offset int) (int, string) {
	offset = max(0, min(offset, len(src)))
	start := offset
	for start > 0 && isNameByte(src[start-1]) {
		start--
	}
	return start, src[start:offset]
}

// pathBefore returns the dotted name path written immediately before
// offset, such as ["a", "b"] for "a.b".
func pathBefore(src string, offset int) []string {
	var path []string
	for {
		start, name := wordAt(src, offset)
		if name == "" {
			return nil
		}
		path = append([]string{name}, path...)
		if start == 0 || src[start-1] != '.' {
			return path
		}
		offset = start - 1
	}
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
