// Copyright © 2024 The ELPS authors

package lexer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unquote decodes the text of a STRING or STRING_LONG token.
func Unquote(text string) (string, error) {
	if strings.HasPrefix(text, "[") {
		return unquoteLong(text)
	}
	if len(text) < 2 || text[0] != text[len(text)-1] || (text[0] != '"' && text[0] != '\'') {
		return "", fmt.Errorf("invalid string literal: %s", text)
	}
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("unfinished escape sequence")
		}
		switch c = body[i]; c {
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n', '\n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '\\', '"', '\'':
			b.WriteByte(c)
		case 'z':
			for i+1 < len(body) && isSpaceByte(body[i+1]) {
				i++
			}
		case 'x':
			if i+2 >= len(body) {
				return "", fmt.Errorf("hexadecimal digit expected")
			}
			x, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("hexadecimal digit expected")
			}
			b.WriteByte(byte(x))
			i += 2
		case 'u':
			end := strings.IndexByte(body[i:], '}')
			if i+1 >= len(body) || body[i+1] != '{' || end < 0 {
				return "", fmt.Errorf("missing '{' or '}' in \\u{xxxx}")
			}
			x, err := strconv.ParseUint(body[i+2:i+end], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape")
			}
			b.WriteRune(rune(x))
			i += end
		default:
			if !isDigitByte(c) {
				return "", fmt.Errorf("invalid escape sequence '\\%c'", c)
			}
			j := i
			for j < len(body) && j < i+3 && isDigitByte(body[j]) {
				j++
			}
			x, err := strconv.Atoi(body[i:j])
			if err != nil || x > 255 {
				return "", fmt.Errorf("decimal escape too large")
			}
			b.WriteByte(byte(x))
			i = j - 1
		}
	}
	return b.String(), nil
}

func unquoteLong(text string) (string, error) {
	open := strings.IndexByte(text[1:], '[')
	if open < 0 {
		return "", fmt.Errorf("invalid long string: %s", text)
	}
	level := open
	body := text[level+2:]
	if len(body) < level+2 {
		return "", fmt.Errorf("invalid long string: %s", text)
	}
	body = body[:len(body)-level-2]
	if strings.HasPrefix(body, "\r\n") {
		body = body[2:]
	} else if strings.HasPrefix(body, "\n") {
		body = body[1:]
	}
	return body, nil
}

// ParseInt parses the text of an INT token.  Hexadecimal literals wrap
// around on overflow.  ok is false when a decimal literal does not fit in an
// integer, in which case the value should be read as a float.
func ParseInt(text string) (n int64, ok bool) {
	text = strings.TrimRight(text, "uUlL")
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		var x uint64
		for _, c := range text[2:] {
			x = x<<4 | uint64(hexValue(c))
		}
		return int64(x), true
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFloat parses the text of a FLOAT token, or of an INT token too large
// for an integer.
func ParseFloat(text string) (float64, error) {
	text = strings.TrimRight(text, "uUlL")
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		if !strings.ContainsAny(text, "pP") {
			text += "p0"
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !math.IsInf(f, 0) {
		return 0, err
	}
	return f, nil
}

func hexValue(c rune) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigitByte(c byte) bool {
	return '0' <= c && c <= '9'
}
