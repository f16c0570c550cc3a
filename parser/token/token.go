// Copyright © 2024 The ELPS authors

package token

import "fmt"

// Source is an abstract stream of tokens which allows one token lookahead.
type Source interface {
	// Token returns the current token.  Token returns nil if Scan has not been
	// called.
	Token() *Token
	// Peek returns the next token in the stream.  At the end of the stream
	// Peek should return a value to indicate the lack of a token (EOF).
	Peek() *Token
	// Scan advances the token stream if possible.  If there are no tokens
	// remaining Scan returns false.
	Scan() bool
}

type Token struct {
	Type   Type
	Text   string
	Source *Location
	End    *Location
}

// Is reports whether tok has type typ and, when text is non-empty, the
// given text.
func (tok *Token) Is(typ Type, text string) bool {
	return tok.Type == typ && (text == "" || tok.Text == text)
}

type Type uint

// Type constants used for the Lua lexer/parser.  Keywords and operators
// are distinguished by their token text.
const (
	INVALID Type = iota
	ERROR
	EOF

	HASH_BANG

	NAME
	KEYWORD
	INT
	FLOAT
	STRING
	STRING_LONG

	COMMENT
	DOC_COMMENT

	OP
	DOTS

	numTokenTypes
)

func (typ Type) String() string {
	typeStrings := [numTokenTypes]string{
		INVALID:     "invalid",
		ERROR:       "error",
		EOF:         "EOF",
		HASH_BANG:   "#!",
		NAME:        "name",
		KEYWORD:     "keyword",
		INT:         "int",
		FLOAT:       "float",
		STRING:      "string",
		STRING_LONG: "long-string",
		COMMENT:     "--",
		DOC_COMMENT: "---",
		OP:          "operator",
		DOTS:        "...",
	}
	if typ >= numTokenTypes {
		return typeStrings[INVALID]
	}
	return typeStrings[typ]
}

// Keywords of the Lua language.
var Keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

type Location struct {
	File string // a name representing the source stream
	Path string // a physical location which may differ from File
	Pos  int
	Line int // line number (starting at 1 when tracked)
	Col  int // line column number (starting at 1 when tracked)
}

func (loc *Location) String() string {
	switch {
	case loc.Pos < 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

type LocationError struct {
	Err    error
	Source *Location
}

func (err *LocationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *LocationError) Unwrap() error {
	return err.Err
}
