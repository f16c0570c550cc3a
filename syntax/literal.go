// Copyright © 2024 The ELPS authors

package syntax

// LiteralKind classifies a literal token.
type LiteralKind uint8

// Literal token kinds.  Dots is the vararg token and Question the doc-only
// '?' placeholder.
const (
	LitInvalid LiteralKind = iota
	LitString
	LitInt
	LitFloat
	LitBool
	LitNil
	LitDots
	LitQuestion
)

var litStrings = []string{
	LitInvalid:  "invalid",
	LitString:   "string",
	LitInt:      "integer",
	LitFloat:    "float",
	LitBool:     "boolean",
	LitNil:      "nil",
	LitDots:     "...",
	LitQuestion: "?",
}

func (k LiteralKind) String() string {
	if int(k) >= len(litStrings) {
		return litStrings[LitInvalid]
	}
	return litStrings[k]
}

// Literal is a decoded literal token.  Only the field matching Kind is
// meaningful; Raw always holds the source text.
type Literal struct {
	Kind  LiteralKind
	Raw   string
	Str   string
	Int   int64
	Float float64
	Bool  bool
}
