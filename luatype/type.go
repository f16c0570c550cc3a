// Copyright © 2024 The ELPS authors

// Package luatype defines the closed set of types the analyzer reasons
// about.  Types are immutable values; composite types are shared by pointer
// and must be compared with Equal rather than ==.
package luatype

import (
	"strconv"
)

// Type is a Lua type as understood by the analyzer.  The set of
// implementations is closed.
type Type interface {
	String() string
	isType()
}

// FileID identifies a source file within a database.
type FileID uint32

// TypeDeclID identifies a named type declaration by its fully qualified
// name.  Every occurrence of the same name maps to the same id.
type TypeDeclID string

func (id TypeDeclID) String() string {
	return string(id)
}

// SignatureID identifies a function body by its file and source offset.
type SignatureID struct {
	File FileID
	Pos  int
}

// Basic is one of the built-in primitive types.
type Basic uint8

// Basic types.  SelfInfer stands for the implicit receiver of a method.
const (
	Unknown Basic = iota
	Any
	Nil
	Boolean
	Number
	Integer
	String
	Table
	Function
	Userdata
	Thread
	SelfInfer
	numBasic
)

var basicNames = [numBasic]string{
	Unknown:   "unknown",
	Any:       "any",
	Nil:       "nil",
	Boolean:   "boolean",
	Number:    "number",
	Integer:   "integer",
	String:    "string",
	Table:     "table",
	Function:  "function",
	Userdata:  "userdata",
	Thread:    "thread",
	SelfInfer: "self",
}

func (b Basic) String() string {
	if b >= numBasic {
		return basicNames[Unknown]
	}
	return basicNames[b]
}

func (Basic) isType() {}

// LookupBasic returns the basic type spelled name in doc annotations.
func LookupBasic(name string) (Basic, bool) {
	switch name {
	case "bool":
		return Boolean, true
	case "int":
		return Integer, true
	case "void":
		return Nil, true
	}
	for i, s := range basicNames {
		if s == name {
			return Basic(i), true
		}
	}
	return Unknown, false
}

// StringConst is a string literal type.
type StringConst string

func (s StringConst) String() string { return strconv.Quote(string(s)) }
func (StringConst) isType()          {}

// IntegerConst is an integer literal type.
type IntegerConst int64

func (n IntegerConst) String() string { return strconv.FormatInt(int64(n), 10) }
func (IntegerConst) isType()          {}

// FloatConst is a float literal type.
type FloatConst float64

func (f FloatConst) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (FloatConst) isType()          {}

// BooleanConst is the type of the literal true or false.
type BooleanConst bool

func (b BooleanConst) String() string { return strconv.FormatBool(bool(b)) }
func (BooleanConst) isType()          {}

// Ref is a nominal reference to a declared class, alias, enum or attribute.
// Refs are resolved lazily through the type index.
type Ref TypeDeclID

func (r Ref) String() string { return string(r) }
func (Ref) isType()          {}

// ID returns the declaration id r refers to.
func (r Ref) ID() TypeDeclID { return TypeDeclID(r) }

// Signature refers to the signature of a function body declared in source.
type Signature SignatureID

func (s Signature) String() string { return "function" }
func (Signature) isType()          {}

// TableLiteral is the type of a table constructor expression.  Its fields
// are the members owned by the constructor.
type TableLiteral struct {
	File FileID
	Pos  int
}

func (TableLiteral) String() string { return "table" }
func (TableLiteral) isType()        {}

// TemplateRef refers to the generic parameter at Index of the enclosing
// class or function.
type TemplateRef struct {
	Name  string
	Index int
}

func (t TemplateRef) String() string { return t.Name }
func (TemplateRef) isType()          {}

// Array is the type T[].
type Array struct {
	Elem Type
}

func (a *Array) String() string {
	if _, ok := a.Elem.(*Union); ok {
		return "(" + a.Elem.String() + ")[]"
	}
	if _, ok := a.Elem.(*FunctionType); ok {
		return "(" + a.Elem.String() + ")[]"
	}
	return a.Elem.String() + "[]"
}

func (*Array) isType() {}

// TableOf is the generic table type table<K, V>.
type TableOf struct {
	Key   Type
	Value Type
}

func (t *TableOf) String() string {
	return "table<" + t.Key.String() + ", " + t.Value.String() + ">"
}

func (*TableOf) isType() {}

// Generic is an instantiation of a generic declaration, Base<Args...>.
type Generic struct {
	Base TypeDeclID
	Args []Type
}

func (g *Generic) String() string {
	return string(g.Base) + "<" + joinTypes(g.Args, ", ") + ">"
}

func (*Generic) isType() {}

// Union is a set of alternative types.  Construct unions with NewUnion.
type Union struct {
	Types []Type
}

func (u *Union) String() string {
	return joinTypes(u.Types, "|")
}

func (*Union) isType() {}

func joinTypes(ts []Type, sep string) string {
	var s string
	for i, t := range ts {
		if i > 0 {
			s += sep
		}
		if t == nil {
			s += Any.String()
			continue
		}
		s += t.String()
	}
	return s
}
