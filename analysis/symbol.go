// Copyright © 2024 The ELPS authors

package analysis

import (
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
)

// DeclKind classifies a variable declaration.
type DeclKind int

const (
	DeclLocal  DeclKind = iota // local, local function
	DeclParam                  // function parameter, including implicit self
	DeclForVar                 // numeric and generic for variables
	DeclGlobal                 // assignment to an undeclared name
)

func (k DeclKind) String() string {
	switch k {
	case DeclLocal:
		return "local"
	case DeclParam:
		return "parameter"
	case DeclForVar:
		return "for-variable"
	case DeclGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// DeclID identifies a variable declaration by the position of its name.
type DeclID struct {
	File luatype.FileID
	Pos  int
}

// MemberID identifies a member declaration by the position of its name,
// doc field tag or table field.
type MemberID struct {
	File luatype.FileID
	Pos  int
}

// Decl is a variable declaration.
type Decl struct {
	ID    DeclID
	Name  string
	Kind  DeclKind
	Range syntax.Range
	// Type is the declared type from ---@type or ---@param.  Nil when the
	// declaration is untyped.
	Type luatype.Type
	// Value is the initializing expression.  ValueIndex selects a return
	// value when Value is a call providing several names.
	Value      *syntax.Node
	ValueIndex int
	Attrib     syntax.LocalAttrib
	References int
}

// OwnerKind classifies a MemberOwner.
type OwnerKind uint8

const (
	OwnerNone   OwnerKind = iota
	OwnerType             // a class or enum
	OwnerTable            // a table constructor
	OwnerGlobal           // a global table known only by name
)

// MemberOwner is the container a member belongs to.
type MemberOwner struct {
	Kind   OwnerKind
	Type   luatype.TypeDeclID
	Table  luatype.TableLiteral
	Global string
}

func TypeOwner(id luatype.TypeDeclID) MemberOwner {
	return MemberOwner{Kind: OwnerType, Type: id}
}

func TableOwner(t luatype.TableLiteral) MemberOwner {
	return MemberOwner{Kind: OwnerTable, Table: t}
}

func GlobalOwner(name string) MemberOwner {
	return MemberOwner{Kind: OwnerGlobal, Global: name}
}

// OwnerOf returns the member owner for values of type t.
func OwnerOf(t luatype.Type) (MemberOwner, bool) {
	switch t := t.(type) {
	case luatype.Ref:
		return TypeOwner(t.ID()), true
	case *luatype.Generic:
		return TypeOwner(t.Base), true
	case luatype.TableLiteral:
		return TableOwner(t), true
	}
	return MemberOwner{}, false
}

// SelfType returns the type of self inside a method of o.
func (o MemberOwner) SelfType() luatype.Type {
	switch o.Kind {
	case OwnerType:
		return luatype.Ref(o.Type)
	case OwnerTable:
		return o.Table
	}
	return nil
}

// MemberKind classifies a member declaration.
type MemberKind int

const (
	MemberField  MemberKind = iota // ---@field
	MemberTable                    // table constructor field
	MemberAssign                   // t.x = v
	MemberMethod                   // function t.f() / function t:m()
)

// Member is a field or method of a class or table.
type Member struct {
	ID    MemberID
	Owner MemberOwner
	Name  string
	// Key is the key type of an indexed doc field, ---@field [K] V.
	Key        luatype.Type
	Kind       MemberKind
	Range      syntax.Range
	Type       luatype.Type
	Value      *syntax.Node
	Optional   bool
	Visibility string
}

// TypeDeclKind classifies a named type declaration.
type TypeDeclKind int

const (
	TypeClass TypeDeclKind = iota
	TypeAlias
	TypeEnum
	TypeAttribute
)

func (k TypeDeclKind) String() string {
	switch k {
	case TypeClass:
		return "class"
	case TypeAlias:
		return "alias"
	case TypeEnum:
		return "enum"
	case TypeAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// TypeDecl is one declaration of a named type.  A class may be declared in
// several places; each declaration contributes its supers.
type TypeDecl struct {
	ID       luatype.TypeDeclID
	Kind     TypeDeclKind
	File     luatype.FileID
	Range    syntax.Range
	Supers   []luatype.Type
	Generics []luatype.GenericParam
	// Alias is the aliased type of an alias.
	Alias luatype.Type
	// EnumKey is set for ---@enum (key).
	EnumKey bool
	// Params are the declared parameters of an attribute.
	Params []luatype.Param
}

// Signature is the analyzed form of a function body.
type Signature struct {
	ID     luatype.SignatureID
	Name   string
	Params []string
	Colon  bool
	// ParamTypes holds ---@param types by parameter name.
	ParamTypes map[string]luatype.Type
	Returns    []luatype.Type
	Overloads  []*luatype.FunctionType
	Generics   []luatype.GenericParam
	Node       *syntax.Node
}

// FunctionType returns the declared function type of sig.
func (sig *Signature) FunctionType() *luatype.FunctionType {
	f := &luatype.FunctionType{
		Returns:  sig.Returns,
		Colon:    sig.Colon,
		Generics: sig.Generics,
	}
	for _, name := range sig.Params {
		f.Params = append(f.Params, luatype.Param{Name: name, Type: sig.ParamTypes[name]})
	}
	return f
}

// Candidates returns the declared function type followed by every overload.
func (sig *Signature) Candidates() []*luatype.FunctionType {
	candidates := make([]*luatype.FunctionType, 0, len(sig.Overloads)+1)
	candidates = append(candidates, sig.FunctionType())
	return append(candidates, sig.Overloads...)
}

// SemanticDeclKind classifies a SemanticDeclID.
type SemanticDeclKind uint8

const (
	SemanticNone SemanticDeclKind = iota
	SemanticType
	SemanticDecl
	SemanticMember
	SemanticSignature
)

// SemanticDeclID is the identity of anything that can carry properties: a
// named type, a variable, a member or a signature.
type SemanticDeclID struct {
	Kind SemanticDeclKind
	Type luatype.TypeDeclID
	File luatype.FileID
	Pos  int
}

func TypeDeclOwner(id luatype.TypeDeclID) SemanticDeclID {
	return SemanticDeclID{Kind: SemanticType, Type: id}
}

func DeclOwner(id DeclID) SemanticDeclID {
	return SemanticDeclID{Kind: SemanticDecl, File: id.File, Pos: id.Pos}
}

func MemberDeclOwner(id MemberID) SemanticDeclID {
	return SemanticDeclID{Kind: SemanticMember, File: id.File, Pos: id.Pos}
}

func SignatureOwner(id luatype.SignatureID) SemanticDeclID {
	return SemanticDeclID{Kind: SemanticSignature, File: id.File, Pos: id.Pos}
}

// IsZero reports whether id identifies nothing.
func (id SemanticDeclID) IsZero() bool {
	return id.Kind == SemanticNone
}
