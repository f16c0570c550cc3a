// Copyright © 2024 The ELPS authors

package luatype

import "strings"

// VariadicName is the parameter name that marks a variadic tail.
const VariadicName = "..."

// Param is a single function parameter.  A nil Type means the parameter
// carries no declared type and is treated as Any.
type Param struct {
	Name string
	Type Type
}

// FunctionType describes a callable signature.  Colon is set for methods
// that take an implicit self parameter.
type FunctionType struct {
	Params   []Param
	Returns  []Type
	Colon    bool
	Generics []GenericParam
}

func (*FunctionType) isType() {}

// IsVariadic reports whether the final parameter is the variadic tail.
func (f *FunctionType) IsVariadic() bool {
	n := len(f.Params)
	return n > 0 && f.Params[n-1].Name == VariadicName
}

// ParamType returns the declared type of parameter i, substituting Any when
// the parameter has no type.
func (f *FunctionType) ParamType(i int) Type {
	if i < 0 || i >= len(f.Params) {
		return nil
	}
	if f.Params[i].Type == nil {
		return Any
	}
	return f.Params[i].Type
}

// VariadicType returns the type of the variadic tail.  The second return is
// false when f is not variadic.
func (f *FunctionType) VariadicType() (Type, bool) {
	if !f.IsVariadic() {
		return nil, false
	}
	return f.ParamType(len(f.Params) - 1), true
}

// FirstReturn returns the first declared return type or Nil.
func (f *FunctionType) FirstReturn() Type {
	if len(f.Returns) == 0 {
		return Nil
	}
	return f.Returns[0]
}

func (f *FunctionType) String() string {
	var b strings.Builder
	if f.Colon {
		b.WriteString("method")
	} else {
		b.WriteString("fun")
	}
	b.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Type != nil {
			b.WriteString(": ")
			b.WriteString(p.Type.String())
		}
	}
	b.WriteString(")")
	if len(f.Returns) > 0 {
		b.WriteString(": ")
		b.WriteString(joinTypes(f.Returns, ", "))
	}
	return b.String()
}

// GenericParam is a template parameter of a class or function.
type GenericParam struct {
	Name       string
	Constraint Type
	Variadic   bool
	Attributes []AttributeUse
}

// AttributeUse is one application of an attribute, e.g. ---@[deprecated].
// Args holds the literal type of each argument in source order.
type AttributeUse struct {
	Type TypeDeclID
	Args []Type
}

func (a AttributeUse) String() string {
	if len(a.Args) == 0 {
		return string(a.Type)
	}
	return string(a.Type) + "(" + joinTypes(a.Args, ", ") + ")"
}
