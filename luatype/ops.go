// Copyright © 2024 The ELPS authors

package luatype

// Equal reports whether a and b are structurally identical.  A nil Type is
// equal only to nil.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Basic, StringConst, IntegerConst, FloatConst, BooleanConst, Ref,
		Signature, TableLiteral, TemplateRef:
		return a == b
	case *Array:
		b, ok := b.(*Array)
		return ok && Equal(a.Elem, b.Elem)
	case *TableOf:
		b, ok := b.(*TableOf)
		return ok && Equal(a.Key, b.Key) && Equal(a.Value, b.Value)
	case *Generic:
		b, ok := b.(*Generic)
		return ok && a.Base == b.Base && equalList(a.Args, b.Args)
	case *Union:
		b, ok := b.(*Union)
		if !ok || len(a.Types) != len(b.Types) {
			return false
		}
		for _, t := range a.Types {
			if !containsType(b.Types, t) {
				return false
			}
		}
		return true
	case *FunctionType:
		b, ok := b.(*FunctionType)
		if !ok || a.Colon != b.Colon || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if a.Params[i].Name != b.Params[i].Name {
				return false
			}
			if !Equal(a.ParamType(i), b.ParamType(i)) {
				return false
			}
		}
		return equalList(a.Returns, b.Returns)
	}
	return false
}

func equalList(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func containsType(ts []Type, t Type) bool {
	for _, x := range ts {
		if Equal(x, t) {
			return true
		}
	}
	return false
}

// NewUnion returns the union of ts.  Nested unions are flattened and
// duplicate members removed.  A union of one member is that member and an
// empty union is Nil.  A union containing Any is Any.
func NewUnion(ts ...Type) Type {
	var flat []Type
	var add func(t Type)
	add = func(t Type) {
		if t == nil {
			return
		}
		if u, ok := t.(*Union); ok {
			for _, m := range u.Types {
				add(m)
			}
			return
		}
		if !containsType(flat, t) {
			flat = append(flat, t)
		}
	}
	for _, t := range ts {
		add(t)
	}
	switch len(flat) {
	case 0:
		return Nil
	case 1:
		return flat[0]
	}
	for _, t := range flat {
		if t == Any {
			return Any
		}
	}
	return &Union{Types: flat}
}

// Members returns the alternatives of t.  A non-union type is its own single
// member.
func Members(t Type) []Type {
	if u, ok := t.(*Union); ok {
		return u.Types
	}
	return []Type{t}
}

// IsNullable reports whether t is Nil or a union with a nil member.
func IsNullable(t Type) bool {
	switch t := t.(type) {
	case Basic:
		return t == Nil
	case *Union:
		for _, m := range t.Types {
			if m == Nil {
				return true
			}
		}
	}
	return false
}

// IsAny reports whether t places no constraint on a value.
func IsAny(t Type) bool {
	return t == nil || t == Any || t == Unknown
}

// RemoveNil returns t without its nil alternative.
func RemoveNil(t Type) Type {
	u, ok := t.(*Union)
	if !ok {
		return t
	}
	var ts []Type
	for _, m := range u.Types {
		if m != Nil {
			ts = append(ts, m)
		}
	}
	return NewUnion(ts...)
}

// Base returns the primitive type underlying a literal constant.  Other
// types are returned unchanged.
func Base(t Type) Type {
	switch t := t.(type) {
	case StringConst:
		return String
	case IntegerConst:
		return Integer
	case FloatConst:
		return Number
	case BooleanConst:
		return Boolean
	case TableLiteral:
		return Table
	case Signature, *FunctionType:
		return Function
	default:
		return t
	}
}
