// Copyright © 2024 The ELPS authors

package semantic

import (
	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
)

// TypeIndex is the part of the database needed to relate named types.
// *analysis.Snapshot implements it.
type TypeIndex interface {
	TypeDecls(id luatype.TypeDeclID) []*analysis.TypeDecl
	Members(owner analysis.MemberOwner) []*analysis.Member
}

// CheckCompatible reports whether a value of type compact may be used
// where source is expected.  It returns nil when it may, ErrTypeMismatch
// when it may not and ErrRecursiveInfer when relating the two types would
// recurse through a named type already being resolved by guard.  A nil db
// relates named types by name only.
func CheckCompatible(db TypeIndex, guard *InferGuard, source, compact luatype.Type) error {
	if luatype.IsAny(source) || luatype.IsAny(compact) {
		return nil
	}
	if luatype.Equal(source, compact) {
		return nil
	}
	if _, ok := source.(luatype.TemplateRef); ok || source == luatype.SelfInfer {
		return nil
	}

	// a union value fits only when every alternative fits
	if u, ok := compact.(*luatype.Union); ok {
		for _, m := range u.Types {
			if err := CheckCompatible(db, guard.Fork(), source, m); err != nil {
				return err
			}
		}
		return nil
	}
	if u, ok := source.(*luatype.Union); ok {
		var last error = ErrTypeMismatch
		for _, m := range u.Types {
			err := CheckCompatible(db, guard.Fork(), m, compact)
			if err == nil {
				return nil
			}
			last = err
		}
		return last
	}

	switch c := compact.(type) {
	case luatype.TemplateRef:
		return nil
	case luatype.Ref:
		switch source.(type) {
		case luatype.Ref, *luatype.Generic:
		default:
			return checkRefValue(db, guard, source, c)
		}
	}

	switch s := source.(type) {
	case luatype.Basic:
		return checkBasic(s, compact)
	case luatype.StringConst, luatype.IntegerConst, luatype.FloatConst, luatype.BooleanConst:
		// constants only accept themselves, which Equal already covered
		return ErrTypeMismatch
	case luatype.Ref:
		return checkRef(db, guard, s.ID(), compact)
	case *luatype.Generic:
		if c, ok := compact.(*luatype.Generic); ok && c.Base == s.Base {
			return nil
		}
		return checkRef(db, guard, s.Base, compact)
	case *luatype.Array:
		switch c := compact.(type) {
		case *luatype.Array:
			return CheckCompatible(db, guard, s.Elem, c.Elem)
		case *luatype.TableOf:
			if err := CheckCompatible(db, guard.Fork(), luatype.Integer, c.Key); err != nil {
				return err
			}
			return CheckCompatible(db, guard.Fork(), s.Elem, c.Value)
		case luatype.TableLiteral:
			return nil
		}
		if compact == luatype.Table {
			return nil
		}
	case *luatype.TableOf:
		switch c := compact.(type) {
		case *luatype.TableOf:
			// key and value are siblings; neither sees the other's visits
			if err := CheckCompatible(db, guard.Fork(), s.Key, c.Key); err != nil {
				return err
			}
			return CheckCompatible(db, guard.Fork(), s.Value, c.Value)
		case *luatype.Array:
			if err := CheckCompatible(db, guard.Fork(), s.Key, luatype.Integer); err != nil {
				return err
			}
			return CheckCompatible(db, guard.Fork(), s.Value, c.Elem)
		case luatype.TableLiteral:
			return nil
		}
		if compact == luatype.Table {
			return nil
		}
	case *luatype.FunctionType, luatype.Signature:
		if luatype.Base(compact) == luatype.Function {
			return nil
		}
	case luatype.TableLiteral:
		if isTableLike(compact) {
			return nil
		}
	}
	return ErrTypeMismatch
}

func checkBasic(source luatype.Basic, compact luatype.Type) error {
	base := luatype.Base(compact)
	if base == source {
		return nil
	}
	switch source {
	case luatype.Number:
		if base == luatype.Integer {
			return nil
		}
	case luatype.Integer:
		// arithmetic on integers is typed number
		if base == luatype.Number {
			return nil
		}
	case luatype.Table:
		if isTableLike(compact) {
			return nil
		}
	}
	return ErrTypeMismatch
}

func isTableLike(t luatype.Type) bool {
	switch t.(type) {
	case luatype.TableLiteral, *luatype.Array, *luatype.TableOf, *luatype.Generic:
		return true
	}
	return t == luatype.Table
}

// checkRef checks a value against the named type id.
func checkRef(db TypeIndex, guard *InferGuard, id luatype.TypeDeclID, compact luatype.Type) error {
	if db == nil {
		return ErrTypeMismatch
	}
	decls := db.TypeDecls(id)
	if len(decls) == 0 {
		// undeclared names are not checked
		return nil
	}
	if err := guard.Check(id); err != nil {
		return err
	}
	switch decls[0].Kind {
	case analysis.TypeAlias:
		for _, td := range decls {
			if td.Alias != nil {
				return CheckCompatible(db, guard, td.Alias, compact)
			}
		}
		return nil
	case analysis.TypeEnum:
		values := enumValues(db, id)
		if values == nil {
			return nil
		}
		return CheckCompatible(db, guard, values, compact)
	case analysis.TypeAttribute:
		return ErrTypeMismatch
	}
	return checkClass(db, guard, id, compact)
}

func checkClass(db TypeIndex, guard *InferGuard, id luatype.TypeDeclID, compact luatype.Type) error {
	switch c := compact.(type) {
	case luatype.TableLiteral:
		return nil
	case *luatype.Generic:
		if c.Base == id {
			return nil
		}
		return extends(db, guard, c.Base, id)
	case luatype.Ref:
		return extends(db, guard, c.ID(), id)
	}
	if compact == luatype.Table {
		return nil
	}
	return ErrTypeMismatch
}

// extends reports whether class sub has super among its ancestors.
func extends(db TypeIndex, guard *InferGuard, sub, super luatype.TypeDeclID) error {
	if sub == super {
		return nil
	}
	if err := guard.Check(sub); err != nil {
		return err
	}
	decls := db.TypeDecls(sub)
	if len(decls) > 0 && decls[0].Kind == analysis.TypeAlias {
		for _, td := range decls {
			if td.Alias != nil {
				return checkClass(db, guard, super, td.Alias)
			}
		}
		return ErrTypeMismatch
	}
	for _, td := range decls {
		for _, s := range td.Supers {
			var base luatype.TypeDeclID
			switch s := s.(type) {
			case luatype.Ref:
				base = s.ID()
			case *luatype.Generic:
				base = s.Base
			default:
				continue
			}
			if err := extends(db, guard.Fork(), base, super); err == nil {
				return nil
			}
		}
	}
	return ErrTypeMismatch
}

// checkRefValue checks a value of named type c against a structural
// source.
func checkRefValue(db TypeIndex, guard *InferGuard, source luatype.Type, c luatype.Ref) error {
	if db == nil {
		return ErrTypeMismatch
	}
	decls := db.TypeDecls(c.ID())
	if len(decls) == 0 {
		return nil
	}
	if err := guard.Check(c.ID()); err != nil {
		return err
	}
	switch decls[0].Kind {
	case analysis.TypeAlias:
		for _, td := range decls {
			if td.Alias != nil {
				return CheckCompatible(db, guard, source, td.Alias)
			}
		}
		return nil
	case analysis.TypeEnum:
		if values := enumValues(db, c.ID()); values != nil {
			return CheckCompatible(db, guard, source, values)
		}
		return nil
	case analysis.TypeClass:
		if source == luatype.Table || isTableLike(source) {
			return nil
		}
		for _, td := range decls {
			for _, s := range td.Supers {
				if _, ok := s.(luatype.Ref); ok {
					continue
				}
				if CheckCompatible(db, guard.Fork(), source, s) == nil {
					return nil
				}
			}
		}
	}
	return ErrTypeMismatch
}

// enumValues returns the union of the literal values of an enum's fields
// or nil when the enum has no literal fields.
func enumValues(db TypeIndex, id luatype.TypeDeclID) luatype.Type {
	var values []luatype.Type
	for _, m := range db.Members(analysis.TypeOwner(id)) {
		if m.Value == nil {
			continue
		}
		if lit, ok := m.Value.Literal(); ok {
			values = append(values, literalType(lit))
		}
	}
	if len(values) == 0 {
		return nil
	}
	return luatype.NewUnion(values...)
}

func literalType(lit syntax.Literal) luatype.Type {
	switch lit.Kind {
	case syntax.LitString:
		return luatype.StringConst(lit.Str)
	case syntax.LitInt:
		return luatype.IntegerConst(lit.Int)
	case syntax.LitFloat:
		return luatype.FloatConst(lit.Float)
	case syntax.LitBool:
		return luatype.BooleanConst(lit.Bool)
	case syntax.LitNil:
		return luatype.Nil
	case syntax.LitDots:
		return luatype.Any
	}
	return luatype.Unknown
}
