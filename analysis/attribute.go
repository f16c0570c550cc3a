// Copyright © 2024 The ELPS authors

package analysis

import (
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
)

// Attributes with built in meaning.  Their use also sets the matching
// property of the owner.
const (
	AttributeDeprecated  = "deprecated"
	AttributeReadOnly    = "readonly"
	AttributeNoDiscard   = "nodiscard"
	AttributeConstructor = "constructor"
)

// IsBuiltinAttribute reports whether name needs no ---@attribute
// declaration.
func IsBuiltinAttribute(name string) bool {
	switch name {
	case AttributeDeprecated, AttributeReadOnly, AttributeNoDiscard, AttributeConstructor:
		return true
	}
	return false
}

// AttributeArgType returns the type of a literal attribute argument.
func AttributeArgType(lit syntax.Literal) luatype.Type {
	switch lit.Kind {
	case syntax.LitString:
		return luatype.StringConst(lit.Str)
	case syntax.LitInt:
		return luatype.IntegerConst(lit.Int)
	case syntax.LitFloat:
		return luatype.Number
	case syntax.LitBool:
		return luatype.BooleanConst(lit.Bool)
	case syntax.LitNil:
		return luatype.Nil
	case syntax.LitDots:
		return luatype.Any
	case syntax.LitQuestion:
		return luatype.Nil
	}
	return luatype.Unknown
}

// attributeUse records every item of the ---@[...] tag on its owner.
// commentOwner is the declaration documented by the enclosing comment.
func (a *analyzer) attributeUse(tag *syntax.Node, commentOwner SemanticDeclID) {
	owner := commentOwner
	if field, ok := attributeField(tag); ok {
		owner = MemberDeclOwner(MemberID{File: a.idx.File, Pos: field.Pos()})
	}
	if owner.IsZero() {
		a.report(CodeOrphanAttribute, tag.Range(), "attribute use has no owning declaration")
		return
	}
	for _, item := range tag.ChildrenOfKind(syntax.KindDocAttributeItem) {
		use := luatype.AttributeUse{Type: luatype.TypeDeclID(item.Text())}
		for _, arg := range item.Children() {
			lit, _ := arg.Literal()
			use.Args = append(use.Args, AttributeArgType(lit))
		}
		a.idx.Properties.AddAttributeUse(a.idx.File, owner, use)
		a.idx.Attributes = append(a.idx.Attributes, AttributeSite{
			Owner: owner,
			Use:   use,
			Range: item.Range(),
		})
		a.builtinAttribute(owner, use)
	}
}

// attributeField returns the field tag an attribute use annotates.  The
// scan stops at a comment, a block or an expression.
func attributeField(tag *syntax.Node) (*syntax.Node, bool) {
	for next := tag.NextSibling(); next != nil; next = next.NextSibling() {
		switch k := next.Kind(); {
		case k == syntax.KindDocTagField:
			return next, true
		case k == syntax.KindComment, k == syntax.KindBlock, k.IsExpr():
			return nil, false
		}
	}
	return nil, false
}

func (a *analyzer) builtinAttribute(owner SemanticDeclID, use luatype.AttributeUse) {
	prop := func() *CommonProperty {
		return a.idx.Properties.GetOrCreate(a.idx.File, owner)
	}
	switch use.Type {
	case AttributeDeprecated:
		var msg *string
		if len(use.Args) > 0 {
			if s, ok := use.Args[0].(luatype.StringConst); ok {
				m := string(s)
				msg = &m
			}
		}
		prop().AddDeprecated(msg)
	case AttributeReadOnly:
		prop().AddDeclFeature(FeatureReadOnly)
	case AttributeNoDiscard:
		prop().AddDeclFeature(FeatureNoDiscard)
	case AttributeConstructor:
		prop().AddDeclFeature(FeatureConstructor)
	}
}
