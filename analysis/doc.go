// Copyright © 2024 The ELPS authors

package analysis

import (
	"fmt"
	"strings"

	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
)

type docField struct {
	node  *syntax.Node
	class *TypeDecl
}

// docBundle is the digest of one doc comment.  Type declarations are
// registered while the comment is collected; everything else is applied
// once the documented declaration is known.
type docBundle struct {
	comment     *syntax.Node
	typeDecl    *TypeDecl
	description []string
	types       []luatype.Type
	params      []syntax.DocParam
	returns     []luatype.Type
	overloads   []*luatype.FunctionType
	generics    []luatype.GenericParam
	fields      []docField
	props       []*syntax.Node
	uses        []*syntax.Node
}

// classID returns the class or enum declared by the comment.
func (d *docBundle) classID() (luatype.TypeDeclID, bool) {
	if d == nil || d.typeDecl == nil {
		return "", false
	}
	switch d.typeDecl.Kind {
	case TypeClass, TypeEnum:
		return d.typeDecl.ID, true
	}
	return "", false
}

// declType returns the declared type of the i-th name of a declaring
// statement.
func (d *docBundle) declType(i int) luatype.Type {
	if d == nil {
		return nil
	}
	if i < len(d.types) {
		return d.types[i]
	}
	if id, ok := d.classID(); ok && i == 0 {
		return luatype.Ref(id)
	}
	return nil
}

func (d *docBundle) applySignature(sig *Signature) {
	sig.Generics = d.generics
	for _, p := range d.params {
		sig.ParamTypes[p.Name] = substituteTemplates(p.Type, d.generics)
	}
	for _, t := range d.returns {
		sig.Returns = append(sig.Returns, substituteTemplates(t, d.generics))
	}
	sig.Overloads = d.overloads
}

func genericParams(names []string) []luatype.GenericParam {
	params := make([]luatype.GenericParam, 0, len(names))
	for _, name := range names {
		params = append(params, luatype.GenericParam{Name: name})
	}
	return params
}

// substituteTemplates replaces references to generic parameter names with
// template references.
func substituteTemplates(t luatype.Type, generics []luatype.GenericParam) luatype.Type {
	if t == nil || len(generics) == 0 {
		return t
	}
	sub := func(t luatype.Type) luatype.Type { return substituteTemplates(t, generics) }
	switch t := t.(type) {
	case luatype.Ref:
		for i, g := range generics {
			if string(t) == g.Name {
				return luatype.TemplateRef{Name: g.Name, Index: i}
			}
		}
	case *luatype.Array:
		return &luatype.Array{Elem: sub(t.Elem)}
	case *luatype.TableOf:
		return &luatype.TableOf{Key: sub(t.Key), Value: sub(t.Value)}
	case *luatype.Generic:
		args := make([]luatype.Type, len(t.Args))
		for i, arg := range t.Args {
			args[i] = sub(arg)
		}
		return &luatype.Generic{Base: t.Base, Args: args}
	case *luatype.Union:
		members := make([]luatype.Type, len(t.Types))
		for i, m := range t.Types {
			members[i] = sub(m)
		}
		return luatype.NewUnion(members...)
	case *luatype.FunctionType:
		f := &luatype.FunctionType{Colon: t.Colon, Generics: t.Generics}
		for _, p := range t.Params {
			f.Params = append(f.Params, luatype.Param{Name: p.Name, Type: sub(p.Type)})
		}
		for _, r := range t.Returns {
			f.Returns = append(f.Returns, sub(r))
		}
		return f
	}
	return t
}

func (a *analyzer) addType(kind TypeDeclKind, tag *syntax.Node, name string) *TypeDecl {
	td := &TypeDecl{
		ID:    luatype.TypeDeclID(name),
		Kind:  kind,
		File:  a.idx.File,
		Range: tag.Range(),
	}
	a.idx.Types = append(a.idx.Types, td)
	return td
}

// collectDocs digests comment c and declares the types it introduces.
func (a *analyzer) collectDocs(c *syntax.Node) *docBundle {
	d := &docBundle{comment: c}
	var class *TypeDecl
	setType := func(td *TypeDecl) {
		if d.typeDecl == nil {
			d.typeDecl = td
		}
	}
	for _, tag := range c.Children() {
		switch tag.Kind() {
		case syntax.KindDocDescription:
			d.description = append(d.description, tag.Text())
		case syntax.KindDocTagClass:
			p, _ := tag.Payload().(syntax.DocClass)
			td := a.addType(TypeClass, tag, p.Name)
			td.Generics = genericParams(p.Generics)
			for _, super := range p.Supers {
				td.Supers = append(td.Supers, substituteTemplates(super, td.Generics))
			}
			class = td
			setType(td)
		case syntax.KindDocTagEnum:
			p, _ := tag.Payload().(syntax.DocEnum)
			td := a.addType(TypeEnum, tag, p.Name)
			td.EnumKey = p.Key
			class = td
			setType(td)
		case syntax.KindDocTagAlias:
			p, _ := tag.Payload().(syntax.DocAlias)
			td := a.addType(TypeAlias, tag, p.Name)
			td.Alias = p.Type
			setType(td)
		case syntax.KindDocTagAttribute:
			p, _ := tag.Payload().(syntax.DocAttribute)
			td := a.addType(TypeAttribute, tag, p.Name)
			td.Params = p.Params
		case syntax.KindDocTagField:
			d.fields = append(d.fields, docField{node: tag, class: class})
		case syntax.KindDocTagType:
			p, _ := tag.Payload().(syntax.DocType)
			d.types = append(d.types, p.Types...)
		case syntax.KindDocTagParam:
			p, _ := tag.Payload().(syntax.DocParam)
			d.params = append(d.params, p)
		case syntax.KindDocTagReturn:
			p, _ := tag.Payload().(syntax.DocReturn)
			d.returns = append(d.returns, p.Types...)
		case syntax.KindDocTagOverload:
			p, _ := tag.Payload().(syntax.DocOverload)
			d.overloads = append(d.overloads, p.Func)
		case syntax.KindDocTagGeneric:
			p, _ := tag.Payload().(syntax.DocGeneric)
			d.generics = append(d.generics, p.Params...)
		case syntax.KindDocTagAttributeUse:
			d.uses = append(d.uses, tag)
		case syntax.KindDocTagDiagnostic:
		default:
			d.props = append(d.props, tag)
		}
	}
	return d
}

// applyDocs writes the digest d for the declaration owner.  table is the
// member owner of the declaration's value and receives fields declared
// without a class.
func (a *analyzer) applyDocs(d *docBundle, owner SemanticDeclID, table MemberOwner) {
	if owner.IsZero() && d.typeDecl != nil {
		owner = TypeDeclOwner(d.typeDecl.ID)
	}
	for _, f := range d.fields {
		fieldOwner := table
		if f.class != nil {
			fieldOwner = TypeOwner(f.class.ID)
		}
		a.field(f.node, fieldOwner)
	}
	if !owner.IsZero() {
		a.applyProps(owner, d)
	}
	if d.typeDecl != nil {
		if typeOwner := TypeDeclOwner(d.typeDecl.ID); typeOwner != owner {
			a.applyProps(typeOwner, d)
		}
	}
	for _, use := range d.uses {
		a.attributeUse(use, owner)
	}
}

func (a *analyzer) field(tag *syntax.Node, owner MemberOwner) {
	p, _ := tag.Payload().(syntax.DocField)
	if owner.Kind == OwnerNone {
		a.report(CodeOrphanTag, tag.Range(), fmt.Sprintf("field %q has no owning class or table", p.Name))
		return
	}
	m := &Member{
		ID:         MemberID{File: a.idx.File, Pos: tag.Pos()},
		Owner:      owner,
		Name:       p.Name,
		Key:        p.Key,
		Kind:       MemberField,
		Range:      tag.Range(),
		Type:       p.Type,
		Optional:   p.Optional,
		Visibility: p.Visibility,
	}
	if p.Name != "" {
		// doc fields take precedence over members inferred from code
		a.members[memberKey{owner: owner, name: p.Name}] = m
	}
	a.idx.Members = append(a.idx.Members, m)

	id := MemberDeclOwner(m.ID)
	if p.Description != "" {
		a.idx.Properties.GetOrCreate(a.idx.File, id).AddDescription(p.Description)
	}
	if v, ok := ParseVisibility(p.Visibility); ok && v != VisibilityPublic {
		a.idx.Properties.GetOrCreate(a.idx.File, id).SetVisibility(v)
	}
}

func (a *analyzer) applyProps(owner SemanticDeclID, d *docBundle) {
	prop := func() *CommonProperty {
		return a.idx.Properties.GetOrCreate(a.idx.File, owner)
	}
	if len(d.description) > 0 {
		prop().AddDescription(strings.Join(d.description, "\n"))
	}
	for _, tag := range d.props {
		switch tag.Kind() {
		case syntax.KindDocTagDeprecated:
			p, _ := tag.Payload().(syntax.DocDeprecated)
			if p.Message == "" {
				prop().AddDeprecated(nil)
			} else {
				msg := p.Message
				prop().AddDeprecated(&msg)
			}
		case syntax.KindDocTagReadonly:
			prop().AddDeclFeature(FeatureReadOnly)
		case syntax.KindDocTagNoDiscard:
			prop().AddDeclFeature(FeatureNoDiscard)
		case syntax.KindDocTagAsync:
			prop().AddDeclFeature(FeatureAsync)
		case syntax.KindDocTagMeta:
			prop().AddDeclFeature(FeatureMeta)
		case syntax.KindDocTagVisibility:
			p, _ := tag.Payload().(syntax.DocVisibility)
			if v, ok := ParseVisibility(p.Visibility); ok {
				prop().SetVisibility(v)
			}
		case syntax.KindDocTagVersion:
			p, _ := tag.Payload().(syntax.DocVersion)
			prop().AddVersionConds(p.Conds)
		case syntax.KindDocTagSource:
			p, _ := tag.Payload().(syntax.DocSource)
			prop().AddSource(p.Source)
		case syntax.KindDocTagExport:
			p, _ := tag.Payload().(syntax.DocExport)
			scope := ExportGlobal
			if p.Scope == "namespace" {
				scope = ExportNamespace
			}
			prop().AddExport(scope)
		case syntax.KindDocTagOther:
			p, _ := tag.Payload().(syntax.DocOther)
			prop().AddTag(p.Tag, p.Content)
		}
	}
}
