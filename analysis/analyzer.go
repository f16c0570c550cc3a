// Copyright © 2024 The ELPS authors

package analysis

import (
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
)

type memberKey struct {
	owner MemberOwner
	name  string
}

// analyzer is the internal state for a single analysis run.
type analyzer struct {
	idx *FileIndex
	// globals holds the first declaration of each global in this file.
	globals map[string]*Decl
	members map[memberKey]*Member
	// tableOwners redirects the fields of a table constructor to a class
	// declared on the same statement.
	tableOwners map[*syntax.Node]MemberOwner
	closureDocs map[*syntax.Node]*docBundle
}

func (a *analyzer) report(code string, rng syntax.Range, msg string) {
	a.idx.Diagnostics = append(a.idx.Diagnostics, Diagnostic{Code: code, Range: rng, Message: msg})
}

func (a *analyzer) block(b *syntax.Node, scope *Scope) {
	for _, stat := range b.Children() {
		if stat.Kind() == syntax.KindComment {
			if _, ok := syntax.CommentOwner(stat); !ok {
				a.applyDocs(a.collectDocs(stat), SemanticDeclID{}, MemberOwner{})
			}
			continue
		}
		var docs *docBundle
		if c, ok := syntax.Comment(stat); ok {
			docs = a.collectDocs(c)
		}
		owner, table := a.stat(stat, scope, docs)
		if !owner.IsZero() {
			a.idx.Owners[stat] = owner
		}
		if docs != nil {
			a.applyDocs(docs, owner, table)
		}
	}
}

// stat analyzes one statement.  It returns the declaration documented by a
// comment attached to the statement and the member owner of its value.
func (a *analyzer) stat(n *syntax.Node, scope *Scope, docs *docBundle) (SemanticDeclID, MemberOwner) {
	switch n.Kind() {
	case syntax.KindLocalStat:
		return a.localStat(n, scope, docs)
	case syntax.KindLocalFuncStat:
		return a.localFuncStat(n, scope, docs)
	case syntax.KindFuncStat:
		return a.funcStat(n, scope, docs)
	case syntax.KindAssignStat:
		return a.assignStat(n, scope, docs)
	case syntax.KindCallStat, syntax.KindReturnStat:
		a.exprs(n.Children(), scope)
	case syntax.KindIfStat:
		for _, c := range n.Children() {
			switch c.Kind() {
			case syntax.KindBlock:
				a.block(c, NewScope(ScopeBlock, scope, c))
			case syntax.KindElseIfClause:
				a.expr(c.Child(0), scope)
				a.block(c.Child(1), NewScope(ScopeBlock, scope, c.Child(1)))
			case syntax.KindElseClause:
				a.block(c.Child(0), NewScope(ScopeBlock, scope, c.Child(0)))
			default:
				a.expr(c, scope)
			}
		}
	case syntax.KindWhileStat:
		a.expr(n.Child(0), scope)
		a.block(n.Child(1), NewScope(ScopeLoop, scope, n.Child(1)))
	case syntax.KindRepeatStat:
		// the condition sees the locals of the body
		body := NewScope(ScopeLoop, scope, n)
		a.block(n.Child(0), body)
		a.expr(n.Child(1), body)
	case syntax.KindNumericForStat:
		children := n.Children()
		last := len(children) - 1
		a.exprs(children[1:last], scope)
		loop := NewScope(ScopeLoop, scope, n)
		decl := a.declare(loop, children[0], DeclForVar)
		decl.Type = luatype.Integer
		a.block(children[last], loop)
	case syntax.KindGenericForStat:
		info, _ := n.Payload().(syntax.ForInfo)
		children := n.Children()
		last := len(children) - 1
		a.exprs(children[info.Names:last], scope)
		loop := NewScope(ScopeLoop, scope, n)
		for _, name := range children[:info.Names] {
			a.declare(loop, name, DeclForVar)
		}
		a.block(children[last], loop)
	case syntax.KindDoStat:
		a.block(n.Child(0), NewScope(ScopeBlock, scope, n.Child(0)))
	}
	return SemanticDeclID{}, MemberOwner{}
}

func (a *analyzer) declare(scope *Scope, name *syntax.Node, kind DeclKind) *Decl {
	decl := &Decl{
		ID:    DeclID{File: a.idx.File, Pos: name.Pos()},
		Name:  name.Text(),
		Kind:  kind,
		Range: name.Range(),
	}
	if attrib, ok := name.Payload().(syntax.LocalAttrib); ok {
		decl.Attrib = attrib
	}
	scope.Define(decl)
	a.idx.Decls[decl.ID] = decl
	return decl
}

func (a *analyzer) ref(n *syntax.Node, decl *Decl) {
	a.idx.Refs[n.Pos()] = decl.ID
	decl.References++
}

// global returns the declaration of the global assigned at name, declaring
// it when this is the first assignment in the file.
func (a *analyzer) global(name, value *syntax.Node, valueIndex int, typ luatype.Type) *Decl {
	if decl, ok := a.globals[name.Text()]; ok {
		a.ref(name, decl)
		return decl
	}
	decl := &Decl{
		ID:         DeclID{File: a.idx.File, Pos: name.Pos()},
		Name:       name.Text(),
		Kind:       DeclGlobal,
		Range:      name.Range(),
		Type:       typ,
		Value:      value,
		ValueIndex: valueIndex,
	}
	a.globals[decl.Name] = decl
	a.idx.Decls[decl.ID] = decl
	a.idx.Globals = append(a.idx.Globals, decl)
	a.idx.Refs[name.Pos()] = decl.ID
	return decl
}

// valueFor returns the expression providing the i-th value of an
// assignment.  A trailing call or vararg expands to the remaining values.
func valueFor(values []*syntax.Node, i int) (*syntax.Node, int) {
	if i < len(values) {
		return values[i], 0
	}
	if len(values) == 0 {
		return nil, 0
	}
	last := values[len(values)-1]
	if !multiValue(last) {
		return nil, 0
	}
	return last, i - len(values) + 1
}

func multiValue(n *syntax.Node) bool {
	if n.Kind() == syntax.KindCallExpr {
		return true
	}
	lit, ok := n.Literal()
	return ok && lit.Kind == syntax.LitDots
}

// prepareValues routes doc comments and class ownership to the values of
// a declaring statement before they are walked.
func (a *analyzer) prepareValues(values []*syntax.Node, docs *docBundle) {
	if len(values) == 0 || docs == nil {
		return
	}
	switch first := values[0]; first.Kind() {
	case syntax.KindTableExpr:
		if id, ok := docs.classID(); ok {
			a.tableOwners[first] = TypeOwner(id)
		}
	case syntax.KindClosureExpr:
		a.closureDocs[first] = docs
	}
}

func (a *analyzer) localStat(n *syntax.Node, scope *Scope, docs *docBundle) (SemanticDeclID, MemberOwner) {
	values := syntax.LocalValues(n)
	a.prepareValues(values, docs)
	a.exprs(values, scope)
	var first *Decl
	for i, name := range syntax.LocalNames(n) {
		decl := a.declare(scope, name, DeclLocal)
		decl.Value, decl.ValueIndex = valueFor(values, i)
		decl.Type = docs.declType(i)
		if first == nil {
			first = decl
		}
	}
	if first == nil {
		return SemanticDeclID{}, MemberOwner{}
	}
	return DeclOwner(first.ID), a.ownerOfDecl(first)
}

func (a *analyzer) localFuncStat(n *syntax.Node, scope *Scope, docs *docBundle) (SemanticDeclID, MemberOwner) {
	name, closure := n.Child(0), n.Child(1)
	decl := a.declare(scope, name, DeclLocal)
	decl.Value = closure
	a.closure(closure, scope, docs, name.Text(), nil)
	return DeclOwner(decl.ID), MemberOwner{}
}

func (a *analyzer) funcStat(n *syntax.Node, scope *Scope, docs *docBundle) (SemanticDeclID, MemberOwner) {
	target, closure := n.Child(0), n.Child(1)
	var owner SemanticDeclID
	var self luatype.Type
	switch target.Kind() {
	case syntax.KindNameExpr:
		if decl := scope.Lookup(target.Text()); decl != nil {
			a.ref(target, decl)
			if decl.Value == nil {
				decl.Value = closure
			}
			owner = DeclOwner(decl.ID)
		} else {
			owner = DeclOwner(a.global(target, closure, 0, nil).ID)
		}
	case syntax.KindIndexExpr:
		prefix := target.Child(0)
		a.expr(prefix, scope)
		mo := a.ownerOf(prefix, scope)
		self = mo.SelfType()
		if mo.Kind != OwnerNone {
			m := a.member(mo, target, target.Text(), MemberMethod, closure, nil)
			owner = MemberDeclOwner(m.ID)
		}
	}
	a.closure(closure, scope, docs, qualifiedName(target), self)
	return owner, MemberOwner{}
}

func (a *analyzer) assignStat(n *syntax.Node, scope *Scope, docs *docBundle) (SemanticDeclID, MemberOwner) {
	targets := syntax.AssignTargets(n)
	values := syntax.AssignValues(n)
	a.prepareValues(values, docs)
	a.exprs(values, scope)
	var owner SemanticDeclID
	var table MemberOwner
	for i, target := range targets {
		value, valueIndex := valueFor(values, i)
		typ := docs.declType(i)
		var id SemanticDeclID
		var tbl MemberOwner
		switch target.Kind() {
		case syntax.KindNameExpr:
			decl := scope.Lookup(target.Text())
			if decl != nil {
				a.ref(target, decl)
			} else {
				decl = a.global(target, value, valueIndex, typ)
			}
			id, tbl = DeclOwner(decl.ID), a.ownerOfDecl(decl)
		case syntax.KindIndexExpr:
			a.exprs(target.Children(), scope)
			if target.Style() != syntax.IndexDot {
				break
			}
			mo := a.ownerOf(target.Child(0), scope)
			if mo.Kind == OwnerNone {
				break
			}
			m := a.member(mo, target, target.Text(), MemberAssign, value, typ)
			id, tbl = MemberDeclOwner(m.ID), a.ownerOfMember(m)
		default:
			a.expr(target, scope)
		}
		if i == 0 {
			owner, table = id, tbl
		}
	}
	return owner, table
}

// member returns the member name of owner, declaring it at n when this file
// has not declared it yet.
func (a *analyzer) member(owner MemberOwner, n *syntax.Node, name string, kind MemberKind, value *syntax.Node, typ luatype.Type) *Member {
	key := memberKey{owner: owner, name: name}
	if m, ok := a.members[key]; ok {
		return m
	}
	m := &Member{
		ID:    MemberID{File: a.idx.File, Pos: n.Pos()},
		Owner: owner,
		Name:  name,
		Kind:  kind,
		Range: n.Range(),
		Type:  typ,
		Value: value,
	}
	a.members[key] = m
	a.idx.Members = append(a.idx.Members, m)
	return m
}

func (a *analyzer) tableOwner(table *syntax.Node) MemberOwner {
	if owner, ok := a.tableOwners[table]; ok {
		return owner
	}
	return TableOwner(luatype.TableLiteral{File: a.idx.File, Pos: table.Pos()})
}

func (a *analyzer) ownerOfDecl(decl *Decl) MemberOwner {
	if owner, ok := OwnerOf(decl.Type); ok {
		return owner
	}
	if decl.Value != nil && decl.Value.Kind() == syntax.KindTableExpr && decl.ValueIndex == 0 {
		return a.tableOwner(decl.Value)
	}
	if decl.Kind == DeclGlobal {
		return GlobalOwner(decl.Name)
	}
	return MemberOwner{}
}

func (a *analyzer) ownerOfMember(m *Member) MemberOwner {
	if owner, ok := OwnerOf(m.Type); ok {
		return owner
	}
	if m.Value != nil && m.Value.Kind() == syntax.KindTableExpr {
		return a.tableOwner(m.Value)
	}
	return MemberOwner{}
}

// ownerOf returns the member owner denoted by the prefix expression n.
func (a *analyzer) ownerOf(n *syntax.Node, scope *Scope) MemberOwner {
	switch n.Kind() {
	case syntax.KindNameExpr:
		if decl := scope.Lookup(n.Text()); decl != nil {
			return a.ownerOfDecl(decl)
		}
		if decl, ok := a.globals[n.Text()]; ok {
			return a.ownerOfDecl(decl)
		}
		return GlobalOwner(n.Text())
	case syntax.KindIndexExpr:
		if n.Style() != syntax.IndexDot {
			return MemberOwner{}
		}
		parent := a.ownerOf(n.Child(0), scope)
		if parent.Kind == OwnerNone {
			return MemberOwner{}
		}
		if m, ok := a.members[memberKey{owner: parent, name: n.Text()}]; ok {
			if owner := a.ownerOfMember(m); owner.Kind != OwnerNone {
				return owner
			}
		}
		if parent.Kind == OwnerGlobal {
			return GlobalOwner(parent.Global + "." + n.Text())
		}
	case syntax.KindParenExpr:
		return a.ownerOf(n.Child(0), scope)
	}
	return MemberOwner{}
}

// qualifiedName renders a function name such as M.sub.f or M:m.
func qualifiedName(n *syntax.Node) string {
	switch n.Kind() {
	case syntax.KindNameExpr:
		return n.Text()
	case syntax.KindIndexExpr:
		sep := "."
		if n.Style() == syntax.IndexColon {
			sep = ":"
		}
		return qualifiedName(n.Child(0)) + sep + n.Text()
	}
	return ""
}

func (a *analyzer) closure(n *syntax.Node, scope *Scope, docs *docBundle, name string, self luatype.Type) {
	fn := NewScope(ScopeFunction, scope, n)
	info, _ := n.Payload().(syntax.FuncInfo)
	sig := &Signature{
		ID:         luatype.SignatureID{File: a.idx.File, Pos: n.Pos()},
		Name:       name,
		Colon:      info.Colon,
		ParamTypes: make(map[string]luatype.Type),
		Node:       n,
	}
	if info.Colon {
		decl := &Decl{
			ID:    DeclID{File: a.idx.File, Pos: n.Pos()},
			Name:  "self",
			Kind:  DeclParam,
			Range: n.Range(),
			Type:  self,
		}
		fn.Define(decl)
		a.idx.Decls[decl.ID] = decl
	}
	var params []*Decl
	if list := n.ChildOfKind(syntax.KindParamList); list != nil {
		for _, p := range list.Children() {
			sig.Params = append(sig.Params, p.Text())
			if p.Text() == luatype.VariadicName {
				continue
			}
			params = append(params, a.declare(fn, p, DeclParam))
		}
	}
	if docs != nil {
		docs.applySignature(sig)
		for _, p := range params {
			p.Type = sig.ParamTypes[p.Name]
		}
	}
	a.idx.Signatures[sig.ID] = sig
	if body := n.ChildOfKind(syntax.KindBlock); body != nil {
		a.block(body, fn)
	}
}

func (a *analyzer) exprs(nodes []*syntax.Node, scope *Scope) {
	for _, n := range nodes {
		a.expr(n, scope)
	}
}

func (a *analyzer) expr(n *syntax.Node, scope *Scope) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case syntax.KindNameExpr:
		if decl := scope.Lookup(n.Text()); decl != nil {
			a.ref(n, decl)
		} else if decl, ok := a.globals[n.Text()]; ok {
			a.ref(n, decl)
		}
	case syntax.KindClosureExpr:
		a.closure(n, scope, a.closureDocs[n], "", nil)
	case syntax.KindTableExpr:
		a.table(n, scope)
	default:
		a.exprs(n.Children(), scope)
	}
}

func (a *analyzer) table(n *syntax.Node, scope *Scope) {
	owner := a.tableOwner(n)
	for _, field := range n.Children() {
		a.exprs(field.Children(), scope)
		style, _ := field.Payload().(syntax.FieldStyle)
		switch style {
		case syntax.FieldNamed:
			a.member(owner, field, field.Text(), MemberTable, field.Child(0), nil)
		case syntax.FieldKeyed:
			if lit, ok := field.Child(0).Literal(); ok && lit.Kind == syntax.LitString {
				a.member(owner, field, lit.Str, MemberTable, field.Child(1), nil)
			}
		}
	}
}
