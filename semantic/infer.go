// Copyright © 2024 The ELPS authors

package semantic

import (
	"context"
	"errors"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
)

// maxInferDepth bounds inference through chains of untyped declarations.
const maxInferDepth = 64

// inferrer holds the state of one top level inference request.  Named
// types are tracked by the InferGuard handed down each call; visiting
// tracks declarations, members and signatures whose values are being
// inferred.
type inferrer struct {
	ctx      context.Context
	db       *analysis.Snapshot
	visiting map[any]struct{}
	depth    int
}

func newInferrer(ctx context.Context, db *analysis.Snapshot) *inferrer {
	return &inferrer{
		ctx:      ctx,
		db:       db,
		visiting: make(map[any]struct{}),
	}
}

// enter marks key as being inferred.  The returned function ends the visit.
func (in *inferrer) enter(key any) (func(), error) {
	if _, ok := in.visiting[key]; ok || in.depth >= maxInferDepth {
		recordGuardHit()
		return nil, ErrRecursiveInfer
	}
	in.visiting[key] = struct{}{}
	in.depth++
	return func() {
		delete(in.visiting, key)
		in.depth--
	}, nil
}

func (in *inferrer) fileOf(id luatype.FileID) (*analysis.FileIndex, error) {
	f, ok := in.db.File(id)
	if !ok {
		return nil, ErrNone
	}
	return f, nil
}

func (in *inferrer) expr(guard *InferGuard, f *analysis.FileIndex, n *syntax.Node) (luatype.Type, error) {
	if err := cancelled(in.ctx); err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNone
	}
	switch n.Kind() {
	case syntax.KindLiteralExpr:
		lit, _ := n.Literal()
		return literalType(lit), nil
	case syntax.KindNameExpr:
		decl, ok := in.nameDecl(f, n)
		if !ok {
			return nil, ErrNone
		}
		return in.declType(guard, decl)
	case syntax.KindParenExpr:
		return in.expr(guard, f, n.Child(0))
	case syntax.KindIndexExpr:
		return in.index(guard, f, n)
	case syntax.KindCallExpr:
		rets, err := in.call(guard, f, n)
		if err != nil {
			return nil, err
		}
		if len(rets) == 0 {
			return luatype.Nil, nil
		}
		return rets[0], nil
	case syntax.KindTableExpr:
		return luatype.TableLiteral{File: f.File, Pos: n.Pos()}, nil
	case syntax.KindClosureExpr:
		return luatype.Signature{File: f.File, Pos: n.Pos()}, nil
	case syntax.KindBinaryExpr:
		return in.binary(guard, f, n)
	case syntax.KindUnaryExpr:
		return in.unary(guard, f, n)
	}
	return nil, ErrNone
}

// valueAt returns the type of the index-th value produced by n.
func (in *inferrer) valueAt(guard *InferGuard, f *analysis.FileIndex, n *syntax.Node, index int) (luatype.Type, error) {
	if n.Kind() == syntax.KindCallExpr {
		rets, err := in.call(guard, f, n)
		if err != nil {
			return nil, err
		}
		if index < len(rets) {
			return rets[index], nil
		}
		return luatype.Nil, nil
	}
	if lit, ok := n.Literal(); ok && lit.Kind == syntax.LitDots {
		return luatype.Any, nil
	}
	if index > 0 {
		return luatype.Nil, nil
	}
	return in.expr(guard, f, n)
}

// nameDecl resolves the variable read by the NameExpr n of file f.  Global
// names resolve to their canonical declaration.
func (in *inferrer) nameDecl(f *analysis.FileIndex, n *syntax.Node) (*analysis.Decl, bool) {
	if id, ok := f.Refs[n.Pos()]; ok {
		decl, ok := f.Decls[id]
		if !ok {
			return nil, false
		}
		if decl.Kind == analysis.DeclGlobal {
			if g, ok := in.db.Global(decl.Name); ok {
				return g, true
			}
		}
		return decl, true
	}
	return in.db.Global(n.Text())
}

func (in *inferrer) declType(guard *InferGuard, decl *analysis.Decl) (luatype.Type, error) {
	if decl.Type != nil {
		return decl.Type, nil
	}
	if decl.Value == nil {
		switch decl.Kind {
		case analysis.DeclParam, analysis.DeclForVar:
			return luatype.Any, nil
		}
		return luatype.Nil, nil
	}
	leave, err := in.enter(decl.ID)
	if err != nil {
		return nil, err
	}
	defer leave()
	f, err := in.fileOf(decl.ID.File)
	if err != nil {
		return nil, err
	}
	return in.valueAt(guard, f, decl.Value, decl.ValueIndex)
}

func (in *inferrer) memberType(guard *InferGuard, m *analysis.Member, subst map[string]luatype.Type) (luatype.Type, error) {
	if m.Type != nil {
		t := m.Type
		if m.Optional {
			t = luatype.NewUnion(t, luatype.Nil)
		}
		return substitute(t, subst), nil
	}
	if m.Value == nil {
		return luatype.Any, nil
	}
	leave, err := in.enter(m.ID)
	if err != nil {
		return nil, err
	}
	defer leave()
	f, err := in.fileOf(m.ID.File)
	if err != nil {
		return nil, err
	}
	return in.expr(guard, f, m.Value)
}

// indexKey returns the member name selected by an IndexExpr.  Bracket
// indexes name a member only with a string literal key.
func indexKey(n *syntax.Node) (string, bool) {
	if n.Style() != syntax.IndexBracket {
		return n.Text(), true
	}
	key := n.Child(1)
	if key == nil {
		return "", false
	}
	if lit, ok := key.Literal(); ok && lit.Kind == syntax.LitString {
		return lit.Str, true
	}
	return "", false
}

func (in *inferrer) index(guard *InferGuard, f *analysis.FileIndex, n *syntax.Node) (luatype.Type, error) {
	name, ok := indexKey(n)
	if !ok {
		pt, err := in.expr(guard, f, n.Child(0))
		if err != nil {
			return nil, err
		}
		return elementType(pt), nil
	}
	m, subst, err := in.indexMember(guard, f, n.Child(0), name)
	if err != nil {
		return nil, err
	}
	return in.memberType(guard.Fork(), m, subst)
}

// elementType returns the type of t[k] for a non-constant key.
func elementType(t luatype.Type) luatype.Type {
	switch t := t.(type) {
	case *luatype.Array:
		return t.Elem
	case *luatype.TableOf:
		return t.Value
	}
	return luatype.Any
}

// indexMember finds member name of the value of prefix.  Inferring the
// prefix and looking up the member are separate descents, so a chain such
// as n.next.value may pass through the same class at every link.
func (in *inferrer) indexMember(guard *InferGuard, f *analysis.FileIndex, prefix *syntax.Node, name string) (*analysis.Member, map[string]luatype.Type, error) {
	pt, err := in.expr(guard.Fork(), f, prefix)
	if errors.Is(err, ErrCancelled) {
		return nil, nil, err
	}
	if err == nil {
		m, subst, err := in.findMember(guard.Fork(), pt, name)
		if err == nil || errors.Is(err, ErrCancelled) {
			return m, subst, err
		}
	}
	if path, ok := in.globalPath(f, prefix); ok {
		if m, ok := in.db.Member(analysis.GlobalOwner(path), name); ok {
			return m, nil, nil
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return nil, nil, ErrFieldNotFound
}

// globalPath renders prefix as a dotted global name when it reads only
// globals.
func (in *inferrer) globalPath(f *analysis.FileIndex, n *syntax.Node) (string, bool) {
	switch n.Kind() {
	case syntax.KindNameExpr:
		if id, ok := f.Refs[n.Pos()]; ok {
			if decl := f.Decls[id]; decl == nil || decl.Kind != analysis.DeclGlobal {
				return "", false
			}
		}
		return n.Text(), true
	case syntax.KindIndexExpr:
		if n.Style() != syntax.IndexDot {
			return "", false
		}
		path, ok := in.globalPath(f, n.Child(0))
		if !ok {
			return "", false
		}
		return path + "." + n.Text(), true
	}
	return "", false
}

// findMember looks up member name of values of type t.  The returned map
// instantiates the generic parameters of the owning class.
func (in *inferrer) findMember(guard *InferGuard, t luatype.Type, name string) (*analysis.Member, map[string]luatype.Type, error) {
	if err := cancelled(in.ctx); err != nil {
		return nil, nil, err
	}
	switch t := t.(type) {
	case *luatype.Union:
		var last error = ErrFieldNotFound
		for _, alt := range t.Types {
			if alt == luatype.Nil {
				continue
			}
			m, subst, err := in.findMember(guard.Fork(), alt, name)
			if err == nil || errors.Is(err, ErrCancelled) {
				return m, subst, err
			}
			last = err
		}
		return nil, nil, last
	case luatype.Ref:
		return in.classMember(guard, t.ID(), nil, name)
	case *luatype.Generic:
		return in.classMember(guard, t.Base, t.Args, name)
	case luatype.TableLiteral:
		if m, ok := in.db.Member(analysis.TableOwner(t), name); ok {
			return m, nil, nil
		}
		return nil, nil, ErrFieldNotFound
	case luatype.StringConst:
		return in.stringMember(guard, name)
	case luatype.Basic:
		switch t {
		case luatype.String:
			return in.stringMember(guard, name)
		case luatype.Any, luatype.Unknown, luatype.Table:
			return nil, nil, ErrNone
		}
	}
	return nil, nil, ErrFieldNotFound
}

// classMember looks up name in the class id and then in its supers.
func (in *inferrer) classMember(guard *InferGuard, id luatype.TypeDeclID, args []luatype.Type, name string) (*analysis.Member, map[string]luatype.Type, error) {
	if err := guard.Check(id); err != nil {
		return nil, nil, err
	}
	decls := in.db.TypeDecls(id)
	if len(decls) == 0 {
		return nil, nil, ErrFieldNotFound
	}
	if decls[0].Kind == analysis.TypeAlias {
		for _, td := range decls {
			if td.Alias != nil {
				return in.findMember(guard, td.Alias, name)
			}
		}
		return nil, nil, ErrFieldNotFound
	}
	subst := bindGenerics(decls[0].Generics, args)
	if m, ok := in.db.Member(analysis.TypeOwner(id), name); ok {
		return m, subst, nil
	}
	for _, td := range decls {
		for _, super := range td.Supers {
			m, superSubst, err := in.findMember(guard, substitute(super, subst), name)
			if err == nil || errors.Is(err, ErrCancelled) {
				return m, superSubst, err
			}
		}
	}
	return nil, nil, ErrFieldNotFound
}

func (in *inferrer) stringMember(guard *InferGuard, name string) (*analysis.Member, map[string]luatype.Type, error) {
	decl, ok := in.db.Global("string")
	if !ok {
		return nil, nil, ErrFieldNotFound
	}
	t, err := in.declType(guard, decl)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := t.(luatype.TableLiteral); !ok {
		return nil, nil, ErrFieldNotFound
	}
	return in.findMember(guard, t, name)
}

func bindGenerics(params []luatype.GenericParam, args []luatype.Type) map[string]luatype.Type {
	if len(params) == 0 || len(args) == 0 {
		return nil
	}
	subst := make(map[string]luatype.Type, len(params))
	for i, p := range params {
		if i < len(args) {
			subst[p.Name] = args[i]
		}
	}
	return subst
}

// substitute replaces references to generic parameter names in t.
func substitute(t luatype.Type, subst map[string]luatype.Type) luatype.Type {
	if len(subst) == 0 || t == nil {
		return t
	}
	sub := func(t luatype.Type) luatype.Type { return substitute(t, subst) }
	switch t := t.(type) {
	case luatype.Ref:
		if arg, ok := subst[string(t)]; ok {
			return arg
		}
	case luatype.TemplateRef:
		if arg, ok := subst[t.Name]; ok {
			return arg
		}
	case *luatype.Array:
		return &luatype.Array{Elem: sub(t.Elem)}
	case *luatype.TableOf:
		return &luatype.TableOf{Key: sub(t.Key), Value: sub(t.Value)}
	case *luatype.Generic:
		args := make([]luatype.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = sub(a)
		}
		return &luatype.Generic{Base: t.Base, Args: args}
	case *luatype.Union:
		ts := make([]luatype.Type, len(t.Types))
		for i, m := range t.Types {
			ts[i] = sub(m)
		}
		return luatype.NewUnion(ts...)
	}
	return t
}

// candidates collects the signatures callable through a value of type t.
// declared maps each declared signature's function type back to it.
func (in *inferrer) candidates(guard *InferGuard, t luatype.Type, declared map[*luatype.FunctionType]*analysis.Signature) []*luatype.FunctionType {
	switch t := t.(type) {
	case luatype.Signature:
		sig, ok := in.db.Signature(luatype.SignatureID(t))
		if !ok {
			return nil
		}
		cands := sig.Candidates()
		declared[cands[0]] = sig
		return cands
	case *luatype.FunctionType:
		return []*luatype.FunctionType{t}
	case *luatype.Union:
		var all []*luatype.FunctionType
		for _, alt := range t.Types {
			all = append(all, in.candidates(guard.Fork(), alt, declared)...)
		}
		return all
	case luatype.Ref:
		decls := in.db.TypeDecls(t.ID())
		if len(decls) > 0 && decls[0].Kind == analysis.TypeAlias && guard.Check(t.ID()) == nil {
			for _, td := range decls {
				if td.Alias != nil {
					return in.candidates(guard, td.Alias, declared)
				}
			}
		}
	}
	return nil
}

func (in *inferrer) callCandidates(guard *InferGuard, f *analysis.FileIndex, call *syntax.Node) ([]*luatype.FunctionType, map[*luatype.FunctionType]*analysis.Signature, error) {
	callee, err := in.expr(guard, f, call.Child(0))
	if err != nil {
		return nil, nil, err
	}
	declared := make(map[*luatype.FunctionType]*analysis.Signature)
	cands := in.candidates(guard.Fork(), callee, declared)
	if len(cands) == 0 {
		return nil, nil, ErrNone
	}
	return cands, declared, nil
}

func (in *inferrer) argTypes(guard *InferGuard, f *analysis.FileIndex, call *syntax.Node) ([]luatype.Type, error) {
	args := syntax.CallArgs(call)
	types := make([]luatype.Type, 0, len(args))
	for _, arg := range args {
		t, err := in.expr(guard.Fork(), f, arg)
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		if err != nil {
			t = luatype.Unknown
		}
		types = append(types, t)
	}
	return types, nil
}

// resolve picks the signature called by call.
func (in *inferrer) resolve(guard *InferGuard, f *analysis.FileIndex, call *syntax.Node) (*luatype.FunctionType, []luatype.Type, *analysis.Signature, error) {
	cands, declared, err := in.callCandidates(guard, f, call)
	if err != nil {
		return nil, nil, nil, err
	}
	args, err := in.argTypes(guard, f, call)
	if err != nil {
		return nil, nil, nil, err
	}
	chosen, err := ResolveSignature(in.ctx, in.db, guard, cands, args, syntax.IsColonCall(call), nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return chosen, args, declared[chosen], nil
}

// call returns the types returned by call.
func (in *inferrer) call(guard *InferGuard, f *analysis.FileIndex, call *syntax.Node) ([]luatype.Type, error) {
	chosen, args, sig, err := in.resolve(guard, f, call)
	if err != nil {
		return nil, err
	}
	rets := chosen.Returns
	if len(rets) == 0 && sig != nil {
		rets, err = in.bodyReturns(guard, sig)
		if err != nil {
			return nil, err
		}
	}
	subst := instantiate(chosen, args, syntax.IsColonCall(call))
	out := make([]luatype.Type, len(rets))
	for i, r := range rets {
		out[i] = bindTemplates(r, subst)
	}
	return out, nil
}

// bodyReturns infers the return types of an undocumented function from
// the return statements of its body.
func (in *inferrer) bodyReturns(guard *InferGuard, sig *analysis.Signature) ([]luatype.Type, error) {
	body := sig.Node.ChildOfKind(syntax.KindBlock)
	if body == nil {
		return nil, nil
	}
	leave, err := in.enter(sig.ID)
	if err != nil {
		return nil, err
	}
	defer leave()
	f, err := in.fileOf(sig.ID.File)
	if err != nil {
		return nil, err
	}
	var positions [][]luatype.Type
	var returns int
	var walkErr error
	body.Walk(func(n *syntax.Node) bool {
		if walkErr != nil || n.Kind() == syntax.KindClosureExpr {
			return false
		}
		if n.Kind() != syntax.KindReturnStat {
			return true
		}
		returns++
		for i, e := range n.Children() {
			t, err := in.expr(guard.Fork(), f, e)
			if errors.Is(err, ErrCancelled) {
				walkErr = err
				return false
			}
			if err != nil {
				t = luatype.Unknown
			}
			if i >= len(positions) {
				positions = append(positions, nil)
			}
			positions[i] = append(positions[i], t)
		}
		return false
	})
	if walkErr != nil {
		return nil, walkErr
	}
	rets := make([]luatype.Type, len(positions))
	for i, ts := range positions {
		// a shorter return statement yields nil in this position
		if len(ts) < returns {
			ts = append(ts, luatype.Nil)
		}
		rets[i] = luatype.NewUnion(ts...)
	}
	return rets, nil
}

// instantiate binds the template parameters of f from the argument types
// of a call.
func instantiate(f *luatype.FunctionType, args []luatype.Type, colonCall bool) map[int]luatype.Type {
	subst := make(map[int]luatype.Type)
	for argIndex, arg := range args {
		paramIndex, ok := alignParam(f, argIndex, colonCall)
		if !ok {
			continue
		}
		param, ok := paramAt(f, paramIndex)
		if !ok {
			break
		}
		bindTemplate(subst, param, arg)
	}
	return subst
}

func bindTemplate(subst map[int]luatype.Type, param, arg luatype.Type) {
	switch p := param.(type) {
	case luatype.TemplateRef:
		if _, ok := subst[p.Index]; !ok {
			subst[p.Index] = arg
		}
	case *luatype.Array:
		switch a := arg.(type) {
		case *luatype.Array:
			bindTemplate(subst, p.Elem, a.Elem)
		case *luatype.TableOf:
			bindTemplate(subst, p.Elem, a.Value)
		}
	case *luatype.TableOf:
		if a, ok := arg.(*luatype.TableOf); ok {
			bindTemplate(subst, p.Key, a.Key)
			bindTemplate(subst, p.Value, a.Value)
		}
	case *luatype.Union:
		for _, m := range p.Types {
			if m != luatype.Nil {
				bindTemplate(subst, m, luatype.RemoveNil(arg))
				return
			}
		}
	}
}

// bindTemplates replaces template references in t.  Unbound templates
// become Any.
func bindTemplates(t luatype.Type, subst map[int]luatype.Type) luatype.Type {
	sub := func(t luatype.Type) luatype.Type { return bindTemplates(t, subst) }
	switch t := t.(type) {
	case luatype.TemplateRef:
		if arg, ok := subst[t.Index]; ok {
			return arg
		}
		return luatype.Any
	case *luatype.Array:
		return &luatype.Array{Elem: sub(t.Elem)}
	case *luatype.TableOf:
		return &luatype.TableOf{Key: sub(t.Key), Value: sub(t.Value)}
	case *luatype.Union:
		ts := make([]luatype.Type, len(t.Types))
		for i, m := range t.Types {
			ts[i] = sub(m)
		}
		return luatype.NewUnion(ts...)
	case *luatype.Generic:
		args := make([]luatype.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = sub(a)
		}
		return &luatype.Generic{Base: t.Base, Args: args}
	}
	return t
}

func isIntegral(t luatype.Type) bool {
	return luatype.Base(t) == luatype.Integer
}

func isNumeric(t luatype.Type) bool {
	b := luatype.Base(t)
	return b == luatype.Integer || b == luatype.Number
}

func (in *inferrer) binary(guard *InferGuard, f *analysis.FileIndex, n *syntax.Node) (luatype.Type, error) {
	switch op := n.Text(); op {
	case "==", "~=", "<", "<=", ">", ">=":
		return luatype.Boolean, nil
	case "..":
		return luatype.String, nil
	case "&", "|", "~", "<<", ">>":
		return luatype.Integer, nil
	case "/", "^":
		return luatype.Number, nil
	case "and", "or":
		left, err := in.expr(guard.Fork(), f, n.Child(0))
		if err != nil {
			left = luatype.Unknown
		}
		right, err := in.expr(guard.Fork(), f, n.Child(1))
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		if err != nil {
			right = luatype.Unknown
		}
		if op == "and" {
			return right, nil
		}
		if left = luatype.RemoveNil(left); left == luatype.Nil {
			return right, nil
		}
		return luatype.NewUnion(left, right), nil
	default:
		left, err := in.expr(guard.Fork(), f, n.Child(0))
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		right, err2 := in.expr(guard.Fork(), f, n.Child(1))
		if errors.Is(err2, ErrCancelled) {
			return nil, err2
		}
		if err == nil && err2 == nil && isIntegral(left) && isIntegral(right) {
			return luatype.Integer, nil
		}
		return luatype.Number, nil
	}
}

func (in *inferrer) unary(guard *InferGuard, f *analysis.FileIndex, n *syntax.Node) (luatype.Type, error) {
	switch n.Text() {
	case "not":
		return luatype.Boolean, nil
	case "#", "~":
		return luatype.Integer, nil
	}
	t, err := in.expr(guard, f, n.Child(0))
	if err != nil {
		return nil, err
	}
	switch t := t.(type) {
	case luatype.IntegerConst:
		return -t, nil
	case luatype.FloatConst:
		return -t, nil
	}
	if isNumeric(t) {
		return luatype.Base(t), nil
	}
	return luatype.Number, nil
}
