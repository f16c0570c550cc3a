// Copyright © 2024 The ELPS authors

package semantic

import (
	"context"
	"errors"
	"sort"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Model answers semantic questions about one file against a consistent
// database snapshot.  A Model must not outlive the Snapshot it was created
// from.
type Model struct {
	db     *analysis.Snapshot
	file   *analysis.FileIndex
	tracer trace.Tracer
}

// NewModel returns a model for file.
func NewModel(db *analysis.Snapshot, file *analysis.FileIndex) *Model {
	return &Model{db: db, file: file, tracer: tracer()}
}

// Snapshot returns the database snapshot m reads from.
func (m *Model) Snapshot() *analysis.Snapshot { return m.db }

// File returns the file index m answers questions about.
func (m *Model) File() *analysis.FileIndex { return m.file }

// InferExpr returns the type of expression n.  It returns ErrNone when
// nothing is known about n, ErrRecursiveInfer when n is defined in terms of
// itself and ErrCancelled when ctx is done.
func (m *Model) InferExpr(ctx context.Context, n *syntax.Node) (luatype.Type, error) {
	ctx, span := m.tracer.Start(ctx, "semantic.InferExpr",
		trace.WithAttributes(attribute.String("emmylua.node", n.Kind().String())))
	defer span.End()
	t, err := newInferrer(ctx, m.db).expr(NewInferGuard(), m.file, n)
	switch {
	case errors.Is(err, ErrCancelled):
		span.SetStatus(codes.Error, err.Error())
	case errors.Is(err, ErrRecursiveInfer):
		log.Debugf("recursive inference at %s:%d", m.file.URI, n.Range().Start.Line)
	}
	return t, err
}

// DeclType returns the type of decl.
func (m *Model) DeclType(ctx context.Context, decl *analysis.Decl) (luatype.Type, error) {
	return newInferrer(ctx, m.db).declType(NewInferGuard(), decl)
}

// MemberType returns the type of member.
func (m *Model) MemberType(ctx context.Context, member *analysis.Member) (luatype.Type, error) {
	return newInferrer(ctx, m.db).memberType(NewInferGuard(), member, nil)
}

// FindDecl returns the declaration that n names: a variable for names, a
// member for index expressions and a signature for function bodies.
func (m *Model) FindDecl(ctx context.Context, n *syntax.Node) (analysis.SemanticDeclID, bool) {
	in := newInferrer(ctx, m.db)
	switch n.Kind() {
	case syntax.KindNameExpr:
		decl, ok := in.nameDecl(m.file, n)
		if !ok {
			return analysis.SemanticDeclID{}, false
		}
		return analysis.DeclOwner(decl.ID), true
	case syntax.KindLocalName, syntax.KindParamName:
		id := analysis.DeclID{File: m.file.File, Pos: n.Pos()}
		if _, ok := m.file.Decls[id]; !ok {
			return analysis.SemanticDeclID{}, false
		}
		return analysis.DeclOwner(id), true
	case syntax.KindIndexExpr:
		member, ok := m.IndexMember(ctx, n)
		if !ok {
			return analysis.SemanticDeclID{}, false
		}
		return analysis.MemberDeclOwner(member.ID), true
	case syntax.KindClosureExpr:
		id := luatype.SignatureID{File: m.file.File, Pos: n.Pos()}
		if _, ok := m.db.Signature(id); !ok {
			return analysis.SemanticDeclID{}, false
		}
		return analysis.SignatureOwner(id), true
	}
	return analysis.SemanticDeclID{}, false
}

// IndexMember returns the member selected by the IndexExpr n.
func (m *Model) IndexMember(ctx context.Context, n *syntax.Node) (*analysis.Member, bool) {
	if n.Kind() != syntax.KindIndexExpr {
		return nil, false
	}
	name, ok := indexKey(n)
	if !ok {
		return nil, false
	}
	member, _, err := newInferrer(ctx, m.db).indexMember(NewInferGuard(), m.file, n.Child(0), name)
	return member, err == nil
}

// Members returns the members available on values of type t, nearest
// first.  A member shadowed by one of the same name closer to t is omitted.
func (m *Model) Members(ctx context.Context, t luatype.Type) ([]*analysis.Member, error) {
	seen := make(map[string]struct{})
	var out []*analysis.Member
	err := m.collectMembers(ctx, NewInferGuard(), t, seen, &out)
	return out, err
}

func (m *Model) collectMembers(ctx context.Context, guard *InferGuard, t luatype.Type, seen map[string]struct{}, out *[]*analysis.Member) error {
	if err := cancelled(ctx); err != nil {
		return err
	}
	add := func(owner analysis.MemberOwner) {
		members := append([]*analysis.Member(nil), m.db.Members(owner)...)
		sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
		for _, member := range members {
			if _, ok := seen[member.Name]; ok {
				continue
			}
			seen[member.Name] = struct{}{}
			*out = append(*out, member)
		}
	}
	var id luatype.TypeDeclID
	switch t := t.(type) {
	case *luatype.Union:
		for _, alt := range t.Types {
			if err := m.collectMembers(ctx, guard.Fork(), alt, seen, out); err != nil && !errors.Is(err, ErrRecursiveInfer) {
				return err
			}
		}
		return nil
	case luatype.TableLiteral:
		add(analysis.TableOwner(t))
		return nil
	case luatype.StringConst:
		return m.collectMembers(ctx, guard, luatype.String, seen, out)
	case luatype.Basic:
		if t == luatype.String {
			if decl, ok := m.db.Global("string"); ok {
				st, err := newInferrer(ctx, m.db).declType(guard, decl)
				if err != nil {
					return err
				}
				return m.collectMembers(ctx, guard, st, seen, out)
			}
		}
		return nil
	case luatype.Ref:
		id = t.ID()
	case *luatype.Generic:
		id = t.Base
	default:
		return nil
	}
	if err := guard.Check(id); err != nil {
		return err
	}
	decls := m.db.TypeDecls(id)
	if len(decls) > 0 && decls[0].Kind == analysis.TypeAlias {
		for _, td := range decls {
			if td.Alias != nil {
				return m.collectMembers(ctx, guard, td.Alias, seen, out)
			}
		}
		return nil
	}
	add(analysis.TypeOwner(id))
	for _, td := range decls {
		for _, super := range td.Supers {
			err := m.collectMembers(ctx, guard.Fork(), super, seen, out)
			if err != nil && !errors.Is(err, ErrRecursiveInfer) {
				return err
			}
		}
	}
	return nil
}

// CallSignatures returns every candidate signature of the CallExpr call in
// declaration order.
func (m *Model) CallSignatures(ctx context.Context, call *syntax.Node) ([]*luatype.FunctionType, error) {
	if call.Kind() != syntax.KindCallExpr {
		return nil, ErrNone
	}
	cands, _, err := newInferrer(ctx, m.db).callCandidates(NewInferGuard(), m.file, call)
	return cands, err
}

// ResolveCall returns the signature selected for the CallExpr call by
// overload resolution against its argument types.
func (m *Model) ResolveCall(ctx context.Context, call *syntax.Node) (*luatype.FunctionType, error) {
	if call.Kind() != syntax.KindCallExpr {
		return nil, ErrNone
	}
	ctx, span := m.tracer.Start(ctx, "semantic.ResolveCall")
	defer span.End()
	chosen, _, _, err := newInferrer(ctx, m.db).resolve(NewInferGuard(), m.file, call)
	if errors.Is(err, ErrCancelled) {
		span.SetStatus(codes.Error, err.Error())
	}
	return chosen, err
}

// CallSignature returns the declared signature behind a resolved call, if
// the callee is a function body in the workspace.
func (m *Model) CallSignature(ctx context.Context, call *syntax.Node) (*analysis.Signature, bool) {
	if call.Kind() != syntax.KindCallExpr {
		return nil, false
	}
	callee, err := m.InferExpr(ctx, call.Child(0))
	if err != nil {
		return nil, false
	}
	for _, alt := range luatype.Members(callee) {
		if s, ok := alt.(luatype.Signature); ok {
			return m.db.Signature(luatype.SignatureID(s))
		}
	}
	return nil, false
}

// ArgMismatch is a call argument whose type does not fit its parameter.
type ArgMismatch struct {
	Arg   *syntax.Node
	Param luatype.Param
	Type  luatype.Type
}

// CheckCallArgs resolves call and returns each argument whose inferred type
// is incompatible with the declared type of its parameter.  Arguments and
// parameters without a known type are not checked.
func (m *Model) CheckCallArgs(ctx context.Context, call *syntax.Node) ([]ArgMismatch, error) {
	if call.Kind() != syntax.KindCallExpr {
		return nil, ErrNone
	}
	chosen, args, _, err := newInferrer(ctx, m.db).resolve(NewInferGuard(), m.file, call)
	if err != nil {
		return nil, err
	}
	colon := syntax.IsColonCall(call)
	nodes := syntax.CallArgs(call)
	var out []ArgMismatch
	for i, arg := range args {
		paramIndex, ok := alignParam(chosen, i, colon)
		if !ok {
			continue
		}
		paramType, ok := paramAt(chosen, paramIndex)
		if !ok {
			break
		}
		if luatype.IsAny(paramType) || luatype.IsAny(arg) {
			continue
		}
		err := CheckCompatible(m.db, NewInferGuard(), paramType, arg)
		if !errors.Is(err, ErrTypeMismatch) {
			continue
		}
		param := chosen.Params[min(paramIndex, len(chosen.Params)-1)]
		param.Type = paramType
		out = append(out, ArgMismatch{Arg: nodes[i], Param: param, Type: arg})
	}
	return out, nil
}
