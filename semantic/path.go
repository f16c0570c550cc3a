// Copyright © 2024 The ELPS authors

package semantic

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
)

// VisibleDecl returns the local declaration of name in scope at offset, or
// nil when name is not a visible local.
func (m *Model) VisibleDecl(offset int, name string) *analysis.Decl {
	if m.file.Scope == nil {
		return nil
	}
	for s := m.file.Scope.Innermost(offset); s != nil; s = s.Parent {
		if d, ok := s.Decls[name]; ok && d.Kind != analysis.DeclGlobal && d.Range.Start.Offset <= offset {
			return d
		}
	}
	return nil
}

// VisibleDecls returns the local declarations in scope at offset, nearest
// scope first and sorted by name within a scope.
func (m *Model) VisibleDecls(offset int) []*analysis.Decl {
	if m.file.Scope == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []*analysis.Decl
	for s := m.file.Scope.Innermost(offset); s != nil; s = s.Parent {
		var decls []*analysis.Decl
		for name, d := range s.Decls {
			if _, ok := seen[name]; ok || d.Kind == analysis.DeclGlobal || d.Range.Start.Offset > offset {
				continue
			}
			seen[name] = struct{}{}
			decls = append(decls, d)
		}
		sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
		out = append(out, decls...)
	}
	return out
}

// ResolvePath returns the type of the dotted name path, such as
// ["cfg", "server", "port"], as seen at offset.  The first name is looked
// up among the visible locals and then the globals.  Every later name
// selects a member.
func (m *Model) ResolvePath(ctx context.Context, offset int, path []string) (luatype.Type, error) {
	t, _, err := m.resolvePath(ctx, offset, path)
	return t, err
}

// resolvePath is ResolvePath that also reports whether path reads only
// globals.
func (m *Model) resolvePath(ctx context.Context, offset int, path []string) (luatype.Type, bool, error) {
	if len(path) == 0 {
		return nil, false, ErrNone
	}
	in := newInferrer(ctx, m.db)
	guard := NewInferGuard()
	decl, global := m.VisibleDecl(offset, path[0]), false
	if decl == nil {
		g, ok := m.db.Global(path[0])
		if !ok {
			return nil, false, ErrNone
		}
		decl, global = g, true
	}
	t, err := in.declType(guard, decl)
	if err != nil && !global {
		return nil, false, err
	}
	for i, name := range path[1:] {
		var member *analysis.Member
		var subst map[string]luatype.Type
		if err == nil {
			member, subst, err = in.findMember(guard.Fork(), t, name)
		}
		if err != nil {
			if errors.Is(err, ErrCancelled) || !global {
				return nil, false, err
			}
			var ok bool
			member, ok = m.db.Member(analysis.GlobalOwner(strings.Join(path[:i+1], ".")), name)
			if !ok {
				return nil, false, err
			}
			subst = nil
		}
		t, err = in.memberType(guard.Fork(), member, subst)
	}
	return t, global, err
}

// PathMembers returns the members of the value named by path as seen at
// offset.  For a path of globals the members assigned through the dotted
// global name are included.
func (m *Model) PathMembers(ctx context.Context, offset int, path []string) ([]*analysis.Member, error) {
	t, global, err := m.resolvePath(ctx, offset, path)
	if err != nil && (errors.Is(err, ErrCancelled) || !global) {
		return nil, err
	}
	var out []*analysis.Member
	seen := make(map[string]struct{})
	if err == nil {
		if err := m.collectMembers(ctx, NewInferGuard(), t, seen, &out); err != nil && !errors.Is(err, ErrRecursiveInfer) {
			return nil, err
		}
	}
	if global {
		extra := append([]*analysis.Member(nil), m.db.Members(analysis.GlobalOwner(strings.Join(path, ".")))...)
		sort.SliceStable(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
		for _, member := range extra {
			if _, ok := seen[member.Name]; ok {
				continue
			}
			seen[member.Name] = struct{}{}
			out = append(out, member)
		}
	}
	return out, nil
}
