// Copyright © 2024 The ELPS authors

package semantic

import (
	"github.com/luthersystems/emmylua/luatype"
)

// InferGuard detects recursion while inference descends into named types.
// A guard and its ancestors together hold the types being visited on the
// current path.  Guards are not safe for concurrent use; each top level
// inference creates its own root with NewInferGuard.
type InferGuard struct {
	visited map[luatype.TypeDeclID]struct{}
	parent  *InferGuard
}

// NewInferGuard returns a root guard.
func NewInferGuard() *InferGuard {
	return &InferGuard{visited: make(map[luatype.TypeDeclID]struct{})}
}

// Check records a visit of id.  It returns ErrRecursiveInfer, leaving the
// guard unchanged, when id is already visited by g or an ancestor.
func (g *InferGuard) Check(id luatype.TypeDeclID) error {
	if g.Contains(id) {
		recordGuardHit()
		return ErrRecursiveInfer
	}
	g.visited[id] = struct{}{}
	return nil
}

// Contains reports whether id is visited by g or an ancestor.
func (g *InferGuard) Contains(id luatype.TypeDeclID) bool {
	for cur := g; cur != nil; cur = cur.parent {
		if _, ok := cur.visited[id]; ok {
			return true
		}
	}
	return false
}

// Fork returns a child guard with an empty visited set.  Visits made
// through the child are invisible to g and to g's other children, while
// the child still sees every visit of its ancestors.
func (g *InferGuard) Fork() *InferGuard {
	return &InferGuard{
		visited: make(map[luatype.TypeDeclID]struct{}),
		parent:  g,
	}
}

// CurrentDepth returns the number of types visited by g itself.
func (g *InferGuard) CurrentDepth() int {
	return len(g.visited)
}

// TotalDepth returns the number of types visited by g and its ancestors.
func (g *InferGuard) TotalDepth() int {
	n := 0
	for cur := g; cur != nil; cur = cur.parent {
		n += len(cur.visited)
	}
	return n
}

// Level returns the number of ancestors of g.
func (g *InferGuard) Level() int {
	n := 0
	for cur := g.parent; cur != nil; cur = cur.parent {
		n++
	}
	return n
}
