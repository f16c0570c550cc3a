// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/emmylua/syntax"

// ScopeKind classifies the kind of scope.
type ScopeKind int

const (
	ScopeFile     ScopeKind = iota // chunk level
	ScopeFunction                  // function body, including parameters
	ScopeBlock                     // do, then, else bodies
	ScopeLoop                      // while, repeat and for bodies
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFile:
		return "file"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Scope represents a lexical scope in the source.  Lua locals are visible
// from the statement after their declaration, so a scope is populated in
// source order while the file is walked.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope
	Decls    map[string]*Decl
	Node     *syntax.Node // the node that introduced this scope
}

// NewScope creates a new scope of the given kind with the given parent.
func NewScope(kind ScopeKind, parent *Scope, node *syntax.Node) *Scope {
	s := &Scope{
		Kind:   kind,
		Parent: parent,
		Decls:  make(map[string]*Decl),
		Node:   node,
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Define adds a declaration to this scope, shadowing any earlier
// declaration of the same name.
func (s *Scope) Define(decl *Decl) {
	s.Decls[decl.Name] = decl
}

// Lookup resolves a name by walking the parent chain.
// Returns nil if the name is not declared.
func (s *Scope) Lookup(name string) *Decl {
	for scope := s; scope != nil; scope = scope.Parent {
		if decl, ok := scope.Decls[name]; ok {
			return decl
		}
	}
	return nil
}

// LookupLocal resolves a name only in this scope (not parents).
func (s *Scope) LookupLocal(name string) *Decl {
	return s.Decls[name]
}

// Innermost returns the deepest scope whose node contains offset.
func (s *Scope) Innermost(offset int) *Scope {
	for _, c := range s.Children {
		if c.Node != nil && c.Node.Range().Contains(offset) {
			return c.Innermost(offset)
		}
	}
	return s
}
