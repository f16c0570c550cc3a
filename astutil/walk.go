// Copyright © 2024 The ELPS authors

// Package astutil provides shared syntax tree walking utilities for Lua
// files.
//
// These helpers are used by the lint and lsp packages for traversing
// parsed chunks.
package astutil

import "github.com/luthersystems/emmylua/syntax"

// Walk calls fn for every node in the tree, depth-first.
// parent is nil for the root.
func Walk(tree *syntax.Tree, fn func(node *syntax.Node, parent *syntax.Node, depth int)) {
	if tree == nil || tree.Root == nil {
		return
	}
	walkNode(tree.Root, nil, 0, fn)
}

func walkNode(node *syntax.Node, parent *syntax.Node, depth int, fn func(*syntax.Node, *syntax.Node, int)) {
	if node == nil {
		return
	}
	fn(node, parent, depth)
	for _, child := range node.Children() {
		walkNode(child, node, depth+1, fn)
	}
}

// WalkKind calls fn for every node of kind k in the tree, depth-first.
func WalkKind(tree *syntax.Tree, k syntax.Kind, fn func(n *syntax.Node)) {
	Walk(tree, func(node *syntax.Node, _ *syntax.Node, _ int) {
		if node.Kind() == k {
			fn(node)
		}
	})
}

// IsDefinition reports whether the name or index expression n is the
// target of an assignment or function statement rather than a read.
func IsDefinition(n *syntax.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case syntax.KindFuncStat:
		return parent.Child(0) == n
	case syntax.KindAssignStat:
		for _, target := range syntax.AssignTargets(parent) {
			if target == n {
				return true
			}
		}
	}
	return false
}

// Enclosing returns the innermost node at offset whose kind is one of
// kinds, or nil.
func Enclosing(tree *syntax.Tree, offset int, kinds ...syntax.Kind) *syntax.Node {
	for n := tree.NodeAt(offset); n != nil; n = n.Parent() {
		for _, k := range kinds {
			if n.Kind() == k {
				return n
			}
		}
	}
	return nil
}

// Callee returns the function expression of a call, or nil when call is
// not a call expression.
func Callee(call *syntax.Node) *syntax.Node {
	if call == nil || call.Kind() != syntax.KindCallExpr {
		return nil
	}
	return call.Child(0)
}
