// Copyright © 2024 The ELPS authors

package syntax

import "fmt"

// Tree is the parsed form of one source file.
type Tree struct {
	File   string
	Root   *Node
	Errors []*Error
	source string
}

// NewTree returns a tree for file with the given root.
func NewTree(file, source string, root *Node, errs []*Error) *Tree {
	return &Tree{
		File:   file,
		Root:   root,
		Errors: errs,
		source: source,
	}
}

// Source returns the text the tree was parsed from.
func (t *Tree) Source() string {
	return t.source
}

// NodeText returns the source text spanned by n.
func (t *Tree) NodeText(n *Node) string {
	r := n.Range()
	if r.Start.Offset < 0 || r.End.Offset > len(t.source) || r.Start.Offset > r.End.Offset {
		return ""
	}
	return t.source[r.Start.Offset:r.End.Offset]
}

// NodeAt returns the innermost node whose range contains offset.
func (t *Tree) NodeAt(offset int) *Node {
	if t.Root == nil || !t.Root.Range().Contains(offset) {
		return nil
	}
	n := t.Root
	for {
		var next *Node
		for _, c := range n.Children() {
			if c.Range().Contains(offset) {
				next = c
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}

// Error is a syntax error with its location.
type Error struct {
	Range Range
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Range.Start.Line, e.Range.Start.Col, e.Msg)
}
