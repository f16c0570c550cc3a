// Copyright © 2024 The ELPS authors

// Package syntax provides the immutable syntax tree produced by the parser.
//
// Node layout by kind:
//
//	Chunk          Block
//	Block          (Comment | statement)*
//	LocalStat      LocalName+ expr*
//	AssignStat     target+ expr+            Payload: AssignInfo
//	FuncStat       (NameExpr | IndexExpr) ClosureExpr
//	LocalFuncStat  LocalName ClosureExpr
//	CallStat       CallExpr
//	ReturnStat     expr*
//	IfStat         expr Block ElseIfClause* ElseClause?
//	NumericForStat LocalName expr expr expr? Block
//	GenericForStat LocalName+ expr+ Block  Payload: ForInfo
//	NameExpr       Text: name
//	IndexExpr      expr expr?               Payload: IndexStyle, Text: field
//	CallExpr       expr ArgList
//	LiteralExpr                              Payload: Literal
//	TableExpr      TableField*
//	TableField     expr? expr               Payload: FieldStyle, Text: name
//	ClosureExpr    ParamList Block          Payload: FuncInfo
//	BinaryExpr     expr expr                Text: operator
//	UnaryExpr      expr                     Text: operator
//	Comment        doc tag*                 Payload: CommentInfo
package syntax

// Position is a location in source text.  Line and Col start at 1; Col
// counts bytes.
type Position struct {
	Offset int
	Line   int
	Col    int
}

// Range is the half-open span [Start, End) of a node.
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether offset falls within r.  The end offset is
// included so that a cursor placed just after a name still selects it.
func (r Range) Contains(offset int) bool {
	return r.Start.Offset <= offset && offset <= r.End.Offset
}

// Node is an immutable syntax tree node.
type Node struct {
	kind     Kind
	rng      Range
	text     string
	payload  any
	parent   *Node
	children []*Node
	index    int
}

// New returns a node of the given kind.  New takes ownership of children
// and links each of them back to the returned node.
func New(kind Kind, rng Range, text string, payload any, children ...*Node) *Node {
	n := &Node{
		kind:     kind,
		rng:      rng,
		text:     text,
		payload:  payload,
		children: children,
	}
	for i, c := range children {
		c.parent = n
		c.index = i
	}
	return n
}

func (n *Node) Kind() Kind       { return n.kind }
func (n *Node) Range() Range     { return n.rng }
func (n *Node) Pos() int         { return n.rng.Start.Offset }
func (n *Node) Text() string     { return n.text }
func (n *Node) Payload() any     { return n.payload }
func (n *Node) Parent() *Node    { return n.parent }
func (n *Node) Children() []*Node { return n.children }

// Child returns the i-th child of n or nil.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// LastChild returns the final child of n or nil.
func (n *Node) LastChild() *Node {
	return n.Child(len(n.children) - 1)
}

// NextSibling returns the node following n under the same parent.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index + 1)
}

// PrevSibling returns the node preceding n under the same parent.
func (n *Node) PrevSibling() *Node {
	if n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index - 1)
}

// ChildOfKind returns the first child of n with kind k.
func (n *Node) ChildOfKind(k Kind) *Node {
	for _, c := range n.children {
		if c.kind == k {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns every child of n with kind k.
func (n *Node) ChildrenOfKind(k Kind) []*Node {
	var nodes []*Node
	for _, c := range n.children {
		if c.kind == k {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

// Ancestor returns the nearest proper ancestor of n with kind k.
func (n *Node) Ancestor(k Kind) *Node {
	for p := n.parent; p != nil; p = p.parent {
		if p.kind == k {
			return p
		}
	}
	return nil
}

// Literal returns the literal carried by a LiteralExpr or DocAttributeArg.
func (n *Node) Literal() (Literal, bool) {
	lit, ok := n.payload.(Literal)
	return lit, ok
}

// Walk calls fn for n and each of its descendants in source order.  If fn
// returns false the children of that node are skipped.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// IndexStyle distinguishes a.b, a:b and a[b].
type IndexStyle uint8

const (
	IndexDot IndexStyle = iota
	IndexColon
	IndexBracket
)

// Style returns the index style of an IndexExpr.
func (n *Node) Style() IndexStyle {
	s, _ := n.payload.(IndexStyle)
	return s
}

// FieldStyle distinguishes {a = v}, {[k] = v} and {v}.
type FieldStyle uint8

const (
	FieldNamed FieldStyle = iota
	FieldKeyed
	FieldPositional
)

// AssignInfo records how many children of an AssignStat are targets.
type AssignInfo struct {
	Targets int
}

// ForInfo records how many children of a GenericForStat are names.
type ForInfo struct {
	Names int
}

// FuncInfo records whether a ClosureExpr was declared with method syntax,
// function t:m() end.
type FuncInfo struct {
	Colon bool
}

// LocalAttrib is the payload of a LocalName declared with <const> or
// <close>.
type LocalAttrib string

// CommentInfo describes a doc comment group.  An attached comment
// documents the statement that immediately follows it.
type CommentInfo struct {
	Attached bool
}

// CommentOwner returns the statement documented by comment c.
func CommentOwner(c *Node) (*Node, bool) {
	info, _ := c.payload.(CommentInfo)
	if c.kind != KindComment || !info.Attached {
		return nil, false
	}
	next := c.NextSibling()
	if next == nil || !next.kind.IsStat() {
		return nil, false
	}
	return next, true
}

// Comment returns the doc comment attached to statement n.
func Comment(n *Node) (*Node, bool) {
	prev := n.PrevSibling()
	if prev == nil || prev.kind != KindComment {
		return nil, false
	}
	owner, ok := CommentOwner(prev)
	if !ok || owner != n {
		return nil, false
	}
	return prev, true
}

// AssignTargets returns the target expressions of an AssignStat.
func AssignTargets(n *Node) []*Node {
	info, _ := n.payload.(AssignInfo)
	if info.Targets > len(n.children) {
		return n.children
	}
	return n.children[:info.Targets]
}

// AssignValues returns the value expressions of an AssignStat.
func AssignValues(n *Node) []*Node {
	info, _ := n.payload.(AssignInfo)
	if info.Targets > len(n.children) {
		return nil
	}
	return n.children[info.Targets:]
}

// LocalNames returns the LocalName children of a LocalStat.
func LocalNames(n *Node) []*Node {
	return n.ChildrenOfKind(KindLocalName)
}

// LocalValues returns the initializer expressions of a LocalStat.
func LocalValues(n *Node) []*Node {
	var vals []*Node
	for _, c := range n.children {
		if c.kind != KindLocalName {
			vals = append(vals, c)
		}
	}
	return vals
}

// CallArgs returns the argument expressions of a CallExpr.
func CallArgs(call *Node) []*Node {
	args := call.ChildOfKind(KindArgList)
	if args == nil {
		return nil
	}
	return args.children
}

// IsColonCall reports whether call uses method call syntax, o:m().
func IsColonCall(call *Node) bool {
	callee := call.Child(0)
	return callee != nil && callee.kind == KindIndexExpr && callee.Style() == IndexColon
}
