// Copyright © 2024 The ELPS authors

package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(start, end int) Range {
	return Range{
		Start: Position{Offset: start, Line: 1, Col: start + 1},
		End:   Position{Offset: end, Line: 1, Col: end + 1},
	}
}

func TestNodeNavigation(t *testing.T) {
	a := New(KindDocTagClass, span(0, 5), "", DocClass{Name: "A"})
	b := New(KindDocTagAttributeUse, span(5, 10), "", nil)
	c := New(KindDocTagField, span(10, 15), "", DocField{Name: "x"})
	comment := New(KindComment, span(0, 15), "", CommentInfo{Attached: true}, a, b, c)
	stat := New(KindLocalStat, span(16, 20), "", nil, New(KindLocalName, span(22, 23), "A", nil))
	block := New(KindBlock, span(0, 20), "", nil, comment, stat)

	assert.Equal(t, comment, a.Parent())
	assert.Equal(t, b, a.NextSibling())
	assert.Equal(t, c, b.NextSibling())
	assert.Nil(t, c.NextSibling())
	assert.Equal(t, a, b.PrevSibling())
	assert.Equal(t, block, comment.Parent())
	assert.Equal(t, comment, c.Ancestor(KindComment))
	assert.Nil(t, c.Ancestor(KindChunk))

	owner, ok := CommentOwner(comment)
	require.True(t, ok)
	assert.Equal(t, stat, owner)

	doc, ok := Comment(stat)
	require.True(t, ok)
	assert.Equal(t, comment, doc)

	assert.Equal(t, []*Node{stat.Child(0)}, LocalNames(stat))
	assert.Empty(t, LocalValues(stat))
}

func TestDetachedComment(t *testing.T) {
	comment := New(KindComment, span(0, 5), "", CommentInfo{Attached: false})
	stat := New(KindBreakStat, span(7, 12), "", nil)
	New(KindBlock, span(0, 12), "", nil, comment, stat)

	_, ok := CommentOwner(comment)
	assert.False(t, ok)
	_, ok = Comment(stat)
	assert.False(t, ok)
}

func TestAssignParts(t *testing.T) {
	x := New(KindNameExpr, span(0, 1), "x", nil)
	y := New(KindNameExpr, span(3, 4), "y", nil)
	one := New(KindLiteralExpr, span(7, 8), "", Literal{Kind: LitInt, Raw: "1", Int: 1})
	stat := New(KindAssignStat, span(0, 8), "", AssignInfo{Targets: 2}, x, y, one)

	assert.Equal(t, []*Node{x, y}, AssignTargets(stat))
	assert.Equal(t, []*Node{one}, AssignValues(stat))

	lit, ok := one.Literal()
	require.True(t, ok)
	assert.Equal(t, LitInt, lit.Kind)
	assert.Equal(t, int64(1), lit.Int)
}

func TestKindClasses(t *testing.T) {
	assert.True(t, KindLocalStat.IsStat())
	assert.True(t, KindLabelStat.IsStat())
	assert.False(t, KindNameExpr.IsStat())
	assert.True(t, KindParenExpr.IsExpr())
	assert.False(t, KindComment.IsExpr())
	assert.True(t, KindDocTagField.IsDocTag())
	assert.False(t, KindComment.IsDocTag())
	assert.Equal(t, "DocTagAttributeUse", KindDocTagAttributeUse.String())
	assert.Equal(t, "Invalid", Kind(200).String())
}

func TestTreeNodeAt(t *testing.T) {
	src := "x = y"
	x := New(KindNameExpr, span(0, 1), "x", nil)
	y := New(KindNameExpr, span(4, 5), "y", nil)
	stat := New(KindAssignStat, span(0, 5), "", AssignInfo{Targets: 1}, x, y)
	root := New(KindChunk, span(0, 5), "", nil, New(KindBlock, span(0, 5), "", nil, stat))
	tree := NewTree("test.lua", src, root, nil)

	assert.Equal(t, y, tree.NodeAt(4))
	assert.Equal(t, x, tree.NodeAt(0))
	assert.Equal(t, stat, tree.NodeAt(2))
	assert.Equal(t, "y", tree.NodeText(y))
	assert.Nil(t, tree.NodeAt(20))
}
