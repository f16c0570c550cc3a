// Copyright © 2024 The ELPS authors

package semantic

import (
	"testing"

	"github.com/luthersystems/emmylua/luatype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferGuardCheck(t *testing.T) {
	g := NewInferGuard()
	require.NoError(t, g.Check("A"))
	assert.True(t, g.Contains("A"))
	assert.ErrorIs(t, g.Check("A"), ErrRecursiveInfer)
	assert.Equal(t, 1, g.CurrentDepth(), "a failed check must not change the guard")
	require.NoError(t, g.Check("B"))
	assert.Equal(t, 2, g.CurrentDepth())
}

func TestInferGuardFork(t *testing.T) {
	root := NewInferGuard()
	require.NoError(t, root.Check("T"))

	child := root.Fork()
	assert.Equal(t, 1, child.Level())
	assert.Equal(t, 0, child.CurrentDepth())
	assert.Equal(t, 1, child.TotalDepth())
	assert.ErrorIs(t, child.Check("T"), ErrRecursiveInfer, "a fork sees its ancestors")

	require.NoError(t, child.Check("U"))
	assert.False(t, root.Contains("U"), "visits through a fork stay in the fork")

	sibling := root.Fork()
	assert.NoError(t, sibling.Check("U"), "siblings do not share visits")

	assert.NoError(t, NewInferGuard().Check("T"), "an unrelated root is independent")
}

func TestInferGuardTerminates(t *testing.T) {
	// Walk a cyclic chain of names the way inference descends into supers.
	next := map[luatype.TypeDeclID]luatype.TypeDeclID{"A": "B", "B": "C", "C": "A"}
	g := NewInferGuard()
	id := luatype.TypeDeclID("A")
	steps := 0
	var err error
	for ; steps < 10; steps++ {
		if err = g.Check(id); err != nil {
			break
		}
		g = g.Fork()
		id = next[id]
	}
	assert.ErrorIs(t, err, ErrRecursiveInfer)
	assert.Equal(t, 3, steps)
	assert.Equal(t, 3, g.TotalDepth())
	assert.Equal(t, 3, g.Level())
}
