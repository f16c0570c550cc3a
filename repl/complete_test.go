// Copyright © 2018 The ELPS authors

package repl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolCompleter(t *testing.T) {
	db := testDatabase(t, `App = {}
App.name = "demo"
App.version = 2
`)
	in := NewInspector(db)
	defer in.Close() //nolint:errcheck // test cleanup
	c := &symbolCompleter{ctx: context.Background(), in: in}

	// "pri" should match print.
	candidates, offset := c.Do([]rune("pri"), 3)
	assert.Equal(t, 3, offset)
	require.NotEmpty(t, candidates)
	assert.Contains(t, candidates, []rune("nt"))

	// "App." should complete with the members assigned to App.
	candidates, offset = c.Do([]rune("App.n"), 5)
	assert.Equal(t, 1, offset)
	assert.Equal(t, [][]rune{[]rune("ame")}, candidates)

	// "zzz_nonexistent" should have no completions.
	candidates, _ = c.Do([]rune("zzz_nonexistent"), 15)
	assert.Empty(t, candidates)
}

func TestDottedPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dottedPath("x = a.b"))
	assert.Equal(t, []string{"a"}, dottedPath("a"))
	assert.Nil(t, dottedPath("a."))
}
