// Copyright © 2024 The ELPS authors

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterExcludes_ByName(t *testing.T) {
	paths := []string{
		"src/main.lua",
		"src/bundle.lua",
		"lib/utils.lua",
	}
	result := filterExcludes(paths, []string{"bundle.lua"})
	assert.Equal(t, []string{"src/main.lua", "lib/utils.lua"}, result)
}

func TestFilterExcludes_ByDirectory(t *testing.T) {
	paths := []string{
		"src/main.lua",
		"build/output.lua",
		"build/sub/deep.lua",
		"lib/utils.lua",
	}
	result := filterExcludes(paths, []string{"build"})
	assert.Equal(t, []string{"src/main.lua", "lib/utils.lua"}, result)
}

func TestFilterExcludes_GlobPattern(t *testing.T) {
	paths := []string{
		"src/main.lua",
		"src/generated_foo.lua",
		"src/generated_bar.lua",
		"lib/utils.lua",
	}
	result := filterExcludes(paths, []string{"generated_*"})
	assert.Equal(t, []string{"src/main.lua", "lib/utils.lua"}, result)
}

func TestFilterExcludes_MultiplePatterns(t *testing.T) {
	paths := []string{
		"src/main.lua",
		"build/output.lua",
		"src/bundle.lua",
		"lib/utils.lua",
	}
	result := filterExcludes(paths, []string{"build", "bundle.lua"})
	assert.Equal(t, []string{"src/main.lua", "lib/utils.lua"}, result)
}

func TestFilterExcludes_NoMatches(t *testing.T) {
	paths := []string{
		"src/main.lua",
		"lib/utils.lua",
	}
	result := filterExcludes(paths, []string{"nonexistent"})
	assert.Equal(t, []string{"src/main.lua", "lib/utils.lua"}, result)
}

func TestFilterExcludes_EmptyExcludes(t *testing.T) {
	paths := []string{"src/main.lua"}
	result := filterExcludes(paths, nil)
	assert.Equal(t, []string{"src/main.lua"}, result)
}

func TestMatchesAny_FullPath(t *testing.T) {
	// filepath.Match on the full path
	assert.True(t, matchesAny("src/main.lua", []string{"src/*.lua"}))
	assert.False(t, matchesAny("lib/main.lua", []string{"src/*.lua"}))
}

func TestMatchesAny_BaseName(t *testing.T) {
	assert.True(t, matchesAny("deep/nested/bundle.lua", []string{"bundle.lua"}))
}

func TestMatchesAny_Component(t *testing.T) {
	assert.True(t, matchesAny("project/build/output.lua", []string{"build"}))
	assert.False(t, matchesAny("project/src/output.lua", []string{"build"}))
}

func TestSplitPath(t *testing.T) {
	components := splitPath("a/b/c.lua")
	assert.Contains(t, components, "c.lua")
	assert.Contains(t, components, "b")
	assert.Contains(t, components, "a")
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))
	for _, name := range []string{"a.lua", "sub/b.lua", "vendor/c.lua", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	files, err := expandArgs([]string{dir + "/...", "extra.lua"}, []string{"vendor"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.lua"),
		filepath.Join(dir, "sub", "b.lua"),
		"extra.lua",
	}, files)

	_, err = expandArgs([]string{filepath.Join(dir, "missing") + "/..."}, nil)
	assert.Error(t, err)
}
