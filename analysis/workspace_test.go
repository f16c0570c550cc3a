// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLuaFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.lua"), "")
	writeFile(t, filepath.Join(dir, "sub", "b.lua"), "")
	writeFile(t, filepath.Join(dir, "sub", "notes.txt"), "")
	writeFile(t, filepath.Join(dir, ".git", "hook.lua"), "")
	writeFile(t, filepath.Join(dir, "node_modules", "dep.lua"), "")

	paths, err := LuaFiles(dir)
	require.NoError(t, err)
	var rel []string
	for _, p := range paths {
		r, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.ElementsMatch(t, []string{"a.lua", "sub/b.lua"}, rel)

	_, err = LuaFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestShouldSkipDir(t *testing.T) {
	assert.True(t, shouldSkipDir(".git"))
	assert.True(t, shouldSkipDir("node_modules"))
	assert.False(t, shouldSkipDir("."))
	assert.False(t, shouldSkipDir(".."))
	assert.False(t, shouldSkipDir("src"))
}

func TestLoadWorkspace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shape.lua"), `---@class Shape
---@field area number
local Shape = {}
return Shape
`)
	writeFile(t, filepath.Join(dir, "lib", "util.lua"), `function util_join(a, b) return a .. b end
`)
	writeFile(t, filepath.Join(dir, "broken.lua"), "local = \n")

	db := NewDatabase(WithJobs(2))
	n, err := db.LoadWorkspace(context.Background(), dir, WorkspaceMain)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	readSnapshot(t, db, func(s *Snapshot) {
		assert.Len(t, s.Files(), 3)
		_, ok := s.TypeDecl("Shape")
		assert.True(t, ok)
		_, ok = s.Global("util_join")
		assert.True(t, ok)
		broken, ok := s.FileByURI(PathToURI(filepath.Join(dir, "broken.lua")))
		require.True(t, ok)
		assert.Equal(t, CodeSyntaxError, broken.Diagnostics[0].Code)
		for _, f := range s.Files() {
			assert.Equal(t, WorkspaceMain, f.Workspace)
		}
	})
}

func TestLoadWorkspaceCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.lua"), "a = 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := NewDatabase()
	_, err := db.LoadWorkspace(ctx, dir, WorkspaceLib(1))
	assert.ErrorIs(t, err, context.Canceled)
	readSnapshot(t, db, func(s *Snapshot) {
		assert.Empty(t, s.Files())
	})
}
