// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocCommand_DefaultFlags(t *testing.T) {
	cmd := DocCommand()
	assert.Equal(t, "doc [flags] QUERY", cmd.Use)

	for _, name := range []string{"source-file", "lib", "types"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func writeLua(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

const docSource = `---Application settings.
---@class Config
---@field port integer Port to listen on.
---@field host string
Config = {}

---Starts the server.
---@deprecated use run
---@param cfg Config
---@return boolean
function start(cfg) return true end
`

func runDoc(t *testing.T, o *docOptions, query string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := docExec(context.Background(), newCmdConfig(nil), o, &out, query)
	return out.String(), err
}

func TestDocExec(t *testing.T) {
	path := writeLua(t, t.TempDir(), "app.lua", docSource)
	o := &docOptions{sourceFiles: []string{path}}

	got, err := runDoc(t, o, "start")
	require.NoError(t, err)
	assert.Contains(t, got, "start: fun(cfg: Config): boolean")
	assert.Contains(t, got, "deprecated: use run")
	assert.Contains(t, got, "Starts the server.")

	got, err = runDoc(t, o, "Config")
	require.NoError(t, err)
	assert.Contains(t, got, "Config: Config")
	assert.Contains(t, got, "Application settings.")
	assert.Contains(t, got, "  port: integer")
	assert.Contains(t, got, "Port to listen on.")

	got, err = runDoc(t, o, "Config.host")
	require.NoError(t, err)
	assert.Contains(t, got, "Config.host: string")
}

func TestDocExecBuiltin(t *testing.T) {
	got, err := runDoc(t, &docOptions{}, "string.format")
	require.NoError(t, err)
	assert.Contains(t, got, "string.format: fun(fmt: string")
	assert.Contains(t, got, "Returns a formatted version")
}

func TestDocExecNotFound(t *testing.T) {
	_, err := runDoc(t, &docOptions{}, "no_such_global")
	assert.ErrorIs(t, err, errNotFound)

	_, err = runDoc(t, &docOptions{}, "string.no_such_member")
	assert.ErrorIs(t, err, errNotFound)
}

func TestDocExecTypeList(t *testing.T) {
	path := writeLua(t, t.TempDir(), "app.lua", "---A point.\n---@class Point\nlocal Point = {}\n")
	got, err := runDoc(t, &docOptions{sourceFiles: []string{path}, listTypes: true}, "")
	require.NoError(t, err)
	assert.Contains(t, got, "Point")
	assert.Contains(t, got, "class")
	assert.Contains(t, got, "  A point.")
}

func TestDocCommand_WithDatabase(t *testing.T) {
	ctx := context.Background()
	db := analysis.NewDatabase()
	_, err := db.AddFile(ctx, "file:///host.lua", analysis.WorkspaceMain, "---Host API.\n---@type table\nhost = {}\n")
	require.NoError(t, err)

	cfg := newCmdConfig([]Option{WithDatabase(db)})
	assert.Same(t, db, cfg.database(), "WithDatabase should inject the database")

	var out bytes.Buffer
	require.NoError(t, docExec(ctx, cfg, &docOptions{}, &out, "host"))
	assert.Contains(t, out.String(), "Host API.")
}
