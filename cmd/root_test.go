// Copyright © 2024 The ELPS authors

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luthersystems/emmylua/diagnostic"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"check", "lsp", "inspect", "doc"} {
		assert.True(t, names[name], "missing command: %s", name)
	}
	for _, name := range []string{"config", "color", "verbose", "log-file", "jobs"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing flag: %s", name)
	}
}

func TestSubcommandFlags(t *testing.T) {
	lsp := LSPCommand()
	for _, name := range []string{"stdio", "port", "lib"} {
		assert.NotNil(t, lsp.Flags().Lookup(name), "lsp: missing flag: %s", name)
	}
	inspect := InspectCommand()
	assert.Contains(t, inspect.Aliases, "repl")
	for _, name := range []string{"workspace", "lib"} {
		assert.NotNil(t, inspect.Flags().Lookup(name), "inspect: missing flag: %s", name)
	}
}

func TestInitConfig(t *testing.T) {
	defer viper.Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "emmylua.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace:\n  jobs: 3\nlsp:\n  request-timeout: 2s\n"), 0o600))

	cfgFile = path
	defer func() { cfgFile = "" }()
	t.Setenv("EMMYLUA_CHECK_JSON", "true")
	initConfig()

	assert.Equal(t, 3, viper.GetInt(keyJobs))
	assert.Equal(t, "2s", viper.GetDuration(keyRequestTimeout).String())
	assert.True(t, viper.GetBool(keyCheckJSON))
}

func TestColorMode(t *testing.T) {
	defer func() { colorFlag = "auto" }()
	colorFlag = "never"
	assert.Equal(t, diagnostic.ColorNever, colorMode())
	colorFlag = "always"
	assert.Equal(t, diagnostic.ColorAlways, colorMode())
}
