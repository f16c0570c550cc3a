// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"
	_ "embed"
)

// StdURI is the uri of the built in library definitions.
const StdURI = "std:///builtin.lua"

//go:embed std/builtin.lua
var stdSource string

// StdSource returns the Lua meta definitions of the standard library.
func StdSource() string {
	return stdSource
}

// LoadStd analyzes the standard library definitions into WorkspaceStd.
// Loading them again replaces the earlier copy.
func (db *Database) LoadStd(ctx context.Context) error {
	_, err := db.AddFile(ctx, StdURI, WorkspaceStd, stdSource)
	return err
}
