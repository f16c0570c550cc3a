// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/lint"
	"github.com/spf13/viper"
)

// Option configures an exported command factory (CheckCommand,
// LSPCommand, InspectCommand, DocCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	db        *analysis.Database
	analyzers []*lint.Analyzer
}

// WithDatabase injects a database for the command to analyze files in.
// Embedders use it to preload declarations of their host API, for
// example files loaded with LoadWorkspace as a library workspace.
func WithDatabase(db *analysis.Database) Option {
	return func(c *cmdConfig) { c.db = db }
}

// WithAnalyzers replaces the default set of checks.  Embedders append
// their own analyzers to lint.DefaultAnalyzers.
func WithAnalyzers(analyzers ...*lint.Analyzer) Option {
	return func(c *cmdConfig) { c.analyzers = analyzers }
}

func newCmdConfig(opts []Option) *cmdConfig {
	cfg := &cmdConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// database returns the injected database or a new one sized by the
// workspace.jobs setting.
func (c *cmdConfig) database() *analysis.Database {
	if c.db != nil {
		return c.db
	}
	var opts []analysis.Option
	if jobs := viper.GetInt(keyJobs); jobs > 0 {
		opts = append(opts, analysis.WithJobs(jobs))
	}
	return analysis.NewDatabase(opts...)
}

func (c *cmdConfig) resolveAnalyzers() []*lint.Analyzer {
	if c.analyzers != nil {
		return c.analyzers
	}
	return lint.DefaultAnalyzers()
}

// loadDatabase returns the database with the builtin library and every
// directory of libs loaded, each into its own library workspace.
func (c *cmdConfig) loadDatabase(ctx context.Context, libs []string) (*analysis.Database, error) {
	db := c.database()
	if err := db.LoadStd(ctx); err != nil {
		return nil, fmt.Errorf("loading builtin library: %w", err)
	}
	for i, dir := range libs {
		n, err := db.LoadWorkspace(ctx, dir, analysis.WorkspaceLib(i+1))
		if err != nil {
			return nil, fmt.Errorf("loading library %s: %w", dir, err)
		}
		log.Debugf("loaded %d library files from %s", n, dir)
	}
	return db, nil
}
