// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// LuaFiles returns the paths of every .lua file below root.  Hidden
// directories and node_modules are skipped, as are unreadable directories.
func LuaFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".lua" {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// shouldSkipDir returns true for directories that should not be walked.
// It skips hidden directories (e.g. .git, .vscode) and node_modules,
// but not "." or ".." which represent the current/parent directory.
func shouldSkipDir(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	if len(name) > 0 && name[0] == '.' {
		return true
	}
	return name == "node_modules"
}

// LoadWorkspace analyzes every .lua file below root as part of workspace
// ws.  Files are analyzed in parallel and merged together once all of them
// succeed, so a cancelled load leaves the database unchanged.  Unreadable
// files are logged and skipped.  LoadWorkspace returns the number of files
// merged.
func (db *Database) LoadWorkspace(ctx context.Context, root string, ws WorkspaceID) (int, error) {
	ctx, span := db.tracer.Start(ctx, "analysis.LoadWorkspace",
		trace.WithAttributes(
			attribute.String("emmylua.root", root),
			attribute.String("emmylua.workspace", ws.String()),
		))
	defer span.End()

	root, err := filepath.Abs(root)
	if err != nil {
		return 0, err
	}
	paths, err := LuaFiles(root)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	if len(paths) == 0 {
		return 0, nil
	}

	results := make([]*FileIndex, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(db.jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			src, err := os.ReadFile(path) //nolint:gosec // reads files below the user's workspace root
			if err != nil {
				db.log.Warningf("skipping %s: %v", path, err)
				return nil
			}
			idx, err := db.analyze(gctx, PathToURI(path), ws, string(src))
			if err != nil {
				return err
			}
			results[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	files := results[:0]
	for _, idx := range results {
		if idx != nil {
			files = append(files, idx)
		}
	}
	if err := db.commit(ctx, files...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("emmylua.files", len(files)))
	db.log.Infof("loaded %d files from %s into %s", len(files), root, ws)
	return len(files), nil
}
