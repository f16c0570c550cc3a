// Copyright © 2024 The ELPS authors

package cmd

import (
	"io"
	"os"

	"github.com/luthersystems/emmylua/diagnostic"
	"github.com/luthersystems/emmylua/lint"
)

func colorMode() diagnostic.ColorMode {
	return diagnostic.ParseColorMode(colorFlag)
}

func newRenderer() *diagnostic.Renderer {
	return &diagnostic.Renderer{Color: colorMode()}
}

func severity(s lint.Severity) diagnostic.Severity {
	switch s {
	case lint.SeverityError:
		return diagnostic.SeverityError
	case lint.SeverityInfo:
		return diagnostic.SeverityInfo
	default:
		return diagnostic.SeverityWarning
	}
}

// lintDiagToDiagnostic converts a lint.Diagnostic to a diagnostic.Diagnostic.
func lintDiagToDiagnostic(ld lint.Diagnostic) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: severity(ld.Severity),
		Code:     ld.Code,
		Message:  ld.Message,
	}
	if ld.Pos.Line > 0 {
		span := diagnostic.Span{
			File: ld.Pos.File,
			Line: ld.Pos.Line,
			Col:  max(1, ld.Pos.Col),
		}
		start, end := ld.Range.Start, ld.Range.End
		if end.Line > start.Line {
			span.EndLine = end.Line
		}
		if end.Line > start.Line || end.Col > start.Col {
			span.EndCol = max(1, end.Col-1)
		}
		d.Spans = append(d.Spans, span)
	}
	d.Notes = append(d.Notes, ld.Notes...)
	if ld.Code != "" {
		d.Notes = append(d.Notes, "to suppress: add \"---@diagnostic disable-next-line: "+ld.Code+"\" on the line above")
	}
	return d
}

// renderLintDiagnostics renders lint diagnostics with diagnostic formatting
// to w.  Source lines are taken from sources when present there.
func renderLintDiagnostics(w io.Writer, diags []lint.Diagnostic, sources map[string][]byte) error {
	ds := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, ld := range diags {
		ds = append(ds, lintDiagToDiagnostic(ld))
	}
	r := newRenderer()
	r.SourceReader = func(name string) ([]byte, error) {
		if src, ok := sources[name]; ok {
			return src, nil
		}
		return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
	}
	return r.RenderAll(w, ds)
}
