// Copyright © 2024 The ELPS authors

package repl

import (
	"io"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/diagnostic"
)

// renderErrors renders syntax errors in the typed expression using the
// diagnostic renderer.  Positions are shifted back past the return prefix
// so the underline lands in the text the user typed.
func renderErrors(w io.Writer, expr string, diags []analysis.Diagnostic, color diagnostic.ColorMode) {
	ds := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, d := range diags {
		ds = append(ds, toDiag(d))
	}
	r := &diagnostic.Renderer{
		Color: color,
		SourceReader: func(string) ([]byte, error) {
			return []byte(expr + "\n"), nil
		},
	}
	_ = r.RenderAll(w, ds)
}

func toDiag(d analysis.Diagnostic) diagnostic.Diagnostic {
	col := max(1, d.Range.Start.Col-len(returnPrefix))
	return diagnostic.Diagnostic{
		Severity: diagnostic.SeverityError,
		Code:     d.Code,
		Message:  d.Message,
		Spans: []diagnostic.Span{{
			File: "<input>",
			Line: 1,
			Col:  col,
		}},
		Notes: []string{"enter :help for usage"},
	}
}
