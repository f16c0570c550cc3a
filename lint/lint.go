// Copyright © 2024 The ELPS authors

// Package lint provides diagnostic checks for analyzed Lua files.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives an analyzed file and its semantic model and reports
// diagnostics. The framework handles running analyzers, suppression
// comments, collecting results, and formatting output.
//
// Checks only report.  They never change what analysis concluded about a
// program.
package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/luthersystems/emmylua/syntax"
	"github.com/tliron/commonlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("emmylua.lint")

// Severity indicates the severity level of a lint diagnostic.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as a JSON string.
// An unset severity (zero value) is marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity: %q", str)
	}
	return nil
}

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is the diagnostic code reported by this check (e.g. "readonly").
	Name string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Severity is the default severity for diagnostics from this analyzer.
	Severity Severity

	// Run executes the check. It should call pass.Report() for each finding.
	Run func(pass *Pass) error
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// File is the analyzed file being checked.
	File *analysis.FileIndex

	// Tree is the syntax tree of File.
	Tree *syntax.Tree

	// Model answers semantic questions about File.
	Model *semantic.Model

	ctx         context.Context
	filename    string
	diagnostics []Diagnostic
}

// Context returns the context of the check.  Analyzers pass it to every
// semantic query.
func (p *Pass) Context() context.Context { return p.ctx }

// Snapshot returns the database snapshot the file is checked against.
func (p *Pass) Snapshot() *analysis.Snapshot { return p.Model.Snapshot() }

// Report records a diagnostic finding.  The code defaults to the analyzer
// name and the position to the start of the range.
func (p *Pass) Report(d Diagnostic) {
	if d.Code == "" {
		d.Code = p.Analyzer.Name
	}
	if d.Severity == severityUnset {
		d.Severity = p.Analyzer.Severity
	}
	if d.Pos.File == "" {
		d.Pos.File = p.filename
	}
	if d.Pos.Line == 0 {
		d.Pos.Line = d.Range.Start.Line
		d.Pos.Col = d.Range.Start.Col
	}
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(d Diagnostic, notes ...string) {
	d.Notes = append(d.Notes, notes...)
	p.Report(d)
}

// Reportf is a convenience for reporting a diagnostic over a range.
func (p *Pass) Reportf(rng syntax.Range, format string, args ...interface{}) {
	p.Report(Diagnostic{
		Range:   rng,
		Message: fmt.Sprintf(format, args...),
	})
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// Pos is the source location of the problem.
	Pos Position `json:"pos"`

	// Range is the span of source the problem covers.
	Range syntax.Range `json:"-"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// Code identifies the kind of problem.  It is the name of the check
	// that found it or an analysis diagnostic code.
	Code string `json:"code"`

	// Severity is the severity level of the diagnostic.
	Severity Severity `json:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty"`
}

// Position identifies a location in source code.
type Position struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// String returns the position in file:line format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line: message (code)
// with optional note lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Pos, d.Message, d.Code)
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}

// Linter runs a set of analyzers over analyzed files.
type Linter struct {
	Analyzers []*Analyzer

	// Jobs bounds the number of files checked concurrently by
	// CheckWorkspace.  Zero means one.
	Jobs int
}

// CheckFile runs every analyzer over file and returns the unsuppressed
// diagnostics sorted by position.  The snapshot must stay valid for the
// duration of the call.
func (l *Linter) CheckFile(ctx context.Context, db *analysis.Snapshot, file *analysis.FileIndex) ([]Diagnostic, error) {
	ctx, span := otel.GetTracerProvider().Tracer("emmylua.lint").Start(ctx, "lint.CheckFile")
	defer span.End()
	filename := analysis.URIToPath(file.URI)
	span.SetAttributes(semconv.CodeFilepath(filename))

	model := semantic.NewModel(db, file)
	var all []Diagnostic
	for _, analyzer := range l.Analyzers {
		pass := &Pass{
			Analyzer: analyzer,
			File:     file,
			Tree:     file.Tree,
			Model:    model,
			ctx:      ctx,
			filename: filename,
		}
		if err := analyzer.Run(pass); err != nil {
			return nil, fmt.Errorf("%s: analyzer %s: %w", filename, analyzer.Name, err)
		}
		all = append(all, pass.diagnostics...)
	}

	all = filterSuppressed(all, file.Tree)

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Pos.File != all[j].Pos.File {
			return all[i].Pos.File < all[j].Pos.File
		}
		if all[i].Pos.Line != all[j].Pos.Line {
			return all[i].Pos.Line < all[j].Pos.Line
		}
		return all[i].Pos.Col < all[j].Pos.Col
	})
	span.SetAttributes(attribute.Int("emmylua.diagnostics", len(all)))
	return all, nil
}

// CheckWorkspace checks every file of workspace ws in db.
func (l *Linter) CheckWorkspace(ctx context.Context, db *analysis.Database, ws analysis.WorkspaceID) ([]Diagnostic, error) {
	var all []Diagnostic
	err := db.Read(func(s *analysis.Snapshot) error {
		var files []*analysis.FileIndex
		for _, f := range s.Files() {
			if f.Workspace == ws {
				files = append(files, f)
			}
		}
		if len(files) == 0 {
			return nil
		}
		results := make([][]Diagnostic, len(files))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, min(l.Jobs, len(files))))
		for i, f := range files {
			g.Go(func() error {
				diags, err := l.CheckFile(gctx, s, f)
				if err != nil {
					return err
				}
				results[i] = diags
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, diags := range results {
			all = append(all, diags...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("checked workspace %s: %d diagnostics", ws, len(all))
	return all, nil
}

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}

// DefaultAnalyzers returns the built-in set of lint checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		AnalyzerSyntax,
		AnalyzerOrphanAttribute,
		AnalyzerUndefinedDocName,
		AnalyzerReadOnly,
		AnalyzerDeprecated,
		AnalyzerParamTypeMismatch,
	}
}

// AnalyzerByName returns the default analyzer called name.
func AnalyzerByName(name string) (*Analyzer, bool) {
	for _, a := range DefaultAnalyzers() {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}
