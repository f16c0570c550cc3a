// Copyright © 2024 The ELPS authors

// Package diagnostic renders checker findings as annotated source snippets
// for terminal output.  It does not depend on the analysis packages, so
// callers convert their findings into Diagnostic values first.
package diagnostic

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
// A span covering several lines is underlined to the end of its first
// line.
type Span struct {
	File    string // path for reading source; display name if unreadable
	Line    int    // 1-based line number
	Col     int    // 1-based start column
	EndLine int    // 1-based end line (0 = same as Line)
	EndCol  int    // 1-based inclusive end column (0 = end of the name at Col)
	Label   string // text shown under the underline
}

// Diagnostic represents a single error, warning, or note with optional
// source annotations and trailing notes.
type Diagnostic struct {
	Severity Severity
	Code     string // shown as error[code] when set
	Message  string
	Spans    []Span
	Notes    []string
}
