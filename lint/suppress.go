// Copyright © 2024 The ELPS authors

package lint

import (
	"github.com/luthersystems/emmylua/astutil"
	"github.com/luthersystems/emmylua/syntax"
)

// suppressions records ---@diagnostic directives of a file.  A nil code
// set means every code.
type suppressions struct {
	lines map[int]map[string]bool
	file  map[string]bool
	all   bool
}

func (s *suppressions) suppressed(d Diagnostic) bool {
	if s.all || s.file[d.Code] {
		return true
	}
	codes, ok := s.lines[d.Pos.Line]
	if !ok {
		return false
	}
	return codes == nil || codes[d.Code]
}

// collectSuppressions reads the ---@diagnostic tags of tree.
//
//	---@diagnostic disable-next-line: readonly, deprecated
//	---@diagnostic disable-line
//	---@diagnostic disable: param-type-mismatch
func collectSuppressions(tree *syntax.Tree) *suppressions {
	s := &suppressions{
		lines: make(map[int]map[string]bool),
		file:  make(map[string]bool),
	}
	astutil.WalkKind(tree, syntax.KindDocTagDiagnostic, func(n *syntax.Node) {
		d, ok := n.Payload().(syntax.DocDiagnostic)
		if !ok {
			return
		}
		var codes map[string]bool
		if len(d.Codes) > 0 {
			codes = make(map[string]bool, len(d.Codes))
			for _, c := range d.Codes {
				codes[c] = true
			}
		}
		line := n.Range().Start.Line
		switch d.Action {
		case "disable-next-line":
			s.addLine(line+1, codes)
		case "disable-line":
			s.addLine(line, codes)
		case "disable":
			if codes == nil {
				s.all = true
			}
			for c := range codes {
				s.file[c] = true
			}
		}
	})
	return s
}

func (s *suppressions) addLine(line int, codes map[string]bool) {
	prev, seen := s.lines[line]
	switch {
	case !seen:
		s.lines[line] = codes
	case prev == nil || codes == nil:
		s.lines[line] = nil
	default:
		for c := range codes {
			prev[c] = true
		}
	}
}

// filterSuppressed removes diagnostics disabled by ---@diagnostic tags.
func filterSuppressed(diags []Diagnostic, tree *syntax.Tree) []Diagnostic {
	s := collectSuppressions(tree)
	var filtered []Diagnostic
	for _, d := range diags {
		if !s.suppressed(d) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
