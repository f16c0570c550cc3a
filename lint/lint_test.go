// Copyright © 2024 The ELPS authors

package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURI = "file:///test.lua"

// checkSource loads the builtin library and source and runs analyzers over
// the source file.  Extra sources are loaded as file:///extra<i>.lua.
func checkSource(t *testing.T, analyzers []*Analyzer, source string, extra ...string) []Diagnostic {
	t.Helper()
	ctx := context.Background()
	db := analysis.NewDatabase()
	require.NoError(t, db.LoadStd(ctx))
	_, err := db.UpdateFile(ctx, testURI, source)
	require.NoError(t, err)
	for i, src := range extra {
		_, err := db.UpdateFile(ctx, fmt.Sprintf("file:///extra%d.lua", i+1), src)
		require.NoError(t, err)
	}
	l := &Linter{Analyzers: analyzers}
	var diags []Diagnostic
	require.NoError(t, db.Read(func(s *analysis.Snapshot) error {
		f, ok := s.FileByURI(testURI)
		require.True(t, ok)
		diags, err = l.CheckFile(ctx, s, f)
		return err
	}))
	return diags
}

// lintSource runs all default analyzers on the given source.
func lintSource(t *testing.T, source string) []Diagnostic {
	t.Helper()
	return checkSource(t, DefaultAnalyzers(), source)
}

// lintCheck runs a single analyzer on the given source.
func lintCheck(t *testing.T, analyzer *Analyzer, source string, extra ...string) []Diagnostic {
	t.Helper()
	return checkSource(t, []*Analyzer{analyzer}, source, extra...)
}

// assertHasDiag checks that at least one diagnostic contains the given substring.
func assertHasDiag(t *testing.T, diags []Diagnostic, substr string) {
	t.Helper()
	for _, d := range diags {
		if strings.Contains(d.Message, substr) {
			return
		}
	}
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, d.String())
	}
	t.Errorf("expected diagnostic containing %q, got: %v", substr, msgs)
}

// assertNoDiags checks that there are no diagnostics.
func assertNoDiags(t *testing.T, diags []Diagnostic) {
	t.Helper()
	if len(diags) > 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.String())
		}
		t.Errorf("expected no diagnostics, got %d: %v", len(diags), msgs)
	}
}

// assertDiagOnLine checks that a diagnostic exists on the given line with the given substring.
func assertDiagOnLine(t *testing.T, diags []Diagnostic, line int, substr string) {
	t.Helper()
	for _, d := range diags {
		if d.Pos.Line == line && strings.Contains(d.Message, substr) {
			return
		}
	}
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, fmt.Sprintf("line %d: %s", d.Pos.Line, d.Message))
	}
	t.Errorf("expected diagnostic on line %d containing %q, got: %v", line, substr, msgs)
}

func TestPosition_String(t *testing.T) {
	assert.Equal(t, "a.lua", Position{File: "a.lua"}.String())
	assert.Equal(t, "a.lua:3", Position{File: "a.lua", Line: 3}.String())
	assert.Equal(t, "a.lua:3:7", Position{File: "a.lua", Line: 3, Col: 7}.String())
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Pos:     Position{File: "a.lua", Line: 2, Col: 1},
		Message: "bad",
		Code:    "readonly",
		Notes:   []string{"fix it"},
	}
	assert.Equal(t, "a.lua:2:1: bad (readonly)\n  = note: fix it", d.String())
}

func TestSeverity_JSON(t *testing.T) {
	for _, s := range []Severity{SeverityError, SeverityWarning, SeverityInfo} {
		data, err := json.Marshal(s)
		require.NoError(t, err)
		var back Severity
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, s, back)
	}
	data, err := json.Marshal(severityUnset)
	require.NoError(t, err)
	assert.Equal(t, `"warning"`, string(data))
	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
}

func TestCheckFile_AnalyzerError(t *testing.T) {
	failing := &Analyzer{
		Name: "failing",
		Run: func(pass *Pass) error {
			return fmt.Errorf("boom")
		},
	}
	ctx := context.Background()
	db := analysis.NewDatabase()
	_, err := db.UpdateFile(ctx, testURI, "local x = 1\n")
	require.NoError(t, err)
	l := &Linter{Analyzers: []*Analyzer{failing}}
	err = db.Read(func(s *analysis.Snapshot) error {
		f, _ := s.FileByURI(testURI)
		_, err := l.CheckFile(ctx, s, f)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzer failing: boom")
}

func TestCheckFile_SortedWithDefaults(t *testing.T) {
	reporter := &Analyzer{
		Name:     "reporter",
		Severity: SeverityInfo,
		Run: func(pass *Pass) error {
			for _, n := range pass.File.Decls {
				pass.Reportf(n.Range, "decl %s", n.Name)
			}
			return nil
		},
	}
	diags := lintCheck(t, reporter, "local b = 1\nlocal a = 2\n")
	require.Len(t, diags, 2)
	assert.Equal(t, 1, diags[0].Pos.Line)
	assert.Equal(t, 2, diags[1].Pos.Line)
	for _, d := range diags {
		assert.Equal(t, "/test.lua", d.Pos.File)
		assert.Equal(t, "reporter", d.Code)
		assert.Equal(t, SeverityInfo, d.Severity)
	}
}

func TestReadOnly_Positive_Field(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `---@class A
---@field x number
---@[readonly]
---@field y number

---@type A
local a = {}
a.x = 1
a.y = 2
`)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 9, ReadOnlyMessage)
	assert.Equal(t, CodeReadOnly, diags[0].Code)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestReadOnly_Positive_Variable(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `---@readonly
limit = 10

limit = 11
`)
	assertDiagOnLine(t, diags, 4, ReadOnlyMessage)
}

func TestReadOnly_Positive_Prefix(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `---@[readonly]
local config = { debug = false }

config.debug = true
`)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 4, ReadOnlyMessage)
	rng := diags[0].Range
	assert.Equal(t, 1, rng.Start.Col)
	assert.Equal(t, len("config"), rng.End.Offset-rng.Start.Offset, "reported over the prefix")
}

func TestReadOnly_PrefixOneLevel(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `---@[readonly]
local config = { log = { level = 1 } }

config.log.level = 2
`)
	assertNoDiags(t, diags)
}

func TestReadOnly_TargetAndPrefix(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `---@class Settings
---@[readonly]
---@field mode string

---@[readonly]
---@type Settings
local settings = {}

settings.mode = "x"
`)
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, 9, d.Pos.Line)
		assert.Equal(t, ReadOnlyMessage, d.Message)
	}
	spans := []int{
		diags[0].Range.End.Offset - diags[0].Range.Start.Offset,
		diags[1].Range.End.Offset - diags[1].Range.Start.Offset,
	}
	assert.ElementsMatch(t, []int{len("settings"), len("settings.mode")}, spans)
}

func TestReadOnly_Positive_Const(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `local n <const> = 1
n = 2
`)
	assertDiagOnLine(t, diags, 2, ReadOnlyMessage)
}

func TestReadOnly_Negative(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `local t <const> = {}
t.x = 1
local y = 1
y = 2
`)
	assertNoDiags(t, diags)
}

func TestReadOnly_CrossFile(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `VERSION = "2"
`, `---@readonly
VERSION = "1"
`)
	assertDiagOnLine(t, diags, 1, ReadOnlyMessage)
}

func TestDeprecated_Positive(t *testing.T) {
	diags := lintCheck(t, AnalyzerDeprecated, `---@deprecated use add
function plus(a, b) return a + b end

---@class M
---@[deprecated("gone")]
---@field old number
local M = {}

plus(1, 2)
local v = M.old
local f = loadstring
`)
	assertDiagOnLine(t, diags, 9, "'plus' is deprecated: use add")
	assertDiagOnLine(t, diags, 10, "'old' is deprecated: gone")
	assertDiagOnLine(t, diags, 11, "'loadstring' is deprecated")
	assert.Len(t, diags, 3)
}

func TestDeprecated_Negative_Definition(t *testing.T) {
	diags := lintCheck(t, AnalyzerDeprecated, `---@deprecated
function old() end
`)
	assertNoDiags(t, diags)
}

func TestParamTypeMismatch(t *testing.T) {
	diags := lintCheck(t, AnalyzerParamTypeMismatch, `---@param n number
---@param s string
local function f(n, s) end

f(1, "ok")
f("one", "ok")
f(1, 2)
string.rep("x", 2)
`)
	require.Len(t, diags, 2)
	assertDiagOnLine(t, diags, 6, "Cannot assign `\"one\"` to parameter `n: number`.")
	assertDiagOnLine(t, diags, 7, "to parameter `s: string`")
}

func TestParamTypeMismatch_Overload(t *testing.T) {
	diags := lintCheck(t, AnalyzerParamTypeMismatch, `---@overload fun(x: string): string
---@param x number
---@return number
local function conv(x) return x end

conv(1)
conv("s")
conv(true)
`)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 8, "Cannot assign `true`")
}

func TestParamTypeMismatch_Attribute(t *testing.T) {
	diags := lintCheck(t, AnalyzerParamTypeMismatch, `---@attribute range(min: integer, max: integer)

---@class R
---@[range(1, 10)]
---@field a integer
---@[range("low", 10)]
---@field b integer
local R = {}
`)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 6, "parameter `min: integer`")
}

func TestUndefinedDocName(t *testing.T) {
	diags := lintCheck(t, AnalyzerUndefinedDocName, `---@class Box<T>
---@field value T
---@field next Missing?
local Box = {}

---@type Nowhere
local n

---@[readonly, unknownattr]
local x = 1
`)
	assertHasDiag(t, diags, "Undefined type `Missing`.")
	assertHasDiag(t, diags, "Undefined type `Nowhere`.")
	assertHasDiag(t, diags, "Undefined attribute `unknownattr`.")
	assert.Len(t, diags, 3)
}

func TestOrphanAttribute(t *testing.T) {
	diags := lintCheck(t, AnalyzerOrphanAttribute, `local x = 1

---@[readonly]

return x
`)
	require.Len(t, diags, 1)
	assert.Equal(t, analysis.CodeOrphanAttribute, diags[0].Code)
	assert.Equal(t, 3, diags[0].Pos.Line)
}

func TestSyntaxErrors(t *testing.T) {
	diags := lintCheck(t, AnalyzerSyntax, "local = 1\n")
	require.NotEmpty(t, diags)
	assert.Equal(t, analysis.CodeSyntaxError, diags[0].Code)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestSuppression(t *testing.T) {
	src := `---@readonly
A = 1

---@diagnostic disable-next-line: readonly
A = 2
---@diagnostic disable-next-line: deprecated
A = 3
`
	diags := lintCheck(t, AnalyzerReadOnly, src)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 7, ReadOnlyMessage)
}

func TestSuppression_File(t *testing.T) {
	diags := lintCheck(t, AnalyzerReadOnly, `---@diagnostic disable: readonly
---@readonly
A = 1
A = 2
`)
	assertNoDiags(t, diags)
}

func TestDefaultAnalyzers_CleanSource(t *testing.T) {
	diags := lintSource(t, `---@class Point
---@field x number
---@field y number
local Point = {}

---@param dx number
function Point:move(dx)
  self.x = self.x + dx
end

local s = string.format("%d", 1)
print(s)
`)
	assertNoDiags(t, diags)
}

func TestAnalyzerByName(t *testing.T) {
	for _, a := range DefaultAnalyzers() {
		got, ok := AnalyzerByName(a.Name)
		require.True(t, ok)
		assert.Same(t, a, got)
		assert.NotEmpty(t, a.Doc)
	}
	_, ok := AnalyzerByName("nope")
	assert.False(t, ok)
}

func TestCheckWorkspace(t *testing.T) {
	ctx := context.Background()
	db := analysis.NewDatabase()
	require.NoError(t, db.LoadStd(ctx))
	_, err := db.UpdateFile(ctx, "file:///a.lua", "---@readonly\nA = 1\n")
	require.NoError(t, err)
	_, err = db.UpdateFile(ctx, "file:///b.lua", "A = 2\nloadstring('x')\n")
	require.NoError(t, err)

	l := &Linter{Analyzers: DefaultAnalyzers(), Jobs: 2}
	diags, err := l.CheckWorkspace(ctx, db, analysis.WorkspaceMain)
	require.NoError(t, err)
	var codes []string
	for _, d := range diags {
		assert.Equal(t, "/b.lua", d.Pos.File)
		codes = append(codes, d.Code)
	}
	assert.ElementsMatch(t, []string{CodeReadOnly, CodeDeprecated}, codes)
}

func TestFormat(t *testing.T) {
	diags := []Diagnostic{{
		Pos:      Position{File: "a.lua", Line: 1, Col: 1},
		Message:  "m",
		Code:     "c",
		Severity: SeverityError,
	}}
	var text bytes.Buffer
	FormatText(&text, diags)
	assert.Equal(t, "a.lua:1:1: m (c)\n", text.String())

	var js bytes.Buffer
	require.NoError(t, FormatJSON(&js, diags))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "error", decoded[0]["severity"])
	assert.Equal(t, "c", decoded[0]["code"])
}
