// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"
	"testing"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const testURI = "file:///test.lua"

// testServer creates a server with its own database.
func testServer() *Server {
	return New()
}

// mockContext returns a minimal glsp.Context for testing.
func mockContext() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {},
	}
}

// capturingContext returns a context that captures published diagnostics.
func capturingContext() (*glsp.Context, *[]*protocol.PublishDiagnosticsParams) {
	var captured []*protocol.PublishDiagnosticsParams
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				captured = append(captured, params.(*protocol.PublishDiagnosticsParams))
			}
		},
	}
	return ctx, &captured
}

// openDoc opens source as testURI through the didOpen handler.
func openDoc(t *testing.T, s *Server, source string) {
	t.Helper()
	err := s.textDocumentDidOpen(mockContext(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        testURI,
			LanguageID: "lua",
			Version:    1,
			Text:       source,
		},
	})
	require.NoError(t, err)
}

func pos(line, char int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

func docPos(line, char int) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     pos(line, char),
	}
}

// completionLabels extracts labels from a completion result.
func completionLabels(t *testing.T, result any) []string {
	t.Helper()
	require.NotNil(t, result, "completion result should not be nil")
	items, ok := result.([]protocol.CompletionItem)
	require.True(t, ok, "completion result should be []CompletionItem, got %T", result)
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return labels
}

// --- Position conversion tests ---

func TestLineIndex(t *testing.T) {
	li := newLineIndex("a = 1\nlocal λx = 2\n")
	t.Run("offset", func(t *testing.T) {
		assert.Equal(t, 0, li.offset(pos(0, 0)))
		assert.Equal(t, 6, li.offset(pos(1, 0)))
		// λ is two bytes but one UTF-16 unit
		assert.Equal(t, 14, li.offset(pos(1, 7)))
	})
	t.Run("position", func(t *testing.T) {
		assert.Equal(t, pos(0, 4), li.position(4))
		assert.Equal(t, pos(1, 7), li.position(14))
	})
	t.Run("clamped", func(t *testing.T) {
		assert.Equal(t, len(li.src), li.offset(pos(10, 0)))
		assert.Equal(t, 5, li.offset(pos(0, 99)), "a line clamps to its end")
		assert.Equal(t, pos(2, 0), li.position(1000))
	})
}

func TestWordAt(t *testing.T) {
	start, word := wordAt("return foo.bar", 14)
	assert.Equal(t, 11, start)
	assert.Equal(t, "bar", word)

	start, word = wordAt("x = ", 4)
	assert.Equal(t, 4, start)
	assert.Empty(t, word)
}

func TestPathBefore(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, pathBefore("x = a.b.c", 9))
	assert.Equal(t, []string{"cfg"}, pathBefore("print(cfg", 9))
	assert.Nil(t, pathBefore("x = ", 4))
}

func TestSafeUint(t *testing.T) {
	assert.Equal(t, protocol.UInteger(0), safeUint(-1))
	assert.Equal(t, protocol.UInteger(42), safeUint(42))
}

// --- Document store tests ---

func TestDocumentStore(t *testing.T) {
	store := NewDocumentStore()

	doc := store.Open("file:///b.lua", 1, "return 1")
	require.NotNil(t, doc)
	assert.Equal(t, "return 1", doc.Content)
	store.Open("file:///a.lua", 1, "return 2")

	doc = store.Change("file:///b.lua", 2, "return 3")
	assert.Equal(t, int32(2), doc.Version)
	assert.Equal(t, "return 3", doc.snapshot())
	assert.False(t, doc.synced)

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "file:///a.lua", all[0].URI)

	store.Close("file:///b.lua")
	assert.Nil(t, store.Get("file:///b.lua"))
}

// --- Diagnostics tests ---

func TestDiagnosticsOnOpen_ValidCode(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        testURI,
			LanguageID: "lua",
			Version:    1,
			Text:       "local x = 1\nprint(x)\n",
		},
	})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	pub := (*captured)[0]
	assert.Equal(t, testURI, pub.URI)
	assert.Empty(t, pub.Diagnostics)
}

func TestDiagnosticsOnParseError(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     testURI,
			Version: 1,
			Text:    "local = 1\n",
		},
	})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	pub := (*captured)[0]
	require.NotEmpty(t, pub.Diagnostics, "parse error should produce diagnostics")
	d := pub.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, "syntax-error", d.Code.Value)
	assert.NotEqual(t, d.Range.Start, d.Range.End, "syntax errors are never zero width")
}

func TestDiagnosticsReadOnly(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     testURI,
			Version: 1,
			Text:    "local n <const> = 1\nn = 2\n",
		},
	})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	diags := (*captured)[0].Diagnostics
	require.Len(t, diags, 1)
	assert.Equal(t, "readonly", diags[0].Code.Value)
	assert.Equal(t, "emmylua", *diags[0].Source)
	assert.Equal(t, pos(1, 0), diags[0].Range.Start)
}

func TestDiagnosticsDeprecatedTag(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     testURI,
			Version: 1,
			Text:    "---@deprecated use add\nfunction plus(a, b) return a + b end\n\nprint(plus(1, 2))\n",
		},
	})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	var found bool
	for _, d := range (*captured)[0].Diagnostics {
		if d.Code.Value == "deprecated" {
			found = true
			assert.Equal(t, []protocol.DiagnosticTag{protocol.DiagnosticTagDeprecated}, d.Tags)
			assert.Contains(t, d.Message, "use add")
		}
	}
	assert.True(t, found, "expected a deprecated diagnostic")
}

func TestDiagnosticsOnClose_Cleared(t *testing.T) {
	s := testServer()
	openCtx, _ := capturingContext()

	err := s.textDocumentDidOpen(openCtx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     testURI,
			Version: 1,
			Text:    "local = 1\nGLOBAL_ONLY_HERE = 1\n",
		},
	})
	require.NoError(t, err)

	closeCtx, closeCaptured := capturingContext()
	s.captureNotify(closeCtx)
	err = s.textDocumentDidClose(closeCtx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, *closeCaptured, 1)
	assert.Empty(t, (*closeCaptured)[0].Diagnostics, "close should clear diagnostics")
	assert.Nil(t, s.docs.Get(testURI), "document should be removed from store")

	require.NoError(t, s.db.Read(func(snap *analysis.Snapshot) error {
		_, ok := snap.FileByURI(testURI)
		assert.False(t, ok, "a closed document with no file on disk leaves the database")
		_, ok = snap.Global("GLOBAL_ONLY_HERE")
		assert.False(t, ok)
		return nil
	}))
}

func TestDiagnosticsOnSave_Immediate(t *testing.T) {
	s := testServer()
	ctx, captured := capturingContext()

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     testURI,
			Version: 1,
			Text:    "return 1 + 2\n",
		},
	})
	require.NoError(t, err)

	before := len(*captured)
	err = s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Greater(t, len(*captured), before, "save should trigger immediate diagnostics publish")
}

func TestDidChangeResyncs(t *testing.T) {
	s := testServer()
	openDoc(t, s, "local first = 1\nreturn first\n")

	err := s.textDocumentDidChange(mockContext(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: "local second = 1\nreturn second\n"},
		},
	})
	require.NoError(t, err)
	s.stopDebounce(testURI)

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: docPos(1, 10),
	})
	require.NoError(t, err)
	labels := completionLabels(t, result)
	assert.Contains(t, labels, "second")
	assert.NotContains(t, labels, "first")
}

// --- Hover tests ---

func TestHoverOnLocal(t *testing.T) {
	s := testServer()
	openDoc(t, s, "---The answer.\n---@type integer\nlocal answer = 42\nprint(answer)\n")

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: docPos(3, 8),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "local answer: integer")
	assert.Contains(t, content.Value, "The answer.")
	require.NotNil(t, hover.Range)
	assert.Equal(t, pos(3, 6), hover.Range.Start)
}

func TestHoverOnField(t *testing.T) {
	s := testServer()
	openDoc(t, s, `---@class Point
---@field x number The horizontal coordinate.
local Point = {}

---@type Point
local p = {}
return p.x
`)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: docPos(6, 9),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content := hover.Contents.(protocol.MarkupContent)
	assert.Contains(t, content.Value, "(field) x: number")
}

func TestHoverDeprecated(t *testing.T) {
	s := testServer()
	openDoc(t, s, "---@deprecated use add\nfunction plus(a, b) return a + b end\n\nprint(plus(1, 2))\n")

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: docPos(3, 7),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content := hover.Contents.(protocol.MarkupContent)
	assert.Contains(t, content.Value, "global plus")
	assert.Contains(t, content.Value, "**Deprecated**: use add")
}

func TestHoverOnEmpty(t *testing.T) {
	s := testServer()
	openDoc(t, s, "\n\nreturn 1\n")

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: docPos(0, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestHoverUnknownDocument(t *testing.T) {
	s := testServer()
	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: docPos(0, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

// --- Navigation tests ---

func TestDefinition(t *testing.T) {
	s := testServer()
	openDoc(t, s, "local function add(a, b) return a + b end\nreturn add(1, 2)\n")

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: docPos(1, 8),
	})
	require.NoError(t, err)
	loc, ok := result.(protocol.Location)
	require.True(t, ok, "expected a Location, got %T", result)
	assert.Equal(t, testURI, loc.URI)
	assert.Equal(t, pos(0, 15), loc.Range.Start)
	assert.Equal(t, pos(0, 18), loc.Range.End)
}

func TestDefinitionBuiltinReturnsNil(t *testing.T) {
	s := testServer()
	openDoc(t, s, "print(1)\n")

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: docPos(0, 2),
	})
	require.NoError(t, err)
	assert.Nil(t, result, "builtin declarations have no navigable source")
}

func TestDefinitionOnUndefinedName(t *testing.T) {
	s := testServer()
	openDoc(t, s, "return undefined_name\n")

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: docPos(0, 9),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestReferences(t *testing.T) {
	s := testServer()
	openDoc(t, s, "local x = 1\nlocal y = x + x\nreturn x\n")

	locs, err := s.textDocumentReferences(mockContext(), &protocol.ReferenceParams{
		TextDocumentPositionParams: docPos(0, 6),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	})
	require.NoError(t, err)
	require.Len(t, locs, 4)
	assert.Equal(t, pos(0, 6), locs[0].Range.Start, "declaration comes first")
	assert.Equal(t, pos(1, 10), locs[1].Range.Start)
	assert.Equal(t, pos(1, 14), locs[2].Range.Start)
	assert.Equal(t, pos(2, 7), locs[3].Range.Start)
}

func TestReferencesExcludeDeclaration(t *testing.T) {
	s := testServer()
	openDoc(t, s, "local x = 1\nlocal y = x + x\nreturn x\n")

	locs, err := s.textDocumentReferences(mockContext(), &protocol.ReferenceParams{
		TextDocumentPositionParams: docPos(2, 7),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: false},
	})
	require.NoError(t, err)
	assert.Len(t, locs, 3)
}

func TestReferencesGlobalAcrossFiles(t *testing.T) {
	s := testServer()
	ctx := s.ctx
	_, err := s.db.UpdateFile(ctx, "file:///other.lua", "counter = 0\n")
	require.NoError(t, err)
	openDoc(t, s, "counter = counter + 1\n")

	locs, err := s.textDocumentReferences(mockContext(), &protocol.ReferenceParams{
		TextDocumentPositionParams: docPos(0, 12),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: false},
	})
	require.NoError(t, err)
	var local int
	for _, loc := range locs {
		if loc.URI == testURI {
			local++
		}
	}
	assert.Equal(t, 2, local, "both names in the open file")
}

// --- Symbols tests ---

func TestDocumentSymbols(t *testing.T) {
	s := testServer()
	openDoc(t, s, `---@class Point
---@field x number
---@field y number
local Point = {}

function helper() end
`)

	result, err := s.textDocumentDocumentSymbol(mockContext(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	symbols, ok := result.([]protocol.DocumentSymbol)
	require.True(t, ok)

	byName := make(map[string][]protocol.DocumentSymbol)
	for _, sym := range symbols {
		byName[sym.Name] = append(byName[sym.Name], sym)
	}
	require.Len(t, byName["Point"], 2, "the class and the local")
	class := byName["Point"][0]
	assert.Equal(t, protocol.SymbolKindClass, class.Kind)
	var fields []string
	for _, c := range class.Children {
		fields = append(fields, c.Name)
	}
	assert.Equal(t, []string{"x", "y"}, fields)
	require.Len(t, byName["helper"], 1)
	assert.Equal(t, protocol.SymbolKindFunction, byName["helper"][0].Kind)
}

func TestDocumentSymbolsEmptyFile(t *testing.T) {
	s := testServer()
	openDoc(t, s, "")

	result, err := s.textDocumentDocumentSymbol(mockContext(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

// --- Completion tests ---

func TestCompletionScope(t *testing.T) {
	s := testServer()
	openDoc(t, s, "local alpha = 1\nlocal alps = 2\nlocal beta = 3\nreturn al")

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: docPos(3, 9),
	})
	require.NoError(t, err)
	labels := completionLabels(t, result)
	assert.Contains(t, labels, "alpha")
	assert.Contains(t, labels, "alps")
	assert.NotContains(t, labels, "beta")
}

func TestCompletionGlobalsAndKeywords(t *testing.T) {
	s := testServer()
	openDoc(t, s, "return pri")

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: docPos(0, 10),
	})
	require.NoError(t, err)
	items := result.([]protocol.CompletionItem)
	var found bool
	for _, item := range items {
		if item.Label == "print" {
			found = true
			assert.Equal(t, protocol.CompletionItemKindFunction, *item.Kind)
		}
	}
	assert.True(t, found, "builtin globals are offered")
}

func TestCompletionMembers(t *testing.T) {
	s := testServer()
	openDoc(t, s, `---@class Point
---@field x number
---@field y number
---@field ox number
local Point = {}

---@type Point
local p = {}
return p.x
`)

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: docPos(8, 10),
	})
	require.NoError(t, err)
	items := result.([]protocol.CompletionItem)
	require.Len(t, items, 1)
	assert.Equal(t, "x", items[0].Label)
	assert.Equal(t, protocol.CompletionItemKindField, *items[0].Kind)
	assert.Equal(t, "number", *items[0].Detail)
}

func TestCompletionDeprecatedTag(t *testing.T) {
	s := testServer()
	openDoc(t, s, "---@deprecated\nlocal oldname = 1\nreturn old")

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: docPos(2, 10),
	})
	require.NoError(t, err)
	items := result.([]protocol.CompletionItem)
	require.NotEmpty(t, items)
	assert.Equal(t, "oldname", items[0].Label)
	assert.Equal(t, []protocol.CompletionItemTag{protocol.CompletionItemTagDeprecated}, items[0].Tags)
}

func TestIsFunction(t *testing.T) {
	assert.True(t, isFunction(luatype.Function))
	assert.True(t, isFunction(&luatype.FunctionType{}))
	assert.True(t, isFunction(luatype.Signature{}))
	assert.False(t, isFunction(luatype.String))
	assert.False(t, isFunction(luatype.NewUnion(luatype.Function, luatype.Nil)))
}

// --- Signature help tests ---

func TestSignatureHelp(t *testing.T) {
	s := testServer()
	openDoc(t, s, `---@param a integer
---@param b string
local function f(a, b) end
f(1, "x")
`)

	help, err := s.textDocumentSignatureHelp(mockContext(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: docPos(3, 5),
	})
	require.NoError(t, err)
	require.NotNil(t, help)
	require.Len(t, help.Signatures, 1)
	sig := help.Signatures[0]
	assert.Equal(t, "f(a: integer, b: string)", sig.Label)
	require.Len(t, sig.Parameters, 2)
	assert.Equal(t, "a: integer", sig.Parameters[0].Label)
	require.NotNil(t, help.ActiveParameter)
	assert.Equal(t, protocol.UInteger(1), *help.ActiveParameter)
}

func TestSignatureHelpOverloads(t *testing.T) {
	s := testServer()
	openDoc(t, s, `---@param x integer
---@overload fun(x: string): string
local function conv(x) end
conv("s")
`)

	help, err := s.textDocumentSignatureHelp(mockContext(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: docPos(3, 5),
	})
	require.NoError(t, err)
	require.NotNil(t, help)
	require.Len(t, help.Signatures, 2)
	require.NotNil(t, help.ActiveSignature)
	assert.Equal(t, protocol.UInteger(1), *help.ActiveSignature, "the string overload is selected")
}

func TestSignatureHelpOutside(t *testing.T) {
	s := testServer()
	openDoc(t, s, "local function f() end\nf()\n")

	help, err := s.textDocumentSignatureHelp(mockContext(), &protocol.SignatureHelpParams{
		TextDocumentPositionParams: docPos(0, 3),
	})
	require.NoError(t, err)
	assert.Nil(t, help)
}

func TestActiveParam(t *testing.T) {
	plain := &luatype.FunctionType{Params: []luatype.Param{{Name: "a"}, {Name: "b"}}}
	method := &luatype.FunctionType{Params: []luatype.Param{{Name: "a"}}, Colon: true}
	variadic := &luatype.FunctionType{Params: []luatype.Param{{Name: "fmt"}, {Name: luatype.VariadicName}}}

	tests := []struct {
		name   string
		f      *luatype.FunctionType
		arg    int
		colon  bool
		want   int
		wantOK bool
	}{
		{"plain first", plain, 0, false, 0, true},
		{"plain past end", plain, 2, false, 0, false},
		{"plain called with colon", plain, 0, true, 1, true},
		{"method called with dot self", method, 0, false, 0, false},
		{"method called with dot", method, 1, false, 0, true},
		{"method called with colon", method, 0, true, 0, true},
		{"variadic tail", variadic, 5, false, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := activeParam(tt.f, tt.arg, tt.colon)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// --- Lifecycle tests ---

func TestExitHandler(t *testing.T) {
	s := testServer()
	var exitCode int
	var exitCalled bool
	s.exitFn = func(code int) {
		exitCode = code
		exitCalled = true
	}

	err := s.exit(mockContext())
	require.NoError(t, err)
	assert.True(t, exitCalled, "exit handler should call exitFn")
	assert.Equal(t, 0, exitCode, "exit should call with code 0")
}

func TestInitializeLifecycle(t *testing.T) {
	s := testServer()

	rootURI := "file:///workspace"
	result, err := s.initialize(mockContext(), &protocol.InitializeParams{
		RootURI: &rootURI,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	initResult, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	assert.NotNil(t, initResult.ServerInfo)
	assert.Equal(t, serverName, initResult.ServerInfo.Name)
	assert.Equal(t, "/workspace", s.rootPath)
	require.NotNil(t, initResult.Capabilities.CompletionProvider)
	assert.Equal(t, []string{".", ":"}, initResult.Capabilities.CompletionProvider.TriggerCharacters)
}

func TestShutdownCancelsRequests(t *testing.T) {
	s := testServer()
	require.NoError(t, s.shutdown(mockContext()))
	ctx, cancel := s.requestContext()
	defer cancel()
	assert.Error(t, ctx.Err())
}

func TestMultipleDocuments(t *testing.T) {
	s := testServer()
	openDoc(t, s, "---@type string\nSHARED = \"x\"\n")
	err := s.textDocumentDidOpen(mockContext(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     "file:///second.lua",
			Version: 1,
			Text:    "return SHARED\n",
		},
	})
	require.NoError(t, err)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///second.lua"},
			Position:     pos(0, 9),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content := hover.Contents.(protocol.MarkupContent)
	assert.True(t, strings.Contains(content.Value, "global SHARED: string"), content.Value)
}
