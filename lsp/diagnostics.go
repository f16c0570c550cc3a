// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"time"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/lint"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const debounceDelay = 300 * time.Millisecond

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	doc := s.docs.Open(
		params.TextDocument.URI,
		params.TextDocument.Version,
		params.TextDocument.Text,
	)
	s.analyzeAndPublish(doc)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc := s.docs.Change(params.TextDocument.URI, params.TextDocument.Version, content)

	// Debounce: delay analysis to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(debounceDelay, func() {
		defer func() { _ = recover() }() // don't crash the server on analysis panic
		if d := s.docs.Get(doc.URI); d != nil {
			s.analyzeAndPublish(d)
		}
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.  A
// saved file may change what other files see, so every open document is
// checked again.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	s.stopDebounce(params.TextDocument.URI)
	s.publishAll()
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.stopDebounce(uri)

	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(uri)
	ctx, cancel := s.requestContext()
	defer cancel()
	s.release(ctx, uri)
	return nil
}

func (s *Server) stopDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// publishAll checks every open document and publishes the results.
func (s *Server) publishAll() {
	for _, doc := range s.docs.All() {
		s.analyzeAndPublish(doc)
	}
}

// analyzeAndPublish syncs a document into the database, runs the linter on
// it and publishes the resulting diagnostics to the client.
func (s *Server) analyzeAndPublish(doc *Document) {
	var diags []protocol.Diagnostic
	err := s.withModel(doc.URI, func(ctx context.Context, m *semantic.Model, _ *Document) error {
		f := m.File()
		found, err := s.linter.CheckFile(ctx, m.Snapshot(), f)
		if err != nil {
			return err
		}
		li := newLineIndex(f.Tree.Source())
		diags = make([]protocol.Diagnostic, 0, len(found))
		for _, d := range found {
			diags = append(diags, convertLintDiagnostic(li, d))
		}
		return nil
	})
	if err != nil {
		s.log.Warningf("checking %s: %v", doc.URI, err)
		return
	}
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: diags,
	})
}

// convertLintDiagnostic converts a lint.Diagnostic to an LSP Diagnostic.
func convertLintDiagnostic(li *lineIndex, d lint.Diagnostic) protocol.Diagnostic {
	sev := mapLintSeverity(d.Severity)
	out := protocol.Diagnostic{
		Range:    li.rangeOf(d.Range),
		Severity: &sev,
		Source:   strPtr("emmylua"),
		Code:     &protocol.IntegerOrString{Value: d.Code},
		Message:  d.Message,
	}
	if d.Code == lint.CodeDeprecated {
		out.Tags = []protocol.DiagnosticTag{protocol.DiagnosticTagDeprecated}
	}
	if d.Code == analysis.CodeSyntaxError && d.Range.End.Offset == d.Range.Start.Offset {
		out.Range.End.Character++
	}
	return out
}

// mapLintSeverity converts a lint.Severity to a protocol.DiagnosticSeverity.
func mapLintSeverity(sev lint.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case lint.SeverityError:
		return protocol.DiagnosticSeverityError
	case lint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}
