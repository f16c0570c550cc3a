// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"errors"
	"strings"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var luaKeywords = []string{
	"and", "break", "do", "else", "elseif", "end", "false", "for", "function",
	"goto", "if", "in", "local", "nil", "not", "or", "repeat", "return",
	"then", "true", "until", "while",
}

// textDocumentCompletion handles the textDocument/completion request.
// After "a.b." or "a:" it offers the members of the prefix; elsewhere the
// visible locals, globals and keywords matching the word being typed.
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	var items []protocol.CompletionItem
	err := s.withModel(params.TextDocument.URI, func(ctx context.Context, m *semantic.Model, _ *Document) error {
		src := m.File().Tree.Source()
		offset := newLineIndex(src).offset(params.Position)
		start, prefix := wordAt(src, offset)
		if start > 0 && (src[start-1] == '.' || src[start-1] == ':') {
			path := pathBefore(src, start-1)
			if len(path) == 0 {
				return nil
			}
			var err error
			items, err = memberCompletions(ctx, m, start, path, prefix, src[start-1] == ':')
			return err
		}
		items = scopeCompletions(ctx, m, offset, prefix)
		return nil
	})
	return items, err
}

// memberCompletions returns the members of the value named by path whose
// names start with prefix.  Method calls only offer callable members.
func memberCompletions(ctx context.Context, m *semantic.Model, offset int, path []string, prefix string, method bool) ([]protocol.CompletionItem, error) {
	members, err := m.PathMembers(ctx, offset, path)
	if err != nil {
		if errors.Is(err, semantic.ErrCancelled) {
			return nil, err
		}
		return nil, nil
	}
	db := m.Snapshot()
	var items []protocol.CompletionItem
	for _, member := range members {
		if !strings.HasPrefix(member.Name, prefix) {
			continue
		}
		t, terr := m.MemberType(ctx, member)
		callable := member.Kind == analysis.MemberMethod || (terr == nil && isFunction(t))
		if method && !callable {
			continue
		}
		kind := protocol.CompletionItemKindField
		if callable {
			kind = protocol.CompletionItemKindMethod
		}
		items = append(items, completionItem(db, member.Name, kind, typeString(db, t, terr),
			analysis.MemberDeclOwner(member.ID)))
	}
	return items, nil
}

// scopeCompletions returns the locals visible at offset, then globals and
// keywords, that start with prefix.
func scopeCompletions(ctx context.Context, m *semantic.Model, offset int, prefix string) []protocol.CompletionItem {
	db := m.Snapshot()
	seen := make(map[string]bool)
	var items []protocol.CompletionItem
	add := func(decl *analysis.Decl) {
		if seen[decl.Name] || !strings.HasPrefix(decl.Name, prefix) {
			return
		}
		seen[decl.Name] = true
		t, err := m.DeclType(ctx, decl)
		kind := protocol.CompletionItemKindVariable
		if err == nil && isFunction(t) {
			kind = protocol.CompletionItemKindFunction
		}
		items = append(items, completionItem(db, decl.Name, kind, typeString(db, t, err), analysis.DeclOwner(decl.ID)))
	}
	for _, decl := range m.VisibleDecls(offset) {
		add(decl)
	}
	for _, name := range db.GlobalNames() {
		if decl, ok := db.Global(name); ok {
			add(decl)
		}
	}
	for _, kw := range luaKeywords {
		if prefix != "" && strings.HasPrefix(kw, prefix) && !seen[kw] {
			kind := protocol.CompletionItemKindKeyword
			items = append(items, protocol.CompletionItem{Label: kw, Kind: &kind})
		}
	}
	return items
}

func completionItem(db *analysis.Snapshot, label string, kind protocol.CompletionItemKind, detail string, id analysis.SemanticDeclID) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:  label,
		Kind:   &kind,
		Detail: &detail,
	}
	if prop, ok := db.Property(id); ok {
		if _, ok := prop.Deprecated(); ok {
			item.Tags = []protocol.CompletionItemTag{protocol.CompletionItemTagDeprecated}
		}
		if desc, ok := prop.Description(); ok && desc != "" {
			item.Documentation = protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: desc,
			}
		}
	}
	return item
}

// isFunction reports whether every alternative of t is callable.
func isFunction(t luatype.Type) bool {
	alts := luatype.Members(t)
	if len(alts) == 0 {
		return false
	}
	for _, alt := range alts {
		switch alt := alt.(type) {
		case luatype.Signature, *luatype.FunctionType:
		case luatype.Basic:
			if alt != luatype.Function {
				return false
			}
		default:
			return false
		}
	}
	return true
}
