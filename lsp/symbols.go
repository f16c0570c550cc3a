// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"sort"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol
// request.  It lists the file's type declarations, its globals and the
// locals of its top-level scope, with the members declared on each type as
// children.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	var symbols []protocol.DocumentSymbol
	err := s.withModel(params.TextDocument.URI, func(ctx context.Context, m *semantic.Model, _ *Document) error {
		f := m.File()
		db := m.Snapshot()
		li := newLineIndex(f.Tree.Source())

		for _, td := range f.Types {
			sym := protocol.DocumentSymbol{
				Name:           string(td.ID),
				Detail:         strPtr(td.Kind.String()),
				Kind:           typeSymbolKind(td.Kind),
				Range:          li.rangeOf(td.Range),
				SelectionRange: li.rangeOf(td.Range),
			}
			for _, member := range f.Members {
				if member.Owner != analysis.TypeOwner(td.ID) || member.Name == "" {
					continue
				}
				t, err := m.MemberType(ctx, member)
				kind := protocol.SymbolKindField
				if member.Kind == analysis.MemberMethod || (err == nil && isFunction(t)) {
					kind = protocol.SymbolKindMethod
				}
				sym.Children = append(sym.Children, protocol.DocumentSymbol{
					Name:           member.Name,
					Detail:         strPtr(typeString(db, t, err)),
					Kind:           kind,
					Range:          li.rangeOf(member.Range),
					SelectionRange: li.rangeOf(member.Range),
				})
			}
			symbols = append(symbols, sym)
		}

		var decls []*analysis.Decl
		for _, decl := range f.Decls {
			if decl.Kind == analysis.DeclGlobal || (decl.Kind == analysis.DeclLocal && f.Scope != nil && f.Scope.Decls[decl.Name] == decl) {
				decls = append(decls, decl)
			}
		}
		sort.Slice(decls, func(i, j int) bool { return decls[i].ID.Pos < decls[j].ID.Pos })
		globals := make(map[string]bool)
		for _, decl := range decls {
			if decl.Kind == analysis.DeclGlobal {
				if globals[decl.Name] {
					continue
				}
				globals[decl.Name] = true
			}
			t, err := m.DeclType(ctx, decl)
			kind := protocol.SymbolKindVariable
			if err == nil && isFunction(t) {
				kind = protocol.SymbolKindFunction
			}
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           decl.Name,
				Detail:         strPtr(typeString(db, t, err)),
				Kind:           kind,
				Range:          li.rangeOf(decl.Range),
				SelectionRange: li.rangeOf(decl.Range),
			})
		}
		return nil
	})
	return symbols, err
}

func typeSymbolKind(kind analysis.TypeDeclKind) protocol.SymbolKind {
	switch kind {
	case analysis.TypeEnum:
		return protocol.SymbolKindEnum
	case analysis.TypeAlias:
		return protocol.SymbolKindTypeParameter
	case analysis.TypeAttribute:
		return protocol.SymbolKindInterface
	default:
		return protocol.SymbolKindClass
	}
}
