// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/astutil"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/luthersystems/emmylua/syntax"
	"github.com/muesli/reflow/wordwrap"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// hoverWidth is the column descriptions are wrapped at.
const hoverWidth = 80

// textDocumentHover handles the textDocument/hover request.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	var hover *protocol.Hover
	err := s.withModel(params.TextDocument.URI, func(ctx context.Context, m *semantic.Model, _ *Document) error {
		li := newLineIndex(m.File().Tree.Source())
		n, id, ok := declAt(ctx, m, li.offset(params.Position))
		if !ok {
			return nil
		}
		content := buildHoverContent(ctx, m, id)
		if content == "" {
			return nil
		}
		rng := li.rangeOf(n.Range())
		hover = &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: content,
			},
			Range: &rng,
		}
		return nil
	})
	return hover, err
}

// declAt returns the name at offset and the declaration it refers to.
func declAt(ctx context.Context, m *semantic.Model, offset int) (*syntax.Node, analysis.SemanticDeclID, bool) {
	n := astutil.Enclosing(m.File().Tree, offset,
		syntax.KindNameExpr, syntax.KindIndexExpr, syntax.KindLocalName, syntax.KindParamName)
	if n == nil {
		return nil, analysis.SemanticDeclID{}, false
	}
	id, ok := m.FindDecl(ctx, n)
	return n, id, ok
}

// buildHoverContent builds Markdown hover text for a declaration: its
// type, description, deprecation and attributes.
func buildHoverContent(ctx context.Context, m *semantic.Model, id analysis.SemanticDeclID) string {
	db := m.Snapshot()
	var sb strings.Builder

	switch id.Kind {
	case analysis.SemanticDecl:
		decl, ok := db.Decl(analysis.DeclID{File: id.File, Pos: id.Pos})
		if !ok {
			return ""
		}
		t, err := m.DeclType(ctx, decl)
		fmt.Fprintf(&sb, "```lua\n%s %s: %s\n```", declLabel(decl.Kind), decl.Name, typeString(db, t, err))
	case analysis.SemanticMember:
		member, ok := db.MemberByID(analysis.MemberID{File: id.File, Pos: id.Pos})
		if !ok {
			return ""
		}
		t, err := m.MemberType(ctx, member)
		label := "field"
		if member.Kind == analysis.MemberMethod {
			label = "method"
		}
		fmt.Fprintf(&sb, "```lua\n(%s) %s: %s\n```", label, member.Name, typeString(db, t, err))
	case analysis.SemanticSignature:
		sig, ok := db.Signature(luatype.SignatureID{File: id.File, Pos: id.Pos})
		if !ok {
			return ""
		}
		fmt.Fprintf(&sb, "```lua\nfunction %s%s\n```", sig.Name, paramList(sig.FunctionType()))
	case analysis.SemanticType:
		td, ok := db.TypeDecl(id.Type)
		if !ok {
			return ""
		}
		fmt.Fprintf(&sb, "```lua\n(%s) %s\n```", td.Kind, td.ID)
	default:
		return ""
	}

	if prop, ok := db.Property(id); ok {
		if prop.Features().Has(analysis.FeatureReadOnly) {
			sb.WriteString("\n\n*readonly*")
		}
		if dep, ok := prop.Deprecated(); ok {
			sb.WriteString("\n\n**Deprecated**")
			if dep.HasMessage && dep.Message != "" {
				sb.WriteString(": " + dep.Message)
			}
		}
		if desc, ok := prop.Description(); ok && desc != "" {
			sb.WriteString("\n\n" + wordwrap.String(desc, hoverWidth))
		}
	}
	if uses := db.AttributeUses(id); len(uses) > 0 {
		sb.WriteString("\n\n")
		for i, use := range uses {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "`@[%s]`", use)
		}
	}
	return sb.String()
}

func declLabel(kind analysis.DeclKind) string {
	switch kind {
	case analysis.DeclParam:
		return "(parameter)"
	case analysis.DeclGlobal:
		return "global"
	default:
		return "local"
	}
}

// typeString renders t for display.  Function bodies are shown with their
// declared signature.
func typeString(db *analysis.Snapshot, t luatype.Type, err error) string {
	if err != nil || t == nil {
		return luatype.Unknown.String()
	}
	if s, ok := t.(luatype.Signature); ok {
		if sig, ok := db.Signature(luatype.SignatureID(s)); ok {
			return sig.FunctionType().String()
		}
	}
	return t.String()
}

// paramList renders f without its leading fun or method keyword.
func paramList(f *luatype.FunctionType) string {
	s := f.String()
	return s[strings.IndexByte(s, '('):]
}
