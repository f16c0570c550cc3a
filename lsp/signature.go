// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"errors"
	"strings"

	"github.com/luthersystems/emmylua/astutil"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/luthersystems/emmylua/syntax"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentSignatureHelp handles textDocument/signatureHelp requests.
// It finds the innermost call whose argument list holds the cursor and
// offers every candidate signature of its callee, with the overload that
// resolution selects active.
func (s *Server) textDocumentSignatureHelp(_ *glsp.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	var help *protocol.SignatureHelp
	err := s.withModel(params.TextDocument.URI, func(ctx context.Context, m *semantic.Model, _ *Document) error {
		tree := m.File().Tree
		offset := newLineIndex(tree.Source()).offset(params.Position)
		call := enclosingCall(tree, offset)
		if call == nil {
			return nil
		}
		candidates, err := m.CallSignatures(ctx, call)
		if err != nil || len(candidates) == 0 {
			if errors.Is(err, semantic.ErrCancelled) {
				return err
			}
			return nil
		}
		active := 0
		if chosen, err := m.ResolveCall(ctx, call); err == nil {
			for i, c := range candidates {
				if c == chosen || luatype.Equal(c, chosen) {
					active = i
					break
				}
			}
		}
		var doc any
		if id, ok := m.FindDecl(ctx, astutil.Callee(call)); ok {
			if prop, ok := m.Snapshot().Property(id); ok {
				if desc, ok := prop.Description(); ok && desc != "" {
					doc = protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: desc}
				}
			}
		}
		name := tree.NodeText(astutil.Callee(call))
		argIndex := activeArgument(tree.Source(), call, offset)
		colon := syntax.IsColonCall(call)
		help = &protocol.SignatureHelp{ActiveSignature: ptrUint(active)}
		for _, c := range candidates {
			info := protocol.SignatureInformation{
				Label:         name + paramList(c),
				Documentation: doc,
			}
			for _, p := range c.Params {
				label := p.Name
				if p.Type != nil {
					label += ": " + p.Type.String()
				}
				info.Parameters = append(info.Parameters, protocol.ParameterInformation{Label: label})
			}
			if i, ok := activeParam(c, argIndex, colon); ok {
				info.ActiveParameter = ptrUint(i)
			}
			help.Signatures = append(help.Signatures, info)
		}
		if len(help.Signatures) > 0 && help.Signatures[active].ActiveParameter != nil {
			help.ActiveParameter = help.Signatures[active].ActiveParameter
		}
		return nil
	})
	return help, err
}

// enclosingCall returns the innermost call whose parenthesized argument
// list contains offset.
func enclosingCall(tree *syntax.Tree, offset int) *syntax.Node {
	for n := tree.NodeAt(offset); n != nil; n = n.Parent() {
		if n.Kind() != syntax.KindCallExpr {
			continue
		}
		args := n.ChildOfKind(syntax.KindArgList)
		if args != nil && offset > args.Range().Start.Offset && strings.HasPrefix(tree.NodeText(args), "(") {
			return n
		}
	}
	return nil
}

// activeArgument returns the index of the argument being written at
// offset: the number of arguments followed by a comma before offset.
func activeArgument(src string, call *syntax.Node, offset int) int {
	active := 0
	for i, arg := range syntax.CallArgs(call) {
		end := arg.Range().End.Offset
		if end > offset {
			break
		}
		if strings.Contains(src[end:offset], ",") {
			active = i + 1
		}
	}
	return active
}

// activeParam maps argument argIndex of a call onto a parameter of f.  A
// method called with a dot passes self first; a function called with a
// colon receives the receiver as its first parameter.
func activeParam(f *luatype.FunctionType, argIndex int, colonCall bool) (int, bool) {
	i := argIndex
	switch {
	case f.Colon && !colonCall:
		i--
	case !f.Colon && colonCall:
		i++
	}
	if i < 0 {
		return 0, false
	}
	if i >= len(f.Params) {
		if !f.IsVariadic() {
			return 0, false
		}
		i = len(f.Params) - 1
	}
	return i, true
}

func ptrUint(n int) *protocol.UInteger {
	u := safeUint(n)
	return &u
}
