// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"sort"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/semantic"
	"github.com/luthersystems/emmylua/syntax"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDefinition handles the textDocument/definition request.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	var result any
	err := s.withModel(params.TextDocument.URI, func(ctx context.Context, m *semantic.Model, _ *Document) error {
		li := newLineIndex(m.File().Tree.Source())
		_, id, ok := declAt(ctx, m, li.offset(params.Position))
		if !ok {
			return nil
		}
		if loc, ok := declLocation(m.Snapshot(), id); ok {
			result = loc
		}
		return nil
	})
	return result, err
}

// declLocation returns the source location of a declaration.  Builtin
// library declarations have no navigable source.
func declLocation(db *analysis.Snapshot, id analysis.SemanticDeclID) (protocol.Location, bool) {
	var file luatype.FileID
	var rng syntax.Range
	switch id.Kind {
	case analysis.SemanticDecl:
		decl, ok := db.Decl(analysis.DeclID{File: id.File, Pos: id.Pos})
		if !ok {
			return protocol.Location{}, false
		}
		file, rng = id.File, decl.Range
	case analysis.SemanticMember:
		member, ok := db.MemberByID(analysis.MemberID{File: id.File, Pos: id.Pos})
		if !ok {
			return protocol.Location{}, false
		}
		file, rng = id.File, member.Range
	case analysis.SemanticSignature:
		sig, ok := db.Signature(luatype.SignatureID{File: id.File, Pos: id.Pos})
		if !ok || sig.Node == nil {
			return protocol.Location{}, false
		}
		file, rng = id.File, sig.Node.Range()
	case analysis.SemanticType:
		td, ok := db.TypeDecl(id.Type)
		if !ok {
			return protocol.Location{}, false
		}
		file, rng = td.File, td.Range
	default:
		return protocol.Location{}, false
	}
	f, ok := db.File(file)
	if !ok || f.Workspace.IsStd() {
		return protocol.Location{}, false
	}
	return protocol.Location{
		URI:   f.URI,
		Range: newLineIndex(f.Tree.Source()).rangeOf(rng),
	}, true
}

// textDocumentReferences handles the textDocument/references request.  It
// reports every name that reads the declaration under the cursor; for a
// global that includes reads in every file.
func (s *Server) textDocumentReferences(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	var locs []protocol.Location
	err := s.withModel(params.TextDocument.URI, func(ctx context.Context, m *semantic.Model, _ *Document) error {
		li := newLineIndex(m.File().Tree.Source())
		_, id, ok := declAt(ctx, m, li.offset(params.Position))
		if !ok || id.Kind != analysis.SemanticDecl {
			return nil
		}
		db := m.Snapshot()
		target, ok := db.Decl(analysis.DeclID{File: id.File, Pos: id.Pos})
		if !ok {
			return nil
		}
		if params.Context.IncludeDeclaration {
			if loc, ok := declLocation(db, id); ok {
				locs = append(locs, loc)
			}
		}
		files := []*analysis.FileIndex{m.File()}
		if target.Kind == analysis.DeclGlobal {
			files = db.Files()
		}
		for _, f := range files {
			locs = append(locs, references(db, f, target)...)
		}
		return nil
	})
	return locs, err
}

// references returns the reads of target in f.
func references(db *analysis.Snapshot, f *analysis.FileIndex, target *analysis.Decl) []protocol.Location {
	var offsets []int
	for pos, declID := range f.Refs {
		decl, ok := f.Decls[declID]
		if !ok {
			decl, ok = db.Decl(declID)
		}
		if !ok {
			continue
		}
		same := declID == target.ID
		if target.Kind == analysis.DeclGlobal {
			same = decl.Kind == analysis.DeclGlobal && decl.Name == target.Name
		}
		if same && !(f.File == target.ID.File && pos == target.ID.Pos) {
			offsets = append(offsets, pos)
		}
	}
	sort.Ints(offsets)
	li := newLineIndex(f.Tree.Source())
	locs := make([]protocol.Location, 0, len(offsets))
	for _, pos := range offsets {
		start := li.position(pos)
		end := li.position(pos + len(target.Name))
		locs = append(locs, protocol.Location{URI: f.URI, Range: protocol.Range{Start: start, End: end}})
	}
	return locs
}
