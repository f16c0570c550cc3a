// Copyright © 2024 The ELPS authors

// Package analysis builds the declaration, type, member and property
// indexes of Lua source files.
//
// Analyze is a pure function of one syntax tree and produces a FileIndex.
// A Database owns the merged indexes of every file in a session and
// replaces a file's contribution atomically when it is re-analyzed.
package analysis

import (
	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/syntax"
)

// Codes of diagnostics produced during analysis.
const (
	CodeSyntaxError     = "syntax-error"
	CodeOrphanAttribute = "orphan-attribute"
	CodeOrphanTag       = "orphan-tag"
)

// Diagnostic is a problem found while analyzing a file.
type Diagnostic struct {
	Code    string
	Range   syntax.Range
	Message string
}

// AttributeSite records where an attribute use was written.
type AttributeSite struct {
	Owner SemanticDeclID
	Use   luatype.AttributeUse
	Range syntax.Range
}

// FileIndex holds everything analysis learned about one file.
type FileIndex struct {
	File      luatype.FileID
	URI       string
	Workspace WorkspaceID
	Tree      *syntax.Tree
	Scope     *Scope

	Decls   map[DeclID]*Decl
	Globals []*Decl
	// Refs maps the offset of a NameExpr to the declaration it reads.
	Refs       map[int]DeclID
	Members    []*Member
	Types      []*TypeDecl
	Signatures map[luatype.SignatureID]*Signature
	Properties *PropertyIndex
	Attributes []AttributeSite
	// Owners maps documented statements to the declaration their comment
	// annotates.
	Owners      map[*syntax.Node]SemanticDeclID
	Diagnostics []Diagnostic
}

func newFileIndex(file luatype.FileID, uri string, ws WorkspaceID, tree *syntax.Tree) *FileIndex {
	return &FileIndex{
		File:       file,
		URI:        uri,
		Workspace:  ws,
		Tree:       tree,
		Decls:      make(map[DeclID]*Decl),
		Refs:       make(map[int]DeclID),
		Signatures: make(map[luatype.SignatureID]*Signature),
		Properties: NewPropertyIndex(),
		Owners:     make(map[*syntax.Node]SemanticDeclID),
	}
}

// Analyze performs analysis of tree as file.  Analyze never fails; syntax
// errors and unresolvable doc tags are reported as diagnostics.
func Analyze(file luatype.FileID, uri string, ws WorkspaceID, tree *syntax.Tree) *FileIndex {
	idx := newFileIndex(file, uri, ws, tree)
	for _, err := range tree.Errors {
		idx.Diagnostics = append(idx.Diagnostics, Diagnostic{
			Code:    CodeSyntaxError,
			Range:   err.Range,
			Message: err.Msg,
		})
	}

	root := NewScope(ScopeFile, nil, tree.Root)
	idx.Scope = root
	a := &analyzer{
		idx:         idx,
		globals:     make(map[string]*Decl),
		members:     make(map[memberKey]*Member),
		tableOwners: make(map[*syntax.Node]MemberOwner),
		closureDocs: make(map[*syntax.Node]*docBundle),
	}
	if block := tree.Root.ChildOfKind(syntax.KindBlock); block != nil {
		a.block(block, root)
	}
	return idx
}
