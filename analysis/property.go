// Copyright © 2024 The ELPS authors

package analysis

import (
	"sort"

	"github.com/luthersystems/emmylua/luatype"
)

// Visibility of a declaration.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
	VisibilityPackage
)

// ParseVisibility maps a visibility keyword to a Visibility.
func ParseVisibility(s string) (Visibility, bool) {
	switch s {
	case "public":
		return VisibilityPublic, true
	case "protected":
		return VisibilityProtected, true
	case "private":
		return VisibilityPrivate, true
	case "package":
		return VisibilityPackage, true
	}
	return VisibilityPublic, false
}

func (v Visibility) String() string {
	switch v {
	case VisibilityProtected:
		return "protected"
	case VisibilityPrivate:
		return "private"
	case VisibilityPackage:
		return "package"
	default:
		return "public"
	}
}

// DeclFeatureFlag is a set of declaration features.  Features are only ever
// added.
type DeclFeatureFlag uint32

const (
	FeatureReadOnly DeclFeatureFlag = 1 << iota
	FeatureNoDiscard
	FeatureAsync
	FeatureMeta
	FeatureConstructor
)

// Add sets the bits of feature.
func (f *DeclFeatureFlag) Add(feature DeclFeatureFlag) {
	*f |= feature
}

// Has reports whether every bit of feature is set.
func (f DeclFeatureFlag) Has(feature DeclFeatureFlag) bool {
	return f&feature == feature
}

// Deprecation marks a deprecated declaration.  Message is empty for a plain
// ---@deprecated.
type Deprecation struct {
	Message    string
	HasMessage bool
}

// ExportScope is the scope of ---@export.
type ExportScope uint8

const (
	ExportGlobal ExportScope = iota
	ExportNamespace
)

func (s ExportScope) String() string {
	if s == ExportNamespace {
		return "namespace"
	}
	return "global"
}

// Tag is free form content of an unrecognized doc tag.
type Tag struct {
	Name    string
	Content string
}

// CommonProperty holds the doc metadata of one declaration.  Optional
// fields are nil until annotated.
type CommonProperty struct {
	visibility   Visibility
	description  *string
	source       *string
	deprecated   *Deprecation
	versionConds []string
	hasVersion   bool
	tags         []Tag
	export       *ExportScope
	features     DeclFeatureFlag
}

// Visibility returns the declared visibility, public by default.
func (p *CommonProperty) Visibility() Visibility { return p.visibility }

// Features returns the declaration features added so far.
func (p *CommonProperty) Features() DeclFeatureFlag { return p.features }

// SetVisibility replaces the visibility.
func (p *CommonProperty) SetVisibility(v Visibility) { p.visibility = v }

// Description returns the doc description, if any.
func (p *CommonProperty) Description() (string, bool) {
	if p.description == nil {
		return "", false
	}
	return *p.description, true
}

// Source returns the ---@source location, if any.
func (p *CommonProperty) Source() (string, bool) {
	if p.source == nil {
		return "", false
	}
	return *p.source, true
}

// Deprecated returns the deprecation and whether the declaration is
// deprecated.
func (p *CommonProperty) Deprecated() (Deprecation, bool) {
	if p.deprecated == nil {
		return Deprecation{}, false
	}
	return *p.deprecated, true
}

// VersionConds returns the ---@version conditions.  ok is false when no
// version was annotated; an annotated empty list is still ok.
func (p *CommonProperty) VersionConds() ([]string, bool) {
	return p.versionConds, p.hasVersion
}

// Tags returns tag content in the order it was added.
func (p *CommonProperty) Tags() ([]Tag, bool) {
	return p.tags, p.tags != nil
}

// Export returns the ---@export scope, if any.
func (p *CommonProperty) Export() (ExportScope, bool) {
	if p.export == nil {
		return ExportGlobal, false
	}
	return *p.export, true
}

// AddDescription sets the description, replacing an earlier one.
func (p *CommonProperty) AddDescription(desc string) {
	p.description = &desc
}

// AddSource sets the source location.
func (p *CommonProperty) AddSource(source string) {
	p.source = &source
}

// AddDeprecated marks the declaration deprecated.  A nil message records a
// plain deprecation.
func (p *CommonProperty) AddDeprecated(message *string) {
	d := &Deprecation{}
	if message != nil {
		d.Message = *message
		d.HasMessage = true
	}
	p.deprecated = d
}

// AddVersionConds sets the version conditions.
func (p *CommonProperty) AddVersionConds(conds []string) {
	p.versionConds = conds
	p.hasVersion = true
}

// AddTag appends tag content.  Duplicate tags are kept.
func (p *CommonProperty) AddTag(tag, content string) {
	p.tags = append(p.tags, Tag{Name: tag, Content: content})
}

// AddExport sets the export scope.
func (p *CommonProperty) AddExport(scope ExportScope) {
	p.export = &scope
}

// AddDeclFeature adds feature to the declaration features.
func (p *CommonProperty) AddDeclFeature(feature DeclFeatureFlag) {
	p.features.Add(feature)
}

// merge folds o into p.  Fields already set on p are kept.
func (p *CommonProperty) merge(o *CommonProperty) {
	if p.visibility == VisibilityPublic {
		p.visibility = o.visibility
	}
	if p.description == nil {
		p.description = o.description
	}
	if p.source == nil {
		p.source = o.source
	}
	if p.deprecated == nil {
		p.deprecated = o.deprecated
	}
	if !p.hasVersion {
		p.versionConds, p.hasVersion = o.versionConds, o.hasVersion
	}
	if o.tags != nil {
		p.tags = append(append([]Tag{}, p.tags...), o.tags...)
	}
	if p.export == nil {
		p.export = o.export
	}
	p.features.Add(o.features)
}

type contribution struct {
	file luatype.FileID
	prop *CommonProperty
	uses []luatype.AttributeUse
}

// PropertyIndex maps declarations to their properties and attribute uses.
// Each file contributes separately so that re-analysis of a file replaces
// exactly what that file wrote.
type PropertyIndex struct {
	entries map[SemanticDeclID][]*contribution
}

func NewPropertyIndex() *PropertyIndex {
	return &PropertyIndex{entries: make(map[SemanticDeclID][]*contribution)}
}

func (idx *PropertyIndex) contribution(file luatype.FileID, owner SemanticDeclID) *contribution {
	for _, c := range idx.entries[owner] {
		if c.file == file {
			return c
		}
	}
	c := &contribution{file: file}
	idx.entries[owner] = append(idx.entries[owner], c)
	sort.SliceStable(idx.entries[owner], func(i, j int) bool {
		return idx.entries[owner][i].file < idx.entries[owner][j].file
	})
	return c
}

// GetOrCreate returns the property written by file for owner, creating it
// on first use.
func (idx *PropertyIndex) GetOrCreate(file luatype.FileID, owner SemanticDeclID) *CommonProperty {
	c := idx.contribution(file, owner)
	if c.prop == nil {
		c.prop = &CommonProperty{}
	}
	return c.prop
}

// Get returns the property of owner.  When several files annotate the same
// owner the result is their merge in file order.
func (idx *PropertyIndex) Get(owner SemanticDeclID) (*CommonProperty, bool) {
	var props []*CommonProperty
	for _, c := range idx.entries[owner] {
		if c.prop != nil {
			props = append(props, c.prop)
		}
	}
	switch len(props) {
	case 0:
		return nil, false
	case 1:
		return props[0], true
	}
	merged := &CommonProperty{}
	for _, p := range props {
		merged.merge(p)
	}
	return merged, true
}

// AddAttributeUse records a use of an attribute on owner.
func (idx *PropertyIndex) AddAttributeUse(file luatype.FileID, owner SemanticDeclID, use luatype.AttributeUse) {
	c := idx.contribution(file, owner)
	c.uses = append(c.uses, use)
}

// AttributeUses returns the attribute uses of owner in insertion order.
func (idx *PropertyIndex) AttributeUses(owner SemanticDeclID) []luatype.AttributeUse {
	var uses []luatype.AttributeUse
	for _, c := range idx.entries[owner] {
		uses = append(uses, c.uses...)
	}
	return uses
}

// Owners returns every owner with at least one entry.
func (idx *PropertyIndex) Owners() []SemanticDeclID {
	owners := make([]SemanticDeclID, 0, len(idx.entries))
	for owner := range idx.entries {
		owners = append(owners, owner)
	}
	return owners
}

// RemoveFile drops every entry written by file.
func (idx *PropertyIndex) RemoveFile(file luatype.FileID) {
	for owner, cs := range idx.entries {
		kept := cs[:0]
		for _, c := range cs {
			if c.file != file {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(idx.entries, owner)
			continue
		}
		idx.entries[owner] = kept
	}
}

// Merge moves every entry of other into idx.
func (idx *PropertyIndex) Merge(other *PropertyIndex) {
	for owner, cs := range other.entries {
		for _, c := range cs {
			dst := idx.contribution(c.file, owner)
			if c.prop != nil {
				if dst.prop == nil {
					dst.prop = c.prop
				} else {
					dst.prop.merge(c.prop)
				}
			}
			dst.uses = append(dst.uses, c.uses...)
		}
	}
}
