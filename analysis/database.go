// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/parser"
	"github.com/tliron/commonlog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownFile is returned for operations on a file that was never added.
var ErrUnknownFile = errors.New("unknown file")

// Database holds the merged indexes of every analyzed file.  It is created
// once per session and shared by all requests.  Queries run concurrently
// under Read; updates replace a file's contribution atomically so a reader
// never observes a partially applied file.
type Database struct {
	mu         sync.RWMutex
	registry   *FileRegistry
	files      map[luatype.FileID]*FileIndex
	types      map[luatype.TypeDeclID][]*TypeDecl
	members    map[MemberOwner][]*Member
	memberByID map[MemberID]*Member
	globals    map[string][]*Decl
	signatures map[luatype.SignatureID]*Signature
	props      *PropertyIndex

	log    commonlog.Logger
	tracer trace.Tracer
	jobs   int
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used by the database.
func WithLogger(l commonlog.Logger) Option {
	return func(db *Database) { db.log = l }
}

// WithTracer sets the tracer spans are recorded with.
func WithTracer(t trace.Tracer) Option {
	return func(db *Database) { db.tracer = t }
}

// WithJobs bounds the number of files analyzed in parallel by
// LoadWorkspace.
func WithJobs(n int) Option {
	return func(db *Database) {
		if n > 0 {
			db.jobs = n
		}
	}
}

// NewDatabase returns an empty database.
func NewDatabase(opts ...Option) *Database {
	db := &Database{
		registry:   NewFileRegistry(),
		files:      make(map[luatype.FileID]*FileIndex),
		types:      make(map[luatype.TypeDeclID][]*TypeDecl),
		members:    make(map[MemberOwner][]*Member),
		memberByID: make(map[MemberID]*Member),
		globals:    make(map[string][]*Decl),
		signatures: make(map[luatype.SignatureID]*Signature),
		props:      NewPropertyIndex(),
		log:        log,
		tracer:     defaultTracer(),
		jobs:       4,
	}
	for _, o := range opts {
		o(db)
	}
	return db
}

// Registry returns the file registry of db.
func (db *Database) Registry() *FileRegistry {
	return db.registry
}

// Read calls fn with a snapshot of db.  Updates wait until fn returns.  The
// snapshot must not be retained after fn returns.
func (db *Database) Read(fn func(*Snapshot) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(&Snapshot{db: db})
}

// UpdateFile analyzes src as the new content of uri and replaces the
// file's previous contribution.  A file seen for the first time belongs to
// WorkspaceMain.  When ctx is done before the result is merged the update
// is discarded and ctx.Err() returned.
func (db *Database) UpdateFile(ctx context.Context, uri string, src string) (*FileIndex, error) {
	ws := WorkspaceMain
	if id, ok := db.registry.Lookup(uri); ok {
		info, _ := db.registry.Info(id)
		ws = info.Workspace
	}
	return db.AddFile(ctx, uri, ws, src)
}

// AddFile is UpdateFile for a file of an explicit workspace.
func (db *Database) AddFile(ctx context.Context, uri string, ws WorkspaceID, src string) (*FileIndex, error) {
	idx, err := db.analyze(ctx, uri, ws, src)
	if err != nil {
		return nil, err
	}
	if err := db.commit(ctx, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (db *Database) analyze(ctx context.Context, uri string, ws WorkspaceID, src string) (*FileIndex, error) {
	id, err := db.registry.Register(uri, ws)
	if err != nil {
		return nil, err
	}
	info, _ := db.registry.Info(id)
	ctx, span := db.tracer.Start(ctx, "analysis.AnalyzeFile",
		trace.WithAttributes(fileAttributes(uri, info.Workspace)...))
	defer span.End()

	tree := parser.Parse(uri, src)
	idx := Analyze(id, uri, info.Workspace, tree)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	recordAnalyzed(ctx, idx)
	db.log.Debugf("analyzed %s: %d decls, %d members, %d diagnostics",
		uri, len(idx.Decls), len(idx.Members), len(idx.Diagnostics))
	return idx, nil
}

// commit merges the analyzed files under the write lock.  Nothing is
// merged when ctx is done.
func (db *Database) commit(ctx context.Context, files ...*FileIndex) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := ctx.Err(); err != nil {
		recordDropped(ctx, len(files))
		return err
	}
	for _, idx := range files {
		db.remove(idx.File)
		db.merge(idx)
	}
	return nil
}

// RemoveFile drops every contribution of uri.
func (db *Database) RemoveFile(uri string) error {
	id, ok := db.registry.Lookup(uri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, uri)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.remove(id)
	return nil
}

func (db *Database) remove(file luatype.FileID) {
	if _, ok := db.files[file]; !ok {
		return
	}
	delete(db.files, file)
	for id, decls := range db.types {
		if kept := filterFile(decls, file, func(td *TypeDecl) luatype.FileID { return td.File }); len(kept) > 0 {
			db.types[id] = kept
		} else {
			delete(db.types, id)
		}
	}
	for owner, ms := range db.members {
		if kept := filterFile(ms, file, func(m *Member) luatype.FileID { return m.ID.File }); len(kept) > 0 {
			db.members[owner] = kept
		} else {
			delete(db.members, owner)
		}
	}
	for id := range db.memberByID {
		if id.File == file {
			delete(db.memberByID, id)
		}
	}
	for name, decls := range db.globals {
		if kept := filterFile(decls, file, func(d *Decl) luatype.FileID { return d.ID.File }); len(kept) > 0 {
			db.globals[name] = kept
		} else {
			delete(db.globals, name)
		}
	}
	for id := range db.signatures {
		if id.File == file {
			delete(db.signatures, id)
		}
	}
	db.props.RemoveFile(file)
}

func filterFile[T any](items []T, file luatype.FileID, fileOf func(T) luatype.FileID) []T {
	kept := items[:0]
	for _, item := range items {
		if fileOf(item) != file {
			kept = append(kept, item)
		}
	}
	return kept
}

func (db *Database) merge(idx *FileIndex) {
	db.files[idx.File] = idx
	for _, td := range idx.Types {
		decls := append(db.types[td.ID], td)
		sort.SliceStable(decls, func(i, j int) bool { return decls[i].File < decls[j].File })
		db.types[td.ID] = decls
	}
	for _, m := range idx.Members {
		ms := append(db.members[m.Owner], m)
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].ID.File < ms[j].ID.File })
		db.members[m.Owner] = ms
		db.memberByID[m.ID] = m
	}
	for _, d := range idx.Globals {
		decls := append(db.globals[d.Name], d)
		sort.SliceStable(decls, func(i, j int) bool { return decls[i].ID.File < decls[j].ID.File })
		db.globals[d.Name] = decls
	}
	for id, sig := range idx.Signatures {
		db.signatures[id] = sig
	}
	db.props.Merge(idx.Properties)
}

// Snapshot is a read-only view of a Database, valid for the duration of a
// Read call.
type Snapshot struct {
	db *Database
}

// File returns the analysis of file.
func (s *Snapshot) File(file luatype.FileID) (*FileIndex, bool) {
	idx, ok := s.db.files[file]
	return idx, ok
}

// FileByURI returns the analysis of uri.
func (s *Snapshot) FileByURI(uri string) (*FileIndex, bool) {
	id, ok := s.db.registry.Lookup(uri)
	if !ok {
		return nil, false
	}
	return s.File(id)
}

// Files returns every analyzed file ordered by id.
func (s *Snapshot) Files() []*FileIndex {
	files := make([]*FileIndex, 0, len(s.db.files))
	for _, idx := range s.db.files {
		files = append(files, idx)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].File < files[j].File })
	return files
}

// TypeDecls returns every declaration of the named type ordered by file.
func (s *Snapshot) TypeDecls(id luatype.TypeDeclID) []*TypeDecl {
	return s.db.types[id]
}

// TypeDecl returns the first declaration of the named type.
func (s *Snapshot) TypeDecl(id luatype.TypeDeclID) (*TypeDecl, bool) {
	decls := s.db.types[id]
	if len(decls) == 0 {
		return nil, false
	}
	return decls[0], true
}

// TypeNames returns the names of every declared type in sorted order.
func (s *Snapshot) TypeNames() []luatype.TypeDeclID {
	names := make([]luatype.TypeDeclID, 0, len(s.db.types))
	for id := range s.db.types {
		names = append(names, id)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Supers returns the direct super types of a class across all of its
// declarations.
func (s *Snapshot) Supers(id luatype.TypeDeclID) []luatype.Type {
	var supers []luatype.Type
	for _, td := range s.db.types[id] {
		supers = append(supers, td.Supers...)
	}
	return supers
}

// Members returns the members of owner ordered by file.
func (s *Snapshot) Members(owner MemberOwner) []*Member {
	return s.db.members[owner]
}

// Member returns the member of owner called name.  A doc field is
// preferred over members inferred from code.
func (s *Snapshot) Member(owner MemberOwner, name string) (*Member, bool) {
	var found *Member
	for _, m := range s.db.members[owner] {
		if m.Name != name {
			continue
		}
		if m.Kind == MemberField {
			return m, true
		}
		if found == nil {
			found = m
		}
	}
	return found, found != nil
}

// MemberByID returns the member declared at id.
func (s *Snapshot) MemberByID(id MemberID) (*Member, bool) {
	m, ok := s.db.memberByID[id]
	return m, ok
}

// Global returns the canonical declaration of a global name: the first
// assignment in file order.
func (s *Snapshot) Global(name string) (*Decl, bool) {
	decls := s.db.globals[name]
	if len(decls) == 0 {
		return nil, false
	}
	return decls[0], true
}

// Globals returns every declaration of a global name in file order.
func (s *Snapshot) Globals(name string) []*Decl {
	return s.db.globals[name]
}

// GlobalNames returns the sorted names of every global.
func (s *Snapshot) GlobalNames() []string {
	names := make([]string, 0, len(s.db.globals))
	for name := range s.db.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decl returns the variable declaration at id.
func (s *Snapshot) Decl(id DeclID) (*Decl, bool) {
	idx, ok := s.db.files[id.File]
	if !ok {
		return nil, false
	}
	d, ok := idx.Decls[id]
	return d, ok
}

// Signature returns the signature of a function body.
func (s *Snapshot) Signature(id luatype.SignatureID) (*Signature, bool) {
	sig, ok := s.db.signatures[id]
	return sig, ok
}

// Property returns the merged property of owner.
func (s *Snapshot) Property(owner SemanticDeclID) (*CommonProperty, bool) {
	return s.db.props.Get(owner)
}

// AttributeUses returns the attribute uses of owner in insertion order.
func (s *Snapshot) AttributeUses(owner SemanticDeclID) []luatype.AttributeUse {
	return s.db.props.AttributeUses(owner)
}

// HasFeature reports whether owner carries feature.
func (s *Snapshot) HasFeature(owner SemanticDeclID, feature DeclFeatureFlag) bool {
	prop, ok := s.Property(owner)
	return ok && prop.Features().Has(feature)
}

// URIToPath converts a file:// URI to a filesystem path.
func URIToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// PathToURI converts an absolute filesystem path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return path
}
