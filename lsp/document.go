// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/semantic"
)

// Document represents an open text document tracked by the LSP server.
// Its analysis lives in the shared database; synced records whether the
// database holds the current content.
type Document struct {
	mu      sync.Mutex
	URI     string
	Version int32
	Content string
	synced  bool
}

// DocumentStore manages open documents with thread-safe access.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Open adds a document to the store.
func (s *DocumentStore) Open(uri string, version int32, content string) *Document {
	doc := &Document{
		URI:     uri,
		Version: version,
		Content: content,
	}
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Change updates a document's content (full sync).
func (s *DocumentStore) Change(uri string, version int32, content string) *Document {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &Document{URI: uri}
		s.docs[uri] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	doc.Version = version
	doc.Content = content
	doc.synced = false
	doc.mu.Unlock()
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get retrieves a document by URI. Returns nil if not found.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// All returns every open document ordered by URI.
func (s *DocumentStore) All() []*Document {
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

// snapshot returns the content of doc.
func (d *Document) snapshot() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Content
}

// sync brings the database up to date with the content of doc.
func (s *Server) sync(ctx context.Context, doc *Document) error {
	s.ensureWorkspaceIndex()

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.synced {
		return nil
	}
	if _, err := s.db.UpdateFile(ctx, doc.URI, doc.Content); err != nil {
		return err
	}
	doc.synced = true
	return nil
}

// release restores the database view of a closed document: the file on
// disk when there is one and nothing otherwise.
func (s *Server) release(ctx context.Context, uri string) {
	src, err := os.ReadFile(analysis.URIToPath(uri)) //nolint:gosec // re-reads a file the client had open
	switch {
	case err == nil:
		if _, err := s.db.UpdateFile(ctx, uri, string(src)); err != nil {
			s.log.Warningf("reloading %s: %v", uri, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := s.db.RemoveFile(uri); err != nil && !errors.Is(err, analysis.ErrUnknownFile) {
			s.log.Warningf("removing %s: %v", uri, err)
		}
	default:
		s.log.Warningf("reading %s: %v", uri, err)
	}
}

// withModel syncs the document at uri and calls fn with a semantic model
// of it.  fn is not called for unknown documents.
func (s *Server) withModel(uri string, fn func(ctx context.Context, m *semantic.Model, doc *Document) error) error {
	doc := s.docs.Get(uri)
	if doc == nil {
		return nil
	}
	ctx, cancel := s.requestContext()
	defer cancel()
	if err := s.sync(ctx, doc); err != nil {
		return err
	}
	return s.db.Read(func(snap *analysis.Snapshot) error {
		f, ok := snap.FileByURI(uri)
		if !ok {
			return nil
		}
		return fn(ctx, semantic.NewModel(snap, f), doc)
	})
}
