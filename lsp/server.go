// Copyright © 2024 The ELPS authors

// Package lsp implements a Language Server Protocol server for Lua with
// EmmyLua annotations.  It provides diagnostics, hover, go-to-definition,
// references, completion, signature help and document symbols on top of a
// shared analysis database.
package lsp

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/lint"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const serverName = "emmylua-lsp"

// DefaultRequestTimeout bounds the time spent answering one request.
const DefaultRequestTimeout = 5 * time.Second

// Server is the Lua language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	db       *analysis.Database
	docs     *DocumentStore
	linter   *lint.Linter
	log      commonlog.Logger
	rootURI  string
	rootPath string

	indexOnce sync.Once

	// ctx is cancelled on shutdown.  Every request context derives from it.
	ctx            context.Context
	cancel         context.CancelFunc
	requestTimeout time.Duration

	// Debouncer for didChange notifications.
	debounceMu sync.Mutex
	debounce   map[string]*time.Timer

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithDatabase makes the server answer requests from db instead of a
// database of its own.
func WithDatabase(db *analysis.Database) Option {
	return func(s *Server) { s.db = db }
}

// WithRequestTimeout bounds the time spent on each request.  A zero or
// negative duration keeps DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithLinter sets the checks whose diagnostics are published.
func WithLinter(l *lint.Linter) Option {
	return func(s *Server) { s.linter = l }
}

// New creates a new language server.
func New(opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		docs:           NewDocumentStore(),
		linter:         &lint.Linter{Analyzers: lint.DefaultAnalyzers()},
		log:            commonlog.GetLogger("emmylua.lsp"),
		ctx:            ctx,
		cancel:         cancel,
		requestTimeout: DefaultRequestTimeout,
		debounce:       make(map[string]*time.Timer),
		exitFn:         os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.db == nil {
		s.db = analysis.NewDatabase()
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		Exit:        s.exit,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentSignatureHelp:  s.textDocumentSignatureHelp,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	if params.RootURI != nil {
		s.rootURI = *params.RootURI
		s.rootPath = analysis.URIToPath(s.rootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
		s.rootURI = analysis.PathToURI(s.rootPath)
	}

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{".", ":"},
	}
	capabilities.SignatureHelpProvider = &protocol.SignatureHelpOptions{
		TriggerCharacters:   []string{"(", ","},
		RetriggerCharacters: []string{","},
	}

	version := "0.1.0"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// initialized handles the initialized notification by loading the
// workspace in the background.
func (s *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	s.captureNotify(ctx)
	go func() {
		defer func() { _ = recover() }() // don't crash the server on load panic
		s.ensureWorkspaceIndex()
		s.publishAll()
	}()
	return nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()

	s.cancel()
	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// requestContext returns the context one request runs under.
func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.requestTimeout)
}

// ensureWorkspaceIndex loads the builtin library and the workspace below
// the root path at most once.  Open documents are re-synced afterwards so
// their editor content wins over the copy on disk.
func (s *Server) ensureWorkspaceIndex() {
	s.indexOnce.Do(func() {
		ctx := s.ctx
		if err := s.db.LoadStd(ctx); err != nil {
			s.log.Errorf("loading builtin library: %v", err)
		}
		if s.rootPath != "" {
			n, err := s.db.LoadWorkspace(ctx, s.rootPath, analysis.WorkspaceMain)
			if err != nil {
				s.log.Errorf("loading workspace %s: %v", s.rootPath, err)
			} else {
				s.log.Infof("indexed %d files below %s", n, s.rootPath)
			}
		}
		for _, doc := range s.docs.All() {
			doc.mu.Lock()
			doc.synced = false
			doc.mu.Unlock()
		}
	})
}

// captureNotify stores the notification function from the context for
// async use (e.g., publishing diagnostics after a debounce).
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}
