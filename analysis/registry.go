// Copyright © 2024 The ELPS authors

package analysis

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
	"github.com/luthersystems/emmylua/luatype"
)

// WorkspaceID groups files by origin.  The standard library definitions
// load into WorkspaceStd, the user's project into WorkspaceMain and each
// extra library root gets its own id after that.
type WorkspaceID uint32

const (
	WorkspaceStd  WorkspaceID = 0
	WorkspaceMain WorkspaceID = 1
)

// WorkspaceLib returns the id of the n-th library root, starting at 1.
func WorkspaceLib(n int) WorkspaceID {
	id, err := safecast.Conv[uint32](n + 1)
	if err != nil || n < 1 {
		panic(fmt.Sprintf("invalid library index %d", n))
	}
	return WorkspaceID(id)
}

func (w WorkspaceID) IsStd() bool     { return w == WorkspaceStd }
func (w WorkspaceID) IsMain() bool    { return w == WorkspaceMain }
func (w WorkspaceID) IsLibrary() bool { return w > WorkspaceMain }

func (w WorkspaceID) String() string {
	switch w {
	case WorkspaceStd:
		return "std"
	case WorkspaceMain:
		return "main"
	default:
		return fmt.Sprintf("lib%d", uint32(w)-1)
	}
}

// FileInfo describes a registered file.
type FileInfo struct {
	ID        luatype.FileID
	URI       string
	Workspace WorkspaceID
}

// FileRegistry assigns stable ids to file URIs.  Ids are never reused
// within a session.  FileRegistry is safe for concurrent use.
type FileRegistry struct {
	mu    sync.Mutex
	files []FileInfo
	byURI map[string]luatype.FileID
}

func NewFileRegistry() *FileRegistry {
	return &FileRegistry{byURI: make(map[string]luatype.FileID)}
}

// Register returns the id of uri, allocating one on first use.
func (r *FileRegistry) Register(uri string, ws WorkspaceID) (luatype.FileID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byURI[uri]; ok {
		return id, nil
	}
	n, err := safecast.Conv[uint32](len(r.files))
	if err != nil {
		return 0, fmt.Errorf("file registry full: %w", err)
	}
	id := luatype.FileID(n)
	r.files = append(r.files, FileInfo{ID: id, URI: uri, Workspace: ws})
	r.byURI[uri] = id
	return id, nil
}

// Lookup returns the id of a registered uri.
func (r *FileRegistry) Lookup(uri string) (luatype.FileID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byURI[uri]
	return id, ok
}

// Info returns the registration of id.
func (r *FileRegistry) Info(id luatype.FileID) (FileInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) >= len(r.files) {
		return FileInfo{}, false
	}
	return r.files[id], true
}
