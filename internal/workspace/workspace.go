package workspace

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// File is one editable unit inside a workspace. The ID is assigned at creation
// and never changes; names are display-only and may collide.
type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Runtime   string `json:"runtime"`
	Content   string `json:"content"`
}

// Workspace is the full multi-file editable state of one room at a point in
// time. ActiveFileID, when set, must reference a key in Files. An empty Files
// map is tolerated on receipt but never produced deliberately.
type Workspace struct {
	Files        map[string]File `json:"files"`
	ActiveFileID string          `json:"activeFileId,omitempty"`
}

// NewFile builds a file with a fresh ID, deriving extension and runtime from
// the name.
func NewFile(name, content string) File {
	ext := ExtensionOf(name)
	return File{
		ID:        uuid.NewString(),
		Name:      name,
		Extension: ext,
		Runtime:   RuntimeFor(ext),
		Content:   content,
	}
}

// ExtensionOf returns the lowercase extension of a file name without the dot,
// or an empty string when the name has none.
func ExtensionOf(name string) string {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// Rename updates the file name and re-derives extension and runtime.
func (f *File) Rename(name string) {
	f.Name = name
	f.Extension = ExtensionOf(name)
	f.Runtime = RuntimeFor(f.Extension)
}

// New returns an empty workspace.
func New() Workspace {
	return Workspace{Files: make(map[string]File)}
}

// Clone returns a deep copy of the workspace so callers can hold snapshots
// without sharing the files map.
func (w Workspace) Clone() Workspace {
	out := Workspace{
		Files:        make(map[string]File, len(w.Files)),
		ActiveFileID: w.ActiveFileID,
	}
	for id, file := range w.Files {
		out.Files[id] = file
	}
	return out
}

// Validate checks the active-file invariant. A nil or empty files map is
// accepted; a dangling ActiveFileID is not.
func (w Workspace) Validate() error {
	if w.ActiveFileID == "" {
		return nil
	}
	if _, ok := w.Files[w.ActiveFileID]; !ok {
		return fmt.Errorf("workspace: activeFileId %q does not reference a file", w.ActiveFileID)
	}
	return nil
}

// Active returns the currently highlighted file, if any.
func (w Workspace) Active() (File, bool) {
	if w.ActiveFileID == "" {
		return File{}, false
	}
	file, ok := w.Files[w.ActiveFileID]
	return file, ok
}
