package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrAlreadyExists is returned by Create when the path is already present.
var ErrAlreadyExists = errors.New("file already exists")

// Tree is the view of the workspace every generation helper works against.
// Paths are slash-separated and relative to the workspace root; a leading
// "/" is accepted and ignored.
type Tree interface {
	// Exists reports whether a file is present at path.
	Exists(path string) bool

	// Read returns the content of the file at path. The returned error wraps
	// fs.ErrNotExist when the file is absent.
	Read(path string) ([]byte, error)

	// Create adds a new file. It fails with ErrAlreadyExists if the path is taken.
	Create(path string, content []byte) error

	// Overwrite replaces the content of an existing file.
	Overwrite(path string, content []byte) error

	// Delete removes an existing file.
	Delete(path string) error
}

// ActionKind names the effect a staged change will have once committed.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// Action is one entry of the change log returned by HostTree.Actions.
type Action struct {
	Kind ActionKind `json:"kind"`
	Path string     `json:"path"`
}

// stagedFile is the pending state of a single path.
type stagedFile struct {
	content []byte
	deleted bool

	// inBase records whether the path existed in the base filesystem when
	// it was first touched. It decides between create and update.
	inBase bool
}

// HostTree stages every change in memory on top of a base afero.Fs.
// Nothing reaches the base until Commit is called, which makes a dry run
// a matter of not committing.
//
// A HostTree has a single writer; it is not safe for concurrent use.
type HostTree struct {
	base   afero.Fs
	staged map[string]*stagedFile

	// order keeps the first-touch order of staged paths so the action log
	// and the commit follow the order in which the generator wrote files.
	order []string
}

// NewHostTree creates a tree over an arbitrary afero filesystem.
// Tests use afero.NewMemMapFs(); the CLI uses NewOsTree.
func NewHostTree(base afero.Fs) *HostTree {
	return &HostTree{
		base:   base,
		staged: make(map[string]*stagedFile),
	}
}

// NewOsTree creates a tree rooted at a directory on the local disk.
func NewOsTree(root string) *HostTree {
	return NewHostTree(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// Normalize converts a user supplied path into the canonical tree form:
// slash separated, cleaned, without a leading slash.
func Normalize(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

// Exists reports whether a file is present at p.
func (t *HostTree) Exists(p string) bool {
	p = Normalize(p)
	if sf, ok := t.staged[p]; ok {
		return !sf.deleted
	}
	return t.baseExists(p)
}

// Read returns the current content at p, staged or from the base.
func (t *HostTree) Read(p string) ([]byte, error) {
	p = Normalize(p)
	if sf, ok := t.staged[p]; ok {
		if sf.deleted {
			return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
		}
		return bytes.Clone(sf.content), nil
	}

	if !t.baseExists(p) {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	data, err := afero.ReadFile(t.base, filepath.FromSlash(p))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Create stages a new file at p.
func (t *HostTree) Create(p string, content []byte) error {
	p = Normalize(p)
	if p == "" {
		return fmt.Errorf("cannot create a file at the tree root")
	}
	if t.Exists(p) {
		return fmt.Errorf("%s: %w", p, ErrAlreadyExists)
	}
	t.stage(p).set(content)
	return nil
}

// Overwrite stages new content for an existing file at p.
func (t *HostTree) Overwrite(p string, content []byte) error {
	p = Normalize(p)
	if !t.Exists(p) {
		return &fs.PathError{Op: "overwrite", Path: p, Err: fs.ErrNotExist}
	}
	t.stage(p).set(content)
	return nil
}

// Delete stages the removal of the file at p.
func (t *HostTree) Delete(p string) error {
	p = Normalize(p)
	if !t.Exists(p) {
		return &fs.PathError{Op: "delete", Path: p, Err: fs.ErrNotExist}
	}
	sf := t.stage(p)
	if !sf.inBase {
		// Created and deleted within the same run: nothing to do on commit.
		delete(t.staged, p)
		t.order = removePath(t.order, p)
		return nil
	}
	sf.deleted = true
	sf.content = nil
	return nil
}

// Actions returns the pending changes in first-touch order.
func (t *HostTree) Actions() []Action {
	actions := make([]Action, 0, len(t.order))
	for _, p := range t.order {
		sf := t.staged[p]
		switch {
		case sf.deleted:
			actions = append(actions, Action{Kind: ActionDelete, Path: p})
		case sf.inBase:
			actions = append(actions, Action{Kind: ActionUpdate, Path: p})
		default:
			actions = append(actions, Action{Kind: ActionCreate, Path: p})
		}
	}
	return actions
}

// Commit writes every staged change to the base filesystem and clears the
// staging area. On error the remaining changes stay staged.
func (t *HostTree) Commit() error {
	for len(t.order) > 0 {
		p := t.order[0]
		sf := t.staged[p]
		osPath := filepath.FromSlash(p)

		if sf.deleted {
			if err := t.base.Remove(osPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete %s: %w", p, err)
			}
		} else {
			if err := t.base.MkdirAll(filepath.Dir(osPath), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", p, err)
			}
			if err := afero.WriteFile(t.base, osPath, sf.content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", p, err)
			}
		}

		delete(t.staged, p)
		t.order = t.order[1:]
	}
	return nil
}

// stage returns the staged entry for p, creating it on first touch.
func (t *HostTree) stage(p string) *stagedFile {
	if sf, ok := t.staged[p]; ok {
		return sf
	}
	sf := &stagedFile{inBase: t.baseExists(p)}
	t.staged[p] = sf
	t.order = append(t.order, p)
	return sf
}

func (sf *stagedFile) set(content []byte) {
	sf.content = bytes.Clone(content)
	sf.deleted = false
}

func (t *HostTree) baseExists(p string) bool {
	if p == "" {
		return false
	}
	info, err := t.base.Stat(filepath.FromSlash(p))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func removePath(paths []string, p string) []string {
	out := paths[:0]
	for _, existing := range paths {
		if existing != p {
			out = append(out, existing)
		}
	}
	return out
}
