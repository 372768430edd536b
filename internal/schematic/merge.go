package schematic

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// ErrMergeConflict is returned by MergeWith when a generated file already
// exists in the destination tree.
var ErrMergeConflict = errors.New("merge conflict")

// FileEntry is one generated file on its way into the tree.
type FileEntry struct {
	Path    string
	Content []byte
}

// Source produces the file entries of a generation step.
type Source func() ([]FileEntry, error)

// Rule transforms a single entry. Returning nil drops the entry.
type Rule func(entry FileEntry) (*FileEntry, error)

// Step is a generation step applied to a tree.
type Step func(t tree.Tree) error

// Apply returns a Source that runs every entry of source through rules, in
// order. An entry dropped by one rule is not seen by the following ones.
func Apply(source Source, rules ...Rule) Source {
	return func() ([]FileEntry, error) {
		entries, err := source()
		if err != nil {
			return nil, err
		}

		out := make([]FileEntry, 0, len(entries))
		for _, entry := range entries {
			current := &entry
			for _, rule := range rules {
				current, err = rule(*current)
				if err != nil {
					return nil, fmt.Errorf("failed to transform %s: %w", entry.Path, err)
				}
				if current == nil {
					break
				}
			}
			if current != nil {
				out = append(out, *current)
			}
		}
		return out, nil
	}
}

// ForEach adapts a per-entry function into a Rule.
func ForEach(fn func(entry FileEntry) *FileEntry) Rule {
	return func(entry FileEntry) (*FileEntry, error) {
		return fn(entry), nil
	}
}

// MergeWith creates every entry of source in the tree. An entry whose path
// already exists fails the step with ErrMergeConflict.
func MergeWith(source Source) Step {
	return func(t tree.Tree) error {
		entries, err := source()
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := t.Create(entry.Path, entry.Content); err != nil {
				if errors.Is(err, tree.ErrAlreadyExists) {
					return fmt.Errorf("%w: %s already exists", ErrMergeConflict, entry.Path)
				}
				return err
			}
		}
		return nil
	}
}

// ApplyWithOverwrite applies rules to source and writes the result into the
// tree in source order. Entries whose path already exists replace the
// existing content in place; the others are created. The action log follows
// the source order, so an update never jumps ahead of an earlier create.
func ApplyWithOverwrite(source Source, rules ...Rule) Step {
	return func(t tree.Tree) error {
		entries, err := Apply(source, rules...)()
		if err != nil {
			return err
		}
		for _, entry := range entries {
			write := t.Create
			if t.Exists(entry.Path) {
				write = t.Overwrite
			}
			if err := write(entry.Path, entry.Content); err != nil {
				return err
			}
		}
		return nil
	}
}

// ApplyWithSkipExisting applies rules to source and merges the result into
// the tree, dropping every entry whose path already exists.
func ApplyWithSkipExisting(source Source, rules ...Rule) Step {
	return func(t tree.Tree) error {
		skipExisting := ForEach(func(entry FileEntry) *FileEntry {
			if t.Exists(entry.Path) {
				return nil
			}
			return &entry
		})

		return MergeWith(Apply(source, append(append([]Rule{}, rules...), skipExisting)...))(t)
	}
}

// Chain runs steps in order and stops at the first error.
func Chain(steps ...Step) Step {
	return func(t tree.Tree) error {
		for _, step := range steps {
			if err := step(t); err != nil {
				return err
			}
		}
		return nil
	}
}

// URL returns a Source reading every file below dir in fsys, typically an
// embed.FS of templates. Entry paths are relative to dir and sorted.
func URL(fsys fs.FS, dir string) Source {
	return func() ([]FileEntry, error) {
		pattern := path.Join(dir, "**")
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to list templates in %s: %w", dir, err)
		}
		sort.Strings(matches)

		entries := make([]FileEntry, 0, len(matches))
		for _, match := range matches {
			content, err := fs.ReadFile(fsys, match)
			if err != nil {
				return nil, fmt.Errorf("failed to read template %s: %w", match, err)
			}
			rel := match
			if prefix := path.Clean(dir); prefix != "." {
				rel = strings.TrimPrefix(match, prefix+"/")
			}
			entries = append(entries, FileEntry{Path: rel, Content: content})
		}
		return entries, nil
	}
}
