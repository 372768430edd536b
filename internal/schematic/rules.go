package schematic

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"
)

// templateSuffix marks template files whose content is rendered. The suffix
// is removed from the generated path.
const templateSuffix = ".template"

// Template renders entries with vars.
//
// Every "__name__" token in the path is replaced with vars["name"]. Files
// ending in ".template" have their content executed as a text/template with
// vars as data, and lose the suffix; other files are copied verbatim.
// Referencing a variable that is not in vars is an error.
func Template(vars map[string]interface{}) Rule {
	// Longest keys first so "__projectRoot__" is not cut short by a
	// "__project__" replacement.
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	return func(entry FileEntry) (*FileEntry, error) {
		p := entry.Path
		for _, k := range keys {
			p = strings.ReplaceAll(p, "__"+k+"__", fmt.Sprint(vars[k]))
		}

		content := entry.Content
		if strings.HasSuffix(p, templateSuffix) {
			p = strings.TrimSuffix(p, templateSuffix)

			tmpl, err := template.New(p).Option("missingkey=error").Parse(string(entry.Content))
			if err != nil {
				return nil, fmt.Errorf("invalid template %s: %w", entry.Path, err)
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, vars); err != nil {
				return nil, fmt.Errorf("failed to render %s: %w", entry.Path, err)
			}
			content = buf.Bytes()
		}

		return &FileEntry{Path: p, Content: content}, nil
	}
}

// Move prefixes every entry path with dir.
func Move(dir string) Rule {
	return func(entry FileEntry) (*FileEntry, error) {
		return &FileEntry{Path: path.Join(dir, entry.Path), Content: entry.Content}, nil
	}
}

// Filter keeps only the entries matching at least one of the doublestar
// patterns ("**/*.js", "{main,preview}.js").
func Filter(patterns ...string) Rule {
	return func(entry FileEntry) (*FileEntry, error) {
		matched, err := matchAny(patterns, entry.Path)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, nil
		}
		return &entry, nil
	}
}

// Exclude drops the entries matching any of the doublestar patterns.
func Exclude(patterns ...string) Rule {
	return func(entry FileEntry) (*FileEntry, error) {
		matched, err := matchAny(patterns, entry.Path)
		if err != nil {
			return nil, err
		}
		if matched {
			return nil, nil
		}
		return &entry, nil
	}
}

func matchAny(patterns []string, p string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, p)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
