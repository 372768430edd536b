package schematic

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/shinji-kodama/storybook-schematic/internal/tree"
)

// SourceFile is a parsed TypeScript or JavaScript file. Call Close when done
// to release the syntax tree.
type SourceFile struct {
	Path    string
	Content []byte

	tree *sitter.Tree
}

// ReadSourceFile reads path from the tree and parses it with the grammar
// matching its extension (.ts, .tsx, or JavaScript for everything else).
//
// Syntax errors do not fail the read, as the TypeScript compiler API does
// not either; use HasSyntaxErrors to check.
func ReadSourceFile(t tree.Tree, filePath string) (*SourceFile, error) {
	content, err := readFile(t, filePath)
	if err != nil {
		return nil, fmt.Errorf("could not read TS file (%s): %w", filePath, err)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageFor(filePath))

	st, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	return &SourceFile{Path: tree.Normalize(filePath), Content: content, tree: st}, nil
}

func languageFor(filePath string) *sitter.Language {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Root returns the root node of the syntax tree.
func (s *SourceFile) Root() *sitter.Node {
	return s.tree.RootNode()
}

// HasSyntaxErrors reports whether the parser had to recover from errors.
func (s *SourceFile) HasSyntaxErrors() bool {
	return s.Root().HasError()
}

// Imports returns the module specifiers of the file's top-level import
// statements, in source order. Side-effect imports are included.
func (s *SourceFile) Imports() []string {
	var specifiers []string

	root := s.Root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_statement" {
			continue
		}
		source := child.ChildByFieldName("source")
		if source == nil {
			continue
		}
		specifiers = append(specifiers, unquote(source.Content(s.Content)))
	}

	return specifiers
}

// HasImport reports whether the file imports specifier.
func (s *SourceFile) HasImport(specifier string) bool {
	for _, imp := range s.Imports() {
		if imp == specifier {
			return true
		}
	}
	return false
}

// Close releases the syntax tree. The SourceFile must not be used afterwards.
func (s *SourceFile) Close() {
	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
