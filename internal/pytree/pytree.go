// Package pytree wraps tree-sitter's Python grammar behind the small parse
// tree surface the inference engine needs: node kinds, source positions,
// parent/child navigation, raw text extraction, and a per-file index of
// identifier occurrences. The engine never walks tree-sitter types outside
// this package's helpers.
package pytree

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Node kind names from the tree-sitter Python grammar that the engine
// dispatches on.
const (
	KindModule          = "module"
	KindClassDef        = "class_definition"
	KindFunctionDef     = "function_definition"
	KindDecoratedDef    = "decorated_definition"
	KindAssignment      = "assignment"
	KindAugAssignment   = "augmented_assignment"
	KindExpressionStmt  = "expression_statement"
	KindIdentifier      = "identifier"
	KindAttribute       = "attribute"
	KindCall            = "call"
	KindArgumentList    = "argument_list"
	KindKeywordArgument = "keyword_argument"
	KindListSplat       = "list_splat"
	KindDictSplat       = "dictionary_splat"
	KindSubscript       = "subscript"
	KindIfStmt          = "if_statement"
	KindElifClause      = "elif_clause"
	KindElseClause      = "else_clause"
	KindGlobalStmt      = "global_statement"
	KindImport          = "import_statement"
	KindImportFrom      = "import_from_statement"
	KindAliasedImport   = "aliased_import"
	KindDottedName      = "dotted_name"
	KindReturnStmt      = "return_statement"
	KindBlock           = "block"
	KindParameters      = "parameters"
	KindString          = "string"
	KindInteger         = "integer"
	KindFloat           = "float"
	KindTrue            = "true"
	KindFalse           = "false"
	KindNone            = "none"
)

var (
	pyLang     *sitter.Language
	pyLangOnce sync.Once
)

// Language returns the tree-sitter Python grammar, initialized lazily.
func Language() *sitter.Language {
	pyLangOnce.Do(func() {
		pyLang = python.GetLanguage()
	})
	return pyLang
}

// Position is a source position. Line is 1-based, Col is a 0-based byte
// column, matching what editors send for goto/completion requests.
type Position struct {
	Line int
	Col  int
}

// Before reports whether p comes strictly before o in source order.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// NodeKey identifies a syntax node stably for the lifetime of its parse
// tree. Two nodes in the same file with equal byte ranges and kinds are the
// same node.
type NodeKey struct {
	Path  string
	Start uint32
	End   uint32
	Kind  string
}

// File is one parsed Python source unit.
type File struct {
	Path   string
	Source []byte

	tree *sitter.Tree
	root *sitter.Node

	namesOnce sync.Once
	names     map[string][]*sitter.Node
}

// Parse reads and parses the file at path. An unreadable file is the one
// condition that surfaces as a hard error to the caller.
func Parse(ctx context.Context, path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pytree: read %s: %w", path, err)
	}
	return ParseSource(ctx, path, src)
}

// ParseSource parses Python source text. The path is used only for
// positions and cache keys; it does not need to exist on disk.
func ParseSource(ctx context.Context, path string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("pytree: parse %s: %w", path, err)
	}
	return &File{
		Path:   path,
		Source: src,
		tree:   tree,
		root:   tree.RootNode(),
	}, nil
}

// Root returns the module node.
func (f *File) Root() *sitter.Node {
	return f.root
}

// Text extracts the raw source text covered by a node.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Source)
}

// Key returns the stable identity of a node within this file.
func (f *File) Key(n *sitter.Node) NodeKey {
	return NodeKey{Path: f.Path, Start: n.StartByte(), End: n.EndByte(), Kind: n.Type()}
}

// StartPos converts a node's start point to a Position.
func StartPos(n *sitter.Node) Position {
	p := n.StartPoint()
	return Position{Line: int(p.Row) + 1, Col: int(p.Column)}
}

// EndPos converts a node's end point to a Position.
func EndPos(n *sitter.Node) Position {
	p := n.EndPoint()
	return Position{Line: int(p.Row) + 1, Col: int(p.Column)}
}

// NamesFor returns every identifier node in the file whose text equals
// name, in source order. The index is built once per file on first use.
func (f *File) NamesFor(name string) []*sitter.Node {
	f.namesOnce.Do(f.buildNameIndex)
	return f.names[name]
}

func (f *File) buildNameIndex() {
	f.names = make(map[string][]*sitter.Node)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == KindIdentifier {
			text := f.Text(n)
			f.names[text] = append(f.names[text], n)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(f.root)
}

// IdentifierNames returns every distinct identifier text in the file, in
// sorted order.
func (f *File) IdentifierNames() []string {
	f.namesOnce.Do(f.buildNameIndex)
	keys := make([]string, 0, len(f.names))
	for k := range f.names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NodeAt returns the smallest named node covering the given position, or
// nil when the position is outside the tree.
func (f *File) NodeAt(pos Position) *sitter.Node {
	point := sitter.Point{Row: uint32(pos.Line - 1), Column: uint32(pos.Col)}
	n := f.root.NamedDescendantForPointRange(point, point)
	return n
}

// IdentifierAt returns the identifier node covering the position, or nil
// when the position is not on an identifier.
func (f *File) IdentifierAt(pos Position) *sitter.Node {
	n := f.NodeAt(pos)
	if n != nil && n.Type() == KindIdentifier {
		return n
	}
	return nil
}

// Ancestor walks parents of n until a node of one of the given kinds is
// found. Returns nil when n has no such ancestor.
func Ancestor(n *sitter.Node, kinds ...string) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, k := range kinds {
			if p.Type() == k {
				return p
			}
		}
	}
	return nil
}

// Close releases the underlying tree-sitter tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
	}
}
