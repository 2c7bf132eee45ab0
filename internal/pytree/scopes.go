package pytree

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// DefKind classifies how an identifier node binds a name, if at all.
type DefKind int

const (
	DefNone DefKind = iota
	DefClass
	DefFunction
	DefParam
	DefAssignment
	DefImport
	DefFor
	DefWith
	DefGlobal
)

// IsScope reports whether a node opens a lexical scope.
func IsScope(n *sitter.Node) bool {
	switch n.Type() {
	case KindModule, KindClassDef, KindFunctionDef:
		return true
	}
	return false
}

// ContainingScope returns the nearest enclosing scope of n, not counting n
// itself. The module node has no containing scope and returns nil.
func ContainingScope(n *sitter.Node) *sitter.Node {
	return Ancestor(n, KindModule, KindClassDef, KindFunctionDef)
}

// BindingScope returns the scope a definition name binds in. Class and
// function names bind in the scope enclosing their definition; parameters
// bind in the function itself; everything else binds in its containing
// scope.
func (f *File) BindingScope(name *sitter.Node) *sitter.Node {
	switch f.DefKindOf(name) {
	case DefClass, DefFunction:
		def := name.Parent()
		if scope := ContainingScope(def); scope != nil {
			return scope
		}
		return f.root
	case DefParam:
		if fn := Ancestor(name, KindFunctionDef); fn != nil {
			return fn
		}
	}
	if scope := ContainingScope(name); scope != nil {
		return scope
	}
	return f.root
}

// parameter node kinds whose name child declares a function parameter.
var paramKinds = map[string]bool{
	"typed_parameter":         true,
	"default_parameter":       true,
	"typed_default_parameter": true,
	"list_splat_pattern":      true,
	"dictionary_splat_pattern": true,
}

// tuple-ish wrappers on the left side of assignments and for targets that
// still produce name bindings.
var patternKinds = map[string]bool{
	"pattern_list":  true,
	"tuple_pattern": true,
	"list_pattern":  true,
}

// DefKindOf classifies an identifier node. Attribute members, call targets
// and plain reads are DefNone.
func (f *File) DefKindOf(name *sitter.Node) DefKind {
	if name == nil || name.Type() != KindIdentifier {
		return DefNone
	}
	parent := name.Parent()
	if parent == nil {
		return DefNone
	}

	switch parent.Type() {
	case KindClassDef:
		if eq(parent.ChildByFieldName("name"), name) {
			return DefClass
		}
	case KindFunctionDef:
		if eq(parent.ChildByFieldName("name"), name) {
			return DefFunction
		}
	case KindParameters:
		return DefParam
	case KindGlobalStmt:
		return DefGlobal
	case "lambda_parameters":
		return DefParam
	case "as_pattern_target":
		return DefWith
	case KindAliasedImport:
		if eq(parent.ChildByFieldName("alias"), name) {
			return DefImport
		}
		return DefNone
	case KindDottedName:
		return f.dottedNameDef(name, parent)
	case "for_statement":
		if within(parent.ChildByFieldName("left"), name) {
			return DefFor
		}
	case "for_in_clause":
		if within(parent.ChildByFieldName("left"), name) {
			return DefFor
		}
	case KindImportFrom:
		// `from . import x` puts bare identifiers directly under the
		// statement node.
		if !within(parent.ChildByFieldName("module_name"), name) {
			return DefImport
		}
		return DefNone
	}

	if paramKinds[parent.Type()] && Ancestor(name, KindParameters) != nil {
		if named := parent.ChildByFieldName("name"); named != nil {
			if eq(named, name) {
				return DefParam
			}
			return DefNone
		}
		if eq(parent.NamedChild(0), name) {
			return DefParam
		}
		return DefNone
	}

	// Assignment targets, possibly nested in tuple patterns.
	node := name
	p := parent
	for p != nil && patternKinds[p.Type()] {
		node = p
		p = p.Parent()
	}
	if p != nil && (p.Type() == KindAssignment || p.Type() == KindAugAssignment) {
		if within(p.ChildByFieldName("left"), node) {
			return DefAssignment
		}
	}
	return DefNone
}

// dottedNameDef handles `import a.b` (binds `a`) and `from m import x`
// (binds `x`).
func (f *File) dottedNameDef(name, dotted *sitter.Node) DefKind {
	outer := dotted.Parent()
	if outer == nil {
		return DefNone
	}
	switch outer.Type() {
	case KindImport:
		if eq(dotted.NamedChild(0), name) {
			return DefImport
		}
	case KindImportFrom:
		if within(outer.ChildByFieldName("module_name"), name) {
			return DefNone
		}
		return DefImport
	case KindAliasedImport:
		// `import a.b as c` or `from m import x as y`: only the alias
		// binds, handled by the aliased_import case.
		return DefNone
	}
	return DefNone
}

// IsDefinition reports whether an identifier binds a name (global
// declarations excluded; they re-declare, not define).
func (f *File) IsDefinition(name *sitter.Node) bool {
	k := f.DefKindOf(name)
	return k != DefNone && k != DefGlobal
}

func eq(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.Equal(b)
}

// within reports whether inner is outer or a descendant of outer.
func within(outer, inner *sitter.Node) bool {
	if outer == nil || inner == nil {
		return false
	}
	return outer.StartByte() <= inner.StartByte() && inner.EndByte() <= outer.EndByte()
}

// SameNode reports node identity by byte range and kind.
func SameNode(a, b *sitter.Node) bool {
	return eq(a, b)
}
