package taproot

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// Name is a binding occurrence: something a name string can resolve to
// before inference. Tree names wrap a syntax-tree identifier; synthetic
// names are manufactured for stubs and compiled builtins and carry no
// source position.
type Name interface {
	// String is the bound identifier text.
	String() string
	// Position is nil for synthetic names.
	Position() *pytree.Position
	// Parent is the value owning the filter that produced this name.
	Parent() Value
	// Infer resolves the name to the set of possible values. Results are
	// cache-stable for the session.
	Infer() ValueSet
	// Goto resolves the name to its definition names (alias resolution),
	// without inferring values.
	Goto() []Name
}

// TreeName wraps an identifier node.
type TreeName struct {
	s      *Session
	parent Value
	file   *pytree.File
	node   *sitter.Node
}

func newTreeName(s *Session, parent Value, file *pytree.File, node *sitter.Node) *TreeName {
	return &TreeName{s: s, parent: parent, file: file, node: node}
}

func (n *TreeName) String() string {
	return n.file.Text(n.node)
}

func (n *TreeName) Position() *pytree.Position {
	pos := pytree.StartPos(n.node)
	return &pos
}

func (n *TreeName) Parent() Value {
	return n.parent
}

// IsImport reports whether the name is bound by an import statement.
func (n *TreeName) IsImport() bool {
	return n.file.DefKindOf(n.node) == pytree.DefImport
}

func (n *TreeName) Infer() ValueSet {
	return cached(n.s, "name.infer", n.file.Key(n.node), "", NoValues, func() ValueSet {
		return n.s.inferTreeName(n)
	})
}

func (n *TreeName) Goto() []Name {
	if n.file.IsDefinition(n.node) {
		if n.IsImport() {
			// Follow the import to the target module's definition name.
			set := n.s.inferImportName(n)
			if names := valueNames(set); len(names) > 0 {
				return names
			}
		}
		return []Name{n}
	}
	names, _ := n.s.gotoName(n.file, n.node)
	return names
}

// QualifiedNames is the dotted path of the definition inside its module,
// available only when every enclosing scope is a class (or the module
// itself). Names local to function bodies have no stable qualified path.
func (n *TreeName) QualifiedNames() ([]string, bool) {
	names := []string{n.String()}
	for scope := n.file.BindingScope(n.node); scope != nil && scope.Type() != pytree.KindModule; scope = pytree.ContainingScope(scope) {
		if scope.Type() != pytree.KindClassDef {
			return nil, false
		}
		names = append([]string{n.file.Text(scope.ChildByFieldName("name"))}, names...)
	}
	return names, true
}

// SyntheticName is a manufactured binding with no source position, used by
// dictionary-backed filters and stub overlays.
type SyntheticName struct {
	parent Value
	name   string
	infer  func() ValueSet
}

func newSyntheticName(parent Value, name string, infer func() ValueSet) *SyntheticName {
	return &SyntheticName{parent: parent, name: name, infer: infer}
}

func (n *SyntheticName) String() string             { return n.name }
func (n *SyntheticName) Position() *pytree.Position { return nil }
func (n *SyntheticName) Parent() Value              { return n.parent }
func (n *SyntheticName) Goto() []Name               { return []Name{n} }

func (n *SyntheticName) Infer() ValueSet {
	if n.infer == nil {
		return NoValues
	}
	return n.infer()
}

// ValueName names an already-resolved value directly. Conversion results
// and module references use it.
type ValueName struct {
	value Value
}

func (n *ValueName) String() string             { return n.value.Name() }
func (n *ValueName) Position() *pytree.Position { return n.value.Position() }
func (n *ValueName) Parent() Value              { return n.value.Parent() }
func (n *ValueName) Infer() ValueSet            { return NewValueSet(n.value) }
func (n *ValueName) Goto() []Name               { return []Name{n} }

// Value returns the named value.
func (n *ValueName) Value() Value { return n.value }

func valueNames(set ValueSet) []Name {
	var names []Name
	for _, v := range set.Values() {
		names = append(names, &ValueName{value: v})
	}
	return names
}

// instanceName adapts a class-member name for lookup through an instance:
// functions become bound methods.
type instanceName struct {
	Name
	instance Value
}

func (n *instanceName) Infer() ValueSet {
	var out []ValueSet
	for _, v := range n.Name.Infer().Values() {
		if fn, ok := v.(*FunctionValue); ok {
			out = append(out, NewValueSet(newBoundMethod(fn, n.instance)))
			continue
		}
		out = append(out, NewValueSet(v))
	}
	return FromSets(out...)
}
