package taproot

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// Filter maps a name string to the binding candidates visible in one
// lexical block. Filters compose into an ordered chain; earlier filters
// shadow later ones.
type Filter interface {
	// Get returns candidates for one name, most relevant first.
	Get(name string) []Name
	// Values enumerates every candidate the filter can produce, used by
	// completion listings.
	Values() []Name
}

// FilterRequest carries the lookup context a value needs to build its
// filters.
type FilterRequest struct {
	// SearchGlobal is set for scope-chain lookups (an identifier read in
	// source), clear for attribute access on a value.
	SearchGlobal bool
	// Until limits tree filters to names defined before this position.
	Until *pytree.Position
	// Origin is the scope node the lookup originates from; name mangling
	// consults it.
	Origin *sitter.Node
	// IsInstance marks attribute lookups through an instance.
	IsInstance bool
	// NoOverlay suppresses the descriptor overlay on module lookups;
	// stub-to-implementation conversion needs the raw module filters.
	NoOverlay bool
}

// TreeFilter produces names defined by tree statements in a single scope,
// respecting declaration order and flow reachability.
type TreeFilter struct {
	s       *Session
	context Value
	file    *pytree.File
	scope   *sitter.Node
	until   *pytree.Position
	origin  *sitter.Node
}

func newTreeFilter(s *Session, context Value, file *pytree.File, scope *sitter.Node, until *pytree.Position, origin *sitter.Node) *TreeFilter {
	return &TreeFilter{s: s, context: context, file: file, scope: scope, until: until, origin: origin}
}

func (f *TreeFilter) Get(name string) []Name {
	return f.convert(f.filter(f.definitions(name)))
}

// definitions collects the identifier nodes that bind name in this scope.
func (f *TreeFilter) definitions(name string) []*sitter.Node {
	var defs []*sitter.Node
	for _, n := range f.file.NamesFor(name) {
		if !f.file.IsDefinition(n) {
			continue
		}
		if !pytree.SameNode(f.file.BindingScope(n), f.scope) {
			continue
		}
		defs = append(defs, n)
	}
	return defs
}

// filter applies position visibility, then walks candidates backward from
// the lookup position through conditional branches: unreachable names are
// dropped, and once an always-reachable match is found nothing earlier is
// considered (most-recent-wins with short-circuit on certainty).
func (f *TreeFilter) filter(defs []*sitter.Node) []*sitter.Node {
	visible := defs[:0:0]
	for _, n := range defs {
		if f.positionOK(n) {
			visible = append(visible, n)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return pytree.StartPos(visible[j]).Before(pytree.StartPos(visible[i]))
	})

	var kept []*sitter.Node
	for _, n := range visible {
		switch reachability(f.file, n, f.scope) {
		case reachUnreachable:
			continue
		case reachReachable:
			return append(kept, n)
		default:
			kept = append(kept, n)
		}
	}
	return kept
}

// positionOK applies declaration-order visibility. Class and function
// definitions are exempt: forward references to them are legal.
func (f *TreeFilter) positionOK(n *sitter.Node) bool {
	if f.until == nil {
		return true
	}
	switch f.file.DefKindOf(n) {
	case pytree.DefClass, pytree.DefFunction:
		return true
	}
	return pytree.StartPos(n).Before(*f.until)
}

func (f *TreeFilter) convert(defs []*sitter.Node) []Name {
	names := make([]Name, 0, len(defs))
	for _, n := range defs {
		names = append(names, newTreeName(f.s, f.context, f.file, n))
	}
	return names
}

func (f *TreeFilter) Values() []Name {
	var names []Name
	for _, key := range f.file.IdentifierNames() {
		names = append(names, f.Get(key)...)
	}
	return names
}

// ClassMemberFilter filters one class body on the MRO chain. On top of
// tree filtering it enforces the name-mangling rule: a __name (without
// trailing underscores) is visible only when the lookup originates inside
// the defining class.
type ClassMemberFilter struct {
	TreeFilter
	class      *ClassValue
	isInstance bool
}

func newClassMemberFilter(s *Session, owner Value, cls *ClassValue, origin *sitter.Node, isInstance bool) *ClassMemberFilter {
	return &ClassMemberFilter{
		TreeFilter: TreeFilter{
			s:       s,
			context: owner,
			file:    cls.file,
			scope:   cls.node,
			origin:  origin,
		},
		class:      cls,
		isInstance: isInstance,
	}
}

func (f *ClassMemberFilter) Get(name string) []Name {
	if !f.accessPossible(name) {
		return nil
	}
	return f.TreeFilter.Get(name)
}

func (f *ClassMemberFilter) Values() []Name {
	var names []Name
	for _, key := range f.file.IdentifierNames() {
		names = append(names, f.Get(key)...)
	}
	return names
}

func (f *ClassMemberFilter) accessPossible(name string) bool {
	if !strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__") {
		return true
	}
	return f.originInsideClass()
}

// originInsideClass walks the origin scope outward looking for the class
// whose body this filter reads. Subclasses do not qualify.
func (f *ClassMemberFilter) originInsideClass() bool {
	for node := f.origin; node != nil; node = pytree.ContainingScope(node) {
		if pytree.SameNode(node, f.class.node) {
			return true
		}
	}
	return false
}

// GlobalStmtFilter resolves names declared `global` inside functions
// against the module scope, bypassing local filters.
type GlobalStmtFilter struct {
	s      *Session
	module *ModuleValue
}

func (f *GlobalStmtFilter) Get(name string) []Name {
	var names []Name
	for _, n := range f.module.file.NamesFor(name) {
		if f.module.file.DefKindOf(n) == pytree.DefGlobal {
			names = append(names, newTreeName(f.s, f.module.asValue(), f.module.file, n))
		}
	}
	return names
}

func (f *GlobalStmtFilter) Values() []Name {
	var names []Name
	for _, key := range f.module.file.IdentifierNames() {
		names = append(names, f.Get(key)...)
	}
	return names
}

// DictFilter is a dictionary-backed filter for compiled and synthetic
// contexts; no tree traversal is involved.
type DictFilter struct {
	names map[string]Name
}

func (f *DictFilter) Get(name string) []Name {
	if n, ok := f.names[name]; ok {
		return []Name{n}
	}
	return nil
}

func (f *DictFilter) Values() []Name {
	keys := make([]string, 0, len(f.names))
	for k := range f.names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	names := make([]Name, 0, len(keys))
	for _, k := range keys {
		names = append(names, f.names[k])
	}
	return names
}

// MergedFilter flattens several filters into one lookup unit. Candidates
// keep the member filters' order.
type MergedFilter struct {
	filters []Filter
}

func (f *MergedFilter) Get(name string) []Name {
	var names []Name
	for _, sub := range f.filters {
		names = append(names, sub.Get(name)...)
	}
	return names
}

func (f *MergedFilter) Values() []Name {
	var names []Name
	for _, sub := range f.filters {
		names = append(names, sub.Values()...)
	}
	return names
}

// MagicMethodFilter exposes a fixed table of magic-method names mapped to
// hand-written bindings, without touching the tree walker.
type MagicMethodFilter struct {
	owner   Value
	methods map[string]func(owner Value) ValueSet
}

func newMagicMethodFilter(owner Value, methods map[string]func(Value) ValueSet) *MagicMethodFilter {
	return &MagicMethodFilter{owner: owner, methods: methods}
}

func (f *MagicMethodFilter) Get(name string) []Name {
	method, ok := f.methods[name]
	if !ok {
		return nil
	}
	owner := f.owner
	return []Name{newSyntheticName(owner, name, func() ValueSet { return method(owner) })}
}

func (f *MagicMethodFilter) Values() []Name {
	keys := make([]string, 0, len(f.methods))
	for k := range f.methods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var names []Name
	for _, k := range keys {
		names = append(names, f.Get(k)...)
	}
	return names
}

// GlobalFilters returns the priority-ordered filter chain for name
// resolution starting at scope: local filters of the scope and every
// enclosing scope outward to the module (which carries the descriptor
// overlay), terminated by the builtins module filter. The position limit
// stops applying once the chain crosses a function boundary: function
// bodies see enclosing-scope names regardless of definition order.
func GlobalFilters(s *Session, scope Value, until *pytree.Position, origin *sitter.Node) []Filter {
	var filters []Filter
	for v := scope; v != nil; v = v.Parent() {
		filters = append(filters, v.Filters(FilterRequest{
			SearchGlobal: true,
			Until:        until,
			Origin:       origin,
		})...)
		if v.Kind() == KindFunction {
			until = nil
		}
	}
	if b := s.Builtins(); b != nil && b != scope {
		filters = append(filters, b.Filters(FilterRequest{})...)
	}
	return filters
}

// findInFilters walks the chain in priority order and returns the first
// filter's candidates for the name: earlier filters shadow later ones
// entirely.
func findInFilters(filters []Filter, name string) []Name {
	for _, f := range filters {
		if names := f.Get(name); len(names) > 0 {
			return names
		}
	}
	return nil
}

// inferNames unions the inference results of a candidate list.
func inferNames(names []Name) ValueSet {
	sets := make([]ValueSet, 0, len(names))
	for _, n := range names {
		sets = append(sets, n.Infer())
	}
	return FromSets(sets...)
}
