package taproot

import (
	"fmt"
	"sort"

	"github.com/jward/taproot/internal/pytree"
)

// Kind discriminates the closed set of value variants the engine produces.
type Kind int

const (
	KindModule Kind = iota
	KindClass
	KindFunction
	KindInstance
	KindBuiltin
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindInstance:
		return "instance"
	case KindBuiltin:
		return "builtin"
	case KindGeneric:
		return "generic"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is one possible runtime value a name could evaluate to. Values are
// immutable once constructed and canonicalized per session, so identity
// comparisons are stable within a session.
type Value interface {
	Kind() Kind
	Name() string
	// Parent is the lexically enclosing value; nil only for root modules.
	Parent() Value
	// Position is nil for synthetic values (stubs without tree backing,
	// compiled builtins).
	Position() *pytree.Position
	// QualifiedNames is the dotted path of this value inside its root
	// module, innermost last. ok is false when the value has no stable
	// qualified path (e.g. a local inside a function body).
	QualifiedNames() ([]string, bool)
	// Filters produces the name-lookup filters for this value, ordered by
	// priority.
	Filters(req FilterRequest) []Filter

	// key is a session-stable identity used for set membership.
	key() string
}

// RootModule walks the parent chain to the owning module value.
func RootModule(v Value) Value {
	for v.Parent() != nil {
		v = v.Parent()
	}
	return v
}

// IsStub reports whether a value lives in a descriptor-only (stub) module.
func IsStub(v Value) bool {
	_, ok := RootModule(v).(*StubModuleValue)
	return ok
}

// ValueSet is an unordered, deduplicated collection of values. The empty
// set is the ordinary "no information" result, never an error. A ValueSet
// never contains another ValueSet; FromSets flattens at construction.
type ValueSet struct {
	values map[string]Value
}

// NoValues is the canonical empty result.
var NoValues = ValueSet{}

// NewValueSet builds a set from individual values, dropping nils.
func NewValueSet(vs ...Value) ValueSet {
	m := make(map[string]Value, len(vs))
	for _, v := range vs {
		if v != nil {
			m[v.key()] = v
		}
	}
	return ValueSet{values: m}
}

// FromSets flattens any number of sets into one.
func FromSets(sets ...ValueSet) ValueSet {
	m := map[string]Value{}
	for _, s := range sets {
		for k, v := range s.values {
			m[k] = v
		}
	}
	return ValueSet{values: m}
}

// Union returns the set union of s and o.
func (s ValueSet) Union(o ValueSet) ValueSet {
	return FromSets(s, o)
}

// Intersect returns the values present in both s and o.
func (s ValueSet) Intersect(o ValueSet) ValueSet {
	m := map[string]Value{}
	for k, v := range s.values {
		if _, ok := o.values[k]; ok {
			m[k] = v
		}
	}
	return ValueSet{values: m}
}

// Filter returns the members satisfying pred; emptiness is preserved, not
// promoted to an error.
func (s ValueSet) Filter(pred func(Value) bool) ValueSet {
	m := map[string]Value{}
	for k, v := range s.values {
		if pred(v) {
			m[k] = v
		}
	}
	return ValueSet{values: m}
}

// Values returns the members in a stable order. The order is an artifact
// of the identity keys, not a semantic ordering.
func (s ValueSet) Values() []Value {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.values[k])
	}
	return out
}

func (s ValueSet) Len() int {
	return len(s.values)
}

func (s ValueSet) IsEmpty() bool {
	return len(s.values) == 0
}

// Has reports membership by value identity.
func (s ValueSet) Has(v Value) bool {
	_, ok := s.values[v.key()]
	return ok
}

// Equal is order-independent set equality.
func (s ValueSet) Equal(o ValueSet) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for k := range s.values {
		if _, ok := o.values[k]; !ok {
			return false
		}
	}
	return true
}

func (s ValueSet) String() string {
	parts := make([]string, 0, len(s.values))
	for _, v := range s.Values() {
		parts = append(parts, fmt.Sprintf("%s:%s", v.Kind(), v.Name()))
	}
	return fmt.Sprintf("S%v", parts)
}
