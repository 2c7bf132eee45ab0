package taproot

import (
	"github.com/jward/taproot/internal/pytree"
)

// BuiltinValue is a dictionary-backed stand-in for a runtime object that
// has no tree representation: the last-resort fallback when even the
// shipped descriptor stubs are unavailable. It answers a small fixed set
// of magic methods and nothing else.
type BuiltinValue struct {
	s    *Session
	name string
}

func newBuiltinValue(s *Session, name string) *BuiltinValue {
	return canonicalValue(s, &BuiltinValue{s: s, name: name})
}

func (v *BuiltinValue) Kind() Kind                 { return KindBuiltin }
func (v *BuiltinValue) Name() string               { return v.name }
func (v *BuiltinValue) Parent() Value              { return nil }
func (v *BuiltinValue) Position() *pytree.Position { return nil }
func (v *BuiltinValue) key() string                { return "compiled:" + v.name }

func (v *BuiltinValue) QualifiedNames() ([]string, bool) {
	return []string{v.name}, true
}

// magicMethods is the fixed member table every compiled value exposes.
// Each entry resolves to the owner itself or to another compiled value;
// attribute chains through a compiled fallback stay inside compiled
// values rather than producing nothing.
var magicMethods = map[string]func(owner Value) ValueSet{
	"__class__": func(owner Value) ValueSet {
		return NewValueSet(owner)
	},
	"__doc__": func(owner Value) ValueSet {
		if bv, ok := owner.(*BuiltinValue); ok {
			return bv.s.builtinInstance("str")
		}
		return NoValues
	},
	"__name__": func(owner Value) ValueSet {
		if bv, ok := owner.(*BuiltinValue); ok {
			return bv.s.builtinInstance("str")
		}
		return NoValues
	},
}

func (v *BuiltinValue) Filters(req FilterRequest) []Filter {
	return []Filter{newMagicMethodFilter(v, magicMethods)}
}
