package taproot

import (
	"github.com/jward/taproot/internal/pytree"
)

// InstanceValue represents "an object of this class" without executing any
// code. Attribute lookups go through the class MRO with instance
// semantics: resolved functions become bound methods.
type InstanceValue struct {
	s     *Session
	class Value // *ClassValue or *GenericClassValue
}

func (s *Session) instanceOf(class Value) *InstanceValue {
	return canonicalValue(s, &InstanceValue{s: s, class: class})
}

func (i *InstanceValue) Kind() Kind    { return KindInstance }
func (i *InstanceValue) Name() string  { return i.class.Name() }
func (i *InstanceValue) Parent() Value { return i.class.Parent() }
func (i *InstanceValue) key() string   { return "instance:" + i.class.key() }

func (i *InstanceValue) Position() *pytree.Position {
	return i.class.Position()
}

func (i *InstanceValue) QualifiedNames() ([]string, bool) {
	return i.class.QualifiedNames()
}

// Class returns the class this is an instance of.
func (i *InstanceValue) Class() Value { return i.class }

func (i *InstanceValue) Filters(req FilterRequest) []Filter {
	req.SearchGlobal = false
	req.IsInstance = true
	classFilters := i.class.Filters(req)
	filters := make([]Filter, 0, len(classFilters))
	for _, f := range classFilters {
		filters = append(filters, &instanceFilter{instance: i, inner: f})
	}
	return filters
}

// instanceFilter wraps class-member candidates so inference binds methods
// to the instance.
type instanceFilter struct {
	instance *InstanceValue
	inner    Filter
}

func (f *instanceFilter) Get(name string) []Name {
	return f.wrap(f.inner.Get(name))
}

func (f *instanceFilter) Values() []Name {
	return f.wrap(f.inner.Values())
}

func (f *instanceFilter) wrap(names []Name) []Name {
	out := make([]Name, 0, len(names))
	for _, n := range names {
		out = append(out, &instanceName{Name: n, instance: f.instance})
	}
	return out
}

// execute models calling a value: classes construct instances, functions
// produce their return set, everything else yields nothing. The argument
// node, when present, is checked against callable parameter lists for
// diagnostics.
func (s *Session) execute(v Value, call *callSite) ValueSet {
	switch cv := v.(type) {
	case *ClassValue, *GenericClassValue:
		if call != nil {
			// A single constructor shape is checkable; overload sets are
			// not, any one of them may accept the call.
			if sigs := classSignatures(cv); len(sigs) == 1 {
				s.checkArguments(call, sigs[0])
			}
		}
		return NewValueSet(s.instanceOf(cv))
	case *InstanceValue:
		var sets []ValueSet
		for _, callable := range s.attrLookup(NewValueSet(cv), "__call__", nil).Values() {
			switch fn := callable.(type) {
			case *BoundMethodValue:
				sets = append(sets, fn.ReturnValues())
			case *FunctionValue:
				sets = append(sets, fn.ReturnValues())
			}
		}
		return FromSets(sets...)
	case *BoundMethodValue:
		if call != nil {
			s.checkArguments(call, Signature{function: cv.FunctionValue, bound: cv.instance})
		}
		return cv.ReturnValues()
	case *FunctionValue:
		if call != nil {
			s.checkArguments(call, Signature{function: cv})
		}
		return cv.ReturnValues()
	case *BuiltinValue:
		return NoValues
	}
	return NoValues
}

func classSignatures(v Value) []Signature {
	if cls := asClass(v); cls != nil {
		return cls.Signatures()
	}
	return nil
}
