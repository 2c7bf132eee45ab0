package taproot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classNamed resolves a module-level class by its definition name.
func classNamed(t *testing.T, s *Session, path, name string) *ClassValue {
	t.Helper()
	set := inferIdent(t, s, path, name, 0)
	require.Equal(t, 1, set.Len(), "class %s did not resolve uniquely", name)
	cls := asClass(set.Values()[0])
	require.NotNil(t, cls, "%s is not a class", name)
	return cls
}

func mroNames(mro []*ClassValue) []string {
	var out []string
	for _, c := range mro {
		out = append(out, c.Name())
	}
	return out
}

func TestClassMRO_LinearizesFirstOccurrence(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class A:\n    pass\n\nclass B(A):\n    pass\n\nclass C(A):\n    pass\n\nclass D(B, C):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	d := classNamed(t, s, path, "D")
	// First occurrence wins: A appears once, after B (its first carrier).
	assert.Equal(t, []string{"D", "B", "A", "object", "C"}, mroNames(d.MRO()))
}

func TestClassMRO_SelfReferenceTerminates(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class X(X):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	x := classNamed(t, s, path, "X")
	names := mroNames(x.MRO())
	require.NotEmpty(t, names)
	assert.Equal(t, "X", names[0])
	// X contributes itself exactly once.
	count := 0
	for _, n := range names {
		if n == "X" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestClassMRO_MutualRecursionTerminates(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class A(B):\n    pass\n\nclass B(A):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	a := classNamed(t, s, path, "A")
	names := mroNames(a.MRO())
	assert.Equal(t, "A", names[0])
	seen := map[string]int{}
	for _, n := range names {
		seen[n]++
	}
	for n, c := range seen {
		assert.Equal(t, 1, c, "class %s repeated in mro", n)
	}
}

func TestClassBases_ImplicitObject(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Plain:\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	plain := classNamed(t, s, path, "Plain")
	bases := plain.Bases()
	require.Len(t, bases, 1)
	names := mroNames(plain.MRO())
	assert.Equal(t, []string{"Plain", "object"}, names)
}

func TestClassBases_SkipsStarredAndKeywordArguments(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Meta(type):\n    pass\n\nclass Base:\n    pass\n\nclass C(Base, *extra, metaclass=Meta):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	c := classNamed(t, s, path, "C")
	require.Len(t, c.baseExprs(), 1)
	assert.Contains(t, mroNames(c.MRO()), "Base")
}

func TestClassMetaclasses_ExplicitKeywordWins(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Meta(type):\n    pass\n\nclass C(metaclass=Meta):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	c := classNamed(t, s, path, "C")
	metas := c.Metaclasses()
	require.Equal(t, 1, metas.Len())
	assert.Equal(t, "Meta", metas.Values()[0].Name())
}

func TestClassMetaclasses_InheritedFromBase(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Meta(type):\n    pass\n\nclass Base(metaclass=Meta):\n    pass\n\nclass Sub(Base):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	sub := classNamed(t, s, path, "Sub")
	metas := sub.Metaclasses()
	require.Equal(t, 1, metas.Len())
	assert.Equal(t, "Meta", metas.Values()[0].Name())
}

func TestClassFilters_MetaclassMembersVisibleOnClass(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Meta(type):\n    registry = 1\n\nclass C(metaclass=Meta):\n    pass\n\nr = C.registry\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "r", 0)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestClassMembers_InheritedThroughMRO(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Base:\n    shared = 1\n\nclass Sub(Base):\n    own = \"s\"\n\na = Sub.shared\nb = Sub.own\n",
	})
	path := filepath.Join(root, "mod.py")

	assert.Equal(t, []string{"int"}, instanceClassNames(inferIdent(t, s, path, "a", 0)))
	assert.Equal(t, []string{"str"}, instanceClassNames(inferIdent(t, s, path, "b", 0)))
}

func TestClassMembers_EarlierMROEntryShadowsLater(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Base:\n    x = 1\n\nclass Sub(Base):\n    x = \"s\"\n\nv = Sub.x\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "v", 0)
	assert.Equal(t, []string{"str"}, instanceClassNames(set))
}

func TestClassTypeVars_DetectedFromSubscriptedBases(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "from typing import Generic, TypeVar\n\nT = TypeVar(\"T\")\n\nclass Box(Generic[T]):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	box := classNamed(t, s, path, "Box")
	assert.Equal(t, []string{"T"}, box.TypeVars())
}

func TestDefineGenerics_ProducesDistinctInternedValues(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "from typing import Generic, TypeVar\n\nT = TypeVar(\"T\")\n\nclass Box(Generic[T]):\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	box := classNamed(t, s, path, "Box")
	intSet := s.builtinInstance("int")
	strSet := s.builtinInstance("str")

	boxInt := box.DefineGenerics(map[string]ValueSet{"T": intSet})
	boxIntAgain := box.DefineGenerics(map[string]ValueSet{"T": intSet})
	boxStr := box.DefineGenerics(map[string]ValueSet{"T": strSet})

	assert.Equal(t, KindGeneric, boxInt.Kind())
	assert.Same(t, boxInt, boxIntAgain)
	assert.NotEqual(t, boxInt.key(), boxStr.key())

	generic := boxInt.(*GenericClassValue)
	bound, ok := generic.Generic("T")
	assert.True(t, ok)
	assert.True(t, bound.Equal(intSet))
}

func TestDefineGenerics_NoBindingsReturnsClassUnchanged(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Plain:\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	plain := classNamed(t, s, path, "Plain")
	assert.Same(t, Value(plain), plain.DefineGenerics(nil))
}
