package taproot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValues(t *testing.T) (*Session, Value, Value, Value) {
	t.Helper()
	s, _ := newTestSession(t, nil)
	return s, newBuiltinValue(s, "a"), newBuiltinValue(s, "b"), newBuiltinValue(s, "c")
}

func TestValueSet_UnionIsCommutativeAndAssociative(t *testing.T) {
	_, a, b, c := testValues(t)

	ab := NewValueSet(a).Union(NewValueSet(b))
	ba := NewValueSet(b).Union(NewValueSet(a))
	assert.True(t, ab.Equal(ba))

	left := ab.Union(NewValueSet(c))
	right := NewValueSet(a).Union(NewValueSet(b).Union(NewValueSet(c)))
	assert.True(t, left.Equal(right))
	assert.Equal(t, 3, left.Len())
}

func TestValueSet_UnionDeduplicates(t *testing.T) {
	s, a, _, _ := testValues(t)

	// The same node resolved twice yields the interned value, so set
	// membership collapses.
	again := newBuiltinValue(s, "a")
	set := NewValueSet(a).Union(NewValueSet(again))
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Has(a))
}

func TestValueSet_IntersectIsIdempotent(t *testing.T) {
	_, a, b, _ := testValues(t)

	ab := NewValueSet(a, b)
	assert.True(t, ab.Intersect(ab).Equal(ab))

	onlyA := ab.Intersect(NewValueSet(a))
	assert.Equal(t, 1, onlyA.Len())
	assert.True(t, onlyA.Has(a))
	assert.False(t, onlyA.Has(b))
}

func TestValueSet_EmptyIsNotAnError(t *testing.T) {
	_, a, _, _ := testValues(t)

	assert.True(t, NoValues.IsEmpty())
	assert.Equal(t, 0, NoValues.Len())
	assert.Empty(t, NoValues.Values())

	// Operations on the empty set stay well defined.
	assert.True(t, NoValues.Union(NoValues).IsEmpty())
	assert.True(t, NewValueSet(a).Intersect(NoValues).IsEmpty())
	assert.True(t, NoValues.Filter(func(Value) bool { return true }).IsEmpty())
}

func TestValueSet_FromSetsFlattens(t *testing.T) {
	_, a, b, c := testValues(t)

	set := FromSets(NewValueSet(a, b), NewValueSet(b, c), NoValues)
	assert.Equal(t, 3, set.Len())
}

func TestValueSet_NewDropsNil(t *testing.T) {
	_, a, _, _ := testValues(t)

	set := NewValueSet(a, nil, nil)
	assert.Equal(t, 1, set.Len())
}

func TestValueSet_FilterByKind(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class A:\n    pass\n\nx = A\n",
	})
	set := inferIdent(t, s, filepath.Join(root, "mod.py"), "x", 0)
	require.Equal(t, 1, set.Len())

	classes := set.Filter(func(v Value) bool { return v.Kind() == KindClass })
	assert.Equal(t, 1, classes.Len())
	instances := set.Filter(func(v Value) bool { return v.Kind() == KindInstance })
	assert.True(t, instances.IsEmpty())
}

func TestCanonicalValue_InternsPerSession(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class A:\n    pass\n",
	})
	first := inferIdent(t, s, filepath.Join(root, "mod.py"), "A", 0)
	second := inferIdent(t, s, filepath.Join(root, "mod.py"), "A", 0)
	require.Equal(t, 1, first.Len())
	require.Equal(t, 1, second.Len())
	assert.Same(t, first.Values()[0], second.Values()[0])
}
