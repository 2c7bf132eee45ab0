package taproot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeFilter_DeclarationOrder(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "x = y\ny = 1\n",
	})
	path := filepath.Join(root, "mod.py")

	// The read of y precedes its definition: nothing is visible yet.
	set := inferIdent(t, s, path, "y", 0)
	assert.True(t, set.IsEmpty())

	// After the definition the same name resolves normally.
	set = inferIdent(t, s, path, "y", 1)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestTreeFilter_ClassAndFunctionDefsAreForwardVisible(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "x = Later()\n\nclass Later:\n    pass\n\ny = helper()\n\ndef helper():\n    return 1\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "Later", 0)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, KindClass, set.Values()[0].Kind())

	set = inferIdent(t, s, path, "x", 0)
	assert.Equal(t, []string{"Later"}, instanceClassNames(set))

	set = inferIdent(t, s, path, "y", 0)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestGlobalFilters_PositionLimitClearsAcrossFunctionBoundary(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "def use():\n    return helper\n\nhelper = 1\n",
	})
	path := filepath.Join(root, "mod.py")

	// helper is defined after the function body textually, but function
	// bodies run later: the module definition is visible from inside.
	set := inferIdent(t, s, path, "helper", 0)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestTreeFilter_UnreachableBranchExcluded(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "if True:\n    a = 1\nelse:\n    a = \"s\"\nb = a\n",
	})
	path := filepath.Join(root, "mod.py")

	// The else branch is statically dead, only the int survives.
	set := inferIdent(t, s, path, "a", 2)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestTreeFilter_LiterallyFalseBranchExcluded(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "if False:\n    v = 1\nv = \"s\"\nw = v\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "v", 2)
	assert.Equal(t, []string{"str"}, instanceClassNames(set))
}

func TestTreeFilter_UndecidableBranchKeepsBothCandidates(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "flag = external\nif flag:\n    y = 1\nelse:\n    y = \"s\"\nz = y\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "y", 2)
	names := instanceClassNames(set)
	assert.ElementsMatch(t, []string{"int", "str"}, names)
}

func TestTreeFilter_CertainDefinitionShortCircuitsEarlier(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "y = 1\ny = \"s\"\nz = y\n",
	})
	path := filepath.Join(root, "mod.py")

	// The later unconditional assignment shadows the earlier one.
	set := inferIdent(t, s, path, "y", 2)
	assert.Equal(t, []string{"str"}, instanceClassNames(set))
}

func TestClassMemberFilter_ManglingBlocksOutsideAccess(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class C:\n    __secret = 1\n\n    def get(self):\n        return C.__secret\n\nleak = C.__secret\n",
	})
	path := filepath.Join(root, "mod.py")

	// Inside a method of the defining class the mangled name resolves.
	inside := inferIdent(t, s, path, "__secret", 1)
	assert.Equal(t, []string{"int"}, instanceClassNames(inside))

	// From module level the mangled member is invisible.
	outside := inferIdent(t, s, path, "__secret", 2)
	assert.True(t, outside.IsEmpty())
}

func TestClassMemberFilter_DundersAreNotMangled(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class C:\n    __version__ = \"1\"\n\nv = C.__version__\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "__version__", 1)
	assert.Equal(t, []string{"str"}, instanceClassNames(set))
}

func TestClassMemberFilter_SubclassCannotSeeMangledBase(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Base:\n    __hidden = 1\n\nclass Sub(Base):\n    def peek(self):\n        return Sub.__hidden\n",
	})
	path := filepath.Join(root, "mod.py")

	// The lookup originates in Sub, not Base: mangled access is refused.
	set := inferIdent(t, s, path, "__hidden", 1)
	assert.True(t, set.IsEmpty())
}

func TestGlobalStmtFilter_ResolvesThroughModuleScope(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "counter = 1\n\ndef bump():\n    global counter\n    counter = 2\n\ntotal = counter\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "total", 0)
	assert.Contains(t, instanceClassNames(set), "int")
}

func TestFindInFilters_FirstNonEmptyWins(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "x = \"module\"\n\ndef f():\n    x = 1\n    return x\n",
	})
	path := filepath.Join(root, "mod.py")

	// The local filter answers first; the module binding is shadowed.
	set := inferIdent(t, s, path, "x", 2)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestBuiltinsTerminateTheChain(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "n = len\n",
	})
	path := filepath.Join(root, "mod.py")

	set := inferIdent(t, s, path, "n", 0)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, KindFunction, set.Values()[0].Kind())
	assert.True(t, IsStub(set.Values()[0]))
}
