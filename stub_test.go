package taproot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/stubrepo"
)

func TestStubOverlay_CoLocatedPyiShadowsImplementation(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"lib.py":  "def make():\n    return compute()\n",
		"lib.pyi": "def make() -> int: ...\n",
		"main.py": "import lib\n\nx = lib.make()\n",
	})
	path := filepath.Join(root, "main.py")

	// The descriptor's annotated return wins over the opaque body.
	set := inferIdent(t, s, path, "x", 0)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestStubOverlay_ImplementationOnlyNamesStillResolve(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"lib.py":  "declared = 1\nundeclared = \"s\"\n",
		"lib.pyi": "declared: int\n",
		"main.py": "import lib\n\na = lib.declared\nb = lib.undeclared\n",
	})
	path := filepath.Join(root, "main.py")

	assert.Equal(t, []string{"int"}, instanceClassNames(inferIdent(t, s, path, "a", 0)))
	// Names the descriptor omits fall through to the implementation.
	assert.Equal(t, []string{"str"}, instanceClassNames(inferIdent(t, s, path, "b", 0)))
}

func TestStubOverlay_StubsSiblingPackage(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"pkg/__init__.py":        "def get():\n    return hidden\n",
		"pkg-stubs/__init__.pyi": "def get() -> str: ...\n",
		"main.py":                "import pkg\n\nx = pkg.get()\n",
	})
	path := filepath.Join(root, "main.py")

	set := inferIdent(t, s, path, "x", 0)
	assert.Equal(t, []string{"str"}, instanceClassNames(set))
}

func repoTree(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{
		"stubs/stdlib/2and3/old.pyi":   "shared: str\n",
		"stubs/stdlib/3/old.pyi":       "shared: int\n",
		"stubs/stdlib/3/newer.pyi":     "three: int\n",
		"stubs/stdlib/3.7/ancient.pyi": "seven: int\n",
		"stubs/stdlib/3.12/future.pyi": "twelve: int\n",
	}
}

func TestStubRepository_VersionGatedLookup(t *testing.T) {
	stubrepo.Reset()
	files := repoTree(t)
	files["main.py"] = "import old\nimport newer\nimport ancient\nimport future\n\na = old.shared\nb = newer.three\nc = ancient.seven\n"
	root := writeTree(t, files)
	project := NewProject(root,
		WithStubRepository(filepath.Join(root, "stubs")),
		WithPythonVersion(3, 9))
	s := project.NewSession(t.Context())
	path := filepath.Join(root, "main.py")

	// The major-version stub overrides the agnostic one.
	assert.Equal(t, []string{"int"}, instanceClassNames(inferIdent(t, s, path, "a", 0)))
	assert.Equal(t, []string{"int"}, instanceClassNames(inferIdent(t, s, path, "b", 0)))
	// 3.7 is compatible with 3.9.
	assert.Equal(t, []string{"int"}, instanceClassNames(inferIdent(t, s, path, "c", 0)))
	// 3.12 is newer than 3.9: invisible.
	assert.True(t, inferIdent(t, s, path, "future", 0).IsEmpty())
}

func TestStubRepository_PackageSubmodule(t *testing.T) {
	stubrepo.Reset()
	root := writeTree(t, map[string]string{
		"stubs/stdlib/2and3/pkg/__init__.pyi": "",
		"stubs/stdlib/2and3/pkg/sub.pyi":      "value: int\n",
		"main.py":                             "from pkg import sub\n\nx = sub.value\n",
	})
	project := NewProject(root, WithStubRepository(filepath.Join(root, "stubs")))
	s := project.NewSession(t.Context())
	path := filepath.Join(root, "main.py")

	set := inferIdent(t, s, path, "x", 0)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}

func TestToStub_QualifiedNameRoundTrip(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"lib.py":  "class Thing:\n    def get(self):\n        return 1\n",
		"lib.pyi": "class Thing:\n    def get(self) -> int: ...\n",
	})
	libPath := filepath.Join(root, "lib.py")

	impl := inferIdent(t, s, libPath, "Thing", 0)
	require.Equal(t, 1, impl.Len())
	require.False(t, IsStub(impl.Values()[0]))

	// Forward: implementation class to its descriptor counterpart.
	stubs := s.ToStub(impl.Values()[0])
	require.Equal(t, 1, stubs.Len())
	assert.True(t, IsStub(stubs.Values()[0]))
	assert.Equal(t, "Thing", stubs.Values()[0].Name())

	// Back: the descriptor maps onto the implementation definition.
	back := s.FromStub(stubs.Values()[0])
	require.Equal(t, 1, back.Len())
	assert.False(t, IsStub(back.Values()[0]))
	assert.Same(t, impl.Values()[0], back.Values()[0])
}

func TestConvertValues_KeepsOriginalWithoutCounterpart(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"plain.py": "class NoStub:\n    pass\n",
	})
	path := filepath.Join(root, "plain.py")

	set := inferIdent(t, s, path, "NoStub", 0)
	require.Equal(t, 1, set.Len())
	converted := s.ConvertValues(set, false, true)
	require.Equal(t, 1, converted.Len())
	assert.Same(t, set.Values()[0], converted.Values()[0])

	// only-stubs drops members without a descriptor counterpart instead.
	assert.True(t, s.ConvertValues(set, true, false).IsEmpty())
}

func TestStubForImport_AbsenceIsCached(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"lib.py": "x = 1\n",
	})
	m, err := s.ModuleAt(filepath.Join(root, "lib.py"))
	require.NoError(t, err)

	assert.Nil(t, s.stubForModule(m))
	// Second call answers from the cache, including the negative result.
	assert.Nil(t, s.stubForModule(m))
	cachedStub, ok := s.stubModules["lib"]
	assert.True(t, ok)
	assert.Nil(t, cachedStub)
}

func TestShippedBuiltins_UsedWithoutRepository(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"main.py": "n = len([1])\n",
	})
	path := filepath.Join(root, "main.py")

	set := inferIdent(t, s, path, "n", 0)
	assert.Equal(t, []string{"int"}, instanceClassNames(set))
}
