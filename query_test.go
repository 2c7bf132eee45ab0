package taproot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer_AtPosition(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Point:\n    pass\n\np = Point()\n",
	})
	path := filepath.Join(root, "mod.py")

	defs, err := s.Infer(path, posOf(t, s, path, "p", 0))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Point", defs[0].Name)
	assert.Equal(t, KindInstance, defs[0].Kind)
	assert.Equal(t, path, defs[0].Path)
	assert.Equal(t, "mod", defs[0].Module)
}

func TestInfer_PositionOffIdentifierYieldsNothing(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "x = 1\n",
	})
	path := filepath.Join(root, "mod.py")

	pos := posOf(t, s, path, "x", 0)
	pos.Col += 2 // lands on "="
	defs, err := s.Infer(path, pos)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestGoto_ReadResolvesToDefinition(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "target = 1\nuse = target\n",
	})
	path := filepath.Join(root, "mod.py")

	defs, err := s.Goto(path, posOf(t, s, path, "target", 1), false, false)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "target", defs[0].Name)
	require.NotNil(t, defs[0].Pos)
	assert.Equal(t, 1, defs[0].Pos.Line)
}

func TestGoto_AcrossModules(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"lib.py":  "def make():\n    return 1\n",
		"main.py": "from lib import make\n\nx = make()\n",
	})
	path := filepath.Join(root, "main.py")

	// The read of make in the call resolves into lib.py.
	defs, err := s.Goto(path, posOf(t, s, path, "make", 1), false, false)
	require.NoError(t, err)
	require.NotEmpty(t, defs)
	assert.Equal(t, filepath.Join(root, "lib.py"), defs[0].Path)
}

func TestGoto_PreferStubsLandsInDescriptor(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"lib.py":  "class Thing:\n    pass\n",
		"lib.pyi": "class Thing: ...\n",
		"main.py": "import lib\n\nx = lib.Thing\n",
	})
	path := filepath.Join(root, "main.py")

	stubDefs, err := s.Goto(path, posOf(t, s, path, "Thing", 0), false, true)
	require.NoError(t, err)
	require.NotEmpty(t, stubDefs)
	assert.True(t, stubDefs[0].IsStub)
	assert.Equal(t, filepath.Join(root, "lib.pyi"), stubDefs[0].Path)

	implDefs, err := s.Goto(path, posOf(t, s, path, "Thing", 0), false, false)
	require.NoError(t, err)
	require.NotEmpty(t, implDefs)
	assert.False(t, implDefs[0].IsStub)
	assert.Equal(t, filepath.Join(root, "lib.py"), implDefs[0].Path)
}

func TestGoto_OnlyStubsDropsUncoveredResults(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"plain.py": "class NoStub:\n    pass\n\nx = NoStub\n",
	})
	path := filepath.Join(root, "plain.py")

	defs, err := s.Goto(path, posOf(t, s, path, "NoStub", 1), true, false)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestSignatures_EnclosingCall(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "def greet(name, punct=\"!\"):\n    pass\n\ngreet(\"hi\")\n",
	})
	path := filepath.Join(root, "mod.py")

	// Position inside the argument list.
	pos := posOf(t, s, path, "greet", 1)
	pos.Col += len("greet(")
	sigs, err := s.Signatures(path, pos)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "greet(name, punct=...)", sigs[0].String())
}

func TestSignatures_Constructor(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Point:\n    def __init__(self, x, y):\n        pass\n\nPoint(1, 2)\n",
	})
	path := filepath.Join(root, "mod.py")

	pos := posOf(t, s, path, "Point", 1)
	pos.Col += len("Point(")
	sigs, err := s.Signatures(path, pos)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "Point(x, y)", sigs[0].String())
}

func TestComplete_ScopeChain(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "apple = 1\napricot = 2\nbanana = 3\n\nvalue = ap\n",
	})
	path := filepath.Join(root, "mod.py")

	completions, err := s.Complete(path, posOf(t, s, path, "ap", 0))
	require.NoError(t, err)
	var names []string
	for _, c := range completions {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "apple")
	assert.Contains(t, names, "apricot")
	assert.NotContains(t, names, "banana")
}

func TestComplete_AttributeMembers(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class C:\n    alpha = 1\n    beta = 2\n\n    def gamma(self):\n        pass\n\nc = C()\nx = c.al\n",
	})
	path := filepath.Join(root, "mod.py")

	completions, err := s.Complete(path, posOf(t, s, path, "al", 0))
	require.NoError(t, err)
	var names []string
	for _, c := range completions {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "alpha")
	assert.NotContains(t, names, "beta")
}

func TestComplete_ResultsAreSortedAndDeduplicated(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "aa = 1\nab = 2\naa = 3\n\nv = a\n",
	})
	path := filepath.Join(root, "mod.py")

	completions, err := s.Complete(path, posOf(t, s, path, "a", 0))
	require.NoError(t, err)
	var names []string
	for _, c := range completions {
		names = append(names, c.Name)
	}
	// aa appears once despite two assignments.
	count := 0
	for _, n := range names {
		if n == "aa" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.IsIncreasing(t, names)
}

func TestDefinitionString(t *testing.T) {
	s, root := newTestSession(t, map[string]string{
		"mod.py": "class Point:\n    pass\n",
	})
	path := filepath.Join(root, "mod.py")

	defs, err := s.Infer(path, posOf(t, s, path, "Point", 0))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Contains(t, defs[0].String(), "class Point")
	assert.Contains(t, defs[0].String(), path)
}
