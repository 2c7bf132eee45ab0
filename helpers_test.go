package taproot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/pytree"
)

// writeTree materializes a file map under a temp directory and returns its
// root. Keys use slash-separated relative paths.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, src := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(src), 0o644))
	}
	return root
}

func newTestSession(t *testing.T, files map[string]string, opts ...Option) (*Session, string) {
	t.Helper()
	root := writeTree(t, files)
	project := NewProject(root, opts...)
	return project.NewSession(context.Background()), root
}

// posOf locates the nth occurrence (0-based) of an identifier in a file.
func posOf(t *testing.T, s *Session, path, name string, occurrence int) pytree.Position {
	t.Helper()
	m, err := s.ModuleAt(path)
	require.NoError(t, err)
	nodes := m.file.NamesFor(name)
	require.Greater(t, len(nodes), occurrence, "identifier %q occurrence %d not found in %s", name, occurrence, path)
	return pytree.StartPos(nodes[occurrence])
}

// inferName runs name inference for the identifier at a position.
func inferName(t *testing.T, s *Session, path string, pos pytree.Position) ValueSet {
	t.Helper()
	m, err := s.ModuleAt(path)
	require.NoError(t, err)
	id := m.file.IdentifierAt(pos)
	require.NotNil(t, id, "no identifier at %s:%s", path, pos)
	return newTreeName(s, m.asValue(), m.file, id).Infer()
}

// inferIdent infers the nth occurrence of an identifier in a file.
func inferIdent(t *testing.T, s *Session, path, name string, occurrence int) ValueSet {
	t.Helper()
	return inferName(t, s, path, posOf(t, s, path, name, occurrence))
}

// kinds summarizes a value set as kind strings, sorted by set order.
func kinds(set ValueSet) []string {
	var out []string
	for _, v := range set.Values() {
		out = append(out, v.Kind().String())
	}
	return out
}

// instanceClassNames lists the class names of the instances in a set.
func instanceClassNames(set ValueSet) []string {
	var out []string
	for _, v := range set.Values() {
		if inst, ok := v.(*InstanceValue); ok {
			out = append(out, inst.Class().Name())
		}
	}
	return out
}
