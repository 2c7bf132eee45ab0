package taproot

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// Definition is one resolved result of a position query: a value or
// definition name, located where possible.
type Definition struct {
	// Name is the identifier text of the result.
	Name string
	// Kind classifies the resolved value. Goto results that were not
	// inferred report KindModule only when the target is a module.
	Kind Kind
	// Module is the dotted import path of the module containing the
	// result.
	Module string
	// Path is the file the result lives in; empty for synthetic values.
	Path string
	// Pos is nil for synthetic results (compiled fallbacks, stub names
	// without tree backing).
	Pos *pytree.Position
	// IsStub marks results defined in descriptor (.pyi) modules.
	IsStub bool
}

func (d Definition) String() string {
	loc := d.Path
	if d.Pos != nil {
		loc = fmt.Sprintf("%s:%s", d.Path, d.Pos)
	}
	return fmt.Sprintf("%s %s (%s)", d.Kind, d.Name, loc)
}

// Completion is one completion candidate.
type Completion struct {
	Name string
	Kind Kind
}

// Infer resolves the identifier at a position to the set of values it can
// evaluate to. A position not on an identifier yields no results; only a
// file that cannot be read or parsed is an error.
func (s *Session) Infer(path string, pos pytree.Position) ([]Definition, error) {
	m, id, err := s.identifierAt(path, pos)
	if err != nil || id == nil {
		return nil, err
	}
	name := newTreeName(s, m.asValue(), m.file, id)
	var defs []Definition
	for _, v := range name.Infer().Values() {
		defs = append(defs, s.definitionForValue(v))
	}
	return defs, nil
}

// Goto resolves the identifier at a position to its definition sites
// without inferring through assignments. With preferStubs set, results are
// mapped onto descriptor files where counterparts exist and kept otherwise;
// with onlyStubs set, results without a descriptor counterpart are dropped.
// Neither flag set maps results back onto implementation files.
func (s *Session) Goto(path string, pos pytree.Position, onlyStubs, preferStubs bool) ([]Definition, error) {
	m, id, err := s.identifierAt(path, pos)
	if err != nil || id == nil {
		return nil, err
	}
	name := newTreeName(s, m.asValue(), m.file, id)
	names := s.ConvertNames(name.Goto(), onlyStubs, preferStubs)
	var defs []Definition
	for _, n := range names {
		defs = append(defs, s.definitionForName(n))
	}
	return defs, nil
}

// Signatures returns the callable signatures for the call expression
// enclosing a position, rendered for signature help.
func (s *Session) Signatures(path string, pos pytree.Position) ([]Signature, error) {
	m, err := s.ModuleAt(path)
	if err != nil {
		return nil, err
	}
	node := m.file.NodeAt(pos)
	if node == nil {
		return nil, nil
	}
	call := node
	if call.Type() != pytree.KindCall {
		call = pytree.Ancestor(node, pytree.KindCall)
	}
	if call == nil {
		return nil, nil
	}
	scope := s.scopeValueFor(m.file, scopeNode(m.file, call))
	callee := s.evalExpr(scope, m.file, call.ChildByFieldName("function"))

	var sigs []Signature
	for _, v := range callee.Values() {
		switch cv := v.(type) {
		case *BoundMethodValue:
			sigs = append(sigs, cv.Signatures()...)
		case *FunctionValue:
			sigs = append(sigs, cv.Signatures()...)
		case *ClassValue:
			sigs = append(sigs, cv.Signatures()...)
		case *GenericClassValue:
			sigs = append(sigs, cv.Class().Signatures()...)
		}
	}
	return sigs, nil
}

// Complete lists completion candidates at a position: attribute members
// when the position sits on an attribute access, otherwise every name
// visible on the scope chain. Candidates are filtered by the identifier
// prefix under the cursor, deduplicated, and sorted.
func (s *Session) Complete(path string, pos pytree.Position) ([]Completion, error) {
	m, err := s.ModuleAt(path)
	if err != nil {
		return nil, err
	}
	node := m.file.NodeAt(pos)
	if node == nil {
		return nil, nil
	}

	prefix := ""
	var names []Name
	attr := attributeFor(node)
	if attr != nil {
		if node.Type() == pytree.KindIdentifier {
			prefix = m.file.Text(node)
		}
		scope := s.scopeValueFor(m.file, scopeNode(m.file, attr))
		base := s.evalExpr(scope, m.file, attr.ChildByFieldName("object"))
		for _, v := range base.Values() {
			for _, f := range v.Filters(FilterRequest{Origin: scopeNode(m.file, attr)}) {
				names = append(names, f.Values()...)
			}
		}
	} else {
		if node.Type() == pytree.KindIdentifier {
			prefix = m.file.Text(node)
		}
		origin := scopeNode(m.file, node)
		scope := s.scopeValueFor(m.file, origin)
		for _, f := range GlobalFilters(s, scope, &pos, origin) {
			names = append(names, f.Values()...)
		}
	}

	seen := map[string]bool{}
	var out []Completion
	for _, n := range names {
		text := n.String()
		if seen[text] || !strings.HasPrefix(text, prefix) {
			continue
		}
		seen[text] = true
		kind := KindInstance
		if values := n.Infer().Values(); len(values) > 0 {
			kind = values[0].Kind()
		}
		out = append(out, Completion{Name: text, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// attributeFor returns the attribute node a completion position targets:
// the node itself, or the parent when the cursor sits on the member
// identifier.
func attributeFor(node *sitter.Node) *sitter.Node {
	if node.Type() == pytree.KindAttribute {
		return node
	}
	if p := node.Parent(); p != nil && p.Type() == pytree.KindAttribute &&
		pytree.SameNode(p.ChildByFieldName("attribute"), node) {
		return p
	}
	return nil
}

func (s *Session) identifierAt(path string, pos pytree.Position) (*ModuleValue, *sitter.Node, error) {
	m, err := s.ModuleAt(path)
	if err != nil {
		return nil, nil, err
	}
	return m, m.file.IdentifierAt(pos), nil
}

func (s *Session) definitionForValue(v Value) Definition {
	d := Definition{
		Name:   v.Name(),
		Kind:   v.Kind(),
		Pos:    v.Position(),
		IsStub: IsStub(v),
	}
	root := RootModule(v)
	d.Module = root.Name()
	if m, ok := root.(interface{ File() *pytree.File }); ok {
		d.Path = m.File().Path
	}
	return d
}

func (s *Session) definitionForName(n Name) Definition {
	if vn, ok := n.(*ValueName); ok {
		return s.definitionForValue(vn.Value())
	}
	d := Definition{Name: n.String(), Pos: n.Position()}
	if p := n.Parent(); p != nil {
		root := RootModule(p)
		d.Module = root.Name()
		d.IsStub = IsStub(p)
		if m, ok := root.(interface{ File() *pytree.File }); ok {
			d.Path = m.File().Path
		}
		if values := n.Infer().Values(); len(values) > 0 {
			d.Kind = values[0].Kind()
		}
	}
	return d
}
