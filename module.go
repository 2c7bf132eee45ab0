package taproot

import (
	"os"
	"strings"

	"github.com/jward/taproot/internal/pytree"
)

// ModuleValue is a source-backed module. Its parent is nil: modules are the
// roots of the value graph.
type ModuleValue struct {
	s           *Session
	file        *pytree.File
	importNames []string

	// stub is set when this module node actually belongs to a
	// StubModuleValue, so scope resolution inside a stub file recovers the
	// stub identity.
	stub *StubModuleValue
}

func (m *ModuleValue) Kind() Kind     { return KindModule }
func (m *ModuleValue) Parent() Value  { return nil }
func (m *ModuleValue) Name() string   { return strings.Join(m.importNames, ".") }
func (m *ModuleValue) key() string    { return "module:" + m.file.Path }
func (m *ModuleValue) File() *pytree.File { return m.file }

func (m *ModuleValue) Position() *pytree.Position {
	pos := pytree.StartPos(m.file.Root())
	return &pos
}

func (m *ModuleValue) QualifiedNames() ([]string, bool) {
	return nil, true // the module itself is the empty path inside itself
}

// asValue returns the public identity of the module: the stub wrapper when
// this file is a stub, otherwise the module itself.
func (m *ModuleValue) asValue() Value {
	if m.stub != nil {
		return m.stub
	}
	return m
}

// moduleAttrs are the synthetic dunder names every module exposes.
func (m *ModuleValue) moduleAttrs(self Value) Filter {
	strInstance := func() ValueSet { return m.s.builtinInstance("str") }
	return &DictFilter{names: map[string]Name{
		"__name__":    newSyntheticName(self, "__name__", strInstance),
		"__doc__":     newSyntheticName(self, "__doc__", strInstance),
		"__file__":    newSyntheticName(self, "__file__", strInstance),
		"__package__": newSyntheticName(self, "__package__", strInstance),
	}}
}

// Filters returns the module's name filters. For lookups originating
// inside the module (SearchGlobal), declaration order applies and global
// statements resolve here. For attribute access from outside, a stub
// overlay takes priority for declarations while the implementation remains
// queryable behind it.
func (m *ModuleValue) Filters(req FilterRequest) []Filter {
	self := m.asValue()
	local := []Filter{
		&MergedFilter{filters: []Filter{
			newTreeFilter(m.s, self, m.file, m.file.Root(), req.Until, req.Origin),
			&GlobalStmtFilter{s: m.s, module: m},
		}},
	}
	if req.SearchGlobal {
		return local
	}

	var filters []Filter
	if m.stub == nil && !req.NoOverlay {
		if stub := m.s.stubForModule(m); stub != nil {
			// Descriptor declarations win for type information.
			filters = append(filters, stub.Filters(FilterRequest{})...)
		}
	}
	filters = append(filters, local...)
	filters = append(filters, &submoduleFilter{s: m.s, module: m}, m.moduleAttrs(self))
	return filters
}

// StubModuleValue marks a module as descriptor-only: declarations without
// a runtime body. It keeps the implementation module set it overlays as a
// queryable back-reference.
type StubModuleValue struct {
	ModuleValue
	nonStub ValueSet
}

func (m *StubModuleValue) key() string { return "stubmodule:" + m.file.Path }

// NonStubSet returns the implementation modules this stub overlays. Empty
// for stubs without a runtime counterpart (builtins, typing).
func (m *StubModuleValue) NonStubSet() ValueSet {
	return m.nonStub
}

func (m *StubModuleValue) Filters(req FilterRequest) []Filter {
	self := m.asValue()
	local := []Filter{
		&MergedFilter{filters: []Filter{
			newTreeFilter(m.s, self, m.file, m.file.Root(), req.Until, req.Origin),
			&GlobalStmtFilter{s: m.s, module: &m.ModuleValue},
		}},
	}
	if req.SearchGlobal {
		return local
	}
	filters := append(local, &submoduleFilter{s: m.s, module: &m.ModuleValue})
	// Names the descriptor omits fall through to the implementation it
	// overlays. NoOverlay keeps the implementation from bouncing back
	// here.
	for _, impl := range m.nonStub.Values() {
		filters = append(filters, impl.Filters(FilterRequest{NoOverlay: true})...)
	}
	return append(filters, m.moduleAttrs(self))
}

// submoduleFilter resolves package submodules as attributes: `pkg.sub`
// works even though nothing in pkg's body defines `sub`. Descriptors
// cannot express dynamically computed membership, so this consults the
// search path directly.
type submoduleFilter struct {
	s      *Session
	module *ModuleValue
}

func (f *submoduleFilter) Get(name string) []Name {
	if !strings.HasSuffix(f.module.file.Path, "__init__.py") &&
		!strings.HasSuffix(f.module.file.Path, "__init__.pyi") {
		return nil // only packages have submodules
	}
	names := append(append([]string{}, f.module.importNames...), name)
	set := f.s.ImportModule(names, true)
	if set.IsEmpty() {
		return nil
	}
	return []Name{newSyntheticName(f.module.asValue(), name, func() ValueSet { return set })}
}

func (f *submoduleFilter) Values() []Name {
	// Enumerating a package directory is only needed for completions on
	// the package itself; candidates come from the module resolver.
	return nil
}

// ImportModule resolves an import specification to module values. The
// implementation module is loaded via the search path; when preferStubs is
// set and a descriptor counterpart exists, the descriptor is returned
// instead, with the implementation retained as its back-reference.
func (s *Session) ImportModule(names []string, preferStubs bool) ValueSet {
	dotted := strings.Join(names, ".")
	impl := cached(s, "import", syntheticKey("import", dotted), "", NoValues, func() ValueSet {
		for _, candidate := range s.project.moduleCandidates(names) {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			m, err := s.ModuleAt(candidate)
			if err != nil {
				s.logger.Debug("import candidate unreadable", "path", candidate, "err", err)
				continue
			}
			return NewValueSet(m.asValue())
		}
		return NoValues
	})

	if !preferStubs {
		return impl
	}
	if stub := s.stubForImport(names, impl); stub != nil {
		return NewValueSet(stub)
	}
	if impl.IsEmpty() {
		// The shipped stubs cover builtins and typing when no on-disk
		// module or repository stub does.
		switch dotted {
		case "builtins":
			if b := s.Builtins(); b != nil {
				return NewValueSet(b)
			}
		case "typing":
			if ty := s.Typing(); ty != nil {
				return NewValueSet(ty)
			}
		}
	}
	return impl
}
