package taproot

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/taproot/internal/pytree"
	"github.com/jward/taproot/internal/stubrepo"
)

// stubForModule finds the descriptor (.pyi) overlay for an implementation
// module, or nil when none exists. Results, including absence, are cached
// per dotted import path for the session.
func (s *Session) stubForModule(m *ModuleValue) Value {
	return s.stubForImport(m.importNames, NewValueSet(m))
}

// stubForImport resolves the stub counterpart for an import specification.
// impl is the implementation module set the stub will overlay; it may be
// empty for stub-only modules.
func (s *Session) stubForImport(names []string, impl ValueSet) Value {
	dotted := strings.Join(names, ".")
	if v, ok := s.stubModules[dotted]; ok {
		return v
	}
	// Record absence before searching so a stub whose resolution loops
	// back through the same import settles as "no stub".
	s.stubModules[dotted] = nil
	stub := s.findStub(names, impl)
	s.stubModules[dotted] = stub
	return stub
}

// findStub searches stub locations in precedence order: a sibling
// `<pkg>-stubs` package on the search path, a .pyi co-located with the
// implementation file, the version-gated stub repository, and finally a
// free-standing .pyi on the search path.
func (s *Session) findStub(names []string, impl ValueSet) Value {
	if len(names) == 0 {
		return nil
	}

	stubPkg := append([]string{names[0] + "-stubs"}, names[1:]...)
	if path := s.searchPathStub(stubPkg); path != "" {
		return s.loadStubFile(path, names, impl)
	}

	for _, v := range impl.Values() {
		m, ok := v.(*ModuleValue)
		if !ok {
			continue
		}
		sibling := strings.TrimSuffix(m.file.Path, ".py") + ".pyi"
		if fileExists(sibling) {
			return s.loadStubFile(sibling, names, impl)
		}
	}

	if stub := s.loadRepositoryStub(names, impl); stub != nil {
		return stub
	}

	if path := s.searchPathStub(names); path != "" {
		return s.loadStubFile(path, names, impl)
	}
	return nil
}

// searchPathStub locates a .pyi for a dotted name directly on the search
// path.
func (s *Session) searchPathStub(names []string) string {
	sub := filepath.Join(names...)
	for _, root := range s.project.searchPath {
		for _, cand := range []string{
			filepath.Join(root, sub+".pyi"),
			filepath.Join(root, sub, "__init__.pyi"),
		} {
			if fileExists(cand) {
				return cand
			}
		}
	}
	return ""
}

// loadRepositoryStub resolves a module in the version-gated stub
// repository (see internal/stubrepo). Submodules of a repository package
// are found relative to the package's __init__.pyi.
func (s *Session) loadRepositoryStub(names []string, impl ValueSet) Value {
	if s.project.stubRoot == "" || len(names) == 0 {
		return nil
	}
	index := stubrepo.Map(s.project.stubRoot, s.project.version)
	entry, ok := index[names[0]]
	if !ok {
		return nil
	}
	path := entry
	if len(names) > 1 {
		if !strings.HasSuffix(entry, "__init__.pyi") {
			return nil
		}
		pkgDir := filepath.Dir(entry)
		rest := filepath.Join(names[1:]...)
		path = ""
		for _, cand := range []string{
			filepath.Join(pkgDir, rest+".pyi"),
			filepath.Join(pkgDir, rest, "__init__.pyi"),
		} {
			if fileExists(cand) {
				path = cand
				break
			}
		}
		if path == "" {
			return nil
		}
	}
	return s.loadStubFile(path, names, impl)
}

// loadStubFile parses a stub file into a descriptor-only module value
// overlaying impl. Unreadable stubs degrade to nil; the implementation
// remains fully usable without its overlay.
func (s *Session) loadStubFile(path string, names []string, impl ValueSet) Value {
	if existing, ok := s.modules[path]; ok {
		return existing.asValue()
	}
	file, err := pytree.Parse(s.ctx, path)
	if err != nil {
		s.logger.Debug("stub unreadable", "path", path, "err", err)
		return nil
	}
	stub := &StubModuleValue{
		ModuleValue: ModuleValue{s: s, file: file, importNames: names},
		nonStub:     impl,
	}
	stub.ModuleValue.stub = stub
	s.modules[file.Path] = &stub.ModuleValue
	return stub
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ToStub maps a source value to its descriptor counterpart by walking the
// value's qualified name through the stub of its root module. Values that
// are already stubs map to themselves; values without a stable qualified
// path, and modules without stubs, yield the empty set.
func (s *Session) ToStub(v Value) ValueSet {
	if IsStub(v) {
		return NewValueSet(v)
	}
	if inst, ok := v.(*InstanceValue); ok {
		var sets []ValueSet
		for _, cls := range s.ToStub(inst.class).Values() {
			if asClass(cls) != nil {
				sets = append(sets, NewValueSet(s.instanceOf(cls)))
			}
		}
		return FromSets(sets...)
	}
	if bound, ok := v.(*BoundMethodValue); ok {
		return s.rebindMethod(bound, s.ToStub(bound.instance))
	}

	root, ok := RootModule(v).(*ModuleValue)
	if !ok {
		return NoValues
	}
	stub := s.stubForModule(root)
	if stub == nil {
		return NoValues
	}
	qualified, ok := v.QualifiedNames()
	if !ok {
		return NoValues
	}
	return s.walkQualified(stub, qualified)
}

// FromStub maps a descriptor value back to its implementation counterpart
// via the stub module's back-reference, again by qualified-name walk.
// Non-stub values map to themselves.
func (s *Session) FromStub(v Value) ValueSet {
	if !IsStub(v) {
		return NewValueSet(v)
	}
	if inst, ok := v.(*InstanceValue); ok {
		var sets []ValueSet
		for _, cls := range s.FromStub(inst.class).Values() {
			if asClass(cls) != nil {
				sets = append(sets, NewValueSet(s.instanceOf(cls)))
			}
		}
		return FromSets(sets...)
	}
	if bound, ok := v.(*BoundMethodValue); ok {
		return s.rebindMethod(bound, s.FromStub(bound.instance))
	}

	stubMod, ok := RootModule(v).(*StubModuleValue)
	if !ok {
		return NoValues
	}
	impl := stubMod.NonStubSet()
	if impl.IsEmpty() {
		return NoValues
	}
	qualified, ok := v.QualifiedNames()
	if !ok {
		return NoValues
	}
	var sets []ValueSet
	for _, m := range impl.Values() {
		sets = append(sets, s.walkQualifiedLocal(m, qualified))
	}
	return FromSets(sets...)
}

// rebindMethod re-resolves a bound method against converted owners: the
// owning value converts first, then the trailing method name is looked up
// on the result and bound again.
func (s *Session) rebindMethod(bound *BoundMethodValue, owners ValueSet) ValueSet {
	var sets []ValueSet
	for _, owner := range owners.Values() {
		for _, m := range s.attrLookup(NewValueSet(owner), bound.Name(), nil).Values() {
			switch mv := m.(type) {
			case *BoundMethodValue:
				sets = append(sets, NewValueSet(mv))
			case *FunctionValue:
				sets = append(sets, NewValueSet(newBoundMethod(mv, owner)))
			}
		}
	}
	return FromSets(sets...)
}

// walkQualified follows a dotted member path from a module value.
func (s *Session) walkQualified(module Value, names []string) ValueSet {
	set := NewValueSet(module)
	for _, name := range names {
		set = s.attrLookup(set, name, nil)
		if set.IsEmpty() {
			return NoValues
		}
	}
	return set
}

// walkQualifiedLocal is walkQualified with the stub overlay suppressed, so
// the walk lands on implementation definitions rather than bouncing back
// into the stub.
func (s *Session) walkQualifiedLocal(module Value, names []string) ValueSet {
	set := NewValueSet(module)
	for _, name := range names {
		var sets []ValueSet
		for _, v := range set.Values() {
			found := findInFilters(v.Filters(FilterRequest{NoOverlay: true}), name)
			sets = append(sets, inferNames(found))
		}
		set = FromSets(sets...)
		if set.IsEmpty() {
			return NoValues
		}
	}
	return set
}

// ConvertValues maps every member of a set to its counterpart on the
// requested side. With onlyStubs, members without a descriptor counterpart
// are dropped; otherwise values without a counterpart stay as they are, so
// conversion narrows presentation without losing results.
func (s *Session) ConvertValues(set ValueSet, onlyStubs, preferStubs bool) ValueSet {
	var sets []ValueSet
	for _, v := range set.Values() {
		if onlyStubs || preferStubs {
			converted := s.ToStub(v)
			if converted.IsEmpty() && preferStubs {
				converted = NewValueSet(v)
			}
			sets = append(sets, converted)
			continue
		}
		converted := s.FromStub(v)
		if converted.IsEmpty() {
			converted = NewValueSet(v)
		}
		sets = append(sets, converted)
	}
	return FromSets(sets...)
}

// ConvertNames rewrites definition names onto the requested side where a
// counterpart exists, keeping the original name otherwise. With onlyStubs,
// names without a descriptor counterpart are dropped instead of kept.
func (s *Session) ConvertNames(names []Name, onlyStubs, preferStubs bool) []Name {
	var out []Name
	wantStubs := onlyStubs || preferStubs
	for _, n := range names {
		replaced := false
		for _, v := range s.ConvertValues(n.Infer(), onlyStubs, preferStubs).Values() {
			if IsStub(v) == wantStubs {
				out = append(out, &ValueName{value: v})
				replaced = true
			}
		}
		if !replaced && !onlyStubs {
			out = append(out, n)
		}
	}
	return out
}
