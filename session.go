package taproot

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
	"github.com/jward/taproot/stubs"
)

// Session owns every memoization table and in-flight sentinel for one
// analysis request. All values, names, and cached results created during
// resolution belong to the session and are released with it; only the
// stub-repository index (internal/stubrepo) outlives sessions.
type Session struct {
	project *Project
	ctx     context.Context
	logger  *log.Logger

	modules     map[string]*ModuleValue // by absolute file path
	stubModules map[string]Value        // by dotted import path; nil entry = known absent
	valueMemo   map[string]Value        // canonical value per (kind, node)
	memo        map[memoKey]any
	inProgress  map[memoKey]bool
	issues      []Issue

	builtins       Value
	builtinsLoaded bool
	typing         Value
	typingLoaded   bool
}

// memoKey identifies one cached operation: the operation tag, the subject
// node (or synthetic key), and any extra discriminating arguments such as
// generic bindings or search flags.
type memoKey struct {
	op    string
	node  pytree.NodeKey
	extra string
}

// NewSession starts an analysis session. The context is consulted during
// parsing; dropping the session releases all of its state.
func (p *Project) NewSession(ctx context.Context) *Session {
	return &Session{
		project:     p,
		ctx:         ctx,
		logger:      p.logger,
		modules:     map[string]*ModuleValue{},
		stubModules: map[string]Value{},
		valueMemo:   map[string]Value{},
		memo:        map[memoKey]any{},
		inProgress:  map[memoKey]bool{},
	}
}

// Project returns the project this session analyzes.
func (s *Session) Project() *Project {
	return s.project
}

// cached memoizes compute under (op, node, extra). A sentinel is recorded
// before evaluation; re-entry on the same key while it is active means a
// cyclic definition, and the guard returns def instead of recursing. The
// default is part of each operation's contract: structural queries use the
// empty set or slice, predicates use false.
func cached[T any](s *Session, op string, node pytree.NodeKey, extra string, def T, compute func() T) T {
	k := memoKey{op: op, node: node, extra: extra}
	if v, ok := s.memo[k]; ok {
		return v.(T)
	}
	if s.inProgress[k] {
		s.logger.Debug("recursion guard tripped", "op", op, "node", node.Path, "extra", extra)
		return def
	}
	s.inProgress[k] = true
	result := compute()
	delete(s.inProgress, k)
	s.memo[k] = result
	return result
}

// syntheticKey builds a memo key for operations that have no subject node.
func syntheticKey(parts ...string) pytree.NodeKey {
	path := ""
	for i, p := range parts {
		if i > 0 {
			path += "\x00"
		}
		path += p
	}
	return pytree.NodeKey{Path: path}
}

// canonicalValue interns a value by its identity key so that repeated
// resolution of the same node yields the same value, keeping set membership
// and downstream memoization stable for the session.
func canonicalValue[T Value](s *Session, v T) T {
	if existing, ok := s.valueMemo[v.key()]; ok {
		return existing.(T)
	}
	s.valueMemo[v.key()] = v
	return v
}

// ModuleAt returns the module value for a source file, parsing it on first
// access. An unreadable file is a hard error; everything downstream of a
// successful parse degrades to empty results instead.
func (s *Session) ModuleAt(path string) (*ModuleValue, error) {
	if m, ok := s.modules[path]; ok {
		return m, nil
	}
	file, err := pytree.Parse(s.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("session: load module: %w", err)
	}
	m := &ModuleValue{s: s, file: file, importNames: s.project.importNamesFor(path)}
	s.modules[path] = m
	return m, nil
}

// moduleForFile wraps an already-parsed file, used for embedded stubs and
// tests.
func (s *Session) moduleForFile(file *pytree.File, importNames []string) *ModuleValue {
	if m, ok := s.modules[file.Path]; ok {
		return m
	}
	m := &ModuleValue{s: s, file: file, importNames: importNames}
	s.modules[file.Path] = m
	return m
}

// Builtins returns the builtins module: the configured stub repository's
// builtins stub when present, otherwise the embedded fallback. Loaded once
// per session.
func (s *Session) Builtins() Value {
	if s.builtinsLoaded {
		return s.builtins
	}
	s.builtinsLoaded = true
	s.builtins = s.loadShippedStub("builtins", stubs.Builtins())
	return s.builtins
}

// Typing returns the typing module stub, loaded like Builtins.
func (s *Session) Typing() Value {
	if s.typingLoaded {
		return s.typing
	}
	s.typingLoaded = true
	s.typing = s.loadShippedStub("typing", stubs.Typing())
	return s.typing
}

func (s *Session) loadShippedStub(name string, fallback []byte) Value {
	if s.project.stubRoot != "" {
		if m := s.loadRepositoryStub([]string{name}, NoValues); m != nil {
			return m
		}
	}
	file, err := pytree.ParseSource(s.ctx, "<"+name+">", fallback)
	if err != nil {
		// The embedded stubs are fixed at build time; a parse failure is a
		// packaging defect, but resolution still degrades to a synthetic
		// fallback instead of crashing.
		s.logger.Error("embedded stub failed to parse", "module", name, "err", err)
		return nil
	}
	stub := &StubModuleValue{
		ModuleValue: ModuleValue{s: s, file: file, importNames: []string{name}},
		nonStub:     NoValues,
	}
	stub.ModuleValue.stub = stub
	s.modules[file.Path] = &stub.ModuleValue
	return stub
}

// builtinClass resolves a class by name from the builtins module, returning
// nil when builtins failed to load.
func (s *Session) builtinClass(name string) Value {
	b := s.Builtins()
	if b == nil {
		return nil
	}
	for _, v := range s.attrLookup(NewValueSet(b), name, nil).Values() {
		if v.Kind() == KindClass {
			return v
		}
	}
	return nil
}

// builtinInstance produces an instance of a builtins class, used for
// literal inference. Falls back to a compiled builtin value when the class
// is missing from the stub.
func (s *Session) builtinInstance(name string) ValueSet {
	if cls := s.builtinClass(name); cls != nil {
		return s.execute(cls, nil)
	}
	return NewValueSet(newBuiltinValue(s, name))
}

// objectClass is the implicit base of every class. When even the embedded
// builtins stub is unavailable it degrades to a dictionary-backed compiled
// value so MRO computation still terminates.
func (s *Session) objectClass() Value {
	if cls := s.builtinClass("object"); cls != nil {
		return cls
	}
	return newBuiltinValue(s, "object")
}

// addIssue records a position-tagged analysis issue. Issues are diagnostics
// for the caller; they never interrupt resolution.
func (s *Session) addIssue(kind IssueKind, path string, pos pytree.Position, format string, args ...any) {
	s.issues = append(s.issues, Issue{
		Kind:    kind,
		Path:    path,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// Issues returns the analysis issues collected so far, in discovery order.
func (s *Session) Issues() []Issue {
	return s.issues
}

// scopeValueFor returns the canonical value representing a lexical scope
// node: the module itself, a class value, or a function value.
func (s *Session) scopeValueFor(file *pytree.File, scope *sitter.Node) Value {
	if scope == nil || scope.Type() == pytree.KindModule {
		return s.moduleForFile(file, s.project.importNamesFor(file.Path)).asValue()
	}
	parent := s.scopeValueFor(file, pytree.ContainingScope(scope))
	switch scope.Type() {
	case pytree.KindClassDef:
		return s.classValue(file, scope, parent)
	case pytree.KindFunctionDef:
		return s.functionValue(file, scope, parent)
	}
	return parent
}
