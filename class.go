package taproot

import (
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// ClassValue is a class definition. Base resolution, linearization,
// metaclass discovery and generic parameterization are all memoized on the
// session with cycle guards, so self-referential and mutually recursive
// hierarchies terminate.
type ClassValue struct {
	s      *Session
	file   *pytree.File
	node   *sitter.Node
	parent Value
}

// classValue interns the canonical class value for a class_definition node.
func (s *Session) classValue(file *pytree.File, node *sitter.Node, parent Value) *ClassValue {
	return canonicalValue(s, &ClassValue{s: s, file: file, node: node, parent: parent})
}

func (c *ClassValue) Kind() Kind    { return KindClass }
func (c *ClassValue) Parent() Value { return c.parent }

func (c *ClassValue) Name() string {
	return c.file.Text(c.node.ChildByFieldName("name"))
}

func (c *ClassValue) key() string {
	k := c.file.Key(c.node)
	return "class:" + k.Path + ":" + strconv.FormatUint(uint64(k.Start), 10)
}

func (c *ClassValue) Position() *pytree.Position {
	pos := pytree.StartPos(c.node.ChildByFieldName("name"))
	return &pos
}

func (c *ClassValue) QualifiedNames() ([]string, bool) {
	return qualifiedInModule(c.file, c.node, c.Name())
}

// baseExprs returns the declared base-class argument expressions, skipping
// starred arguments and every keyword argument (metaclass= is routed to
// metaclass resolution instead).
func (c *ClassValue) baseExprs() []*sitter.Node {
	args := c.node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var exprs []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		switch child.Type() {
		case pytree.KindKeywordArgument, pytree.KindListSplat, pytree.KindDictSplat, "comment":
			continue
		}
		exprs = append(exprs, child)
	}
	return exprs
}

// Bases evaluates the declared base expressions. A class with no declared
// bases implicitly derives from object, except object itself.
func (c *ClassValue) Bases() []ValueSet {
	return cached(c.s, "class.bases", c.file.Key(c.node), "", nil, func() []ValueSet {
		exprs := c.baseExprs()
		outer := c.s.scopeValueFor(c.file, pytree.ContainingScope(c.node))
		var bases []ValueSet
		for _, expr := range exprs {
			bases = append(bases, c.s.evalExpr(outer, c.file, expr))
		}
		if len(bases) > 0 {
			return bases
		}
		if c.isBuiltinObject() {
			return nil
		}
		return []ValueSet{NewValueSet(c.s.objectClass())}
	})
}

func (c *ClassValue) isBuiltinObject() bool {
	return c.Name() == "object" && RootModule(c) == c.s.Builtins()
}

// MRO returns the linearized method-resolution order: the class itself
// first, then each resolved base's MRO members in declaration order,
// first occurrence winning. This is intentionally a simplified
// linearization, not a full C3 merge; diamond hierarchies with conflicting
// orders may diverge from the runtime MRO. The computation is memoized per
// class and guarded, so a malformed self-referential class yields itself
// exactly once.
func (c *ClassValue) MRO() []*ClassValue {
	return cached(c.s, "class.mro", c.file.Key(c.node), "", []*ClassValue{}, func() []*ClassValue {
		c.s.logger.Debug("computing mro", "class", c.Name())
		mro := []*ClassValue{c}
		seen := map[string]bool{c.key(): true}
		for _, baseSet := range c.Bases() {
			for _, base := range baseSet.Values() {
				cls := asClass(base)
				if cls == nil {
					c.s.logger.Debug("base is not a class", "class", c.Name(), "base", base.Name())
					continue
				}
				for _, member := range cls.MRO() {
					if !seen[member.key()] {
						seen[member.key()] = true
						mro = append(mro, member)
					}
				}
			}
		}
		return mro
	})
}

// asClass unwraps a value to its underlying class, looking through generic
// parameterizations.
func asClass(v Value) *ClassValue {
	switch cv := v.(type) {
	case *ClassValue:
		return cv
	case *GenericClassValue:
		return cv.class
	}
	return nil
}

// Metaclasses resolves the class's metaclass set: an explicit metaclass=
// keyword argument wins; otherwise the bases are consulted in order.
// Returns the empty set when none is found.
func (c *ClassValue) Metaclasses() ValueSet {
	return cached(c.s, "class.metaclasses", c.file.Key(c.node), "", NoValues, func() ValueSet {
		if args := c.node.ChildByFieldName("superclasses"); args != nil {
			outer := c.s.scopeValueFor(c.file, pytree.ContainingScope(c.node))
			for i := 0; i < int(args.NamedChildCount()); i++ {
				child := args.NamedChild(i)
				if child.Type() != pytree.KindKeywordArgument {
					continue
				}
				if c.file.Text(child.ChildByFieldName("name")) != "metaclass" {
					continue
				}
				metas := c.s.evalExpr(outer, c.file, child.ChildByFieldName("value")).
					Filter(func(v Value) bool { return v.Kind() == KindClass })
				if !metas.IsEmpty() {
					return metas
				}
			}
		}
		for _, baseSet := range c.Bases() {
			for _, base := range baseSet.Values() {
				if cls := asClass(base); cls != nil {
					if metas := cls.Metaclasses(); !metas.IsEmpty() {
						return metas
					}
				}
			}
		}
		return NoValues
	})
}

// TypeVars lists the type-variable names this class is parameterized over,
// in declaration order: identifiers in subscripted base expressions whose
// definition is an assignment from a TypeVar call.
func (c *ClassValue) TypeVars() []string {
	return cached(c.s, "class.typevars", c.file.Key(c.node), "", []string{}, func() []string {
		var found []string
		seen := map[string]bool{}
		for _, expr := range c.baseExprs() {
			if expr.Type() != pytree.KindSubscript {
				continue
			}
			for i := 0; i < int(expr.NamedChildCount()); i++ {
				child := expr.NamedChild(i)
				if pytree.SameNode(child, expr.ChildByFieldName("value")) {
					continue
				}
				name := c.file.Text(child)
				if child.Type() == pytree.KindIdentifier && !seen[name] && c.isTypeVar(name) {
					seen[name] = true
					found = append(found, name)
				}
			}
		}
		return found
	})
}

// isTypeVar checks whether a module-level assignment binds name to a
// TypeVar call. The check is textual on the call target; resolving the
// typing module for every candidate would cost more than it buys here.
func (c *ClassValue) isTypeVar(name string) bool {
	for _, n := range c.file.NamesFor(name) {
		if c.file.DefKindOf(n) != pytree.DefAssignment {
			continue
		}
		assign := pytree.Ancestor(n, pytree.KindAssignment)
		if assign == nil {
			continue
		}
		right := assign.ChildByFieldName("right")
		if right == nil || right.Type() != pytree.KindCall {
			continue
		}
		callee := c.file.Text(right.ChildByFieldName("function"))
		if callee == "TypeVar" || strings.HasSuffix(callee, ".TypeVar") {
			return true
		}
	}
	return false
}

// DefineGenerics returns the class parameterized with the given
// type-variable bindings. Absent bindings yield the class unchanged.
func (c *ClassValue) DefineGenerics(bindings map[string]ValueSet) Value {
	if len(bindings) == 0 {
		return c
	}
	vars := c.TypeVars()
	generics := make([]ValueSet, len(vars))
	for i, tv := range vars {
		if bound, ok := bindings[tv]; ok {
			generics[i] = bound
		} else {
			generics[i] = NoValues
		}
	}
	return canonicalValue(c.s, &GenericClassValue{class: c, typeVars: vars, generics: generics})
}

// Signatures derives call signatures from the constructor, bound to the
// class itself with the first parameter dropped.
func (c *ClassValue) Signatures() []Signature {
	var sigs []Signature
	for _, v := range c.s.attrLookup(NewValueSet(c), "__init__", nil).Values() {
		if fn, ok := v.(*FunctionValue); ok {
			sigs = append(sigs, Signature{function: fn, bound: c})
		}
	}
	return sigs
}

// Filters produces the class's lookup filters. For scope-chain lookups the
// class body acts as a plain tree scope. For attribute access, metaclass
// filters come first, then one member filter per MRO entry.
func (c *ClassValue) Filters(req FilterRequest) []Filter {
	if req.SearchGlobal {
		return []Filter{newTreeFilter(c.s, c, c.file, c.node, req.Until, req.Origin)}
	}
	var filters []Filter
	for _, meta := range c.Metaclasses().Values() {
		if metaCls := asClass(meta); metaCls != nil && metaCls != c {
			for _, entry := range metaCls.MRO() {
				filters = append(filters, newClassMemberFilter(c.s, c, entry, req.Origin, true))
			}
		}
	}
	for _, entry := range c.MRO() {
		filters = append(filters, newClassMemberFilter(c.s, c, entry, req.Origin, req.IsInstance))
	}
	return filters
}

// GenericClassValue wraps a class with type-variable bindings. It is the
// explicit wrapper variant: lookups delegate to the wrapped class, and the
// bindings travel with the value.
type GenericClassValue struct {
	class    *ClassValue
	typeVars []string
	generics []ValueSet
}

func (g *GenericClassValue) Kind() Kind                 { return KindGeneric }
func (g *GenericClassValue) Name() string               { return g.class.Name() }
func (g *GenericClassValue) Parent() Value              { return g.class.Parent() }
func (g *GenericClassValue) Position() *pytree.Position { return g.class.Position() }

func (g *GenericClassValue) QualifiedNames() ([]string, bool) {
	return g.class.QualifiedNames()
}

func (g *GenericClassValue) Filters(req FilterRequest) []Filter {
	return g.class.Filters(req)
}

func (g *GenericClassValue) key() string {
	parts := []string{g.class.key()}
	for i, tv := range g.typeVars {
		parts = append(parts, tv+"="+setKey(g.generics[i]))
	}
	return "generic:" + strings.Join(parts, ",")
}

// MRO delegates to the wrapped class. Memoized separately per generic
// binding so each (class, generics) pair is linearized at most once.
func (g *GenericClassValue) MRO() []*ClassValue {
	return cached(g.class.s, "class.mro", g.class.file.Key(g.class.node), g.key(), []*ClassValue{}, func() []*ClassValue {
		return g.class.MRO()
	})
}

// Generic returns the binding for a type variable name.
func (g *GenericClassValue) Generic(name string) (ValueSet, bool) {
	for i, tv := range g.typeVars {
		if tv == name {
			return g.generics[i], true
		}
	}
	return NoValues, false
}

// Class returns the unparameterized class.
func (g *GenericClassValue) Class() *ClassValue { return g.class }

func setKey(s ValueSet) string {
	keys := make([]string, 0, s.Len())
	for _, v := range s.Values() {
		keys = append(keys, v.key())
	}
	sort.Strings(keys)
	return "{" + strings.Join(keys, "|") + "}"
}

// qualifiedInModule builds the dotted path of a definition node inside its
// module; only class nesting keeps a stable path.
func qualifiedInModule(file *pytree.File, node *sitter.Node, name string) ([]string, bool) {
	names := []string{name}
	for scope := pytree.ContainingScope(node); scope != nil && scope.Type() != pytree.KindModule; scope = pytree.ContainingScope(scope) {
		if scope.Type() != pytree.KindClassDef {
			return nil, false
		}
		names = append([]string{file.Text(scope.ChildByFieldName("name"))}, names...)
	}
	return names, true
}
