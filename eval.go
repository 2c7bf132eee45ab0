package taproot

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// scopeNode returns the lexical scope node an expression belongs to, the
// module root when the expression sits at top level.
func scopeNode(file *pytree.File, n *sitter.Node) *sitter.Node {
	if scope := pytree.ContainingScope(n); scope != nil {
		return scope
	}
	return file.Root()
}

// evalExpr infers the value set of an expression node inside the given
// scope value. Unanalyzable constructs yield the empty set, never an
// error.
func (s *Session) evalExpr(scope Value, file *pytree.File, node *sitter.Node) ValueSet {
	if node == nil {
		return NoValues
	}
	switch node.Type() {
	case pytree.KindIdentifier:
		pos := pytree.StartPos(node)
		filters := GlobalFilters(s, scope, &pos, scopeNode(file, node))
		return inferNames(findInFilters(filters, file.Text(node)))

	case pytree.KindAttribute:
		base := s.evalExpr(scope, file, node.ChildByFieldName("object"))
		return s.attrLookup(base, file.Text(node.ChildByFieldName("attribute")), scopeNode(file, node))

	case pytree.KindCall:
		callee := s.evalExpr(scope, file, node.ChildByFieldName("function"))
		call := &callSite{file: file, node: node, args: node.ChildByFieldName("arguments")}
		var sets []ValueSet
		for _, v := range callee.Values() {
			sets = append(sets, s.execute(v, call))
		}
		return FromSets(sets...)

	case pytree.KindSubscript:
		return s.evalSubscript(scope, file, node)

	case pytree.KindString, "concatenated_string":
		return s.builtinInstance("str")
	case pytree.KindInteger:
		return s.builtinInstance("int")
	case pytree.KindFloat:
		return s.builtinInstance("float")
	case pytree.KindTrue, pytree.KindFalse:
		return s.builtinInstance("bool")
	case pytree.KindNone:
		return s.builtinInstance("NoneType")
	case "list", "list_comprehension":
		return s.builtinInstance("list")
	case "tuple":
		return s.builtinInstance("tuple")
	case "dictionary", "dictionary_comprehension":
		return s.builtinInstance("dict")
	case "set", "set_comprehension":
		return s.builtinInstance("set")

	case "parenthesized_expression", "await":
		return s.evalExpr(scope, file, node.NamedChild(0))

	case "conditional_expression":
		// `a if cond else b`: both arms are possible results.
		return FromSets(
			s.evalExpr(scope, file, node.NamedChild(0)),
			s.evalExpr(scope, file, node.NamedChild(int(node.NamedChildCount())-1)),
		)

	case "boolean_operator":
		return FromSets(
			s.evalExpr(scope, file, node.ChildByFieldName("left")),
			s.evalExpr(scope, file, node.ChildByFieldName("right")),
		)

	case "binary_operator":
		// No numeric evaluation: the result is drawn from the operand
		// types, which covers the common same-type arithmetic cases.
		return FromSets(
			s.evalExpr(scope, file, node.ChildByFieldName("left")),
			s.evalExpr(scope, file, node.ChildByFieldName("right")),
		)

	case "comparison_operator", "not_operator":
		return s.builtinInstance("bool")

	case "unary_operator":
		return s.evalExpr(scope, file, node.ChildByFieldName("argument"))
	}
	return NoValues
}

// evalSubscript handles `Base[args]`: parameterizing a generic class binds
// its type variables positionally. Subscripting anything else is opaque.
func (s *Session) evalSubscript(scope Value, file *pytree.File, node *sitter.Node) ValueSet {
	base := s.evalExpr(scope, file, node.ChildByFieldName("value"))

	var args []ValueSet
	valueField := node.ChildByFieldName("value")
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if pytree.SameNode(child, valueField) {
			continue
		}
		args = append(args, instantiate(s, s.evalExpr(scope, file, child)))
	}

	var sets []ValueSet
	for _, v := range base.Values() {
		cls := asClass(v)
		if cls == nil {
			continue
		}
		vars := cls.TypeVars()
		if len(vars) == 0 {
			sets = append(sets, NewValueSet(cls))
			continue
		}
		bindings := map[string]ValueSet{}
		for i, tv := range vars {
			if i < len(args) {
				bindings[tv] = args[i]
			}
		}
		sets = append(sets, NewValueSet(cls.DefineGenerics(bindings)))
	}
	return FromSets(sets...)
}

// instantiate maps classes in a set to instances, leaving other values
// unchanged. Annotations denote instances of the named types.
func instantiate(s *Session, set ValueSet) ValueSet {
	var sets []ValueSet
	for _, v := range set.Values() {
		switch v.Kind() {
		case KindClass, KindGeneric:
			sets = append(sets, s.execute(v, nil))
		default:
			sets = append(sets, NewValueSet(v))
		}
	}
	return FromSets(sets...)
}

// evalAnnotation infers the values an annotation denotes: classes become
// instances, string annotations resolve as forward references.
func (s *Session) evalAnnotation(scope Value, file *pytree.File, node *sitter.Node) ValueSet {
	if node == nil {
		return NoValues
	}
	// The grammar wraps annotations in a type node.
	if node.Type() == "type" {
		node = node.NamedChild(0)
		if node == nil {
			return NoValues
		}
	}
	if node.Type() == pytree.KindString {
		text := strings.Trim(file.Text(node), "\"'")
		return instantiate(s, s.resolveDotted(scope, file, node, text))
	}
	return instantiate(s, s.evalExpr(scope, file, node))
}

// resolveDotted resolves a dotted name string (e.g. from a string
// annotation) in the given scope. Anything more structured than a dotted
// path is not analyzed.
func (s *Session) resolveDotted(scope Value, file *pytree.File, at *sitter.Node, dotted string) ValueSet {
	parts := strings.Split(strings.TrimSpace(dotted), ".")
	if len(parts) == 0 || parts[0] == "" {
		return NoValues
	}
	pos := pytree.StartPos(at)
	filters := GlobalFilters(s, scope, &pos, scopeNode(file, at))
	set := inferNames(findInFilters(filters, parts[0]))
	for _, part := range parts[1:] {
		set = s.attrLookup(set, part, scopeNode(file, at))
	}
	return set
}

// attrLookup resolves an attribute name against every value in the set
// independently: each value's filter chain is consulted in priority order
// and the first non-empty filter wins for that value. Per-value results
// are unioned.
func (s *Session) attrLookup(set ValueSet, name string, origin *sitter.Node) ValueSet {
	var sets []ValueSet
	for _, v := range set.Values() {
		names := findInFilters(v.Filters(FilterRequest{Origin: origin}), name)
		sets = append(sets, inferNames(names))
	}
	return FromSets(sets...)
}

// inferTreeName resolves a tree name to values according to how the name
// binds. Called through the name-inference cache, so recursive definitions
// terminate with the empty set.
func (s *Session) inferTreeName(n *TreeName) ValueSet {
	file, node := n.file, n.node
	switch file.DefKindOf(node) {
	case pytree.DefClass:
		def := node.Parent()
		return NewValueSet(s.classValue(file, def, s.scopeValueFor(file, pytree.ContainingScope(def))))
	case pytree.DefFunction:
		def := node.Parent()
		return NewValueSet(s.functionValue(file, def, s.scopeValueFor(file, pytree.ContainingScope(def))))
	case pytree.DefParam:
		return s.inferParam(file, node)
	case pytree.DefImport:
		return s.inferImportName(n)
	case pytree.DefAssignment:
		return s.inferAssignment(file, node)
	case pytree.DefFor, pytree.DefWith:
		// Iteration and context-manager targets need protocol execution,
		// which static analysis here does not model.
		return NoValues
	}
	names, _ := s.gotoName(file, node)
	return inferNames(names)
}

// inferParam infers a parameter name: the annotation when present, the
// default value otherwise. The first parameter of a method in a class body
// is the instance.
func (s *Session) inferParam(file *pytree.File, node *sitter.Node) ValueSet {
	fnNode := pytree.Ancestor(node, pytree.KindFunctionDef)
	if fnNode == nil {
		return NoValues
	}
	fn := s.functionValue(file, fnNode, s.scopeValueFor(file, pytree.ContainingScope(fnNode)))

	params := fn.Params()
	var param *Param
	index := -1
	for i, p := range params {
		if p.Name == file.Text(node) {
			param, index = p, i
			break
		}
	}
	if param == nil {
		return NoValues
	}
	if param.annotation != nil {
		return s.evalAnnotation(fn, file, param.annotation)
	}
	if index == 0 && param.Kind == ParamPositional && fn.insideClass() {
		if cls, ok := fn.Parent().(*ClassValue); ok {
			return NewValueSet(s.instanceOf(cls))
		}
	}
	if param.defaultVal != nil {
		return s.evalExpr(fn, file, param.defaultVal)
	}
	return NoValues
}

// inferAssignment infers the right-hand side of the assignment that binds
// this target name. An annotation wins over the assigned expression.
func (s *Session) inferAssignment(file *pytree.File, node *sitter.Node) ValueSet {
	assign := pytree.Ancestor(node, pytree.KindAssignment, pytree.KindAugAssignment)
	if assign == nil {
		return NoValues
	}
	scope := s.scopeValueFor(file, scopeNode(file, assign))

	if ann := assign.ChildByFieldName("type"); ann != nil {
		return s.evalAnnotation(scope, file, ann)
	}
	right := assign.ChildByFieldName("right")
	if right == nil {
		return NoValues
	}

	left := assign.ChildByFieldName("left")
	if left != nil && left.Type() == pytree.KindIdentifier {
		return s.evalExpr(scope, file, right)
	}
	// Tuple unpacking: match the target's index against a literal tuple
	// on the right. Anything else is opaque.
	if left != nil && (left.Type() == "pattern_list" || left.Type() == "tuple_pattern") &&
		(right.Type() == "expression_list" || right.Type() == "tuple") {
		for i := 0; i < int(left.NamedChildCount()); i++ {
			if pytree.SameNode(left.NamedChild(i), node) && i < int(right.NamedChildCount()) {
				return s.evalExpr(scope, file, right.NamedChild(i))
			}
		}
	}
	return NoValues
}

// gotoName resolves a read occurrence to its definition names without
// inferring through them: attribute reads consult the object's filters,
// plain reads walk the scope chain with declaration-order visibility.
func (s *Session) gotoName(file *pytree.File, node *sitter.Node) ([]Name, bool) {
	parent := node.Parent()
	if parent != nil && parent.Type() == pytree.KindAttribute &&
		pytree.SameNode(parent.ChildByFieldName("attribute"), node) {
		scope := s.scopeValueFor(file, scopeNode(file, node))
		base := s.evalExpr(scope, file, parent.ChildByFieldName("object"))
		var names []Name
		for _, v := range base.Values() {
			names = append(names, findInFilters(v.Filters(FilterRequest{Origin: scopeNode(file, node)}), file.Text(node))...)
		}
		return names, len(names) > 0
	}

	origin := scopeNode(file, node)
	scope := s.scopeValueFor(file, origin)
	pos := pytree.StartPos(node)
	names := findInFilters(GlobalFilters(s, scope, &pos, origin), file.Text(node))
	return names, len(names) > 0
}

// inferImportName resolves an import-bound name to module values (or, for
// `from m import member`, to the member's values).
func (s *Session) inferImportName(n *TreeName) ValueSet {
	file, node := n.file, n.node
	parent := node.Parent()
	if parent == nil {
		return NoValues
	}

	switch parent.Type() {
	case pytree.KindAliasedImport:
		target := parent.ChildByFieldName("name")
		outer := parent.Parent()
		if outer == nil || target == nil {
			return NoValues
		}
		if outer.Type() == pytree.KindImport {
			return s.ImportModule(strings.Split(file.Text(target), "."), true)
		}
		if outer.Type() == pytree.KindImportFrom {
			return s.resolveFromImport(file, outer, file.Text(target))
		}

	case pytree.KindDottedName:
		outer := parent.Parent()
		if outer == nil {
			return NoValues
		}
		switch outer.Type() {
		case pytree.KindImport:
			// `import a.b` binds only the leading name.
			return s.ImportModule([]string{file.Text(node)}, true)
		case pytree.KindImportFrom:
			return s.resolveFromImport(file, outer, file.Text(parent))
		}

	case pytree.KindImportFrom:
		// `from . import x` puts bare identifiers under the statement.
		return s.resolveFromImport(file, parent, file.Text(node))
	}
	return NoValues
}

// resolveFromImport resolves one imported member of a `from` statement:
// first as a submodule of the source module, then as an attribute of it.
func (s *Session) resolveFromImport(file *pytree.File, stmt *sitter.Node, member string) ValueSet {
	base := s.fromModuleNames(file, stmt)
	if len(base) == 0 {
		return NoValues
	}
	full := append(append([]string{}, base...), member)
	if set := s.ImportModule(full, true); !set.IsEmpty() {
		return set
	}
	return s.attrLookup(s.ImportModule(base, true), member, nil)
}

// fromModuleNames computes the dotted source-module path of a `from`
// statement, resolving relative imports against the importing module's own
// path.
func (s *Session) fromModuleNames(file *pytree.File, stmt *sitter.Node) []string {
	moduleName := stmt.ChildByFieldName("module_name")
	if moduleName == nil {
		return nil
	}
	if moduleName.Type() != "relative_import" {
		return strings.Split(file.Text(moduleName), ".")
	}

	// Count leading dots, collect the trailing dotted name if any.
	text := file.Text(moduleName)
	dots := 0
	for dots < len(text) && text[dots] == '.' {
		dots++
	}
	base := s.project.importNamesFor(file.Path)
	isPackage := strings.HasSuffix(file.Path, "__init__.py") || strings.HasSuffix(file.Path, "__init__.pyi")
	if !isPackage {
		base = base[:max(0, len(base)-1)]
	}
	if drop := dots - 1; drop > 0 {
		if drop >= len(base) {
			return nil
		}
		base = base[:len(base)-drop]
	}
	out := append([]string{}, base...)
	if trailing := strings.TrimLeft(text, "."); trailing != "" {
		out = append(out, strings.Split(trailing, ".")...)
	}
	return out
}
