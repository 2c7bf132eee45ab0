package taproot

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// ParamKind classifies a function parameter.
type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamVarArgs              // *args
	ParamKwArgs               // **kwargs
)

// Param is one declared parameter.
type Param struct {
	Name       string
	Kind       ParamKind
	HasDefault bool
	node       *sitter.Node
	defaultVal *sitter.Node
	annotation *sitter.Node
}

// FunctionValue is a function or method definition.
type FunctionValue struct {
	s      *Session
	file   *pytree.File
	node   *sitter.Node
	parent Value
}

func (s *Session) functionValue(file *pytree.File, node *sitter.Node, parent Value) *FunctionValue {
	return canonicalValue(s, &FunctionValue{s: s, file: file, node: node, parent: parent})
}

func (f *FunctionValue) Kind() Kind    { return KindFunction }
func (f *FunctionValue) Parent() Value { return f.parent }

func (f *FunctionValue) Name() string {
	return f.file.Text(f.node.ChildByFieldName("name"))
}

func (f *FunctionValue) key() string {
	k := f.file.Key(f.node)
	return "func:" + k.Path + ":" + strconv.FormatUint(uint64(k.Start), 10)
}

func (f *FunctionValue) Position() *pytree.Position {
	pos := pytree.StartPos(f.node.ChildByFieldName("name"))
	return &pos
}

func (f *FunctionValue) QualifiedNames() ([]string, bool) {
	return qualifiedInModule(f.file, f.node, f.Name())
}

// isBoundMethodName reports whether this function sits directly in a class
// body.
func (f *FunctionValue) insideClass() bool {
	scope := pytree.ContainingScope(f.node)
	return scope != nil && scope.Type() == pytree.KindClassDef
}

// Params parses the declared parameter list.
func (f *FunctionValue) Params() []*Param {
	params := f.node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []*Param
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		p := &Param{node: child}
		switch child.Type() {
		case pytree.KindIdentifier:
			p.Name = f.file.Text(child)
		case "typed_parameter":
			p.Name = f.file.Text(child.NamedChild(0))
			p.annotation = child.ChildByFieldName("type")
		case "default_parameter":
			p.Name = f.file.Text(child.ChildByFieldName("name"))
			p.defaultVal = child.ChildByFieldName("value")
			p.HasDefault = true
		case "typed_default_parameter":
			p.Name = f.file.Text(child.ChildByFieldName("name"))
			p.annotation = child.ChildByFieldName("type")
			p.defaultVal = child.ChildByFieldName("value")
			p.HasDefault = true
		case "list_splat_pattern":
			p.Name = f.file.Text(child.NamedChild(0))
			p.Kind = ParamVarArgs
		case "dictionary_splat_pattern":
			p.Name = f.file.Text(child.NamedChild(0))
			p.Kind = ParamKwArgs
		default:
			// positional-only and keyword-only separators
			continue
		}
		out = append(out, p)
	}
	return out
}

// ReturnValues infers what calling the function produces: the return
// annotation when declared (classes in annotations instantiate), otherwise
// the union of all return statement expressions. Memoized with an empty
// default, so recursive functions terminate.
func (f *FunctionValue) ReturnValues() ValueSet {
	return cached(f.s, "func.returns", f.file.Key(f.node), "", NoValues, func() ValueSet {
		if ann := f.node.ChildByFieldName("return_type"); ann != nil {
			return f.s.evalAnnotation(f, f.file, ann)
		}
		body := f.node.ChildByFieldName("body")
		if body == nil {
			return NoValues
		}
		var sets []ValueSet
		var walk func(n *sitter.Node)
		walk = func(n *sitter.Node) {
			if n.Type() == pytree.KindFunctionDef && !pytree.SameNode(n, f.node) {
				return // nested functions return for themselves
			}
			if n.Type() == pytree.KindReturnStmt {
				for i := 0; i < int(n.NamedChildCount()); i++ {
					sets = append(sets, f.s.evalExpr(f, f.file, n.NamedChild(i)))
				}
				return
			}
			for i := 0; i < int(n.NamedChildCount()); i++ {
				walk(n.NamedChild(i))
			}
		}
		walk(body)
		return FromSets(sets...)
	})
}

// Signatures returns the function's own signature, bound when the
// function is an instance method accessed through a bound wrapper.
func (f *FunctionValue) Signatures() []Signature {
	return []Signature{{function: f}}
}

// Filters: scope-chain lookups inside the function body see parameters
// and local assignments; attribute access on a function object exposes
// only synthetic dunders.
func (f *FunctionValue) Filters(req FilterRequest) []Filter {
	if req.SearchGlobal {
		return []Filter{newTreeFilter(f.s, f, f.file, f.node, req.Until, req.Origin)}
	}
	strInstance := func() ValueSet { return f.s.builtinInstance("str") }
	return []Filter{&DictFilter{names: map[string]Name{
		"__name__": newSyntheticName(f, "__name__", strInstance),
		"__doc__":  newSyntheticName(f, "__doc__", strInstance),
		"__call__": newSyntheticName(f, "__call__", func() ValueSet { return NewValueSet(f) }),
	}}}
}

// BoundMethodValue wraps a function resolved through an instance: calls
// skip the first parameter.
type BoundMethodValue struct {
	*FunctionValue
	instance Value
}

func newBoundMethod(fn *FunctionValue, instance Value) *BoundMethodValue {
	return &BoundMethodValue{FunctionValue: fn, instance: instance}
}

func (b *BoundMethodValue) key() string {
	return "bound:" + b.FunctionValue.key() + ":" + b.instance.key()
}

// Instance returns the value the method is bound to.
func (b *BoundMethodValue) Instance() Value { return b.instance }

func (b *BoundMethodValue) Signatures() []Signature {
	return []Signature{{function: b.FunctionValue, bound: b.instance}}
}

// Signature describes one callable shape for signature help. A bound
// signature drops the first declared parameter.
type Signature struct {
	function *FunctionValue
	bound    Value
}

// Name returns the callable's name: the class name for constructors, the
// function name otherwise.
func (sig Signature) Name() string {
	if sig.bound != nil && sig.bound.Kind() == KindClass {
		return sig.bound.Name()
	}
	return sig.function.Name()
}

// Params returns the visible parameters. The first parameter is dropped
// when the signature is bound.
func (sig Signature) Params() []*Param {
	params := sig.function.Params()
	if sig.bound != nil && len(params) > 0 {
		return params[1:]
	}
	return params
}

// String renders the signature the way signature-help front-ends display
// it.
func (sig Signature) String() string {
	var parts []string
	for _, p := range sig.Params() {
		text := p.Name
		switch p.Kind {
		case ParamVarArgs:
			text = "*" + text
		case ParamKwArgs:
			text = "**" + text
		}
		if p.HasDefault {
			text += "=..."
		}
		parts = append(parts, text)
	}
	return sig.Name() + "(" + strings.Join(parts, ", ") + ")"
}
