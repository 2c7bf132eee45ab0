package taproot

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// callSite carries the syntax of one call expression for argument
// checking.
type callSite struct {
	file *pytree.File
	node *sitter.Node // the call expression
	args *sitter.Node // argument_list, nil for zero-argument calls
}

func (c *callSite) position() pytree.Position {
	return pytree.StartPos(c.node)
}

// checkArguments matches a call against one signature and records issues
// for mismatches. Calls with splat arguments are not checked: their arity
// depends on runtime values. Descriptor-only (stub) callables are skipped
// too, their overload conventions make single-shape checks meaningless.
func (s *Session) checkArguments(call *callSite, sig Signature) {
	if IsStub(sig.function) {
		return
	}

	params := sig.Params()
	var varArgs, kwArgs bool
	filled := map[string]int{}
	positional := map[int]*Param{}
	byName := map[string]*Param{}
	nextPositional := 0
	for i, p := range params {
		switch p.Kind {
		case ParamVarArgs:
			varArgs = true
		case ParamKwArgs:
			kwArgs = true
		default:
			positional[i] = p
			byName[p.Name] = p
		}
	}

	var extraPositional int
	seenKeyword := false
	if call.args != nil {
		for i := 0; i < int(call.args.NamedChildCount()); i++ {
			arg := call.args.NamedChild(i)
			switch arg.Type() {
			case pytree.KindListSplat, pytree.KindDictSplat:
				return
			case "comment":
				continue
			case pytree.KindKeywordArgument:
				seenKeyword = true
				name := call.file.Text(arg.ChildByFieldName("name"))
				p, known := byName[name]
				if !known {
					if !kwArgs {
						s.addIssue(IssueUnknownKeyword, call.file.Path, pytree.StartPos(arg),
							"%s() got an unexpected keyword argument %q", sig.Name(), name)
					}
					continue
				}
				filled[p.Name]++
				if filled[p.Name] > 1 {
					s.addIssue(IssueDuplicateKeyword, call.file.Path, pytree.StartPos(arg),
						"%s() got multiple values for argument %q", sig.Name(), name)
				}
			default:
				if seenKeyword {
					continue // a syntax error, not an arity problem
				}
				if p, ok := positional[nextPositional]; ok {
					filled[p.Name]++
				} else if !varArgs {
					extraPositional++
				}
				nextPositional++
			}
		}
	}

	if extraPositional > 0 {
		s.addIssue(IssueTooManyArgs, call.file.Path, call.position(),
			"%s() takes %d positional arguments but %d were given",
			sig.Name(), len(positional), len(positional)+extraPositional)
	}
	for i := 0; i < len(params); i++ {
		p, ok := positional[i]
		if !ok || p.HasDefault {
			continue
		}
		if filled[p.Name] == 0 {
			s.addIssue(IssueTooFewArgs, call.file.Path, call.position(),
				"%s() missing required argument %q", sig.Name(), p.Name)
		}
	}
}
