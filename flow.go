package taproot

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/pytree"
)

// reachStatus is the result of a reachability check for a candidate name.
type reachStatus int

const (
	// reachReachable: the definition always executes before the lookup.
	reachReachable reachStatus = iota
	// reachMaybe: the definition sits behind a branch whose condition
	// cannot be decided statically.
	reachMaybe
	// reachUnreachable: the definition can never execute.
	reachUnreachable
)

// reachability walks backward from a candidate definition through the
// conditional branches between it and the containing scope and classifies
// whether the definition is always, possibly, or never reached. Only
// literal conditions are decided; everything else is unanalyzable and
// degrades to "maybe".
func reachability(file *pytree.File, name *sitter.Node, scope *sitter.Node) reachStatus {
	status := reachReachable
	for node := name; node != nil && !pytree.SameNode(node, scope); node = node.Parent() {
		parent := node.Parent()
		if parent == nil {
			break
		}
		switch parent.Type() {
		case pytree.KindIfStmt:
			// Inside the consequence: gated by the if condition.
			if within(parent.ChildByFieldName("consequence"), node) {
				switch conditionTruth(file, parent.ChildByFieldName("condition")) {
				case truthFalse:
					return reachUnreachable
				case truthUnknown:
					status = reachMaybe
				}
			}
		case pytree.KindElifClause:
			if within(parent.ChildByFieldName("consequence"), node) {
				switch conditionTruth(file, parent.ChildByFieldName("condition")) {
				case truthFalse:
					return reachUnreachable
				case truthUnknown:
					status = reachMaybe
				}
			}
		case pytree.KindElseClause:
			// The else branch runs when every prior condition was false;
			// a literally-true prior condition makes it dead.
			ifStmt := parent.Parent()
			if ifStmt != nil && ifStmt.Type() == pytree.KindIfStmt {
				switch conditionTruth(file, ifStmt.ChildByFieldName("condition")) {
				case truthTrue:
					return reachUnreachable
				case truthUnknown:
					status = reachMaybe
				}
			}
		}
	}
	return status
}

type truth int

const (
	truthUnknown truth = iota
	truthTrue
	truthFalse
)

// conditionTruth decides literal conditions. Anything beyond True/False
// and trivial literals is unanalyzable.
func conditionTruth(file *pytree.File, cond *sitter.Node) truth {
	if cond == nil {
		return truthUnknown
	}
	switch cond.Type() {
	case pytree.KindTrue:
		return truthTrue
	case pytree.KindFalse, pytree.KindNone:
		return truthFalse
	case pytree.KindInteger:
		if file.Text(cond) == "0" {
			return truthFalse
		}
		return truthTrue
	case "parenthesized_expression":
		return conditionTruth(file, cond.NamedChild(0))
	case "not_operator":
		switch conditionTruth(file, cond.ChildByFieldName("argument")) {
		case truthTrue:
			return truthFalse
		case truthFalse:
			return truthTrue
		}
	}
	return truthUnknown
}

// within reports whether inner lies inside outer's byte range.
func within(outer, inner *sitter.Node) bool {
	if outer == nil || inner == nil {
		return false
	}
	return outer.StartByte() <= inner.StartByte() && inner.EndByte() <= outer.EndByte()
}
