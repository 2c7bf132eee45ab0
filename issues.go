package taproot

import (
	"fmt"

	"github.com/jward/taproot/internal/pytree"
)

// IssueKind classifies an analysis diagnostic.
type IssueKind int

const (
	// IssueTooManyArgs: a call passes more positional arguments than the
	// callable declares.
	IssueTooManyArgs IssueKind = iota
	// IssueTooFewArgs: a required parameter is never supplied.
	IssueTooFewArgs
	// IssueDuplicateKeyword: a parameter receives more than one argument.
	IssueDuplicateKeyword
	// IssueUnknownKeyword: a keyword argument matches no declared
	// parameter.
	IssueUnknownKeyword
)

func (k IssueKind) String() string {
	switch k {
	case IssueTooManyArgs:
		return "too-many-args"
	case IssueTooFewArgs:
		return "too-few-args"
	case IssueDuplicateKeyword:
		return "duplicate-keyword"
	case IssueUnknownKeyword:
		return "unknown-keyword"
	}
	return fmt.Sprintf("issue(%d)", int(k))
}

// Issue is a position-tagged diagnostic produced during analysis. Issues
// accumulate on the session and never interrupt resolution.
type Issue struct {
	Kind    IssueKind
	Path    string
	Pos     pytree.Position
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%s: %s: %s", i.Path, i.Pos, i.Kind, i.Message)
}
