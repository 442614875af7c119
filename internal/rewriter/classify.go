package rewriter

import "github.com/varmark/rebind/internal/ast"

// ----------------------------------------------------------------------------
// Occurrence Classification
// ----------------------------------------------------------------------------

// Role is the syntactic position of a variable occurrence, as seen by the
// walker when it reaches the leaf.
type Role uint8

const (
	// RoleClauseHead is an argument pattern of a function or fun clause.
	RoleClauseHead Role = iota
	// RolePattern is any other pattern position: case/receive/catch clause
	// patterns and the left side of a body match expression.
	RolePattern
	// RoleValue is a value position: match right sides, call arguments,
	// tuple/list/record elements in value position, construct discriminants.
	RoleValue
	// RoleGuard is a guard expression position.
	RoleGuard
)

// Occurrence is the classification of one variable occurrence.
type Occurrence uint8

const (
	// OccBinding introduces a new counter for the base name.
	OccBinding Occurrence = iota
	// OccReference reads the current counter without advancing it.
	OccReference
	// OccBareMatch is a suffix-dropped name: a value-equality match against
	// the current resolved version, if the base name is sequential at all.
	OccBareMatch
	// OccPassthrough is the explicit Base@N debug form, emitted unchanged.
	OccPassthrough
)

func (o Occurrence) String() string {
	switch o {
	case OccBinding:
		return "binding"
	case OccReference:
		return "reference"
	case OccBareMatch:
		return "bare-match"
	case OccPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Classify decides what a variable occurrence does, purely from its name
// shape and syntactic role. Whether a bare name actually belongs to a
// sequential variable is the walker's call: it knows which base names are
// marked in the enclosing function.
func Classify(name string, role Role) Occurrence {
	if _, _, ok := ast.SplitVersioned(name); ok {
		return OccPassthrough
	}
	if ast.IsMarked(name) {
		switch role {
		case RoleClauseHead, RolePattern:
			return OccBinding
		default:
			return OccReference
		}
	}
	return OccBareMatch
}
