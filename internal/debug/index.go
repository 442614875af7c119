package debug

import (
	"github.com/sirkon/rbtree"

	"github.com/varmark/rebind/internal/ast"
	"github.com/varmark/rebind/internal/rewriter"
	"github.com/varmark/rebind/internal/sourcemap"
)

// ----------------------------------------------------------------------------
// Positional Index
// ----------------------------------------------------------------------------

// span stores a [start,end] byte span and, if needed, a nested RB-tree for
// child spans fully contained in it. Function spans carry only an id;
// variable spans additionally carry the versioned name.
type span struct {
	start int32
	end   int32

	fn       rewriter.FuncID
	name     string // versioned variable name; empty for a function span
	children *rbtree.Tree[*span]
}

// Cmp orders disjoint spans by position and reports any overlap as 0.
// Overlaps only ever happen between a container and a contained span, so
// insertion resolves them into a containment hierarchy.
func (s *span) Cmp(other *span) int {
	if s.end < other.start {
		return -1
	}
	if s.start > other.end {
		return 1
	}
	return 0
}

func containsSpan(a, b *span) bool {
	return a.start <= b.start && a.end >= b.end
}

// attachInto inserts s into t, descending into containers and hoisting s
// above spans it contains.
func attachInto(t *rbtree.Tree[*span], s *span) {
	r := t.InsertReturn(s)
	if r == s {
		return // disjoint sibling
	}

	if containsSpan(s, r) {
		// s is the container: overwrite r in place, re-attach the old
		// value as a child.
		old := *r
		*r = *s
		if r.children == nil {
			r.children = rbtree.New[*span]()
		}
		attachInto(r.children, &old)
		return
	}

	if containsSpan(r, s) {
		// r is the container: descend with s's content under r's pointer
		// identity preserved.
		if r.children == nil {
			r.children = rbtree.New[*span]()
		}

		inner := *s
		*s = *r

		attachInto(s.children, &inner)
		return
	}

	panic("debug: partially overlapping spans")
}

// Index maps byte offsets of the original source to the enclosing
// function and, where one sits at the offset, the versioned variable.
type Index struct {
	tree  *rbtree.Tree[*span]
	names *rewriter.NameMap
	lines *sourcemap.LineIndex
}

// NewIndex builds the positional index for a rewritten module.
func NewIndex(module *ast.Module, names *rewriter.NameMap) *Index {
	ix := &Index{
		tree:  rbtree.New[*span](),
		names: names,
		lines: sourcemap.NewLineIndex(module.Source),
	}

	for _, fn := range module.Functions {
		id := rewriter.FuncID{Module: module.Name, Name: fn.Name, Arity: fn.Arity}
		end := fn.Loc.Start
		for _, clause := range fn.Clauses {
			end = maxClauseOffset(clause, end)
		}
		attachInto(ix.tree, &span{start: fn.Loc.Start, end: end, fn: id})

		for _, clause := range fn.Clauses {
			ix.addClauseVars(clause, id)
		}
	}
	return ix
}

// FunctionOnLine returns the function whose span touches the given
// 1-based source line.
func (ix *Index) FunctionOnLine(line int) (rewriter.FuncID, bool) {
	start := ix.lines.LineStart(line - 1)
	end := ix.lines.LineStart(line) - 1
	if end < start {
		end = start
	}
	probe := &span{start: int32(start), end: int32(end)}
	found := ix.tree.Search(probe)
	if found == nil {
		return rewriter.FuncID{}, false
	}
	return found.fn, true
}

// FunctionAt returns the function whose span covers the offset.
func (ix *Index) FunctionAt(offset int32) (rewriter.FuncID, bool) {
	probe := &span{start: offset, end: offset}
	found := ix.tree.Search(probe)
	if found == nil {
		return rewriter.FuncID{}, false
	}
	return found.fn, true
}

// VariableAt returns the versioned variable sitting at the offset, along
// with its origin. The offset must be the start of the occurrence.
func (ix *Index) VariableAt(offset int32) (string, rewriter.NameOrigin, bool) {
	probe := &span{start: offset, end: offset}
	found := ix.tree.Search(probe)
	for found != nil {
		if found.name != "" {
			origin, _ := ix.names.Origin(found.fn, found.name)
			return found.name, origin, true
		}
		if found.children == nil {
			break
		}
		found = found.children.Search(probe)
	}
	return "", rewriter.NameOrigin{}, false
}

// ----------------------------------------------------------------------------
// Construction Walks
// ----------------------------------------------------------------------------

func (ix *Index) addClauseVars(clause *ast.Clause, id rewriter.FuncID) {
	for _, p := range clause.Patterns {
		ix.addExprVars(p, id)
	}
	for _, g := range clause.Guard {
		ix.addExprVars(g, id)
	}
	for _, e := range clause.Body {
		ix.addExprVars(e, id)
	}
}

func (ix *Index) addExprVars(e ast.Expr, id rewriter.FuncID) {
	switch n := e.(type) {
	case *ast.VarExpr:
		if _, _, ok := ast.SplitVersioned(n.Name); !ok {
			return
		}
		attachInto(ix.tree, &span{start: n.Loc.Start, end: n.Loc.Start, fn: id, name: n.Name})
	case *ast.MatchExpr:
		ix.addExprVars(n.Pattern, id)
		ix.addExprVars(n.Value, id)
	case *ast.TupleExpr:
		for _, elem := range n.Elems {
			ix.addExprVars(elem, id)
		}
	case *ast.ListExpr:
		for _, elem := range n.Elems {
			ix.addExprVars(elem, id)
		}
		if n.Tail != nil {
			ix.addExprVars(n.Tail, id)
		}
	case *ast.RecordExpr:
		for _, field := range n.Fields {
			ix.addExprVars(field.Value, id)
		}
	case *ast.BinaryExpr:
		ix.addExprVars(n.Left, id)
		ix.addExprVars(n.Right, id)
	case *ast.UnaryExpr:
		ix.addExprVars(n.Operand, id)
	case *ast.CallExpr:
		for _, arg := range n.Args {
			ix.addExprVars(arg, id)
		}
	case *ast.CaseExpr:
		ix.addExprVars(n.Discriminant, id)
		for _, clause := range n.Clauses {
			ix.addClauseVars(clause, id)
		}
	case *ast.IfExpr:
		for _, clause := range n.Clauses {
			ix.addClauseVars(clause, id)
		}
	case *ast.ReceiveExpr:
		for _, clause := range n.Clauses {
			ix.addClauseVars(clause, id)
		}
		if n.After != nil {
			ix.addExprVars(n.After.Timeout, id)
			for _, e := range n.After.Body {
				ix.addExprVars(e, id)
			}
		}
	case *ast.TryExpr:
		for _, e := range n.Body {
			ix.addExprVars(e, id)
		}
		for _, clause := range n.OfClauses {
			ix.addClauseVars(clause, id)
		}
		for _, clause := range n.CatchClauses {
			ix.addClauseVars(clause, id)
		}
		for _, e := range n.After {
			ix.addExprVars(e, id)
		}
	case *ast.FunExpr:
		for _, clause := range n.Clauses {
			ix.addClauseVars(clause, id)
		}
	}
}

func maxClauseOffset(clause *ast.Clause, acc int32) int32 {
	for _, p := range clause.Patterns {
		acc = maxExprOffset(p, acc)
	}
	for _, g := range clause.Guard {
		acc = maxExprOffset(g, acc)
	}
	for _, e := range clause.Body {
		acc = maxExprOffset(e, acc)
	}
	return acc
}

func maxExprOffset(e ast.Expr, acc int32) int32 {
	if pos := e.Pos().Start; pos > acc {
		acc = pos
	}
	switch n := e.(type) {
	case *ast.MatchExpr:
		acc = maxExprOffset(n.Pattern, acc)
		acc = maxExprOffset(n.Value, acc)
	case *ast.TupleExpr:
		for _, elem := range n.Elems {
			acc = maxExprOffset(elem, acc)
		}
	case *ast.ListExpr:
		for _, elem := range n.Elems {
			acc = maxExprOffset(elem, acc)
		}
		if n.Tail != nil {
			acc = maxExprOffset(n.Tail, acc)
		}
	case *ast.RecordExpr:
		for _, field := range n.Fields {
			acc = maxExprOffset(field.Value, acc)
		}
	case *ast.BinaryExpr:
		acc = maxExprOffset(n.Left, acc)
		acc = maxExprOffset(n.Right, acc)
	case *ast.UnaryExpr:
		acc = maxExprOffset(n.Operand, acc)
	case *ast.CallExpr:
		for _, arg := range n.Args {
			acc = maxExprOffset(arg, acc)
		}
	case *ast.CaseExpr:
		acc = maxExprOffset(n.Discriminant, acc)
		for _, clause := range n.Clauses {
			acc = maxClauseOffset(clause, acc)
		}
	case *ast.IfExpr:
		for _, clause := range n.Clauses {
			acc = maxClauseOffset(clause, acc)
		}
	case *ast.ReceiveExpr:
		for _, clause := range n.Clauses {
			acc = maxClauseOffset(clause, acc)
		}
		if n.After != nil {
			acc = maxExprOffset(n.After.Timeout, acc)
			for _, e := range n.After.Body {
				acc = maxExprOffset(e, acc)
			}
		}
	case *ast.TryExpr:
		for _, e := range n.Body {
			acc = maxExprOffset(e, acc)
		}
		for _, clause := range n.OfClauses {
			acc = maxClauseOffset(clause, acc)
		}
		for _, clause := range n.CatchClauses {
			acc = maxClauseOffset(clause, acc)
		}
		for _, e := range n.After {
			acc = maxExprOffset(e, acc)
		}
	case *ast.FunExpr:
		for _, clause := range n.Clauses {
			acc = maxClauseOffset(clause, acc)
		}
	}
	return acc
}
