// Package rewriter implements the scope-aware renaming engine for
// sequential variables.
//
// A variable marked with a trailing '@' is rewritten at every occurrence
// into a concrete versioned name Base@N. Binding occurrences advance a
// per-base-name counter; reference occurrences read it. Counters live in
// nested frames that fork at every clause-like construct (function clause,
// case/if/receive/try clause, fun clause, let@ block) and are discarded on
// exit, so clause-local rebindings never leak.
//
// The engine is a pure tree-to-tree transform: the output is structurally
// isomorphic to the input, with only variable spellings changed. A unit
// either rewrites fully or not at all.
package rewriter

import (
	"fmt"
	"sort"

	"github.com/varmark/rebind/internal/ast"
	"github.com/varmark/rebind/internal/scope"
)

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

// ErrorKind classifies rewrite errors. All of them abort the enclosing
// compilation unit.
type ErrorKind uint8

const (
	// UnboundSequentialVariable: a reference (or suffix-dropped bare match)
	// has no resolvable counter in the active frame chain.
	UnboundSequentialVariable ErrorKind = iota
	// MalformedLetBlock: let@ invoked with zero expressions, or somewhere
	// a value is not expected (pattern position).
	MalformedLetBlock
	// ConflictingRedeclaration: a bare suffix-dropped name sits where the
	// grammar requires a fresh binding of a name that is marked elsewhere.
	ConflictingRedeclaration
)

func (k ErrorKind) String() string {
	switch k {
	case UnboundSequentialVariable:
		return "unbound sequential variable"
	case MalformedLetBlock:
		return "malformed let@ block"
	case ConflictingRedeclaration:
		return "conflicting redeclaration"
	default:
		return "unknown error"
	}
}

// Error is a fatal rewrite error carrying the enclosing function identity.
type Error struct {
	Kind   ErrorKind
	Base   string // offending base name, if any
	Module string
	Func   string
	Arity  int
	Loc    ast.Loc
}

func (e *Error) Error() string {
	where := fmt.Sprintf("%s/%d", e.Func, e.Arity)
	if e.Module != "" {
		where = e.Module + ":" + where
	}
	if e.Base != "" {
		return fmt.Sprintf("%s: %s %q (line %d)", where, e.Kind, e.Base, e.Loc.Line)
	}
	return fmt.Sprintf("%s: %s (line %d)", where, e.Kind, e.Loc.Line)
}

// ----------------------------------------------------------------------------
// Name Metadata
// ----------------------------------------------------------------------------

// FuncID identifies a function within a compilation unit.
type FuncID struct {
	Module string
	Name   string
	Arity  int
}

func (id FuncID) String() string {
	if id.Module == "" {
		return fmt.Sprintf("%s/%d", id.Name, id.Arity)
	}
	return fmt.Sprintf("%s:%s/%d", id.Module, id.Name, id.Arity)
}

// NameOrigin records where a versioned name came from.
type NameOrigin struct {
	Base    string
	Counter int
}

// NameMap is the reverse mapping from each versioned name back to its
// (base name, counter) pair, per function. It is produced alongside the
// rewritten tree and consumed by the external debug pretty-printer.
type NameMap struct {
	funcs map[FuncID]map[string]NameOrigin
}

// NewNameMap creates an empty name map.
func NewNameMap() *NameMap {
	return &NameMap{funcs: make(map[FuncID]map[string]NameOrigin)}
}

func (m *NameMap) record(id FuncID, versioned string, origin NameOrigin) {
	byName, ok := m.funcs[id]
	if !ok {
		byName = make(map[string]NameOrigin)
		m.funcs[id] = byName
	}
	byName[versioned] = origin
}

// Origin resolves a versioned name within a function.
func (m *NameMap) Origin(id FuncID, versioned string) (NameOrigin, bool) {
	origin, ok := m.funcs[id][versioned]
	return origin, ok
}

// Names returns the versioned names recorded for a function, ordered by
// base name and then counter. Lexicographic order would put Base@10 before
// Base@2.
func (m *NameMap) Names(id FuncID) []string {
	byName := m.funcs[id]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := byName[names[i]], byName[names[j]]
		if a.Base != b.Base {
			return a.Base < b.Base
		}
		return a.Counter < b.Counter
	})
	return names
}

// Functions returns every function with recorded names, sorted.
func (m *NameMap) Functions() []FuncID {
	ids := make([]FuncID, 0, len(m.funcs))
	for id := range m.funcs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Module != ids[j].Module {
			return ids[i].Module < ids[j].Module
		}
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		return ids[i].Arity < ids[j].Arity
	})
	return ids
}

// ----------------------------------------------------------------------------
// Rewrite Entry Point
// ----------------------------------------------------------------------------

// Rewrite rewrites one compilation unit. On error no partial output is
// returned: the unit either rewrites fully or not at all.
func Rewrite(module *ast.Module) (*ast.Module, *NameMap, error) {
	out := &ast.Module{
		Source:     module.Source,
		SourcePath: module.SourcePath,
		Name:       module.Name,
	}
	names := NewNameMap()

	for _, fn := range module.Functions {
		rewritten, err := rewriteFunc(module.Name, fn, names)
		if err != nil {
			return nil, nil, err
		}
		out.Functions = append(out.Functions, rewritten)
	}

	return out, names, nil
}

// rewriteFunc rewrites one function definition under a fresh scope stack.
func rewriteFunc(moduleName string, fn *ast.FuncDecl, names *NameMap) (*ast.FuncDecl, error) {
	w := &walker{
		scopes:     scope.NewStack(),
		marked:     collectMarked(fn),
		names:      names,
		id:         FuncID{Module: moduleName, Name: fn.Name, Arity: fn.Arity},
		moduleName: moduleName,
	}

	out := &ast.FuncDecl{Loc: fn.Loc, Name: fn.Name, Arity: fn.Arity}
	for _, clause := range fn.Clauses {
		rewritten, err := w.walkClause(clause, RoleClauseHead)
		if err != nil {
			return nil, err
		}
		out.Clauses = append(out.Clauses, rewritten)
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Renaming Walker
// ----------------------------------------------------------------------------

// walker carries the state of one function traversal.
type walker struct {
	scopes     *scope.Stack
	marked     map[string]bool // base names marked anywhere in the function
	names      *NameMap
	id         FuncID
	moduleName string
}

func (w *walker) errf(kind ErrorKind, base string, loc ast.Loc) error {
	return &Error{
		Kind:   kind,
		Base:   base,
		Module: w.moduleName,
		Func:   w.id.Name,
		Arity:  w.id.Arity,
		Loc:    loc,
	}
}

// walkClause walks one clause of any clause-like construct under its own
// frame: patterns bind, the guard and body are walked in evaluation order,
// and the frame is discarded on exit.
func (w *walker) walkClause(clause *ast.Clause, headRole Role) (*ast.Clause, error) {
	w.scopes.Push()
	defer w.scopes.Pop()

	out := &ast.Clause{Loc: clause.Loc}
	for _, pattern := range clause.Patterns {
		rewritten, err := w.walkPattern(pattern, headRole)
		if err != nil {
			return nil, err
		}
		out.Patterns = append(out.Patterns, rewritten)
	}
	for _, g := range clause.Guard {
		rewritten, err := w.walkExpr(g, RoleGuard)
		if err != nil {
			return nil, err
		}
		out.Guard = append(out.Guard, rewritten)
	}
	var err error
	out.Body, err = w.walkBody(clause.Body)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walkBody walks a sequential expression list in order.
func (w *walker) walkBody(body []ast.Expr) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(body))
	for _, e := range body {
		rewritten, err := w.walkExpr(e, RoleValue)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten)
	}
	return out, nil
}

// walkExpr walks a value-position expression.
func (w *walker) walkExpr(e ast.Expr, role Role) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.VarExpr:
		return w.walkVarValue(n, role)

	case *ast.MatchExpr:
		// The value side is fully walked and resolved before the pattern's
		// binding occurrences are allocated, so right-side references see
		// pre-match counters.
		value, err := w.walkExpr(n.Value, role)
		if err != nil {
			return nil, err
		}
		pattern, err := w.walkPattern(n.Pattern, RolePattern)
		if err != nil {
			return nil, err
		}
		return &ast.MatchExpr{Loc: n.Loc, Pattern: pattern, Value: value}, nil

	case *ast.TupleExpr:
		elems, err := w.walkExprList(n.Elems, role)
		if err != nil {
			return nil, err
		}
		return &ast.TupleExpr{Loc: n.Loc, Elems: elems}, nil

	case *ast.ListExpr:
		elems, err := w.walkExprList(n.Elems, role)
		if err != nil {
			return nil, err
		}
		out := &ast.ListExpr{Loc: n.Loc, Elems: elems}
		if n.Tail != nil {
			tail, err := w.walkExpr(n.Tail, role)
			if err != nil {
				return nil, err
			}
			out.Tail = tail
		}
		return out, nil

	case *ast.RecordExpr:
		out := &ast.RecordExpr{Loc: n.Loc, Name: n.Name}
		for _, field := range n.Fields {
			value, err := w.walkExpr(field.Value, role)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, ast.RecordField{Loc: field.Loc, Name: field.Name, Value: value})
		}
		return out, nil

	case *ast.BinaryExpr:
		left, err := w.walkExpr(n.Left, role)
		if err != nil {
			return nil, err
		}
		right, err := w.walkExpr(n.Right, role)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Loc: n.Loc, Op: n.Op, Left: left, Right: right}, nil

	case *ast.UnaryExpr:
		operand, err := w.walkExpr(n.Operand, role)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Loc: n.Loc, Op: n.Op, Operand: operand}, nil

	case *ast.CallExpr:
		if isLetBlock(n) {
			return w.expandLetBlock(n)
		}
		out := &ast.CallExpr{Loc: n.Loc, Module: n.Module, Func: n.Func}
		args, err := w.walkExprList(n.Args, role)
		if err != nil {
			return nil, err
		}
		out.Args = args
		return out, nil

	case *ast.CaseExpr:
		return w.walkCase(n)

	case *ast.IfExpr:
		return w.walkIf(n)

	case *ast.ReceiveExpr:
		return w.walkReceive(n)

	case *ast.TryExpr:
		return w.walkTry(n)

	case *ast.FunExpr:
		out := &ast.FunExpr{Loc: n.Loc}
		for _, clause := range n.Clauses {
			rewritten, err := w.walkClause(clause, RoleClauseHead)
			if err != nil {
				return nil, err
			}
			out.Clauses = append(out.Clauses, rewritten)
		}
		return out, nil

	case *ast.AtomExpr, *ast.LiteralExpr:
		return e, nil

	default:
		// Unrecognized node kinds pass through unchanged so the engine
		// stays forward-compatible with grammar growth.
		return e, nil
	}
}

func (w *walker) walkExprList(list []ast.Expr, role Role) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(list))
	for _, e := range list {
		rewritten, err := w.walkExpr(e, role)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten)
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Branching Constructs
// ----------------------------------------------------------------------------

// walkCase walks the discriminant in the enclosing frame, then each clause
// under its own sibling frame. Clause bindings never leak past the
// construct: an occurrence after it resolves against pre-construct counters.
func (w *walker) walkCase(n *ast.CaseExpr) (ast.Expr, error) {
	discriminant, err := w.walkExpr(n.Discriminant, RoleValue)
	if err != nil {
		return nil, err
	}
	out := &ast.CaseExpr{Loc: n.Loc, Discriminant: discriminant}
	for _, clause := range n.Clauses {
		rewritten, err := w.walkClause(clause, RolePattern)
		if err != nil {
			return nil, err
		}
		out.Clauses = append(out.Clauses, rewritten)
	}
	return out, nil
}

func (w *walker) walkIf(n *ast.IfExpr) (ast.Expr, error) {
	out := &ast.IfExpr{Loc: n.Loc}
	for _, clause := range n.Clauses {
		rewritten, err := w.walkClause(clause, RolePattern)
		if err != nil {
			return nil, err
		}
		out.Clauses = append(out.Clauses, rewritten)
	}
	return out, nil
}

func (w *walker) walkReceive(n *ast.ReceiveExpr) (ast.Expr, error) {
	out := &ast.ReceiveExpr{Loc: n.Loc}
	for _, clause := range n.Clauses {
		rewritten, err := w.walkClause(clause, RolePattern)
		if err != nil {
			return nil, err
		}
		out.Clauses = append(out.Clauses, rewritten)
	}
	if n.After != nil {
		// The timeout expression evaluates before any clause runs, in the
		// enclosing frame; the timeout body is clause-like.
		timeout, err := w.walkExpr(n.After.Timeout, RoleValue)
		if err != nil {
			return nil, err
		}
		after := &ast.AfterClause{Loc: n.After.Loc, Timeout: timeout}
		w.scopes.Push()
		after.Body, err = w.walkBody(n.After.Body)
		w.scopes.Pop()
		if err != nil {
			return nil, err
		}
		out.After = after
	}
	return out, nil
}

func (w *walker) walkTry(n *ast.TryExpr) (ast.Expr, error) {
	out := &ast.TryExpr{Loc: n.Loc}

	// The protected body is clause-like: it may abort anywhere, so its
	// bindings must not be visible to of/catch/after sections.
	w.scopes.Push()
	body, err := w.walkBody(n.Body)
	w.scopes.Pop()
	if err != nil {
		return nil, err
	}
	out.Body = body

	for _, clause := range n.OfClauses {
		rewritten, err := w.walkClause(clause, RolePattern)
		if err != nil {
			return nil, err
		}
		out.OfClauses = append(out.OfClauses, rewritten)
	}
	for _, clause := range n.CatchClauses {
		rewritten, err := w.walkClause(clause, RolePattern)
		if err != nil {
			return nil, err
		}
		out.CatchClauses = append(out.CatchClauses, rewritten)
	}
	if len(n.After) > 0 {
		w.scopes.Push()
		after, err := w.walkBody(n.After)
		w.scopes.Pop()
		if err != nil {
			return nil, err
		}
		out.After = after
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Variable Occurrences
// ----------------------------------------------------------------------------

// walkVarValue handles a variable leaf in value or guard position.
func (w *walker) walkVarValue(v *ast.VarExpr, role Role) (ast.Expr, error) {
	switch Classify(v.Name, role) {
	case OccPassthrough:
		return w.passthrough(v), nil

	case OccReference:
		base := ast.BaseName(v.Name)
		counter, ok := w.scopes.Lookup(base)
		if !ok {
			return nil, w.errf(UnboundSequentialVariable, base, v.Loc)
		}
		return w.synthesize(v, base, counter), nil

	case OccBareMatch:
		if !w.marked[v.Name] {
			return v, nil // ordinary variable, not ours
		}
		counter, ok := w.scopes.Lookup(v.Name)
		if !ok {
			return nil, w.errf(UnboundSequentialVariable, v.Name, v.Loc)
		}
		return w.synthesize(v, v.Name, counter), nil
	}

	// OccBinding cannot be produced for value roles.
	return v, nil
}

// walkPattern walks a pattern-position expression. Marked variables bind;
// alias sub-patterns bind on both sides (this is how a marked variable
// holding a whole structured argument still binds in a clause head).
func (w *walker) walkPattern(e ast.Expr, role Role) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.VarExpr:
		return w.walkVarPattern(n, role)

	case *ast.MatchExpr:
		pattern, err := w.walkPattern(n.Pattern, role)
		if err != nil {
			return nil, err
		}
		value, err := w.walkPattern(n.Value, role)
		if err != nil {
			return nil, err
		}
		return &ast.MatchExpr{Loc: n.Loc, Pattern: pattern, Value: value}, nil

	case *ast.TupleExpr:
		out := &ast.TupleExpr{Loc: n.Loc}
		for _, elem := range n.Elems {
			rewritten, err := w.walkPattern(elem, role)
			if err != nil {
				return nil, err
			}
			out.Elems = append(out.Elems, rewritten)
		}
		return out, nil

	case *ast.ListExpr:
		out := &ast.ListExpr{Loc: n.Loc}
		for _, elem := range n.Elems {
			rewritten, err := w.walkPattern(elem, role)
			if err != nil {
				return nil, err
			}
			out.Elems = append(out.Elems, rewritten)
		}
		if n.Tail != nil {
			tail, err := w.walkPattern(n.Tail, role)
			if err != nil {
				return nil, err
			}
			out.Tail = tail
		}
		return out, nil

	case *ast.RecordExpr:
		out := &ast.RecordExpr{Loc: n.Loc, Name: n.Name}
		for _, field := range n.Fields {
			value, err := w.walkPattern(field.Value, role)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, ast.RecordField{Loc: field.Loc, Name: field.Name, Value: value})
		}
		return out, nil

	case *ast.BinaryExpr:
		left, err := w.walkPattern(n.Left, role)
		if err != nil {
			return nil, err
		}
		right, err := w.walkPattern(n.Right, role)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Loc: n.Loc, Op: n.Op, Left: left, Right: right}, nil

	case *ast.UnaryExpr:
		operand, err := w.walkPattern(n.Operand, role)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Loc: n.Loc, Op: n.Op, Operand: operand}, nil

	case *ast.CallExpr:
		if isLetBlock(n) {
			return nil, w.errf(MalformedLetBlock, "", n.Loc)
		}
		return e, nil

	case *ast.AtomExpr, *ast.LiteralExpr:
		return e, nil

	default:
		return e, nil
	}
}

// walkVarPattern handles a variable leaf in pattern position.
func (w *walker) walkVarPattern(v *ast.VarExpr, role Role) (ast.Expr, error) {
	switch Classify(v.Name, role) {
	case OccPassthrough:
		return w.passthrough(v), nil

	case OccBinding:
		base := ast.BaseName(v.Name)
		counter := w.scopes.Bind(base)
		return w.synthesize(v, base, counter), nil

	case OccBareMatch:
		if !w.marked[v.Name] {
			return v, nil // ordinary variable, binds by host semantics
		}
		counter, ok := w.scopes.Lookup(v.Name)
		if !ok {
			// First occurrence of a name that is marked elsewhere, given
			// without the marker in a spot that would create a binding.
			return nil, w.errf(ConflictingRedeclaration, v.Name, v.Loc)
		}
		// Value-equality match against the current version.
		return w.synthesize(v, v.Name, counter), nil
	}

	return v, nil
}

// synthesize builds the versioned leaf for an occurrence and records the
// reverse mapping for the debug collaborator.
func (w *walker) synthesize(old *ast.VarExpr, base string, counter int) *ast.VarExpr {
	versioned := ast.VersionedName(base, counter)
	w.names.record(w.id, versioned, NameOrigin{Base: base, Counter: counter})
	return synthVar(old, versioned)
}

// passthrough emits an explicit Base@N occurrence unchanged while keeping
// the counter state and reverse map consistent with it.
func (w *walker) passthrough(v *ast.VarExpr) ast.Expr {
	base, counter, _ := ast.SplitVersioned(v.Name)
	w.scopes.Set(base, counter)
	w.names.record(w.id, v.Name, NameOrigin{Base: base, Counter: counter})
	return v
}

// ----------------------------------------------------------------------------
// Marked-Name Prescan
// ----------------------------------------------------------------------------

// collectMarked gathers every base name that appears with the marker
// anywhere in the function. Suffix-dropped occurrences of these names are
// value-equality matches rather than ordinary variables.
func collectMarked(fn *ast.FuncDecl) map[string]bool {
	marked := make(map[string]bool)
	for _, clause := range fn.Clauses {
		collectMarkedClause(clause, marked)
	}
	return marked
}

func collectMarkedClause(clause *ast.Clause, marked map[string]bool) {
	for _, p := range clause.Patterns {
		collectMarkedExpr(p, marked)
	}
	for _, g := range clause.Guard {
		collectMarkedExpr(g, marked)
	}
	for _, e := range clause.Body {
		collectMarkedExpr(e, marked)
	}
}

func collectMarkedExpr(e ast.Expr, marked map[string]bool) {
	switch n := e.(type) {
	case *ast.VarExpr:
		if ast.IsMarked(n.Name) {
			marked[ast.BaseName(n.Name)] = true
		}
	case *ast.MatchExpr:
		collectMarkedExpr(n.Pattern, marked)
		collectMarkedExpr(n.Value, marked)
	case *ast.TupleExpr:
		for _, elem := range n.Elems {
			collectMarkedExpr(elem, marked)
		}
	case *ast.ListExpr:
		for _, elem := range n.Elems {
			collectMarkedExpr(elem, marked)
		}
		if n.Tail != nil {
			collectMarkedExpr(n.Tail, marked)
		}
	case *ast.RecordExpr:
		for _, field := range n.Fields {
			collectMarkedExpr(field.Value, marked)
		}
	case *ast.BinaryExpr:
		collectMarkedExpr(n.Left, marked)
		collectMarkedExpr(n.Right, marked)
	case *ast.UnaryExpr:
		collectMarkedExpr(n.Operand, marked)
	case *ast.CallExpr:
		for _, arg := range n.Args {
			collectMarkedExpr(arg, marked)
		}
	case *ast.CaseExpr:
		collectMarkedExpr(n.Discriminant, marked)
		for _, clause := range n.Clauses {
			collectMarkedClause(clause, marked)
		}
	case *ast.IfExpr:
		for _, clause := range n.Clauses {
			collectMarkedClause(clause, marked)
		}
	case *ast.ReceiveExpr:
		for _, clause := range n.Clauses {
			collectMarkedClause(clause, marked)
		}
		if n.After != nil {
			collectMarkedExpr(n.After.Timeout, marked)
			for _, e := range n.After.Body {
				collectMarkedExpr(e, marked)
			}
		}
	case *ast.TryExpr:
		for _, e := range n.Body {
			collectMarkedExpr(e, marked)
		}
		for _, clause := range n.OfClauses {
			collectMarkedClause(clause, marked)
		}
		for _, clause := range n.CatchClauses {
			collectMarkedClause(clause, marked)
		}
		for _, e := range n.After {
			collectMarkedExpr(e, marked)
		}
	case *ast.FunExpr:
		for _, clause := range n.Clauses {
			collectMarkedClause(clause, marked)
		}
	}
}
