package rewriter

import "github.com/varmark/rebind/internal/ast"

// ----------------------------------------------------------------------------
// Tree Synthesis Helpers
// ----------------------------------------------------------------------------

// synthVar builds a renamed variable leaf at the original location.
func synthVar(old *ast.VarExpr, name string) *ast.VarExpr {
	return &ast.VarExpr{Loc: old.Loc, Name: name}
}

// StripVersions replaces every versioned variable Base@N with the marked
// form Base@, everywhere in the module. Re-running the rewrite over the
// stripped tree must reproduce a tree isomorphic to the original rewrite;
// round-trip tests and the debug tooling rely on this.
func StripVersions(module *ast.Module) *ast.Module {
	out := &ast.Module{
		Source:     module.Source,
		SourcePath: module.SourcePath,
		Name:       module.Name,
	}
	for _, fn := range module.Functions {
		stripped := &ast.FuncDecl{Loc: fn.Loc, Name: fn.Name, Arity: fn.Arity}
		for _, clause := range fn.Clauses {
			stripped.Clauses = append(stripped.Clauses, stripClause(clause))
		}
		out.Functions = append(out.Functions, stripped)
	}
	return out
}

func stripClause(clause *ast.Clause) *ast.Clause {
	out := &ast.Clause{Loc: clause.Loc}
	for _, p := range clause.Patterns {
		out.Patterns = append(out.Patterns, stripExpr(p))
	}
	for _, g := range clause.Guard {
		out.Guard = append(out.Guard, stripExpr(g))
	}
	for _, e := range clause.Body {
		out.Body = append(out.Body, stripExpr(e))
	}
	return out
}

func stripClauses(clauses []*ast.Clause) []*ast.Clause {
	out := make([]*ast.Clause, 0, len(clauses))
	for _, clause := range clauses {
		out = append(out, stripClause(clause))
	}
	return out
}

func stripExprs(list []ast.Expr) []ast.Expr {
	out := make([]ast.Expr, 0, len(list))
	for _, e := range list {
		out = append(out, stripExpr(e))
	}
	return out
}

func stripExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.VarExpr:
		if base, _, ok := ast.SplitVersioned(n.Name); ok {
			return &ast.VarExpr{Loc: n.Loc, Name: base + ast.Marker}
		}
		return n
	case *ast.MatchExpr:
		return &ast.MatchExpr{Loc: n.Loc, Pattern: stripExpr(n.Pattern), Value: stripExpr(n.Value)}
	case *ast.TupleExpr:
		return &ast.TupleExpr{Loc: n.Loc, Elems: stripExprs(n.Elems)}
	case *ast.ListExpr:
		out := &ast.ListExpr{Loc: n.Loc, Elems: stripExprs(n.Elems)}
		if n.Tail != nil {
			out.Tail = stripExpr(n.Tail)
		}
		return out
	case *ast.RecordExpr:
		out := &ast.RecordExpr{Loc: n.Loc, Name: n.Name}
		for _, field := range n.Fields {
			out.Fields = append(out.Fields, ast.RecordField{Loc: field.Loc, Name: field.Name, Value: stripExpr(field.Value)})
		}
		return out
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Loc: n.Loc, Op: n.Op, Left: stripExpr(n.Left), Right: stripExpr(n.Right)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Loc: n.Loc, Op: n.Op, Operand: stripExpr(n.Operand)}
	case *ast.CallExpr:
		out := &ast.CallExpr{Loc: n.Loc, Module: n.Module, Func: n.Func, Args: stripExprs(n.Args)}
		return out
	case *ast.CaseExpr:
		return &ast.CaseExpr{Loc: n.Loc, Discriminant: stripExpr(n.Discriminant), Clauses: stripClauses(n.Clauses)}
	case *ast.IfExpr:
		return &ast.IfExpr{Loc: n.Loc, Clauses: stripClauses(n.Clauses)}
	case *ast.ReceiveExpr:
		out := &ast.ReceiveExpr{Loc: n.Loc, Clauses: stripClauses(n.Clauses)}
		if n.After != nil {
			out.After = &ast.AfterClause{
				Loc:     n.After.Loc,
				Timeout: stripExpr(n.After.Timeout),
				Body:    stripExprs(n.After.Body),
			}
		}
		return out
	case *ast.TryExpr:
		return &ast.TryExpr{
			Loc:          n.Loc,
			Body:         stripExprs(n.Body),
			OfClauses:    stripClauses(n.OfClauses),
			CatchClauses: stripClauses(n.CatchClauses),
			After:        stripExprs(n.After),
		}
	case *ast.FunExpr:
		return &ast.FunExpr{Loc: n.Loc, Clauses: stripClauses(n.Clauses)}
	default:
		return e
	}
}

// ----------------------------------------------------------------------------
// Structural Comparison
// ----------------------------------------------------------------------------

// IsomorphicModules reports whether two modules have identical structure:
// same functions, clause shapes, and node kinds, with variable spellings
// compared exactly. Rewriting changes only variable spellings, so a
// rewritten tree compared against another rewrite of the same input must
// be isomorphic in this sense.
func IsomorphicModules(a, b *ast.Module) bool {
	if a.Name != b.Name || len(a.Functions) != len(b.Functions) {
		return false
	}
	for i := range a.Functions {
		fa, fb := a.Functions[i], b.Functions[i]
		if fa.Name != fb.Name || fa.Arity != fb.Arity || len(fa.Clauses) != len(fb.Clauses) {
			return false
		}
		for j := range fa.Clauses {
			if !isomorphicClause(fa.Clauses[j], fb.Clauses[j]) {
				return false
			}
		}
	}
	return true
}

func isomorphicClause(a, b *ast.Clause) bool {
	return isomorphicList(a.Patterns, b.Patterns) &&
		isomorphicList(a.Guard, b.Guard) &&
		isomorphicList(a.Body, b.Body)
}

func isomorphicClauses(a, b []*ast.Clause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !isomorphicClause(a[i], b[i]) {
			return false
		}
	}
	return true
}

func isomorphicList(a, b []ast.Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Isomorphic(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Isomorphic compares two expressions structurally, including variable
// spellings.
func Isomorphic(a, b ast.Expr) bool {
	switch x := a.(type) {
	case *ast.VarExpr:
		y, ok := b.(*ast.VarExpr)
		return ok && x.Name == y.Name
	case *ast.AtomExpr:
		y, ok := b.(*ast.AtomExpr)
		return ok && x.Name == y.Name
	case *ast.LiteralExpr:
		y, ok := b.(*ast.LiteralExpr)
		return ok && x.Kind == y.Kind && x.Text == y.Text
	case *ast.MatchExpr:
		y, ok := b.(*ast.MatchExpr)
		return ok && Isomorphic(x.Pattern, y.Pattern) && Isomorphic(x.Value, y.Value)
	case *ast.TupleExpr:
		y, ok := b.(*ast.TupleExpr)
		return ok && isomorphicList(x.Elems, y.Elems)
	case *ast.ListExpr:
		y, ok := b.(*ast.ListExpr)
		if !ok || !isomorphicList(x.Elems, y.Elems) {
			return false
		}
		if (x.Tail == nil) != (y.Tail == nil) {
			return false
		}
		return x.Tail == nil || Isomorphic(x.Tail, y.Tail)
	case *ast.RecordExpr:
		y, ok := b.(*ast.RecordExpr)
		if !ok || x.Name != y.Name || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Isomorphic(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	case *ast.BinaryExpr:
		y, ok := b.(*ast.BinaryExpr)
		return ok && x.Op == y.Op && Isomorphic(x.Left, y.Left) && Isomorphic(x.Right, y.Right)
	case *ast.UnaryExpr:
		y, ok := b.(*ast.UnaryExpr)
		return ok && x.Op == y.Op && Isomorphic(x.Operand, y.Operand)
	case *ast.CallExpr:
		y, ok := b.(*ast.CallExpr)
		if !ok || !isomorphicList(x.Args, y.Args) {
			return false
		}
		if (x.Module == nil) != (y.Module == nil) {
			return false
		}
		if x.Module != nil && !Isomorphic(x.Module, y.Module) {
			return false
		}
		return Isomorphic(x.Func, y.Func)
	case *ast.CaseExpr:
		y, ok := b.(*ast.CaseExpr)
		return ok && Isomorphic(x.Discriminant, y.Discriminant) && isomorphicClauses(x.Clauses, y.Clauses)
	case *ast.IfExpr:
		y, ok := b.(*ast.IfExpr)
		return ok && isomorphicClauses(x.Clauses, y.Clauses)
	case *ast.ReceiveExpr:
		y, ok := b.(*ast.ReceiveExpr)
		if !ok || !isomorphicClauses(x.Clauses, y.Clauses) {
			return false
		}
		if (x.After == nil) != (y.After == nil) {
			return false
		}
		if x.After == nil {
			return true
		}
		return Isomorphic(x.After.Timeout, y.After.Timeout) && isomorphicList(x.After.Body, y.After.Body)
	case *ast.TryExpr:
		y, ok := b.(*ast.TryExpr)
		return ok && isomorphicList(x.Body, y.Body) &&
			isomorphicClauses(x.OfClauses, y.OfClauses) &&
			isomorphicClauses(x.CatchClauses, y.CatchClauses) &&
			isomorphicList(x.After, y.After)
	case *ast.FunExpr:
		y, ok := b.(*ast.FunExpr)
		return ok && isomorphicClauses(x.Clauses, y.Clauses)
	default:
		return false
	}
}
