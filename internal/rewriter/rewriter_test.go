package rewriter

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirkon/deepequal"
	"github.com/varmark/rebind/internal/ast"
	"github.com/varmark/rebind/internal/parser"
)

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func parseModule(t *testing.T, src string) *ast.Module {
	t.Helper()
	m, errs := parser.New(src).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return m
}

func rewriteSource(t *testing.T, src string) (*ast.Module, *NameMap) {
	t.Helper()
	out, names, err := Rewrite(parseModule(t, src))
	if err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	return out, names
}

func rewriteError(t *testing.T, src string) *Error {
	t.Helper()
	_, _, err := Rewrite(parseModule(t, src))
	if err == nil {
		t.Fatal("rewrite succeeded, want error")
	}
	var rwErr *Error
	if !errors.As(err, &rwErr) {
		t.Fatalf("unexpected error type: %T", err)
	}
	return rwErr
}

// collectVars gathers variable names in source order from a function.
func collectVars(fn *ast.FuncDecl) []string {
	var names []string
	var visitExpr func(e ast.Expr)
	visitClause := func(c *ast.Clause) {
		for _, p := range c.Patterns {
			visitExpr(p)
		}
		for _, g := range c.Guard {
			visitExpr(g)
		}
		for _, e := range c.Body {
			visitExpr(e)
		}
	}
	visitExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.VarExpr:
			names = append(names, n.Name)
		case *ast.MatchExpr:
			visitExpr(n.Pattern)
			visitExpr(n.Value)
		case *ast.TupleExpr:
			for _, elem := range n.Elems {
				visitExpr(elem)
			}
		case *ast.ListExpr:
			for _, elem := range n.Elems {
				visitExpr(elem)
			}
			if n.Tail != nil {
				visitExpr(n.Tail)
			}
		case *ast.RecordExpr:
			for _, field := range n.Fields {
				visitExpr(field.Value)
			}
		case *ast.BinaryExpr:
			visitExpr(n.Left)
			visitExpr(n.Right)
		case *ast.UnaryExpr:
			visitExpr(n.Operand)
		case *ast.CallExpr:
			for _, arg := range n.Args {
				visitExpr(arg)
			}
		case *ast.CaseExpr:
			visitExpr(n.Discriminant)
			for _, clause := range n.Clauses {
				visitClause(clause)
			}
		case *ast.IfExpr:
			for _, clause := range n.Clauses {
				visitClause(clause)
			}
		case *ast.ReceiveExpr:
			for _, clause := range n.Clauses {
				visitClause(clause)
			}
			if n.After != nil {
				visitExpr(n.After.Timeout)
				for _, e := range n.After.Body {
					visitExpr(e)
				}
			}
		case *ast.TryExpr:
			for _, e := range n.Body {
				visitExpr(e)
			}
			for _, clause := range n.OfClauses {
				visitClause(clause)
			}
			for _, clause := range n.CatchClauses {
				visitClause(clause)
			}
			for _, e := range n.After {
				visitExpr(e)
			}
		case *ast.FunExpr:
			for _, clause := range n.Clauses {
				visitClause(clause)
			}
		}
	}
	for _, clause := range fn.Clauses {
		visitClause(clause)
	}
	return names
}

func wantVars(t *testing.T, fn *ast.FuncDecl, want ...string) {
	t.Helper()
	got := collectVars(fn)
	if len(got) != len(want) {
		t.Fatalf("variable sequence mismatch:\n  got  %v\n  want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("variable %d: got %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

// ----------------------------------------------------------------------------
// Core Renaming
// ----------------------------------------------------------------------------

func TestClauseHeadAndRebindings(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
handle(Req@) ->
    Req@ = validate(Req@),
    Req@ = authorize(Req@),
    respond(Req@).
`)
	wantVars(t, out.Functions[0],
		"Req@0",         // clause head binding
		"Req@1", "Req@0", // first rebind: pattern, then value reference
		"Req@2", "Req@1", // second rebind
		"Req@2", // final reference
	)
}

func TestValueSideResolvesBeforePattern(t *testing.T) {
	// The right side of a match must see pre-match counters even though
	// the pattern occurs first in source order.
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    X@ = {X@, X@},
    X@.
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0", "X@0",
		"X@1",
	)
}

func TestMultipleSequentialVariables(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(A@, B@) ->
    A@ = step(A@, B@),
    B@ = step(B@, A@),
    {A@, B@}.
`)
	wantVars(t, out.Functions[0],
		"A@0", "B@0",
		"A@1", "A@0", "B@0",
		"B@1", "B@0", "A@1",
		"A@1", "B@1",
	)
}

func TestOrdinaryVariablesUntouched(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@, Acc) ->
    X@ = add(X@, Acc),
    {X@, Acc}.
`)
	wantVars(t, out.Functions[0],
		"X@0", "Acc",
		"X@1", "X@0", "Acc",
		"X@1", "Acc",
	)
}

func TestFunctionClausesAreIndependent(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) -> X@ = a(X@), X@;
f(Y@) -> Y@.
`)
	wantVars(t, out.Functions[0],
		"X@0", "X@1", "X@0", "X@1",
		"Y@0", "Y@0",
	)
}

func TestFunctionsAreIndependent(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) -> X@ = a(X@), X@.
g(X@) -> X@.
`)
	wantVars(t, out.Functions[0], "X@0", "X@1", "X@0", "X@1")
	wantVars(t, out.Functions[1], "X@0", "X@0")
}

// ----------------------------------------------------------------------------
// Clause Isolation
// ----------------------------------------------------------------------------

func TestCaseClauseIsolation(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(A@) ->
    A@ = prep(A@),
    case test(A@) of
        ok -> A@ = succeed(A@), done(A@);
        error -> fail(A@)
    end,
    final(A@).
`)
	wantVars(t, out.Functions[0],
		"A@0",
		"A@1", "A@0",
		"A@1",           // discriminant, enclosing frame
		"A@2", "A@1", "A@2", // ok clause: local rebind
		"A@1",           // error clause: sibling frame, unaffected
		"A@1",           // after the construct: pre-construct counter
	)
}

func TestReceiveIsolationAndAfter(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(S@) ->
    receive
        {msg, M} -> S@ = note(S@, M), S@
    after compute(S@) ->
        S@ = tick(S@), S@
    end,
    S@.
`)
	wantVars(t, out.Functions[0],
		"S@0",
		"M", "S@1", "S@0", "M", "S@1", // message clause
		"S@0",                  // timeout expr, enclosing frame
		"S@1", "S@0", "S@1",    // after body, its own frame
		"S@0",                  // past the construct
	)
}

func TestTrySectionsAreIsolated(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    try
        X@ = risky(X@), X@
    of
        ok -> X@
    catch
        Err -> {X@, Err}
    after
        cleanup(X@)
    end,
    X@.
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0", "X@1", // protected body, own frame
		"X@0",               // of clause does not see the body's rebind
		"Err", "X@0", "Err", // catch clause
		"X@0",               // after section
		"X@0",               // past the construct
	)
}

func TestIfClauseIsolation(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(N@) ->
    if
        N@ > 0 -> N@ = dec(N@), N@;
        true -> N@
    end,
    N@.
`)
	wantVars(t, out.Functions[0],
		"N@0",
		"N@0", "N@1", "N@0", "N@1",
		"N@0",
		"N@0",
	)
}

func TestFunClausesIsolated(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    F = fun(Y) -> X@ = bump(X@), X@ end,
    apply_it(F, X@).
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"F", "Y", "X@1", "X@0", "X@1",
		"F", "X@0",
	)
}

func TestNestedConstructsEachFork(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(V@) ->
    case a(V@) of
        ok ->
            case b(V@) of
                yes -> V@ = deep(V@), V@;
                no -> V@
            end,
            V@
    end,
    V@.
`)
	wantVars(t, out.Functions[0],
		"V@0",
		"V@0",               // outer discriminant
		"V@0",               // inner discriminant
		"V@1", "V@0", "V@1", // yes clause
		"V@0",               // no clause
		"V@0",               // after inner case, inside ok clause
		"V@0",               // after outer case
	)
}

// ----------------------------------------------------------------------------
// Let Blocks
// ----------------------------------------------------------------------------

func TestLetBlockScoping(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    let@(X@ = inc(X@), use(X@)),
    outer(X@).
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0", "X@1",
		"X@0",
	)
}

func TestLetBlockNesting(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    let@(
        X@ = a(X@),
        let@(X@ = b(X@), inner(X@)),
        mid(X@)
    ),
    outer(X@).
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0",
		"X@2", "X@1", "X@2", // inner block shadows further
		"X@1",               // back in outer block
		"X@0",               // past both blocks
	)
}

func TestLetBlockShapePreserved(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) -> let@(X@ = inc(X@), X@).
`)
	body := out.Functions[0].Clauses[0].Body
	call, ok := body[0].(*ast.CallExpr)
	if !ok {
		t.Fatalf("let@ block not preserved as call, got %T", body[0])
	}
	atom, ok := call.Func.(*ast.AtomExpr)
	if !ok || atom.Name != LetBlockName {
		t.Fatalf("callee changed: %v", call.Func)
	}
	if len(call.Args) != 2 {
		t.Fatalf("argument count changed: %d", len(call.Args))
	}
}

func TestEmptyLetBlockRejected(t *testing.T) {
	err := rewriteError(t, `
-module(m).
f(X@) -> let@(), X@.
`)
	if err.Kind != MalformedLetBlock {
		t.Fatalf("got %v, want malformed let block", err.Kind)
	}
}

func TestLetBlockInPatternRejected(t *testing.T) {
	err := rewriteError(t, `
-module(m).
f(X@) -> let@(X@) = a, X@.
`)
	if err.Kind != MalformedLetBlock {
		t.Fatalf("got %v, want malformed let block", err.Kind)
	}
}

// ----------------------------------------------------------------------------
// Structural Patterns and Aliases
// ----------------------------------------------------------------------------

func TestRecordAliasInClauseHead(t *testing.T) {
	// The whole alias sits in a clause head, so the marked variable binds.
	out, _ := rewriteSource(t, `
-module(m).
f(#req{id = Id} = Req@) ->
    audit(Id, Req@).
`)
	wantVars(t, out.Functions[0],
		"Id", "Req@0",
		"Id", "Req@0",
	)
}

func TestStructuralMatchAgainstValue(t *testing.T) {
	// In a body match the marked variable on the value side is a plain
	// reference: the record pattern destructures the current version.
	out, _ := rewriteSource(t, `
-module(m).
f(Req@) ->
    Req@ = enrich(Req@),
    #resp{code = Code} = Req@,
    Code.
`)
	wantVars(t, out.Functions[0],
		"Req@0",
		"Req@1", "Req@0",
		"Code", "Req@1",
		"Code",
	)
}

func TestMarkedVariableInsideTuplePattern(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    {ok, X@} = call(X@),
    X@.
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0",
		"X@1",
	)
}

func TestListPatternWithTail(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(L@) ->
    [H | L@] = decode(L@),
    {H, L@}.
`)
	wantVars(t, out.Functions[0],
		"L@0",
		"H", "L@1", "L@0",
		"H", "L@1",
	)
}

// ----------------------------------------------------------------------------
// Bare (Suffix-Dropped) Occurrences
// ----------------------------------------------------------------------------

func TestBareNameIsValueMatch(t *testing.T) {
	// A suffix-dropped occurrence of a name marked elsewhere matches the
	// current version by value rather than creating a fresh binding.
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    X@ = inc(X@),
    case probe() of
        X -> matched;
        other -> no
    end.
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0",
		"X@1", // bare X in the pattern resolves to the current version
	)
}

func TestBareNameInValuePosition(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    X@ = inc(X@),
    report(X).
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0",
		"X@1",
	)
}

func TestBareNameBeforeAnyBindingIsConflict(t *testing.T) {
	err := rewriteError(t, `
-module(m).
f(X) ->
    X@ = start(),
    X@.
`)
	if err.Kind != ConflictingRedeclaration {
		t.Fatalf("got %v, want conflicting redeclaration", err.Kind)
	}
	if err.Base != "X" {
		t.Fatalf("got base %q, want X", err.Base)
	}
}

func TestUnrelatedBareNamesStayOrdinary(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@, Y) ->
    X@ = merge(X@, Y),
    {X@, Y}.
`)
	wantVars(t, out.Functions[0],
		"X@0", "Y",
		"X@1", "X@0", "Y",
		"X@1", "Y",
	)
}

// ----------------------------------------------------------------------------
// Unbound References
// ----------------------------------------------------------------------------

func TestUnboundReferenceFails(t *testing.T) {
	err := rewriteError(t, `
-module(m).
f() -> use(X@).
`)
	if err.Kind != UnboundSequentialVariable {
		t.Fatalf("got %v, want unbound sequential variable", err.Kind)
	}
	if err.Base != "X" {
		t.Fatalf("got base %q, want X", err.Base)
	}
}

func TestUnboundBareValueFails(t *testing.T) {
	err := rewriteError(t, `
-module(m).
f() -> use(X), X@ = a, X@.
`)
	if err.Kind != UnboundSequentialVariable {
		t.Fatalf("got %v, want unbound sequential variable", err.Kind)
	}
}

func TestRebindLeakDoesNotSatisfyLaterReference(t *testing.T) {
	// A rebinding inside a case clause must not make the name visible
	// after the construct if it was unbound before it.
	err := rewriteError(t, `
-module(m).
f(Flag) ->
    case Flag of
        yes -> X@ = a, X@;
        no -> b
    end,
    use(X@).
`)
	if err.Kind != UnboundSequentialVariable {
		t.Fatalf("got %v, want unbound sequential variable", err.Kind)
	}
}

func TestErrorCarriesFunctionIdentity(t *testing.T) {
	err := rewriteError(t, `
-module(m).
f(A, B) -> use(X@).
`)
	if err.Module != "m" || err.Func != "f" || err.Arity != 2 {
		t.Fatalf("wrong identity: %s:%s/%d", err.Module, err.Func, err.Arity)
	}
	msg := err.Error()
	if !strings.Contains(msg, "m:f/2") || !strings.Contains(msg, `"X"`) {
		t.Fatalf("unhelpful message: %s", msg)
	}
}

// ----------------------------------------------------------------------------
// Explicit Versioned Forms
// ----------------------------------------------------------------------------

func TestExplicitVersionPassesThrough(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    debug(X@2),
    X@ = next(X@),
    X@.
`)
	// The explicit X@2 raises the visible counter, so the following
	// rebinding continues past it.
	wantVars(t, out.Functions[0],
		"X@0",
		"X@2",
		"X@3", "X@2",
		"X@3",
	)
}

func TestExplicitVersionDoesNotLowerCounter(t *testing.T) {
	out, _ := rewriteSource(t, `
-module(m).
f(X@) ->
    X@ = a(X@),
    X@ = b(X@),
    debug(X@0),
    X@ = c(X@),
    X@.
`)
	wantVars(t, out.Functions[0],
		"X@0",
		"X@1", "X@0",
		"X@2", "X@1",
		"X@0",
		"X@3", "X@2",
		"X@3",
	)
}

// ----------------------------------------------------------------------------
// Round Trip and Metadata
// ----------------------------------------------------------------------------

func TestStripAndRerewriteIsIsomorphic(t *testing.T) {
	src := `
-module(m).
f(A@, B@) ->
    A@ = step(A@),
    case check(A@) of
        ok -> B@ = fix(B@, A@), B@;
        bad -> B@
    end,
    let@(A@ = last(A@), wrap(A@, B@)),
    {A@, B@}.
`
	first, _ := rewriteSource(t, src)
	stripped := StripVersions(first)
	second, _, err := Rewrite(stripped)
	if err != nil {
		t.Fatalf("second rewrite failed: %v", err)
	}
	if !IsomorphicModules(first, second) {
		deepequal.SideBySide(t, "modules", first, second)
		t.Fatal("strip/re-rewrite round trip diverged")
	}
}

func TestRewriteIsDeterministic(t *testing.T) {
	src := `
-module(m).
f(X@) -> X@ = a(X@), case p(X@) of q -> X@ = r(X@), X@; s -> X@ end.
`
	a, _ := rewriteSource(t, src)
	b, _ := rewriteSource(t, src)
	if !IsomorphicModules(a, b) {
		deepequal.SideBySide(t, "modules", a, b)
		t.Fatal("two rewrites of the same input diverged")
	}
}

func TestNameMapRecordsOrigins(t *testing.T) {
	_, names := rewriteSource(t, `
-module(m).
f(X@) -> X@ = a(X@), X@.
`)
	id := FuncID{Module: "m", Name: "f", Arity: 1}
	got := names.Names(id)
	want := []string{"X@0", "X@1"}
	if len(got) != len(want) {
		t.Fatalf("names: got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("names: got %v, want %v", got, want)
		}
	}

	origin, ok := names.Origin(id, "X@1")
	if !ok {
		t.Fatal("X@1 missing from name map")
	}
	if origin.Base != "X" || origin.Counter != 1 {
		t.Fatalf("wrong origin: %+v", origin)
	}

	fns := names.Functions()
	if len(fns) != 1 || fns[0] != id {
		t.Fatalf("functions: %v", fns)
	}
}

func TestNameMapOrdersByCounterPastTen(t *testing.T) {
	_, names := rewriteSource(t, `
-module(m).
f(X@) ->
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@ = s(X@),
    X@.
`)
	id := FuncID{Module: "m", Name: "f", Arity: 1}
	got := names.Names(id)
	if len(got) != 11 {
		t.Fatalf("names: got %d entries, want 11: %v", len(got), got)
	}
	for i, name := range got {
		if want := ast.VersionedName("X", i); name != want {
			t.Fatalf("names[%d] = %q, want %q (full order: %v)", i, name, want, got)
		}
	}
}

func TestOutputSharesNoStateAcrossRuns(t *testing.T) {
	// The input tree must be left untouched.
	src := `
-module(m).
f(X@) -> X@ = a(X@), X@.
`
	input := parseModule(t, src)
	before := collectVars(input.Functions[0])
	if _, _, err := Rewrite(input); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	after := collectVars(input.Functions[0])
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("input mutated: %v -> %v", before, after)
		}
	}
}
