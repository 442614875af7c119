package rewriter

import "github.com/varmark/rebind/internal/ast"

// ----------------------------------------------------------------------------
// Let Block
// ----------------------------------------------------------------------------

// LetBlockName is the call form that opens a scoped rebinding block.
const LetBlockName = "let@"

// isLetBlock reports whether a call node is the let@ macro: a local call
// whose callee is the literal let@ atom. A remote call or computed callee
// is never the macro.
func isLetBlock(call *ast.CallExpr) bool {
	if call.Module != nil {
		return false
	}
	atom, ok := call.Func.(*ast.AtomExpr)
	return ok && atom.Name == LetBlockName
}

// expandLetBlock rewrites the expressions of a let@ block under their own
// frame. Rebindings inside the block shadow the enclosing counters and are
// discarded on exit; the block evaluates to its last expression by host
// semantics. The call shape itself is preserved in the output.
func (w *walker) expandLetBlock(call *ast.CallExpr) (ast.Expr, error) {
	if len(call.Args) == 0 {
		return nil, w.errf(MalformedLetBlock, "", call.Loc)
	}

	w.scopes.Push()
	defer w.scopes.Pop()

	out := &ast.CallExpr{Loc: call.Loc, Func: call.Func}
	for _, arg := range call.Args {
		rewritten, err := w.walkExpr(arg, RoleValue)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, rewritten)
	}
	return out, nil
}
