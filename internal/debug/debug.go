// Package debug provides inspection tooling for rewritten modules: an
// annotated listing that explains every versioned name, and a positional
// index that maps byte offsets back to the enclosing function and the
// versioned variable occupying that spot.
package debug

import (
	"fmt"
	"strings"

	"github.com/varmark/rebind/internal/ast"
	"github.com/varmark/rebind/internal/printer"
	"github.com/varmark/rebind/internal/rewriter"
)

// ----------------------------------------------------------------------------
// Annotated Listing
// ----------------------------------------------------------------------------

// Annotate renders the rewritten module with a comment block per function
// listing every versioned name and its origin. The output stays valid
// source: annotations are ordinary line comments.
func Annotate(module *ast.Module, names *rewriter.NameMap) string {
	var sb strings.Builder
	pr := printer.New(printer.Options{})

	for i, fn := range module.Functions {
		if i > 0 {
			sb.WriteByte('\n')
		}
		id := rewriter.FuncID{Module: module.Name, Name: fn.Name, Arity: fn.Arity}
		sb.WriteString("%% ")
		sb.WriteString(id.String())
		sb.WriteByte('\n')

		one := &ast.Module{Functions: []*ast.FuncDecl{fn}}
		sb.WriteString(pr.Print(one))

		for _, versioned := range names.Names(id) {
			origin, _ := names.Origin(id, versioned)
			sb.WriteString(fmt.Sprintf("%%%%   %s = %s, version %d\n", versioned, origin.Base, origin.Counter))
		}
	}
	return sb.String()
}

// AnnotateFunction renders the listing for a single function, identified
// by name and arity. Returns false if the module has no such function.
func AnnotateFunction(module *ast.Module, names *rewriter.NameMap, name string, arity int) (string, bool) {
	for _, fn := range module.Functions {
		if fn.Name != name || fn.Arity != arity {
			continue
		}
		one := &ast.Module{Name: module.Name, Functions: []*ast.FuncDecl{fn}}
		return Annotate(one, names), true
	}
	return "", false
}
