// Package printer renders a source tree back to source text.
//
// The output is canonically formatted rather than byte-preserving: one
// body expression per line, four-space indentation, clauses separated by
// semicolons. Printing a rewritten tree and reparsing it yields the same
// tree, which is what the tooling relies on.
package printer

import (
	"strings"

	"github.com/varmark/rebind/internal/ast"
	"github.com/varmark/rebind/internal/lexer"
)

// Options controls printing.
type Options struct {
	// Indent is the indentation unit. Defaults to four spaces.
	Indent string
}

// Printer renders modules to text.
type Printer struct {
	sb     strings.Builder
	indent string
	depth  int
}

// New creates a printer with the given options.
func New(opts Options) *Printer {
	indent := opts.Indent
	if indent == "" {
		indent = "    "
	}
	return &Printer{indent: indent}
}

// Print renders a whole module.
func (p *Printer) Print(module *ast.Module) string {
	p.sb.Reset()
	p.depth = 0

	if module.Name != "" {
		p.sb.WriteString("-module(")
		p.sb.WriteString(module.Name)
		p.sb.WriteString(").\n")
	}
	for i, fn := range module.Functions {
		if i > 0 || module.Name != "" {
			p.sb.WriteByte('\n')
		}
		p.printFunction(fn)
	}
	return p.sb.String()
}

// PrintExpr renders a single expression on one logical block.
func (p *Printer) PrintExpr(e ast.Expr) string {
	p.sb.Reset()
	p.depth = 0
	p.printExpr(e, precNone)
	return p.sb.String()
}

// ----------------------------------------------------------------------------
// Forms
// ----------------------------------------------------------------------------

func (p *Printer) printFunction(fn *ast.FuncDecl) {
	for i, clause := range fn.Clauses {
		if i > 0 {
			p.sb.WriteString(";\n")
		}
		p.sb.WriteString(fn.Name)
		p.sb.WriteByte('(')
		p.printExprList(clause.Patterns)
		p.sb.WriteByte(')')
		p.printGuard(clause.Guard)
		p.sb.WriteString(" ->")
		p.printBody(clause.Body)
	}
	p.sb.WriteString(".\n")
}

func (p *Printer) printGuard(guard []ast.Expr) {
	if len(guard) == 0 {
		return
	}
	p.sb.WriteString(" when ")
	p.printExprList(guard)
}

// printBody emits each expression on its own indented line.
func (p *Printer) printBody(body []ast.Expr) {
	p.depth++
	for i, e := range body {
		if i > 0 {
			p.sb.WriteByte(',')
		}
		p.newline()
		p.printExpr(e, precNone)
	}
	p.depth--
}

func (p *Printer) newline() {
	p.sb.WriteByte('\n')
	for i := 0; i < p.depth; i++ {
		p.sb.WriteString(p.indent)
	}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Precedence levels mirror the parser's descent chain. A child printed in
// a slot of higher minimum precedence gets parenthesized.
const (
	precNone = iota
	precMatch
	precOrelse
	precAndalso
	precCompare
	precAdd
	precMul
	precUnary
)

func binaryPrec(op lexer.TokenKind) int {
	switch op {
	case lexer.TokOrelse, lexer.TokOr:
		return precOrelse
	case lexer.TokAndalso, lexer.TokAnd:
		return precAndalso
	case lexer.TokEqEq, lexer.TokNeq, lexer.TokLe, lexer.TokGe,
		lexer.TokLt, lexer.TokGt, lexer.TokExactEq, lexer.TokExactNeq:
		return precCompare
	case lexer.TokPlus, lexer.TokMinus, lexer.TokPlusPlus, lexer.TokMinusMinus:
		return precAdd
	default:
		return precMul
	}
}

func (p *Printer) printExpr(e ast.Expr, min int) {
	switch n := e.(type) {
	case *ast.VarExpr:
		p.sb.WriteString(n.Name)

	case *ast.AtomExpr:
		p.sb.WriteString(n.Name)

	case *ast.LiteralExpr:
		p.sb.WriteString(n.Text)

	case *ast.MatchExpr:
		if min > precMatch {
			p.sb.WriteByte('(')
		}
		p.printExpr(n.Pattern, precMatch+1)
		p.sb.WriteString(" = ")
		p.printExpr(n.Value, precMatch) // right-associative
		if min > precMatch {
			p.sb.WriteByte(')')
		}

	case *ast.BinaryExpr:
		prec := binaryPrec(n.Op)
		if min > prec {
			p.sb.WriteByte('(')
		}
		p.printExpr(n.Left, prec)
		p.sb.WriteByte(' ')
		p.sb.WriteString(n.Op.String())
		p.sb.WriteByte(' ')
		p.printExpr(n.Right, prec+1)
		if min > prec {
			p.sb.WriteByte(')')
		}

	case *ast.UnaryExpr:
		if min > precUnary {
			p.sb.WriteByte('(')
		}
		p.sb.WriteString(n.Op.String())
		if n.Op != lexer.TokMinus {
			p.sb.WriteByte(' ')
		} else if inner, ok := n.Operand.(*ast.UnaryExpr); ok && inner.Op == lexer.TokMinus {
			// A nested minus must not fuse into the -- operator.
			p.sb.WriteByte(' ')
		}
		p.printExpr(n.Operand, precUnary)
		if min > precUnary {
			p.sb.WriteByte(')')
		}

	case *ast.TupleExpr:
		p.sb.WriteByte('{')
		p.printExprList(n.Elems)
		p.sb.WriteByte('}')

	case *ast.ListExpr:
		p.sb.WriteByte('[')
		p.printExprList(n.Elems)
		if n.Tail != nil {
			p.sb.WriteString(" | ")
			p.printExpr(n.Tail, precNone)
		}
		p.sb.WriteByte(']')

	case *ast.RecordExpr:
		p.sb.WriteByte('#')
		p.sb.WriteString(n.Name)
		p.sb.WriteByte('{')
		for i, field := range n.Fields {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.sb.WriteString(field.Name)
			p.sb.WriteString(" = ")
			p.printExpr(field.Value, precMatch+1)
		}
		p.sb.WriteByte('}')

	case *ast.CallExpr:
		if n.Module != nil {
			p.printExpr(n.Module, precUnary)
			p.sb.WriteByte(':')
		}
		p.printExpr(n.Func, precUnary)
		p.sb.WriteByte('(')
		p.printExprList(n.Args)
		p.sb.WriteByte(')')

	case *ast.CaseExpr:
		p.sb.WriteString("case ")
		p.printExpr(n.Discriminant, precNone)
		p.sb.WriteString(" of")
		p.printClauses(n.Clauses, true)
		p.newline()
		p.sb.WriteString("end")

	case *ast.IfExpr:
		p.sb.WriteString("if")
		p.printClauses(n.Clauses, false)
		p.newline()
		p.sb.WriteString("end")

	case *ast.ReceiveExpr:
		p.sb.WriteString("receive")
		p.printClauses(n.Clauses, true)
		if n.After != nil {
			p.newline()
			p.sb.WriteString("after ")
			p.printExpr(n.After.Timeout, precNone)
			p.sb.WriteString(" ->")
			p.printBody(n.After.Body)
		}
		p.newline()
		p.sb.WriteString("end")

	case *ast.TryExpr:
		p.sb.WriteString("try")
		p.printBody(n.Body)
		if len(n.OfClauses) > 0 {
			p.newline()
			p.sb.WriteString("of")
			p.printClauses(n.OfClauses, true)
		}
		if len(n.CatchClauses) > 0 {
			p.newline()
			p.sb.WriteString("catch")
			p.printClauses(n.CatchClauses, true)
		}
		if len(n.After) > 0 {
			p.newline()
			p.sb.WriteString("after")
			p.printBody(n.After)
		}
		p.newline()
		p.sb.WriteString("end")

	case *ast.FunExpr:
		p.sb.WriteString("fun")
		for i, clause := range n.Clauses {
			if i > 0 {
				p.sb.WriteByte(';')
			}
			p.sb.WriteByte('(')
			p.printExprList(clause.Patterns)
			p.sb.WriteByte(')')
			p.printGuard(clause.Guard)
			p.sb.WriteString(" ->")
			p.printBody(clause.Body)
		}
		p.sb.WriteByte(' ')
		p.sb.WriteString("end")
	}
}

func (p *Printer) printExprList(list []ast.Expr) {
	for i, e := range list {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		p.printExpr(e, precNone)
	}
}

// printClauses renders pattern clauses. withPatterns is false for if
// clauses, which carry only guards.
func (p *Printer) printClauses(clauses []*ast.Clause, withPatterns bool) {
	p.depth++
	for i, clause := range clauses {
		if i > 0 {
			p.sb.WriteByte(';')
		}
		p.newline()
		if withPatterns {
			p.printExprList(clause.Patterns)
			if len(clause.Guard) > 0 {
				p.sb.WriteString(" when ")
				p.printExprList(clause.Guard)
			}
		} else {
			p.printExprList(clause.Guard)
		}
		p.sb.WriteString(" ->")
		p.printBody(clause.Body)
	}
	p.depth--
}

// Print renders a module with default options.
func Print(module *ast.Module) string {
	return New(Options{}).Print(module)
}
