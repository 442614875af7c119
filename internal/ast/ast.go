// Package ast defines the tree types for the Erlang-style source language.
//
// The tree is designed to be:
// - Complete: represents every construct the rewriter must traverse
// - Immutable in spirit: transformation passes rebuild nodes, never mutate
// - Position-preserving: every node keeps its original offset and line
//
// The node set is a closed tagged-variant type; walkers that meet a node
// kind they do not recognize pass it through unchanged.
package ast

import "github.com/varmark/rebind/internal/lexer"

// ----------------------------------------------------------------------------
// Source Location
// ----------------------------------------------------------------------------

// Loc represents a location in source code.
type Loc struct {
	Start int32 // byte offset of start
	Line  int32 // 1-based source line
}

// ----------------------------------------------------------------------------
// Module (Top Level)
// ----------------------------------------------------------------------------

// Module represents one compilation unit.
type Module struct {
	// Source information
	Source     string // original source text
	SourcePath string // file path (for error messages)

	// Declared module name, from the -module(name) attribute if present.
	Name string

	// Function definitions in source order.
	Functions []*FuncDecl
}

// FuncDecl represents a function definition with one or more clauses.
type FuncDecl struct {
	Loc     Loc
	Name    string
	Arity   int
	Clauses []*Clause
}

// Clause is one guarded alternative of a function, fun, case, receive,
// try-of, or catch construct. For if clauses, Patterns is empty.
type Clause struct {
	Loc      Loc
	Patterns []Expr
	Guard    []Expr // conjunction; empty means no guard
	Body     []Expr
}

// AfterClause is the timeout arm of a receive expression.
type AfterClause struct {
	Loc     Loc
	Timeout Expr
	Body    []Expr
}

// RecordField is one field = value pair in a record pattern or construction.
type RecordField struct {
	Loc   Loc
	Name  string
	Value Expr
}

// ----------------------------------------------------------------------------
// Expressions and Patterns
// ----------------------------------------------------------------------------

// Expr represents an expression or pattern node.
type Expr interface {
	isExpr()
	Pos() Loc
}

// VarExpr represents a variable occurrence, in pattern or value position.
type VarExpr struct {
	Loc  Loc
	Name string
}

func (*VarExpr) isExpr() {}

// AtomExpr represents an atom.
type AtomExpr struct {
	Loc  Loc
	Name string
}

func (*AtomExpr) isExpr() {}

// LiteralExpr represents an integer, float, or string literal.
type LiteralExpr struct {
	Loc  Loc
	Kind lexer.TokenKind
	Text string // raw literal text
}

func (*LiteralExpr) isExpr() {}

// TupleExpr represents {E1, ..., En}.
type TupleExpr struct {
	Loc   Loc
	Elems []Expr
}

func (*TupleExpr) isExpr() {}

// ListExpr represents [E1, ..., En | Tail]. Tail is nil for a proper list.
type ListExpr struct {
	Loc   Loc
	Elems []Expr
	Tail  Expr
}

func (*ListExpr) isExpr() {}

// RecordExpr represents #name{field = V, ...}.
type RecordExpr struct {
	Loc    Loc
	Name   string
	Fields []RecordField
}

func (*RecordExpr) isExpr() {}

// MatchExpr represents Pattern = Value. In pattern position it is an alias
// pattern and both sides are patterns.
type MatchExpr struct {
	Loc     Loc
	Pattern Expr
	Value   Expr
}

func (*MatchExpr) isExpr() {}

// CallExpr represents f(Args) or m:f(Args).
type CallExpr struct {
	Loc    Loc
	Module Expr // nil for local calls
	Func   Expr
	Args   []Expr
}

func (*CallExpr) isExpr() {}

// CaseExpr represents case E of Clauses end.
type CaseExpr struct {
	Loc          Loc
	Discriminant Expr
	Clauses      []*Clause
}

func (*CaseExpr) isExpr() {}

// IfExpr represents if GuardClauses end.
type IfExpr struct {
	Loc     Loc
	Clauses []*Clause
}

func (*IfExpr) isExpr() {}

// ReceiveExpr represents receive Clauses [after E -> Body] end.
type ReceiveExpr struct {
	Loc     Loc
	Clauses []*Clause
	After   *AfterClause // nil if absent
}

func (*ReceiveExpr) isExpr() {}

// TryExpr represents try Body [of Clauses] catch CatchClauses [after Body] end.
type TryExpr struct {
	Loc          Loc
	Body         []Expr
	OfClauses    []*Clause
	CatchClauses []*Clause
	After        []Expr
}

func (*TryExpr) isExpr() {}

// FunExpr represents an anonymous function literal with one or more clauses.
type FunExpr struct {
	Loc     Loc
	Clauses []*Clause
}

func (*FunExpr) isExpr() {}

// BinaryExpr represents a binary operation.
type BinaryExpr struct {
	Loc   Loc
	Op    lexer.TokenKind
	Left  Expr
	Right Expr
}

func (*BinaryExpr) isExpr() {}

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	Loc     Loc
	Op      lexer.TokenKind
	Operand Expr
}

func (*UnaryExpr) isExpr() {}

// Pos implementations.
func (e *VarExpr) Pos() Loc     { return e.Loc }
func (e *AtomExpr) Pos() Loc    { return e.Loc }
func (e *LiteralExpr) Pos() Loc { return e.Loc }
func (e *TupleExpr) Pos() Loc   { return e.Loc }
func (e *ListExpr) Pos() Loc    { return e.Loc }
func (e *RecordExpr) Pos() Loc  { return e.Loc }
func (e *MatchExpr) Pos() Loc   { return e.Loc }
func (e *CallExpr) Pos() Loc    { return e.Loc }
func (e *CaseExpr) Pos() Loc    { return e.Loc }
func (e *IfExpr) Pos() Loc      { return e.Loc }
func (e *ReceiveExpr) Pos() Loc { return e.Loc }
func (e *TryExpr) Pos() Loc     { return e.Loc }
func (e *FunExpr) Pos() Loc     { return e.Loc }
func (e *BinaryExpr) Pos() Loc  { return e.Loc }
func (e *UnaryExpr) Pos() Loc   { return e.Loc }
