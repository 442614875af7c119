// Package parser builds the source tree for the Erlang-style language.
//
// It is a hand-written recursive descent parser over the token stream
// produced by the lexer. The grammar covered is the subset the rewriter
// needs: function definition forms, match expressions, case/if/receive/try,
// anonymous funs, tuples, lists, records, literals, and calls.
package parser

import (
	"fmt"

	"github.com/varmark/rebind/internal/ast"
	"github.com/varmark/rebind/internal/lexer"
	"github.com/varmark/rebind/internal/sourcemap"
)

// Error represents a parse error with its source position.
type Error struct {
	Message string
	Line    int // 1-based
	Column  int // 1-based
	Offset  int
}

func (e Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser parses one compilation unit.
type Parser struct {
	source    string
	tokens    []lexer.Token
	pos       int
	errors    []Error
	lineIndex *sourcemap.LineIndex
}

// New creates a parser for the given source.
func New(source string) *Parser {
	return &Parser{
		source:    source,
		tokens:    lexer.Tokenize(source),
		lineIndex: sourcemap.NewLineIndex(source),
	}
}

// Parse parses the whole unit and returns the module plus any errors.
func (p *Parser) Parse() (*ast.Module, []Error) {
	module := &ast.Module{Source: p.source}

	for !p.at(lexer.TokEOF) {
		switch {
		case p.at(lexer.TokMinus):
			p.parseAttribute(module)
		case p.at(lexer.TokAtom):
			if fn := p.parseFunction(); fn != nil {
				module.Functions = append(module.Functions, fn)
			}
		default:
			p.errorHere("expected function definition, got %s", p.peek().Kind)
			p.synchronize()
		}
	}

	return module, p.errors
}

// ----------------------------------------------------------------------------
// Forms
// ----------------------------------------------------------------------------

// parseAttribute handles -module(name). and skips other attributes.
func (p *Parser) parseAttribute(module *ast.Module) {
	p.next() // '-'
	name := p.expect(lexer.TokAtom)
	p.expect(lexer.TokLParen)
	arg := p.peek()
	if name.Text == "module" && arg.Kind == lexer.TokAtom {
		module.Name = arg.Text
	}
	// Skip whatever the attribute argument is, up to the closing paren.
	depth := 0
	for !p.at(lexer.TokEOF) {
		if p.at(lexer.TokLParen) {
			depth++
		}
		if p.at(lexer.TokRParen) {
			if depth == 0 {
				break
			}
			depth--
		}
		p.next()
	}
	p.expect(lexer.TokRParen)
	p.expect(lexer.TokDot)
}

// parseFunction parses name(...) -> ...; name(...) -> ... .
func (p *Parser) parseFunction() *ast.FuncDecl {
	nameTok := p.expect(lexer.TokAtom)
	fn := &ast.FuncDecl{
		Loc:  locOf(nameTok),
		Name: nameTok.Text,
	}

	for {
		clause := p.parseFunClause()
		if clause == nil {
			p.synchronize()
			return fn
		}
		fn.Clauses = append(fn.Clauses, clause)

		if p.at(lexer.TokSemicolon) {
			p.next()
			again := p.expect(lexer.TokAtom)
			if again.Text != fn.Name {
				p.errorAt(again, "clause head %q does not match function name %q", again.Text, fn.Name)
			}
			continue
		}
		break
	}

	p.expect(lexer.TokDot)
	fn.Arity = len(fn.Clauses[0].Patterns)
	return fn
}

// parseFunClause parses (Patterns) [when Guard] -> Body.
func (p *Parser) parseFunClause() *ast.Clause {
	open := p.expect(lexer.TokLParen)
	clause := &ast.Clause{Loc: locOf(open)}

	if !p.at(lexer.TokRParen) {
		for {
			clause.Patterns = append(clause.Patterns, p.parseExpr())
			if !p.at(lexer.TokComma) {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokRParen)

	if p.at(lexer.TokWhen) {
		p.next()
		clause.Guard = p.parseGuard()
	}
	p.expect(lexer.TokArrow)
	clause.Body = p.parseBody()
	return clause
}

// parseGuard parses a comma-separated conjunction, stopping before '->'.
func (p *Parser) parseGuard() []Expr {
	var guard []Expr
	for {
		guard = append(guard, p.parseExpr())
		if !p.at(lexer.TokComma) {
			return guard
		}
		p.next()
	}
}

// Expr aliases the ast node interface for local signatures.
type Expr = ast.Expr

// parseBody parses a comma-separated expression sequence.
func (p *Parser) parseBody() []Expr {
	var body []Expr
	for {
		body = append(body, p.parseExpr())
		if !p.at(lexer.TokComma) {
			return body
		}
		p.next()
	}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// parseExpr parses a match expression: Pattern = Value, right-associative.
func (p *Parser) parseExpr() Expr {
	left := p.parseOrelse()
	if p.at(lexer.TokEq) {
		eq := p.next()
		right := p.parseExpr()
		return &ast.MatchExpr{Loc: locOf(eq), Pattern: left, Value: right}
	}
	return left
}

func (p *Parser) parseOrelse() Expr {
	left := p.parseAndalso()
	for p.at(lexer.TokOrelse) || p.at(lexer.TokOr) {
		op := p.next()
		right := p.parseAndalso()
		left = &ast.BinaryExpr{Loc: locOf(op), Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAndalso() Expr {
	left := p.parseCompare()
	for p.at(lexer.TokAndalso) || p.at(lexer.TokAnd) {
		op := p.next()
		right := p.parseCompare()
		left = &ast.BinaryExpr{Loc: locOf(op), Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseCompare() Expr {
	left := p.parseAdd()
	for p.atAny(lexer.TokEqEq, lexer.TokNeq, lexer.TokLe, lexer.TokGe,
		lexer.TokLt, lexer.TokGt, lexer.TokExactEq, lexer.TokExactNeq) {
		op := p.next()
		right := p.parseAdd()
		left = &ast.BinaryExpr{Loc: locOf(op), Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdd() Expr {
	left := p.parseMul()
	for p.atAny(lexer.TokPlus, lexer.TokMinus, lexer.TokPlusPlus, lexer.TokMinusMinus) {
		op := p.next()
		right := p.parseMul()
		left = &ast.BinaryExpr{Loc: locOf(op), Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMul() Expr {
	left := p.parseUnary()
	for p.atAny(lexer.TokStar, lexer.TokSlash, lexer.TokDiv, lexer.TokRem) {
		op := p.next()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Loc: locOf(op), Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.atAny(lexer.TokMinus, lexer.TokNot) {
		op := p.next()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Loc: locOf(op), Op: op.Kind, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()

	switch tok.Kind {
	case lexer.TokInt, lexer.TokFloat, lexer.TokString:
		p.next()
		return &ast.LiteralExpr{Loc: locOf(tok), Kind: tok.Kind, Text: tok.Text}

	case lexer.TokVar:
		p.next()
		return &ast.VarExpr{Loc: locOf(tok), Name: tok.Text}

	case lexer.TokAtom:
		return p.parseAtomOrCall()

	case lexer.TokLParen:
		p.next()
		e := p.parseExpr()
		p.expect(lexer.TokRParen)
		return e

	case lexer.TokLBrace:
		return p.parseTuple()

	case lexer.TokLBracket:
		return p.parseList()

	case lexer.TokHash:
		return p.parseRecord()

	case lexer.TokCase:
		return p.parseCase()

	case lexer.TokIf:
		return p.parseIf()

	case lexer.TokReceive:
		return p.parseReceive()

	case lexer.TokTry:
		return p.parseTry()

	case lexer.TokFun:
		return p.parseFun()
	}

	p.errorHere("unexpected %s in expression", tok.Kind)
	p.next()
	return &ast.AtomExpr{Loc: locOf(tok), Name: "'error'"}
}

// parseAtomOrCall parses an atom, a local call f(...), or a remote
// call m:f(...).
func (p *Parser) parseAtomOrCall() Expr {
	tok := p.next()
	atom := &ast.AtomExpr{Loc: locOf(tok), Name: tok.Text}

	// Remote call: atom ':' atom '('
	if p.at(lexer.TokColon) && p.peekAt(1).Kind == lexer.TokAtom && p.peekAt(2).Kind == lexer.TokLParen {
		p.next() // ':'
		fnTok := p.next()
		fnAtom := &ast.AtomExpr{Loc: locOf(fnTok), Name: fnTok.Text}
		return p.parseCallArgs(&ast.CallExpr{Loc: locOf(tok), Module: atom, Func: fnAtom})
	}

	if p.at(lexer.TokLParen) {
		return p.parseCallArgs(&ast.CallExpr{Loc: locOf(tok), Func: atom})
	}

	return atom
}

func (p *Parser) parseCallArgs(call *ast.CallExpr) Expr {
	p.expect(lexer.TokLParen)
	if !p.at(lexer.TokRParen) {
		for {
			call.Args = append(call.Args, p.parseExpr())
			if !p.at(lexer.TokComma) {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokRParen)
	return call
}

func (p *Parser) parseTuple() Expr {
	open := p.next() // '{'
	tuple := &ast.TupleExpr{Loc: locOf(open)}
	if !p.at(lexer.TokRBrace) {
		for {
			tuple.Elems = append(tuple.Elems, p.parseExpr())
			if !p.at(lexer.TokComma) {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokRBrace)
	return tuple
}

func (p *Parser) parseList() Expr {
	open := p.next() // '['
	list := &ast.ListExpr{Loc: locOf(open)}
	if !p.at(lexer.TokRBracket) {
		for {
			list.Elems = append(list.Elems, p.parseExpr())
			if p.at(lexer.TokComma) {
				p.next()
				continue
			}
			break
		}
		if p.at(lexer.TokBar) {
			p.next()
			list.Tail = p.parseExpr()
		}
	}
	p.expect(lexer.TokRBracket)
	return list
}

func (p *Parser) parseRecord() Expr {
	open := p.next() // '#'
	nameTok := p.expect(lexer.TokAtom)
	record := &ast.RecordExpr{Loc: locOf(open), Name: nameTok.Text}
	p.expect(lexer.TokLBrace)
	if !p.at(lexer.TokRBrace) {
		for {
			fieldTok := p.expect(lexer.TokAtom)
			p.expect(lexer.TokEq)
			value := p.parseExpr()
			record.Fields = append(record.Fields, ast.RecordField{
				Loc:   locOf(fieldTok),
				Name:  fieldTok.Text,
				Value: value,
			})
			if !p.at(lexer.TokComma) {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokRBrace)
	return record
}

// ----------------------------------------------------------------------------
// Clause-Bearing Constructs
// ----------------------------------------------------------------------------

func (p *Parser) parseCase() Expr {
	kw := p.next() // 'case'
	caseExpr := &ast.CaseExpr{Loc: locOf(kw)}
	caseExpr.Discriminant = p.parseExpr()
	p.expect(lexer.TokOf)
	caseExpr.Clauses = p.parsePatternClauses()
	p.expect(lexer.TokEnd)
	return caseExpr
}

// parsePatternClauses parses Pattern [when Guard] -> Body clauses
// separated by ';'.
func (p *Parser) parsePatternClauses() []*ast.Clause {
	var clauses []*ast.Clause
	for {
		start := p.peek()
		clause := &ast.Clause{Loc: locOf(start)}
		clause.Patterns = []Expr{p.parseExpr()}
		if p.at(lexer.TokWhen) {
			p.next()
			clause.Guard = p.parseGuard()
		}
		p.expect(lexer.TokArrow)
		clause.Body = p.parseBody()
		clauses = append(clauses, clause)

		if p.at(lexer.TokSemicolon) {
			p.next()
			continue
		}
		return clauses
	}
}

func (p *Parser) parseIf() Expr {
	kw := p.next() // 'if'
	ifExpr := &ast.IfExpr{Loc: locOf(kw)}
	for {
		start := p.peek()
		clause := &ast.Clause{Loc: locOf(start)}
		clause.Guard = p.parseGuard()
		p.expect(lexer.TokArrow)
		clause.Body = p.parseBody()
		ifExpr.Clauses = append(ifExpr.Clauses, clause)

		if p.at(lexer.TokSemicolon) {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.TokEnd)
	return ifExpr
}

func (p *Parser) parseReceive() Expr {
	kw := p.next() // 'receive'
	recv := &ast.ReceiveExpr{Loc: locOf(kw)}
	if !p.at(lexer.TokAfter) {
		recv.Clauses = p.parsePatternClauses()
	}
	if p.at(lexer.TokAfter) {
		afterTok := p.next()
		after := &ast.AfterClause{Loc: locOf(afterTok)}
		after.Timeout = p.parseExpr()
		p.expect(lexer.TokArrow)
		after.Body = p.parseBody()
		recv.After = after
	}
	p.expect(lexer.TokEnd)
	return recv
}

func (p *Parser) parseTry() Expr {
	kw := p.next() // 'try'
	tryExpr := &ast.TryExpr{Loc: locOf(kw)}
	tryExpr.Body = p.parseBody()
	if p.at(lexer.TokOf) {
		p.next()
		tryExpr.OfClauses = p.parsePatternClauses()
	}
	if p.at(lexer.TokCatch) {
		p.next()
		tryExpr.CatchClauses = p.parsePatternClauses()
	}
	if p.at(lexer.TokAfter) {
		p.next()
		tryExpr.After = p.parseBody()
	}
	p.expect(lexer.TokEnd)
	return tryExpr
}

func (p *Parser) parseFun() Expr {
	kw := p.next() // 'fun'
	funExpr := &ast.FunExpr{Loc: locOf(kw)}
	for {
		clause := p.parseFunClause()
		if clause == nil {
			break
		}
		funExpr.Clauses = append(funExpr.Clauses, clause)
		if p.at(lexer.TokSemicolon) {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.TokEnd)
	return funExpr
}

// ----------------------------------------------------------------------------
// Token Helpers
// ----------------------------------------------------------------------------

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) next() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Kind != lexer.TokEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) at(kind lexer.TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) atAny(kinds ...lexer.TokenKind) bool {
	k := p.peek().Kind
	for _, kind := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind lexer.TokenKind) lexer.Token {
	tok := p.peek()
	if tok.Kind != kind {
		p.errorHere("expected %s, got %s", kind, tok.Kind)
		return tok
	}
	return p.next()
}

// synchronize skips to just past the next form terminator.
func (p *Parser) synchronize() {
	for !p.at(lexer.TokEOF) {
		if p.next().Kind == lexer.TokDot {
			return
		}
	}
}

func (p *Parser) errorHere(format string, args ...any) {
	p.errorAt(p.peek(), format, args...)
}

func (p *Parser) errorAt(tok lexer.Token, format string, args ...any) {
	line, col := p.lineIndex.LineColumn(int(tok.Start))
	p.errors = append(p.errors, Error{
		Message: fmt.Sprintf(format, args...),
		Line:    line + 1,
		Column:  col + 1,
		Offset:  int(tok.Start),
	})
}

func locOf(tok lexer.Token) ast.Loc {
	return ast.Loc{Start: tok.Start, Line: tok.Line}
}
