// Package lexer provides tokenization for the Erlang-style source language.
//
// The lexer converts a source string into a sequence of tokens, handling:
// - Atoms (lowercase identifiers) and keywords
// - Variables (capitalized identifiers, including the sequential marker '@')
// - Numeric literals (int, float)
// - String literals with escapes
// - Operators and punctuation
// - Line comments (% to end of line)
package lexer

// ----------------------------------------------------------------------------
// Token Types
// ----------------------------------------------------------------------------

// TokenKind represents the type of a token.
type TokenKind uint8

const (
	TokError TokenKind = iota
	TokEOF

	// Literals
	TokInt
	TokFloat
	TokString

	// Identifiers
	TokAtom
	TokVar

	// Keywords
	TokCase
	TokOf
	TokIf
	TokReceive
	TokAfter
	TokTry
	TokCatch
	TokEnd
	TokFun
	TokWhen
	TokAnd
	TokOr
	TokAndalso
	TokOrelse
	TokNot
	TokDiv
	TokRem

	// Operators
	TokPlus       // +
	TokMinus      // -
	TokStar       // *
	TokSlash      // /
	TokEq         // =
	TokEqEq       // ==
	TokNeq        // /=
	TokLe         // =<
	TokGe         // >=
	TokLt         // <
	TokGt         // >
	TokExactEq    // =:=
	TokExactNeq   // =/=
	TokPlusPlus   // ++
	TokMinusMinus // --
	TokArrow      // ->
	TokBang       // !

	// Delimiters
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokComma     // ,
	TokSemicolon // ;
	TokDot       // .
	TokColon     // :
	TokBar       // |
	TokHash      // #
)

// String returns the string representation of a token kind.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "unknown"
}

var tokenNames = [...]string{
	TokError:      "error",
	TokEOF:        "EOF",
	TokInt:        "int",
	TokFloat:      "float",
	TokString:     "string",
	TokAtom:       "atom",
	TokVar:        "variable",
	TokCase:       "case",
	TokOf:         "of",
	TokIf:         "if",
	TokReceive:    "receive",
	TokAfter:      "after",
	TokTry:        "try",
	TokCatch:      "catch",
	TokEnd:        "end",
	TokFun:        "fun",
	TokWhen:       "when",
	TokAnd:        "and",
	TokOr:         "or",
	TokAndalso:    "andalso",
	TokOrelse:     "orelse",
	TokNot:        "not",
	TokDiv:        "div",
	TokRem:        "rem",
	TokPlus:       "+",
	TokMinus:      "-",
	TokStar:       "*",
	TokSlash:      "/",
	TokEq:         "=",
	TokEqEq:       "==",
	TokNeq:        "/=",
	TokLe:         "=<",
	TokGe:         ">=",
	TokLt:         "<",
	TokGt:         ">",
	TokExactEq:    "=:=",
	TokExactNeq:   "=/=",
	TokPlusPlus:   "++",
	TokMinusMinus: "--",
	TokArrow:      "->",
	TokBang:       "!",
	TokLParen:     "(",
	TokRParen:     ")",
	TokLBrace:     "{",
	TokRBrace:     "}",
	TokLBracket:   "[",
	TokRBracket:   "]",
	TokComma:      ",",
	TokSemicolon:  ";",
	TokDot:        ".",
	TokColon:      ":",
	TokBar:        "|",
	TokHash:       "#",
}

// Keywords maps reserved atoms to their token kinds.
var Keywords = map[string]TokenKind{
	"case":    TokCase,
	"of":      TokOf,
	"if":      TokIf,
	"receive": TokReceive,
	"after":   TokAfter,
	"try":     TokTry,
	"catch":   TokCatch,
	"end":     TokEnd,
	"fun":     TokFun,
	"when":    TokWhen,
	"and":     TokAnd,
	"or":      TokOr,
	"andalso": TokAndalso,
	"orelse":  TokOrelse,
	"not":     TokNot,
	"div":     TokDiv,
	"rem":     TokRem,
}

// Token is a single lexed token.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int32 // byte offset in source
	Line  int32 // 1-based source line
}

// ----------------------------------------------------------------------------
// Lexer
// ----------------------------------------------------------------------------

// Lexer tokenizes source text.
type Lexer struct {
	source string
	pos    int
	line   int32
}

// New creates a lexer for the given source.
func New(source string) *Lexer {
	return &Lexer{source: source, line: 1}
}

// Tokenize lexes the entire source into a token slice.
// The final token is always TokEOF.
func Tokenize(source string) []Token {
	l := New(source)
	var tokens []Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	l.skipSpaceAndComments()

	if l.pos >= len(l.source) {
		return l.make(TokEOF, l.pos, "")
	}

	start := l.pos
	c := l.source[l.pos]

	switch {
	case isLower(c):
		return l.lexAtom(start)
	case isUpper(c) || c == '_':
		return l.lexVar(start)
	case isDigit(c):
		return l.lexNumber(start)
	case c == '"':
		return l.lexString(start)
	}

	// Operators and punctuation, longest match first.
	rest := l.source[l.pos:]
	for _, op := range operators {
		if len(rest) >= len(op.text) && rest[:len(op.text)] == op.text {
			l.pos += len(op.text)
			return l.make(op.kind, start, op.text)
		}
	}

	l.pos++
	return l.make(TokError, start, string(c))
}

type operator struct {
	text string
	kind TokenKind
}

// Longer operators must come before their prefixes.
var operators = []operator{
	{"=:=", TokExactEq},
	{"=/=", TokExactNeq},
	{"==", TokEqEq},
	{"=<", TokLe},
	{">=", TokGe},
	{"/=", TokNeq},
	{"++", TokPlusPlus},
	{"--", TokMinusMinus},
	{"->", TokArrow},
	{"=", TokEq},
	{"<", TokLt},
	{">", TokGt},
	{"+", TokPlus},
	{"-", TokMinus},
	{"*", TokStar},
	{"/", TokSlash},
	{"!", TokBang},
	{"(", TokLParen},
	{")", TokRParen},
	{"{", TokLBrace},
	{"}", TokRBrace},
	{"[", TokLBracket},
	{"]", TokRBracket},
	{",", TokComma},
	{";", TokSemicolon},
	{".", TokDot},
	{":", TokColon},
	{"|", TokBar},
	{"#", TokHash},
}

// ----------------------------------------------------------------------------
// Scanning Helpers
// ----------------------------------------------------------------------------

func (l *Lexer) make(kind TokenKind, start int, text string) Token {
	return Token{Kind: kind, Text: text, Start: int32(start), Line: l.line}
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		switch c {
		case ' ', '\t', '\r':
			l.pos++
		case '\n':
			l.pos++
			l.line++
		case '%':
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// lexAtom scans a lowercase identifier. The sequential marker '@' is a
// valid identifier character so that the let@ macro name lexes as one atom.
func (l *Lexer) lexAtom(start int) Token {
	for l.pos < len(l.source) && isNameChar(l.source[l.pos]) {
		l.pos++
	}
	text := l.source[start:l.pos]
	if kind, ok := Keywords[text]; ok {
		return l.make(kind, start, text)
	}
	return l.make(TokAtom, start, text)
}

// lexVar scans a capitalized identifier. A trailing '@' marks a sequential
// variable; '@' followed by digits is the explicit versioned form.
func (l *Lexer) lexVar(start int) Token {
	for l.pos < len(l.source) && isNameChar(l.source[l.pos]) {
		l.pos++
	}
	return l.make(TokVar, start, l.source[start:l.pos])
}

func (l *Lexer) lexNumber(start int) Token {
	for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
		l.pos++
	}
	// A float needs a digit on both sides of the dot.
	if l.pos+1 < len(l.source) && l.source[l.pos] == '.' && isDigit(l.source[l.pos+1]) {
		l.pos++
		for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
			l.pos++
		}
		return l.make(TokFloat, start, l.source[start:l.pos])
	}
	return l.make(TokInt, start, l.source[start:l.pos])
}

func (l *Lexer) lexString(start int) Token {
	l.pos++ // opening quote
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		if c == '\\' && l.pos+1 < len(l.source) {
			l.pos += 2
			continue
		}
		if c == '"' {
			l.pos++
			return l.make(TokString, start, l.source[start:l.pos])
		}
		if c == '\n' {
			break
		}
		l.pos++
	}
	return l.make(TokError, start, l.source[start:l.pos])
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameChar(c byte) bool {
	return isLower(c) || isUpper(c) || isDigit(c) || c == '_' || c == '@'
}
