package lexer

import "testing"

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func wantKinds(t *testing.T, source string, want ...TokenKind) []Token {
	t.Helper()
	tokens := Tokenize(source)
	got := kinds(tokens)
	want = append(want, TokEOF)
	if len(got) != len(want) {
		t.Fatalf("token kinds for %q:\n  got  %v\n  want %v", source, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("token %d for %q: got %s, want %s", i, source, got[i], want[i])
		}
	}
	return tokens
}

func TestSimpleForm(t *testing.T) {
	wantKinds(t, `f(X@) -> X@.`,
		TokAtom, TokLParen, TokVar, TokRParen, TokArrow, TokVar, TokDot)
}

func TestMarkerIsNameChar(t *testing.T) {
	tokens := wantKinds(t, `let@(Req@, Req@3)`,
		TokAtom, TokLParen, TokVar, TokComma, TokVar, TokRParen)
	if tokens[0].Text != "let@" {
		t.Errorf("let@ lexed as %q", tokens[0].Text)
	}
	if tokens[2].Text != "Req@" {
		t.Errorf("marked variable lexed as %q", tokens[2].Text)
	}
	if tokens[4].Text != "Req@3" {
		t.Errorf("versioned variable lexed as %q", tokens[4].Text)
	}
}

func TestKeywords(t *testing.T) {
	wantKinds(t, `case of if receive after try catch end fun when`,
		TokCase, TokOf, TokIf, TokReceive, TokAfter,
		TokTry, TokCatch, TokEnd, TokFun, TokWhen)
	wantKinds(t, `and or andalso orelse not div rem`,
		TokAnd, TokOr, TokAndalso, TokOrelse, TokNot, TokDiv, TokRem)
}

func TestOperatorsLongestMatch(t *testing.T) {
	wantKinds(t, `=:= =/= == =< >= /= ++ -- -> = < >`,
		TokExactEq, TokExactNeq, TokEqEq, TokLe, TokGe, TokNeq,
		TokPlusPlus, TokMinusMinus, TokArrow, TokEq, TokLt, TokGt)
}

func TestNumbers(t *testing.T) {
	tokens := wantKinds(t, `42 3.14`, TokInt, TokFloat)
	if tokens[0].Text != "42" || tokens[1].Text != "3.14" {
		t.Errorf("number texts: %q %q", tokens[0].Text, tokens[1].Text)
	}

	// A dot not followed by a digit terminates the form instead.
	wantKinds(t, `1.`, TokInt, TokDot)
}

func TestStrings(t *testing.T) {
	tokens := wantKinds(t, `"hello \"there\""`, TokString)
	if tokens[0].Text != `"hello \"there\""` {
		t.Errorf("string text: %q", tokens[0].Text)
	}
}

func TestUnterminatedString(t *testing.T) {
	tokens := Tokenize("\"oops\nf() -> ok.")
	if tokens[0].Kind != TokError {
		t.Fatalf("unterminated string lexed as %s", tokens[0].Kind)
	}
}

func TestCommentsSkipped(t *testing.T) {
	wantKinds(t, "f() -> ok. % trailing comment\n% whole line\n",
		TokAtom, TokLParen, TokRParen, TokArrow, TokAtom, TokDot)
}

func TestLineAndOffsetTracking(t *testing.T) {
	source := "f() ->\n    ok."
	tokens := Tokenize(source)

	// "ok" sits on line 2.
	var ok Token
	for _, tok := range tokens {
		if tok.Kind == TokAtom && tok.Text == "ok" {
			ok = tok
		}
	}
	if ok.Line != 2 {
		t.Errorf("ok on line %d, want 2", ok.Line)
	}
	if source[ok.Start:ok.Start+2] != "ok" {
		t.Errorf("offset %d does not point at the token", ok.Start)
	}
}

func TestUnderscoreVariables(t *testing.T) {
	tokens := wantKinds(t, `_ _Ignored`, TokVar, TokVar)
	if tokens[0].Text != "_" || tokens[1].Text != "_Ignored" {
		t.Errorf("underscore texts: %q %q", tokens[0].Text, tokens[1].Text)
	}
}

func TestUnknownCharacter(t *testing.T) {
	tokens := Tokenize("f() -> $.")
	found := false
	for _, tok := range tokens {
		if tok.Kind == TokError && tok.Text == "$" {
			found = true
		}
	}
	if !found {
		t.Error("unknown character did not produce an error token")
	}
}
