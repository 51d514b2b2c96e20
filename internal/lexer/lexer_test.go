package lexer

import (
	"testing"

	"metscheck/internal/token"
)

func collect(t *testing.T, source string) []token.Token {
	t.Helper()
	l := New(source)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := collect(t, "process begin commit abort foo")
	want := []token.Kind{token.PROCESS, token.BEGIN, token.COMMIT, token.ABORT, token.IDENT, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestOperatorsAndPunctuation(t *testing.T) {
	toks := collect(t, ":= <> <= >= = < > { } ( ) `$")
	want := []token.Kind{
		token.COLONEQUAL, token.NOTEQUAL, token.LESSEQUAL, token.GREATEREQUAL,
		token.EQUAL, token.LESS, token.GREATER, token.LBRACE, token.RBRACE,
		token.LPAREN, token.RPAREN, token.BACKTICK, token.DOLLAR, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestStringAndNumberLiterals(t *testing.T) {
	toks := collect(t, "'hello' 123")
	if toks[0].Kind != token.STRING || toks[0].Lexeme != "'hello'" {
		t.Errorf("unexpected string token: %+v", toks[0])
	}
	if toks[1].Kind != token.NUMBER || toks[1].Lexeme != "123" {
		t.Errorf("unexpected number token: %+v", toks[1])
	}
}

func TestNewlineIsASignificantToken(t *testing.T) {
	toks := collect(t, "commit\nabort")
	want := []token.Kind{token.COMMIT, token.NEWLINE, token.ABORT, token.EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestUnterminatedStringFails(t *testing.T) {
	l := New("'unterminated")
	if _, err := l.NextToken(); err == nil {
		t.Error("expected a lex error for an unterminated string literal")
	}
}

func TestIllegalCharacterFails(t *testing.T) {
	l := New("@")
	if _, err := l.NextToken(); err == nil {
		t.Error("expected a lex error for an illegal character")
	}
}
