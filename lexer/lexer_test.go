package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(input string) []TokenType {
	var types []TokenType
	for _, tok := range NewFromString(input).TokenizeToSlice() {
		types = append(types, tok.Type)
	}
	return types
}

func TestTokenizeBasics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{
			name:  "empty input",
			input: "",
			want:  []TokenType{EOF},
		},
		{
			name:  "function skeleton",
			input: "fn main() {}",
			want:  []TokenType{FN, IDENT, LPAREN, RPAREN, LBRACE, RBRACE, EOF},
		},
		{
			name:  "let binding",
			input: `let home = env("HOME");`,
			want:  []TokenType{LET, IDENT, ASSIGN, IDENT, LPAREN, STRING, RPAREN, SEMICOLON, EOF},
		},
		{
			name:  "exclusive range",
			input: "for i in 0..5",
			want:  []TokenType{FOR, IDENT, IN, INT, DOTDOT, INT, EOF},
		},
		{
			name:  "inclusive range",
			input: "0..=5",
			want:  []TokenType{INT, DOTDOTEQ, INT, EOF},
		},
		{
			name:  "compound assignment operators",
			input: "a += 1; b -= 2; c *= 3; d /= 4; e %= 5;",
			want: []TokenType{
				IDENT, PLUS_EQ, INT, SEMICOLON,
				IDENT, MINUS_EQ, INT, SEMICOLON,
				IDENT, STAR_EQ, INT, SEMICOLON,
				IDENT, SLASH_EQ, INT, SEMICOLON,
				IDENT, PERCENT_EQ, INT, SEMICOLON,
				EOF,
			},
		},
		{
			name:  "comparison and logic",
			input: "a == b != c <= d >= e && f || !g",
			want: []TokenType{
				IDENT, EQ, IDENT, NOT_EQ, IDENT, LT_EQ, IDENT, GT_EQ, IDENT,
				AND_AND, IDENT, OR_OR, BANG, IDENT, EOF,
			},
		},
		{
			name:  "macro invocation",
			input: `println!("{}", i)`,
			want:  []TokenType{IDENT, BANG, LPAREN, STRING, COMMA, IDENT, RPAREN, EOF},
		},
		{
			name:  "match arm arrow",
			input: "1 => {}",
			want:  []TokenType{INT, FATARROW, LBRACE, RBRACE, EOF},
		},
		{
			name:  "return type arrow",
			input: "fn f() -> i32",
			want:  []TokenType{FN, IDENT, LPAREN, RPAREN, ARROW, IDENT, EOF},
		},
		{
			name:  "line comment skipped",
			input: "let x = 1; // trailing\nlet y = 2;",
			want:  []TokenType{LET, IDENT, ASSIGN, INT, SEMICOLON, LET, IDENT, ASSIGN, INT, SEMICOLON, EOF},
		},
		{
			name:  "block comment skipped",
			input: "let /* inline */ x = 1;",
			want:  []TokenType{LET, IDENT, ASSIGN, INT, SEMICOLON, EOF},
		},
		{
			name:  "unsupported keywords still tokenize",
			input: "async unsafe trait impl loop macro_rules",
			want:  []TokenType{ASYNC, UNSAFE, TRAIT, IMPL, LOOP, MACRODEF, EOF},
		},
		{
			name:  "wildcard underscore",
			input: "_ => {}",
			want:  []TokenType{UNDERSCORE, FATARROW, LBRACE, RBRACE, EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenTypes(tt.input))
		})
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `"hello"`, "hello"},
		{"newline", `"a\nb"`, "a\nb"},
		{"tab", `"a\tb"`, "a\tb"},
		{"escaped quote", `"say \"hi\""`, `say "hi"`},
		{"escaped backslash", `"a\\b"`, `a\b`},
		{"shell metacharacters preserved", `"; rm -rf /; #"`, "; rm -rf /; #"},
		{"dollar and backtick preserved", "\"$(date) `id`\"", "$(date) `id`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := NewFromString(tt.input).TokenizeToSlice()
			require.Len(t, tokens, 2)
			assert.Equal(t, STRING, tokens[0].Type)
			assert.Equal(t, tt.want, tokens[0].Value)
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	tokens := NewFromString(`"never closed`).TokenizeToSlice()
	require.NotEmpty(t, tokens)
	assert.Equal(t, ILLEGAL, tokens[0].Type)
}

func TestSpanTracking(t *testing.T) {
	tokens := NewFromString("let x = 1;\nlet y = 2;").TokenizeToSlice()

	require.GreaterOrEqual(t, len(tokens), 10)
	assert.Equal(t, 1, tokens[0].Span.Start.Line)
	assert.Equal(t, 1, tokens[0].Span.Start.Column)

	// The second `let` starts on line 2, column 1.
	second := tokens[5]
	assert.Equal(t, LET, second.Type)
	assert.Equal(t, 2, second.Span.Start.Line)
	assert.Equal(t, 1, second.Span.Start.Column)
}
