package lexer

import "fmt"

// TokenType represents the type of a token in the accepted source subset.
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Keywords
	FN     // fn
	LET    // let
	MUT    // mut
	IF     // if
	ELSE   // else
	MATCH  // match
	FOR    // for
	WHILE  // while
	IN     // in
	RETURN // return
	TRUE   // true
	FALSE  // false

	// Keywords recognized only to report them as unsupported
	ASYNC      // async
	AWAIT      // await
	TRAIT      // trait
	IMPL       // impl
	STRUCT     // struct
	ENUM       // enum
	USE        // use
	MOD        // mod
	UNSAFE     // unsafe
	LOOP       // loop
	MACRODEF   // macro_rules
	AMPERSAND  // & (references)

	// Literals
	IDENT  // identifiers, macro names before !
	INT    // 42, -7
	STRING // "hello"

	// Operators
	PLUS       // +
	MINUS      // -
	STAR       // *
	SLASH      // /
	PERCENT    // %
	EQ         // ==
	NOT_EQ     // !=
	LT         // <
	LT_EQ      // <=
	GT         // >
	GT_EQ      // >=
	AND_AND    // &&
	OR_OR      // ||
	BANG       // !
	ASSIGN     // =
	PLUS_EQ    // +=
	MINUS_EQ   // -=
	STAR_EQ    // *=
	SLASH_EQ   // /=
	PERCENT_EQ // %=
	DOTDOT     // ..
	DOTDOTEQ   // ..=
	ARROW      // ->
	FATARROW   // =>

	// Delimiters
	LPAREN     // (
	RPAREN     // )
	LBRACE     // {
	RBRACE     // }
	LBRACKET   // [
	RBRACKET   // ]
	COMMA      // ,
	COLON      // :
	SEMICOLON  // ;
	UNDERSCORE // _ (match wildcard)
)

// Pre-computed token name lookup for fast debugging
var tokenNames = [...]string{
	EOF:        "EOF",
	ILLEGAL:    "ILLEGAL",
	FN:         "FN",
	LET:        "LET",
	MUT:        "MUT",
	IF:         "IF",
	ELSE:       "ELSE",
	MATCH:      "MATCH",
	FOR:        "FOR",
	WHILE:      "WHILE",
	IN:         "IN",
	RETURN:     "RETURN",
	TRUE:       "TRUE",
	FALSE:      "FALSE",
	ASYNC:      "ASYNC",
	AWAIT:      "AWAIT",
	TRAIT:      "TRAIT",
	IMPL:       "IMPL",
	STRUCT:     "STRUCT",
	ENUM:       "ENUM",
	USE:        "USE",
	MOD:        "MOD",
	UNSAFE:     "UNSAFE",
	LOOP:       "LOOP",
	MACRODEF:   "MACRODEF",
	AMPERSAND:  "AMPERSAND",
	IDENT:      "IDENT",
	INT:        "INT",
	STRING:     "STRING",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	PERCENT:    "PERCENT",
	EQ:         "EQ",
	NOT_EQ:     "NOT_EQ",
	LT:         "LT",
	LT_EQ:      "LT_EQ",
	GT:         "GT",
	GT_EQ:      "GT_EQ",
	AND_AND:    "AND_AND",
	OR_OR:      "OR_OR",
	BANG:       "BANG",
	ASSIGN:     "ASSIGN",
	PLUS_EQ:    "PLUS_EQ",
	MINUS_EQ:   "MINUS_EQ",
	STAR_EQ:    "STAR_EQ",
	SLASH_EQ:   "SLASH_EQ",
	PERCENT_EQ: "PERCENT_EQ",
	DOTDOT:     "DOTDOT",
	DOTDOTEQ:   "DOTDOTEQ",
	ARROW:      "ARROW",
	FATARROW:   "FATARROW",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LBRACKET:   "LBRACKET",
	RBRACKET:   "RBRACKET",
	COMMA:      "COMMA",
	COLON:      "COLON",
	SEMICOLON:  "SEMICOLON",
	UNDERSCORE: "UNDERSCORE",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && int(t) >= 0 {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps source keywords to their token types. Keywords outside the
// accepted subset still tokenize so the parser can report them precisely.
var keywords = map[string]TokenType{
	"fn":          FN,
	"let":         LET,
	"mut":         MUT,
	"if":          IF,
	"else":        ELSE,
	"match":       MATCH,
	"for":         FOR,
	"while":       WHILE,
	"in":          IN,
	"return":      RETURN,
	"true":        TRUE,
	"false":       FALSE,
	"async":       ASYNC,
	"await":       AWAIT,
	"trait":       TRAIT,
	"impl":        IMPL,
	"struct":      STRUCT,
	"enum":        ENUM,
	"use":         USE,
	"mod":         MOD,
	"unsafe":      UNSAFE,
	"loop":        LOOP,
	"macro_rules": MACRODEF,
}

// LookupIdent returns the keyword token type for an identifier, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// SourcePosition represents a position in source code
type SourcePosition struct {
	Line   int `json:"line"`   // 1-based
	Column int `json:"column"` // 1-based
	Offset int `json:"offset"` // 0-based byte offset
}

func (p SourcePosition) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// SourceSpan represents a precise location in source code
type SourceSpan struct {
	Start SourcePosition `json:"start"`
	End   SourcePosition `json:"end"`
}

func (s SourceSpan) String() string {
	return s.Start.String()
}

// Token represents a single lexical token with its source location.
type Token struct {
	Type  TokenType
	Value string // raw lexeme; for STRING the unquoted, unescaped content
	Span  SourceSpan
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Type, t.Value, t.Span)
}
