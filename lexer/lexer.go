package lexer

import (
	"io"
	"strings"
)

// ASCII character lookup tables for fast classification
var (
	isWhitespace [128]bool
	isLetter     [128]bool
	isDigit      [128]bool
	isIdentStart [128]bool
	isIdentPart  [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f'
		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = isLetter[i] || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
	}
}

// Lexer scans source text into tokens. The whole input is held in memory;
// compilation units are small enough that streaming buys nothing.
type Lexer struct {
	input    string
	position int  // current position (byte offset)
	readPos  int  // next reading position
	ch       byte // current byte under examination
	line     int
	column   int
}

// New creates a Lexer from an io.Reader.
func New(reader io.Reader) *Lexer {
	data, err := io.ReadAll(reader)
	if err != nil {
		data = []byte{}
	}
	return NewFromString(string(data))
}

// NewFromString creates a Lexer over source text.
func NewFromString(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.position = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) pos() SourcePosition {
	return SourcePosition{Line: l.line, Column: l.column, Offset: l.position}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch < 128 && isWhitespace[l.ch] {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
			continue
		}
		return
	}
}

// TokenizeToSlice scans the entire input, always ending with an EOF token.
func (l *Lexer) TokenizeToSlice() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start := l.pos()

	switch {
	case l.ch == 0:
		return l.token(EOF, "", start)
	case l.ch == '"':
		return l.lexString(start)
	case l.ch < 128 && isDigit[l.ch]:
		return l.lexNumber(start)
	case l.ch < 128 && isIdentStart[l.ch]:
		return l.lexIdentOrKeyword(start)
	}

	ch := l.ch
	peek := l.peekChar()
	l.readChar()

	switch ch {
	case '+':
		if peek == '=' {
			l.readChar()
			return l.token(PLUS_EQ, "+=", start)
		}
		return l.token(PLUS, "+", start)
	case '-':
		switch peek {
		case '=':
			l.readChar()
			return l.token(MINUS_EQ, "-=", start)
		case '>':
			l.readChar()
			return l.token(ARROW, "->", start)
		}
		return l.token(MINUS, "-", start)
	case '*':
		if peek == '=' {
			l.readChar()
			return l.token(STAR_EQ, "*=", start)
		}
		return l.token(STAR, "*", start)
	case '/':
		if peek == '=' {
			l.readChar()
			return l.token(SLASH_EQ, "/=", start)
		}
		return l.token(SLASH, "/", start)
	case '%':
		if peek == '=' {
			l.readChar()
			return l.token(PERCENT_EQ, "%=", start)
		}
		return l.token(PERCENT, "%", start)
	case '=':
		switch peek {
		case '=':
			l.readChar()
			return l.token(EQ, "==", start)
		case '>':
			l.readChar()
			return l.token(FATARROW, "=>", start)
		}
		return l.token(ASSIGN, "=", start)
	case '!':
		if peek == '=' {
			l.readChar()
			return l.token(NOT_EQ, "!=", start)
		}
		return l.token(BANG, "!", start)
	case '<':
		if peek == '=' {
			l.readChar()
			return l.token(LT_EQ, "<=", start)
		}
		return l.token(LT, "<", start)
	case '>':
		if peek == '=' {
			l.readChar()
			return l.token(GT_EQ, ">=", start)
		}
		return l.token(GT, ">", start)
	case '&':
		if peek == '&' {
			l.readChar()
			return l.token(AND_AND, "&&", start)
		}
		// A lone & only appears in reference types/expressions, which the
		// parser reports as an unsupported feature.
		return l.token(AMPERSAND, "&", start)
	case '|':
		if peek == '|' {
			l.readChar()
			return l.token(OR_OR, "||", start)
		}
		return l.token(ILLEGAL, "|", start)
	case '.':
		if peek == '.' {
			l.readChar()
			if l.ch == '=' {
				l.readChar()
				return l.token(DOTDOTEQ, "..=", start)
			}
			return l.token(DOTDOT, "..", start)
		}
		return l.token(ILLEGAL, ".", start)
	case '(':
		return l.token(LPAREN, "(", start)
	case ')':
		return l.token(RPAREN, ")", start)
	case '{':
		return l.token(LBRACE, "{", start)
	case '}':
		return l.token(RBRACE, "}", start)
	case '[':
		return l.token(LBRACKET, "[", start)
	case ']':
		return l.token(RBRACKET, "]", start)
	case ',':
		return l.token(COMMA, ",", start)
	case ':':
		return l.token(COLON, ":", start)
	case ';':
		return l.token(SEMICOLON, ";", start)
	}

	return l.token(ILLEGAL, string(ch), start)
}

func (l *Lexer) token(t TokenType, value string, start SourcePosition) Token {
	return Token{Type: t, Value: value, Span: SourceSpan{Start: start, End: l.pos()}}
}

func (l *Lexer) lexIdentOrKeyword(start SourcePosition) Token {
	begin := l.position
	for l.ch < 128 && l.ch != 0 && isIdentPart[l.ch] {
		l.readChar()
	}
	lexeme := l.input[begin:l.position]
	if lexeme == "_" {
		return l.token(UNDERSCORE, lexeme, start)
	}
	return l.token(LookupIdent(lexeme), lexeme, start)
}

func (l *Lexer) lexNumber(start SourcePosition) Token {
	begin := l.position
	for l.ch < 128 && l.ch != 0 && isDigit[l.ch] {
		l.readChar()
	}
	return l.token(INT, l.input[begin:l.position], start)
}

// lexString scans a double-quoted string literal, resolving the escape
// sequences the subset accepts: \" \\ \n \t \r \0.
func (l *Lexer) lexString(start SourcePosition) Token {
	l.readChar() // consume opening quote

	var sb strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				// Unknown escape: keep it verbatim so the parser can complain
				// with the exact text in front of it.
				sb.WriteByte('\\')
				sb.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}

	if l.ch == 0 {
		return l.token(ILLEGAL, sb.String(), start)
	}
	l.readChar() // consume closing quote
	return l.token(STRING, sb.String(), start)
}
