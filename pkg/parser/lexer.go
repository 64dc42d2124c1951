package parser

import (
	"strings"

	"github.com/leapstack-labs/gsql/pkg/token"
)

// Lexer tokenizes GSQL input. String scanning is quote-aware, so commas,
// semicolons and keywords inside quotes never split a statement.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// Tokens lexes the whole input, EOF token included.
func (l *Lexer) Tokens() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := token.Token{Pos: pos}

	switch l.ch {
	case 0:
		tok.Type = token.EOF
		return tok
	case '*':
		tok.Type, tok.Literal = token.STAR, "*"
	case '=':
		tok.Type, tok.Literal = token.EQ, "="
		if l.peekChar() == '=' {
			l.readChar()
			tok.Literal = "=="
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok.Type, tok.Literal = token.LE, "<="
		case '>':
			l.readChar()
			tok.Type, tok.Literal = token.NE, "<>"
		default:
			tok.Type, tok.Literal = token.LT, "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = token.GE, ">="
		} else {
			tok.Type, tok.Literal = token.GT, ">"
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = token.NE, "!="
		} else {
			tok.Type, tok.Literal = token.ILLEGAL, "!"
		}
	case ',':
		tok.Type, tok.Literal = token.COMMA, ","
	case '(':
		tok.Type, tok.Literal = token.LPAREN, "("
	case ')':
		tok.Type, tok.Literal = token.RPAREN, ")"
	case ';':
		tok.Type, tok.Literal = token.SEMICOLON, ";"
	case '.':
		if isDigit(l.peekChar()) {
			tok.Type, tok.Literal = token.NUMBER, l.readNumber()
			return tok
		}
		tok.Type, tok.Literal = token.DOT, "."
	case '-':
		tok.Type, tok.Literal = token.MINUS, "-"
	case '\'':
		return l.readQuoted('\'', token.STRING, pos)
	case '"':
		return l.readQuoted('"', token.QUOTED, pos)
	case '`':
		return l.readQuoted('`', token.QUOTED, pos)
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			return tok
		case isDigit(l.ch):
			tok.Type, tok.Literal = token.NUMBER, l.readNumber()
			return tok
		default:
			tok.Type, tok.Literal = token.ILLEGAL, string(l.ch)
		}
	}

	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace, -- line comments and /* */ blocks.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar() // skip '*'
				l.readChar() // skip '/'
			}
			continue
		}

		break
	}
}

// readQuoted reads a literal enclosed in quote. A doubled quote is an
// escaped quote: 'it''s' -> it's. An unterminated literal is ILLEGAL.
func (l *Lexer) readQuoted(quote byte, tt token.TokenType, pos token.Position) token.Token {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return token.Token{Type: tt, Literal: result.String(), Pos: pos}
		}
		// backslash escapes the quote character as well
		if l.ch == '\\' && l.peekChar() == quote {
			l.readChar()
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return token.Token{Type: token.ILLEGAL, Literal: string(quote) + result.String(), Pos: pos}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer, decimal or exponent literal.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && start == l.pos {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
