// Package parser turns GSQL text into typed statements.
//
// # Usage
//
//	stmt, err := parser.Parse("SELECT * FROM users WHERE id = 1")
//	if err != nil {
//	    // err is a *core.SyntaxError
//	}
//	switch s := stmt.(type) {
//	case *core.Select:
//	    ...
//	}
//
// # Grammar Overview
//
// The parser is a small recursive-descent matcher over a fixed set of
// statement shapes. Dispatch is by leading keyword:
//
//	statement → create_table | create_index | create_function
//	          | insert | select | update | delete | drop_table
//	          | SHOW (TABLES | FUNCTIONS) | HELP [word]
//	          | BEGIN [mode] [TRANSACTION] | (COMMIT | END) [TRANSACTION]
//	          | ROLLBACK [TRANSACTION] [TO [SAVEPOINT] name]
//	          | SAVEPOINT name | RELEASE [SAVEPOINT] name
//	where     → condition {AND condition}
//
// See parser_ddl.go, parser_dml.go and parser_tx.go for the per-statement rules.
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/leapstack-labs/gsql/pkg/token"
)

// Parser parses GSQL into a statement AST.
type Parser struct {
	lexer  *Lexer
	input  string
	token  token.Token // current token
	peek   token.Token // lookahead token
	errors []error
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}
	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses exactly one statement. A trailing semicolon is allowed.
func Parse(input string) (core.Statement, error) {
	p := NewParser(input)
	stmt := p.parseStatement()
	if len(p.errors) == 0 {
		p.match(token.SEMICOLON)
		if !p.check(token.EOF) {
			p.addError(p.token, fmt.Sprintf(ErrTrailingInput, p.token.Literal))
		}
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ParseAll parses a semicolon-separated script.
func ParseAll(input string) ([]core.Statement, error) {
	p := NewParser(input)
	var stmts []core.Statement
	for {
		for p.match(token.SEMICOLON) {
		}
		if p.check(token.EOF) {
			return stmts, nil
		}
		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			return nil, p.errors[0]
		}
		stmts = append(stmts, stmt)
		if !p.check(token.SEMICOLON) && !p.check(token.EOF) {
			p.addError(p.token, fmt.Sprintf(ErrTrailingInput, p.token.Literal))
			return nil, p.errors[0]
		}
	}
}

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() core.Statement {
	switch p.token.Type {
	case token.CREATE:
		return p.parseCreate()
	case token.INSERT:
		return p.parseInsert()
	case token.SELECT:
		return p.parseSelect()
	case token.UPDATE:
		return p.parseUpdate()
	case token.DELETE:
		return p.parseDelete()
	case token.DROP:
		return p.parseDropTable()
	case token.SHOW:
		return p.parseShow()
	case token.HELP:
		return p.parseHelp()
	case token.BEGIN:
		return p.parseBegin()
	case token.COMMIT, token.END:
		return p.parseCommit()
	case token.ROLLBACK:
		return p.parseRollback()
	case token.SAVEPOINT:
		return p.parseSavepoint()
	case token.RELEASE:
		return p.parseRelease()
	case token.EOF:
		p.addError(p.token, ErrEmptyStatement)
		return nil
	default:
		p.addError(p.token, fmt.Sprintf(ErrUnknownCommand, p.token.Literal))
		return nil
	}
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(p.token, fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
	return false
}

// failed reports whether any error has been recorded.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// addError records a syntax error anchored at tok. Only the first error is
// reported; later ones are usually cascades.
func (p *Parser) addError(tok token.Token, msg string) {
	p.errors = append(p.errors, &core.SyntaxError{
		Text:    p.snippet(tok),
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
		Message: msg,
	})
}

// snippet returns the input from tok onward, shortened for messages.
func (p *Parser) snippet(tok token.Token) string {
	if tok.Type == token.EOF || tok.Pos.Offset >= len(p.input) {
		return strings.TrimSpace(p.input)
	}
	rest := strings.TrimSpace(p.input[tok.Pos.Offset:])
	if len(rest) > 40 {
		rest = rest[:40] + "..."
	}
	return rest
}

// ident consumes an identifier. Quoted names and non-reserved keywords
// are accepted too.
func (p *Parser) ident(what string) string {
	tok := p.token
	switch {
	case tok.Type == token.IDENT, tok.Type == token.QUOTED:
	case token.IsKeyword(tok.Type) && !token.IsReserved(tok.Type):
	default:
		p.addError(tok, fmt.Sprintf(ErrExpectedName, what, describe(tok)))
		return ""
	}
	p.nextToken()
	return tok.Literal
}

// identList parses ( ident {, ident} ).
func (p *Parser) identList(what string) []string {
	if !p.expect(token.LPAREN) {
		return nil
	}
	var names []string
	for {
		name := p.ident(what)
		if p.failed() {
			return nil
		}
		names = append(names, name)
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return names
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.STRING:
		return fmt.Sprintf("'%s'", tok.Literal)
	case token.ILLEGAL:
		return fmt.Sprintf("%q", tok.Literal)
	default:
		return tok.Literal
	}
}
