// Package token defines the token types of the GSQL dialect.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'
	QUOTED // "name" or `name`

	// Operators and punctuation
	STAR      // *
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	SEMICOLON // ;
	DOT       // .
	MINUS     // -

	keywordStart

	// Keywords (alphabetical)
	AND
	AS
	ASC
	AUTOINCREMENT
	BEGIN
	BY
	COMMIT
	CREATE
	DEFAULT
	DEFERRED
	DELETE
	DESC
	DROP
	END
	EXCLUSIVE
	EXISTS
	FALSE
	FROM
	FUNCTION
	FUNCTIONS
	HELP
	IF
	IMMEDIATE
	INDEX
	INSERT
	INTO
	IS
	KEY
	LIKE
	LIMIT
	NOT
	NULL
	OFFSET
	ON
	OR
	ORDER
	PRIMARY
	REFERENCES
	RELEASE
	RETURNS
	ROLLBACK
	SAVEPOINT
	SELECT
	SET
	SHOW
	TABLE
	TABLES
	TO
	TRANSACTION
	TRUE
	UNIQUE
	UPDATE
	VALUES
	WHERE

	keywordEnd
)

var tokenNames = map[TokenType]string{
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	IDENT:     "IDENT",
	NUMBER:    "NUMBER",
	STRING:    "STRING",
	QUOTED:    "QUOTED",
	STAR:      "*",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	SEMICOLON: ";",
	DOT:       ".",
	MINUS:     "-",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{}

func init() {
	names := []string{
		"and", "as", "asc", "autoincrement", "begin", "by", "commit", "create",
		"default", "deferred", "delete", "desc", "drop", "end", "exclusive",
		"exists", "false", "from", "function", "functions", "help", "if",
		"immediate", "index", "insert", "into", "is", "key", "like", "limit",
		"not", "null", "offset", "on", "or", "order", "primary", "references",
		"release", "returns", "rollback", "savepoint", "select", "set", "show",
		"table", "tables", "to", "transaction", "true", "unique", "update",
		"values", "where",
	}
	for i, name := range names {
		t := keywordStart + 1 + TokenType(i)
		keywords[name] = t
		tokenNames[t] = strings.ToUpper(name)
	}
}

// reserved keywords can never be used as identifiers.
var reserved = map[TokenType]bool{
	AND: true, AS: true, CREATE: true, DELETE: true, DROP: true, FALSE: true,
	FROM: true, INSERT: true, INTO: true, IS: true, LIKE: true, LIMIT: true,
	NOT: true, NULL: true, OFFSET: true, ON: true, OR: true, ORDER: true,
	SELECT: true, SET: true, TABLE: true, TRUE: true, UPDATE: true,
	VALUES: true, WHERE: true,
}

// statementKeywords may start a statement.
var statementKeywords = map[TokenType]bool{
	CREATE: true, INSERT: true, SELECT: true, UPDATE: true, DELETE: true,
	DROP: true, SHOW: true, HELP: true, BEGIN: true, COMMIT: true, END: true,
	ROLLBACK: true, SAVEPOINT: true, RELEASE: true,
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// LookupIdent returns the keyword token for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t > keywordStart && t < keywordEnd
}

// IsReserved returns true if the keyword cannot double as an identifier.
func IsReserved(t TokenType) bool {
	return reserved[t]
}

// StartsStatement returns true if the keyword can lead a statement.
func StartsStatement(t TokenType) bool {
	return statementKeywords[t]
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// Is reports whether the token has the given type.
func (t Token) Is(tt TokenType) bool { return t.Type == tt }
