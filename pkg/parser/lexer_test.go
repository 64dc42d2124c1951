package parser

import (
	"testing"

	"github.com/leapstack-labs/gsql/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Basic(t *testing.T) {
	input := "SELECT * FROM users WHERE id >= 10;"
	tokens := NewLexer(input).Tokens()

	expected := []struct {
		typ token.TokenType
		val string
	}{
		{token.SELECT, "SELECT"},
		{token.STAR, "*"},
		{token.FROM, "FROM"},
		{token.IDENT, "users"},
		{token.WHERE, "WHERE"},
		{token.IDENT, "id"},
		{token.GE, ">="},
		{token.NUMBER, "10"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	require.Len(t, tokens, len(expected), "wrong number of tokens")
	for i, exp := range expected {
		assert.Equal(t, exp.typ, tokens[i].Type, "token[%d] type", i)
		assert.Equal(t, exp.val, tokens[i].Literal, "token[%d] literal", i)
	}
}

func TestLexer_Operators(t *testing.T) {
	tests := []struct {
		input string
		typ   token.TokenType
		lit   string
	}{
		{"=", token.EQ, "="},
		{"==", token.EQ, "=="},
		{"!=", token.NE, "!="},
		{"<>", token.NE, "<>"},
		{"<", token.LT, "<"},
		{"<=", token.LE, "<="},
		{">", token.GT, ">"},
		{">=", token.GE, ">="},
		{"!", token.ILLEGAL, "!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, tt.typ, tok.Type)
			assert.Equal(t, tt.lit, tok.Literal)
		})
	}
}

func TestLexer_Strings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		typ   token.TokenType
		lit   string
	}{
		{"simple", "'hello'", token.STRING, "hello"},
		{"comma inside", "'a, b, c'", token.STRING, "a, b, c"},
		{"keyword inside", "'SELECT FROM'", token.STRING, "SELECT FROM"},
		{"doubled quote", "'it''s'", token.STRING, "it's"},
		{"backslash quote", `'it\'s'`, token.STRING, "it's"},
		{"double quoted", `"my col"`, token.QUOTED, "my col"},
		{"backtick", "`order`", token.QUOTED, "order"},
		{"unterminated", "'oops", token.ILLEGAL, "'oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, tt.typ, tok.Type)
			assert.Equal(t, tt.lit, tok.Literal)
		})
	}
}

func TestLexer_Numbers(t *testing.T) {
	tests := []struct {
		input string
		lit   string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{".5", ".5"},
		{"1e10", "1e10"},
		{"2.5E-3", "2.5E-3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, token.NUMBER, tok.Type)
			assert.Equal(t, tt.lit, tok.Literal)
		})
	}
}

func TestLexer_Comments(t *testing.T) {
	input := "-- leading\nSELECT /* block\ncomment */ name FROM t"
	tokens := NewLexer(input).Tokens()

	var types []token.TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []token.TokenType{token.SELECT, token.IDENT, token.FROM, token.IDENT, token.EOF}, types)
}

func TestLexer_Positions(t *testing.T) {
	tokens := NewLexer("SELECT\n  name").Tokens()
	require.Len(t, tokens, 3)

	assert.Equal(t, 1, tokens[0].Pos.Line)
	assert.Equal(t, 1, tokens[0].Pos.Column)
	assert.Equal(t, 2, tokens[1].Pos.Line)
	assert.Equal(t, 3, tokens[1].Pos.Column)
	assert.Equal(t, 9, tokens[1].Pos.Offset)
}
