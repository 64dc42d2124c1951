package parser

// Data statements.
//
//	insert → INSERT INTO table [( name {, name} )] VALUES tuple {, tuple}
//	tuple  → ( literal {, literal} )
//	select → SELECT item {, item} FROM table [where] [order] [LIMIT n [OFFSET m]]
//	item   → * | column [[AS] alias] | COUNT(*) [[AS] alias] | fname ( [arg {, arg}] ) [[AS] alias]
//	update → UPDATE table SET column = literal {, column = literal} [where]
//	delete → DELETE FROM table [where]
//	where  → WHERE cond {AND cond}
//	cond   → column op literal | column IS [NOT] NULL | column [NOT] LIKE literal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/leapstack-labs/gsql/pkg/token"
)

func (p *Parser) parseInsert() core.Statement {
	p.nextToken() // consume INSERT
	if !p.expect(token.INTO) {
		return nil
	}
	stmt := &core.Insert{Table: p.ident("table")}
	if p.failed() {
		return nil
	}
	if p.check(token.LPAREN) {
		stmt.Columns = p.identList("column")
		if p.failed() {
			return nil
		}
	}
	if !p.expect(token.VALUES) {
		return nil
	}

	for {
		tupleTok := p.token
		if !p.expect(token.LPAREN) {
			return nil
		}
		var tuple []any
		for {
			v := p.literal()
			if p.failed() {
				return nil
			}
			tuple = append(tuple, v)
			if !p.match(token.COMMA) {
				break
			}
		}
		if !p.expect(token.RPAREN) {
			return nil
		}

		want := len(stmt.Columns)
		if want == 0 && len(stmt.Values) > 0 {
			want = len(stmt.Values[0])
		}
		if want > 0 && len(tuple) != want {
			p.addError(tupleTok, fmt.Sprintf(ErrValueCount, len(tuple), want))
			return nil
		}
		stmt.Values = append(stmt.Values, tuple)

		if !p.match(token.COMMA) {
			break
		}
	}
	return stmt
}

func (p *Parser) parseSelect() core.Statement {
	p.nextToken() // consume SELECT
	stmt := &core.Select{}

	for {
		startTok := p.token
		item := p.parseSelectItem()
		if p.failed() {
			return nil
		}
		if item.Kind == core.ItemStar && len(stmt.Items) > 0 ||
			len(stmt.Items) > 0 && stmt.Items[0].Kind == core.ItemStar {
			p.addError(startTok, ErrStarMixed)
			return nil
		}
		stmt.Items = append(stmt.Items, item)
		if !p.match(token.COMMA) {
			break
		}
	}

	if !p.expect(token.FROM) {
		return nil
	}
	stmt.Table = p.ident("table")
	if p.failed() {
		return nil
	}

	stmt.Where = p.parseWhere()
	if p.failed() {
		return nil
	}

	if p.check(token.ORDER) {
		p.nextToken()
		if !p.expect(token.BY) {
			return nil
		}
		for {
			item := core.OrderItem{Column: p.columnRef()}
			if p.failed() {
				return nil
			}
			if p.match(token.DESC) {
				item.Desc = true
			} else {
				p.match(token.ASC)
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	if p.match(token.LIMIT) {
		n, ok := p.count()
		if !ok {
			return nil
		}
		stmt.Limit = &n
	}
	if p.match(token.OFFSET) {
		n, ok := p.count()
		if !ok {
			return nil
		}
		stmt.Offset = n
	}
	return stmt
}

func (p *Parser) parseSelectItem() core.SelectItem {
	if p.match(token.STAR) {
		return core.SelectItem{Kind: core.ItemStar}
	}

	var item core.SelectItem
	if p.checkPeek(token.LPAREN) {
		name := p.ident("function")
		if p.failed() {
			return item
		}
		p.nextToken() // consume (
		if strings.EqualFold(name, "count") && p.check(token.STAR) {
			p.nextToken()
			item = core.SelectItem{Kind: core.ItemCount, Func: "count"}
		} else {
			item = core.SelectItem{Kind: core.ItemFunc, Func: strings.ToLower(name)}
			if !p.check(token.RPAREN) {
				for {
					arg := p.parseArg()
					if p.failed() {
						return item
					}
					item.Args = append(item.Args, arg)
					if !p.match(token.COMMA) {
						break
					}
				}
			}
		}
		if !p.expect(token.RPAREN) {
			return item
		}
	} else {
		item = core.SelectItem{Kind: core.ItemColumn, Column: p.columnRef()}
		if p.failed() {
			return item
		}
	}

	if p.match(token.AS) {
		item.Alias = p.ident("alias")
	} else if p.check(token.IDENT) || p.check(token.QUOTED) {
		item.Alias = p.token.Literal
		p.nextToken()
	}
	return item
}

// parseArg parses a function argument: a literal or a column reference.
func (p *Parser) parseArg() core.Arg {
	switch p.token.Type {
	case token.STRING, token.NUMBER, token.MINUS, token.TRUE, token.FALSE, token.NULL:
		return core.Arg{Value: p.literal()}
	default:
		return core.Arg{Column: p.columnRef()}
	}
}

// columnRef parses a column name, dropping an optional table qualifier.
func (p *Parser) columnRef() string {
	name := p.ident("column")
	if p.failed() {
		return ""
	}
	if p.match(token.DOT) {
		name = p.ident("column")
	}
	return name
}

// count parses a non-negative integer for LIMIT/OFFSET.
func (p *Parser) count() (int64, bool) {
	tok := p.token
	if tok.Type != token.NUMBER {
		p.addError(tok, ErrBadLimit)
		return 0, false
	}
	n, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil || n < 0 {
		p.addError(tok, ErrBadLimit)
		return 0, false
	}
	p.nextToken()
	return n, true
}

func (p *Parser) parseUpdate() core.Statement {
	p.nextToken() // consume UPDATE
	stmt := &core.Update{Table: p.ident("table")}
	if p.failed() || !p.expect(token.SET) {
		return nil
	}
	for {
		a := core.Assignment{Column: p.columnRef()}
		if p.failed() || !p.expect(token.EQ) {
			return nil
		}
		a.Value = p.literal()
		if p.failed() {
			return nil
		}
		stmt.Set = append(stmt.Set, a)
		if !p.match(token.COMMA) {
			break
		}
	}
	stmt.Where = p.parseWhere()
	if p.failed() {
		return nil
	}
	return stmt
}

func (p *Parser) parseDelete() core.Statement {
	p.nextToken() // consume DELETE
	if !p.expect(token.FROM) {
		return nil
	}
	stmt := &core.Delete{Table: p.ident("table")}
	if p.failed() {
		return nil
	}
	stmt.Where = p.parseWhere()
	if p.failed() {
		return nil
	}
	return stmt
}

// parseWhere parses an optional WHERE clause. Conditions are joined by AND
// only; OR fails loudly instead of being silently misread.
func (p *Parser) parseWhere() []core.Condition {
	if !p.match(token.WHERE) {
		if p.check(token.OR) {
			p.addError(p.token, ErrOrUnsupported)
		}
		return nil
	}
	var conds []core.Condition
	for {
		cond := p.parseCondition()
		if p.failed() {
			return nil
		}
		conds = append(conds, cond)
		if p.check(token.OR) {
			p.addError(p.token, ErrOrUnsupported)
			return nil
		}
		if !p.match(token.AND) {
			break
		}
	}
	return conds
}

func (p *Parser) parseCondition() core.Condition {
	cond := core.Condition{Column: p.columnRef()}
	if p.failed() {
		return cond
	}

	opTok := p.token
	switch opTok.Type {
	case token.EQ:
		cond.Op = core.OpEq
	case token.NE:
		cond.Op = core.OpNe
	case token.LT:
		cond.Op = core.OpLt
	case token.LE:
		cond.Op = core.OpLe
	case token.GT:
		cond.Op = core.OpGt
	case token.GE:
		cond.Op = core.OpGe
	case token.LIKE:
		cond.Op = core.OpLike
	case token.NOT:
		p.nextToken()
		if !p.check(token.LIKE) {
			p.addError(p.token, fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "LIKE"))
			return cond
		}
		cond.Op = core.OpNotLike
	case token.IS:
		p.nextToken()
		cond.Op = core.OpIsNull
		if p.match(token.NOT) {
			cond.Op = core.OpIsNotNull
		}
		p.expect(token.NULL)
		return cond
	default:
		p.addError(opTok, fmt.Sprintf(ErrUnexpectedToken, describe(opTok), "comparison operator"))
		return cond
	}
	p.nextToken()
	cond.Value = p.literal()
	return cond
}

// literal parses a value literal and coerces it. NULL yields nil, so callers
// detect failure through failed().
func (p *Parser) literal() any {
	tok := p.token
	switch tok.Type {
	case token.STRING, token.QUOTED:
		p.nextToken()
		return core.CoerceLiteral(core.LiteralString, tok.Literal)
	case token.NUMBER:
		p.nextToken()
		return core.CoerceLiteral(core.LiteralNumber, tok.Literal)
	case token.MINUS:
		p.nextToken()
		if !p.check(token.NUMBER) {
			p.addError(p.token, fmt.Sprintf(ErrExpectedLiteral, describe(p.token)))
			return nil
		}
		num := p.token.Literal
		p.nextToken()
		return core.CoerceLiteral(core.LiteralNumber, "-"+num)
	case token.TRUE, token.FALSE:
		p.nextToken()
		return core.CoerceLiteral(core.LiteralBool, tok.Literal)
	case token.NULL:
		p.nextToken()
		return nil
	case token.ILLEGAL:
		if strings.HasPrefix(tok.Literal, "'") || strings.HasPrefix(tok.Literal, "\"") || strings.HasPrefix(tok.Literal, "`") {
			p.addError(tok, ErrUnterminatedString)
			return nil
		}
	}
	p.addError(tok, fmt.Sprintf(ErrExpectedLiteral, describe(tok)))
	return nil
}
