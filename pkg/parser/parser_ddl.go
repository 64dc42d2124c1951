package parser

// DDL and informational statements.
//
//	create_table    → CREATE TABLE [IF NOT EXISTS] name ( element {, element} )
//	element         → column_def | PRIMARY KEY ( name {, name} )
//	column_def      → name type [( n [, m] )] {column_constraint}
//	column_constraint → PRIMARY KEY [AUTOINCREMENT] | NOT NULL | NULL | UNIQUE
//	                  | DEFAULT literal | AUTOINCREMENT | REFERENCES table ( name )
//	create_index    → CREATE [UNIQUE] INDEX [IF NOT EXISTS] name ON table ( name {, name} )
//	create_function → CREATE FUNCTION name ( [name {, name}] ) [RETURNS type] AS 'body'
//	drop_table      → DROP TABLE [IF EXISTS] name

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/leapstack-labs/gsql/pkg/token"
)

func (p *Parser) parseCreate() core.Statement {
	p.nextToken() // consume CREATE

	switch {
	case p.check(token.TABLE):
		return p.parseCreateTable()
	case p.check(token.INDEX):
		return p.parseCreateIndex(false)
	case p.check(token.UNIQUE) && p.checkPeek(token.INDEX):
		p.nextToken()
		return p.parseCreateIndex(true)
	case p.check(token.FUNCTION):
		return p.parseCreateFunction()
	default:
		p.addError(p.token, fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "TABLE, INDEX or FUNCTION"))
		return nil
	}
}

// ifNotExists consumes an optional IF NOT EXISTS.
func (p *Parser) ifNotExists() bool {
	if !p.check(token.IF) {
		return false
	}
	p.nextToken()
	if p.expect(token.NOT) {
		p.expect(token.EXISTS)
	}
	return true
}

func (p *Parser) parseCreateTable() core.Statement {
	p.nextToken() // consume TABLE
	stmt := &core.CreateTable{IfNotExists: p.ifNotExists()}
	stmt.Name = p.ident("table")
	if p.failed() || !p.expect(token.LPAREN) {
		return nil
	}

	seen := make(map[string]bool)
	for {
		if p.check(token.PRIMARY) && p.checkPeek(token.KEY) {
			p.nextToken()
			p.nextToken()
			stmt.PrimaryKey = p.identList("column")
		} else {
			col := p.parseColumnDef(len(stmt.Columns))
			if p.failed() {
				return nil
			}
			key := strings.ToLower(col.Name)
			if seen[key] {
				p.addError(p.token, fmt.Sprintf(ErrDuplicateColumn, col.Name))
				return nil
			}
			seen[key] = true
			stmt.Columns = append(stmt.Columns, col)
		}
		if p.failed() {
			return nil
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}

	// Table-level PRIMARY KEY marks its columns.
	for _, pk := range stmt.PrimaryKey {
		found := false
		for i := range stmt.Columns {
			if strings.EqualFold(stmt.Columns[i].Name, pk) {
				if !stmt.Columns[i].Has(core.ConstraintPrimaryKey) {
					stmt.Columns[i].Constraints = append(stmt.Columns[i].Constraints, core.ConstraintPrimaryKey)
				}
				found = true
			}
		}
		if !found {
			p.addError(p.token, fmt.Sprintf("PRIMARY KEY names unknown column %q", pk))
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseColumnDef(position int) core.Column {
	col := core.Column{Position: position}
	col.Name = p.ident("column")
	if p.failed() {
		return col
	}

	// Type name, with an optional size suffix kept in DeclaredType.
	typeTok := p.token
	if typeTok.Type != token.IDENT && !token.IsKeyword(typeTok.Type) {
		p.addError(typeTok, fmt.Sprintf(ErrExpectedName, "type", describe(typeTok)))
		return col
	}
	p.nextToken()
	decl := strings.ToUpper(typeTok.Literal)
	if p.match(token.LPAREN) {
		var sizes []string
		for p.check(token.NUMBER) {
			sizes = append(sizes, p.token.Literal)
			p.nextToken()
			if !p.match(token.COMMA) {
				break
			}
		}
		if !p.expect(token.RPAREN) {
			return col
		}
		decl += "(" + strings.Join(sizes, ",") + ")"
	}
	col.DeclaredType = decl
	col.Type = core.NormalizeType(decl)

	for !p.check(token.COMMA) && !p.check(token.RPAREN) && !p.failed() {
		switch {
		case p.check(token.PRIMARY):
			p.nextToken()
			if p.expect(token.KEY) {
				col.Constraints = append(col.Constraints, core.ConstraintPrimaryKey)
				// ordering hint has no effect
				if !p.match(token.ASC) {
					p.match(token.DESC)
				}
			}
		case p.check(token.NOT):
			p.nextToken()
			if p.expect(token.NULL) {
				col.Constraints = append(col.Constraints, core.ConstraintNotNull)
			}
		case p.check(token.NULL):
			p.nextToken()
		case p.check(token.UNIQUE):
			p.nextToken()
			col.Constraints = append(col.Constraints, core.ConstraintUnique)
		case p.check(token.AUTOINCREMENT):
			p.nextToken()
			col.AutoIncrement = true
		case p.check(token.DEFAULT):
			p.nextToken()
			paren := p.match(token.LPAREN)
			col.Default = p.literal()
			if paren {
				p.expect(token.RPAREN)
			}
		case p.check(token.REFERENCES):
			p.nextToken()
			ref := &core.ForeignKey{Column: col.Name, RefTable: p.ident("table")}
			if !p.failed() {
				if cols := p.identList("column"); len(cols) > 0 {
					ref.RefColumn = cols[0]
				}
			}
			col.References = ref
		default:
			p.addError(p.token, fmt.Sprintf(ErrColumnConstraint, describe(p.token), col.Name))
		}
	}
	return col
}

func (p *Parser) parseCreateIndex(unique bool) core.Statement {
	p.nextToken() // consume INDEX
	stmt := &core.CreateIndex{Unique: unique, IfNotExists: p.ifNotExists()}
	stmt.Name = p.ident("index")
	if p.failed() || !p.expect(token.ON) {
		return nil
	}
	stmt.Table = p.ident("table")
	if p.failed() {
		return nil
	}
	stmt.Columns = p.identList("column")
	if p.failed() {
		return nil
	}
	return stmt
}

func (p *Parser) parseCreateFunction() core.Statement {
	p.nextToken() // consume FUNCTION
	stmt := &core.CreateFunction{}
	stmt.Name = p.ident("function")
	if p.failed() || !p.expect(token.LPAREN) {
		return nil
	}
	if !p.check(token.RPAREN) {
		for {
			param := p.ident("parameter")
			if p.failed() {
				return nil
			}
			stmt.Params = append(stmt.Params, param)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	if p.match(token.RETURNS) {
		stmt.Returns = strings.ToUpper(p.ident("type"))
		if p.failed() {
			return nil
		}
	}
	if !p.expect(token.AS) {
		return nil
	}
	if !p.check(token.STRING) && !p.check(token.QUOTED) {
		p.addError(p.token, fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "quoted function body"))
		return nil
	}
	stmt.Body = p.token.Literal
	p.nextToken()
	return stmt
}

func (p *Parser) parseDropTable() core.Statement {
	p.nextToken() // consume DROP
	if !p.expect(token.TABLE) {
		return nil
	}
	stmt := &core.DropTable{}
	if p.match(token.IF) {
		if !p.expect(token.EXISTS) {
			return nil
		}
		stmt.IfExists = true
	}
	stmt.Name = p.ident("table")
	if p.failed() {
		return nil
	}
	return stmt
}

func (p *Parser) parseShow() core.Statement {
	p.nextToken() // consume SHOW
	switch {
	case p.match(token.TABLES):
		return &core.ShowTables{}
	case p.match(token.FUNCTIONS):
		return &core.ShowFunctions{}
	default:
		p.addError(p.token, fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "TABLES or FUNCTIONS"))
		return nil
	}
}

func (p *Parser) parseHelp() core.Statement {
	p.nextToken() // consume HELP
	stmt := &core.Help{}
	if !p.check(token.EOF) && !p.check(token.SEMICOLON) {
		stmt.Topic = strings.ToLower(p.token.Literal)
		p.nextToken()
	}
	return stmt
}
