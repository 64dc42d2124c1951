package parser

// Transaction control.
//
//	begin     → BEGIN [DEFERRED | IMMEDIATE | EXCLUSIVE] [TRANSACTION]
//	commit    → (COMMIT | END) [TRANSACTION]
//	rollback  → ROLLBACK [TRANSACTION] [TO [SAVEPOINT] name]
//	savepoint → SAVEPOINT name
//	release   → RELEASE [SAVEPOINT] name

import (
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/leapstack-labs/gsql/pkg/token"
)

func (p *Parser) parseBegin() core.Statement {
	p.nextToken() // consume BEGIN
	stmt := &core.Begin{Isolation: core.IsolationDeferred}
	switch {
	case p.match(token.DEFERRED):
	case p.match(token.IMMEDIATE):
		stmt.Isolation = core.IsolationImmediate
	case p.match(token.EXCLUSIVE):
		stmt.Isolation = core.IsolationExclusive
	}
	p.match(token.TRANSACTION)
	return stmt
}

func (p *Parser) parseCommit() core.Statement {
	p.nextToken() // consume COMMIT or END
	p.match(token.TRANSACTION)
	return &core.Commit{}
}

func (p *Parser) parseRollback() core.Statement {
	p.nextToken() // consume ROLLBACK
	p.match(token.TRANSACTION)
	stmt := &core.Rollback{}
	if p.match(token.TO) {
		p.match(token.SAVEPOINT)
		stmt.Savepoint = p.ident("savepoint")
		if p.failed() {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseSavepoint() core.Statement {
	p.nextToken() // consume SAVEPOINT
	stmt := &core.Savepoint{Name: p.ident("savepoint")}
	if p.failed() {
		return nil
	}
	return stmt
}

func (p *Parser) parseRelease() core.Statement {
	p.nextToken() // consume RELEASE
	p.match(token.SAVEPOINT)
	stmt := &core.Release{Name: p.ident("savepoint")}
	if p.failed() {
		return nil
	}
	return stmt
}
