package parser

import (
	"metscheck/internal/ast"
	"metscheck/internal/token"
)

// parseBlock parses statements up to and consuming a terminating `end`.
func (p *Parser) parseBlock() ([]ast.Statement, error) {
	var stmts []ast.Statement
	if err := p.parseBlockInto(&stmts); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseBlockInto appends statements to stmts until it reaches `end` or
// `else` (without consuming either), so the caller can distinguish the
// two and backpatch accordingly.
func (p *Parser) parseBlockInto(stmts *[]ast.Statement) error {
	if err := p.skipNewlines(); err != nil {
		return err
	}
	for !p.at(token.END) && !p.at(token.ELSE) && !p.at(token.EOF) {
		stmt, err := p.parseStatement(stmts)
		if err != nil {
			return err
		}
		if stmt != nil {
			*stmts = append(*stmts, stmt)
		}
		if err := p.skipNewlines(); err != nil {
			return err
		}
	}
	return nil
}

// parseStatement parses one statement. If/else statements append more
// than one entry directly onto stmts (the if/then/else/endif sequence
// with backpatched offsets) and return nil so the caller doesn't append
// a duplicate.
func (p *Parser) parseStatement(stmts *[]ast.Statement) (ast.Statement, error) {
	switch p.current.Kind {
	case token.BEGIN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		iso, err := p.parseOptionalIsolation()
		if err != nil {
			return nil, err
		}
		return ast.BeginStmt{Isolation: iso}, nil

	case token.TRANSACTION:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		iso, err := p.parseOptionalIsolation()
		if err != nil {
			return nil, err
		}
		v := ast.Variable{Name: name.Lexeme}
		return ast.BeginStmt{Isolation: iso, Name: &v}, nil

	case token.COMMIT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.CommitStmt{}, nil

	case token.ABORT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.AbortStmt{}, nil

	case token.LATCH:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.LatchStmt{}, nil

	case token.IF:
		return nil, p.parseIf(stmts)

	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.ExpressionStmt{Expr: expr}, nil
	}
}

func (p *Parser) parseOptionalIsolation() (ast.IsolationLevel, error) {
	if p.at(token.READCOMMITTED) {
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	return ast.ReadCommitted, nil
}

// parseIf parses `if cond do <then> [else <else>] end`, appending the
// flattened if/then/else/endif statement sequence directly onto stmts
// with offsets backpatched once both branch lengths are known — the
// explorer steps this as a flat per-process statement list, not a tree.
func (p *Parser) parseIf(stmts *[]ast.Statement) error {
	if err := p.advance(); err != nil { // consume `if`
		return err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return err
	}
	if _, err := p.expect(token.DO); err != nil {
		return err
	}

	ifIdx := len(*stmts)
	*stmts = append(*stmts, ast.IfStmt{Cond: cond})

	if err := p.parseBlockInto(stmts); err != nil {
		return err
	}
	thenLen := len(*stmts) - ifIdx - 1

	if p.at(token.ELSE) {
		if err := p.advance(); err != nil {
			return err
		}
		elseIdx := len(*stmts)
		*stmts = append(*stmts, ast.ElseStmt{})

		if err := p.parseBlockInto(stmts); err != nil {
			return err
		}
		elseLen := len(*stmts) - elseIdx - 1

		(*stmts)[ifIdx] = ast.IfStmt{Cond: cond, ElseOffset: thenLen + 2}
		(*stmts)[elseIdx] = ast.ElseStmt{EndOffset: elseLen + 1}
	} else {
		(*stmts)[ifIdx] = ast.IfStmt{Cond: cond, ElseOffset: thenLen + 1}
	}

	if _, err := p.expect(token.END); err != nil {
		return err
	}
	return nil
}
