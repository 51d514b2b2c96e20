package parser

import (
	"strconv"

	"metscheck/internal/ast"
	"metscheck/internal/token"
)

// parseExpr parses a DSL expression, starting with the optional `let`
// assignment form.
func (p *Parser) parseExpr() (ast.Expression, error) {
	if p.at(token.LET) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLONEQUAL); err != nil {
			return nil, err
		}
		value, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return ast.AssignExpr{Target: ast.Variable{Name: name.Lexeme}, Value: value}, nil
	}
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Left: left, Operator: ast.OpOr, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Left: left, Operator: ast.OpAnd, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.at(token.EQUAL) || p.at(token.NOTEQUAL) || p.at(token.IN) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		switch op {
		case token.EQUAL:
			left = ast.BinaryExpr{Left: left, Operator: ast.OpEqual, Right: right}
		case token.NOTEQUAL:
			left = ast.BinaryExpr{Left: left, Operator: ast.OpNotEqual, Right: right}
		case token.IN:
			left = ast.BinaryExpr{Left: left, Operator: ast.OpIncluded, Right: right}
		}
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(token.LESS) || p.at(token.LESSEQUAL) || p.at(token.GREATER) || p.at(token.GREATEREQUAL) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Left: left, Operator: relOperator(op), Right: right}
	}
	return left, nil
}

func relOperator(k token.Kind) ast.Operator {
	switch k {
	case token.LESS:
		return ast.OpLess
	case token.LESSEQUAL:
		return ast.OpLessEqual
	case token.GREATER:
		return ast.OpGreater
	default:
		return ast.OpGreaterEqual
	}
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if op == token.PLUS {
			left = ast.BinaryExpr{Left: left, Operator: ast.OpAdd, Right: right}
		} else {
			left = ast.BinaryExpr{Left: left, Operator: ast.OpSubtract, Right: right}
		}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseMember()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		switch op {
		case token.STAR:
			left = ast.BinaryExpr{Left: left, Operator: ast.OpMultiply, Right: right}
		case token.SLASH:
			left = ast.BinaryExpr{Left: left, Operator: ast.OpDivide, Right: right}
		case token.PERCENT:
			left = ast.BinaryExpr{Left: left, Operator: ast.OpRem, Right: right}
		}
	}
	return left, nil
}

func (p *Parser) parseMember() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(token.DOT) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		member, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		expr = ast.MemberExpr{CallSite: expr, Member: ast.Variable{Name: member.Lexeme}}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch p.current.Kind {
	case token.NUMBER:
		t := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		i, err := strconv.ParseInt(t.Lexeme, 10, 16)
		if err != nil {
			return nil, &Error{Message: "invalid integer literal: " + t.Lexeme, Position: t.Position}
		}
		return ast.IntegerExpr{Value: int16(i)}, nil

	case token.STRING:
		t := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.StringExpr{Value: trimQuotes(t.Lexeme)}, nil

	case token.IDENT:
		if p.current.Lexeme == "scalar" && p.peekAt(token.LPAREN) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(token.LPAREN); err != nil {
				return nil, err
			}
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			return ast.ScalarExpr{Inner: inner}, nil
		}
		t := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.VarExpr{Name: ast.Variable{Name: t.Lexeme}}, nil

	case token.LBRACE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		members, err := p.parseExprList(token.RBRACE)
		if err != nil {
			return nil, err
		}
		return ast.SetExpr{Members: members}, nil

	case token.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		members, err := p.parseExprList(token.RPAREN)
		if err != nil {
			return nil, err
		}
		if len(members) == 1 {
			return members[0], nil
		}
		return ast.TupleExpr{Members: members}, nil

	case token.BACKTICK:
		if err := p.advance(); err != nil {
			return nil, err
		}
		sql, err := p.parseSqlTop()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.BACKTICK); err != nil {
			return nil, err
		}
		return ast.SqlExpr{Sql: sql}, nil

	default:
		return nil, p.errorf("unexpected token %s %q in expression", p.current.Kind, p.current.Lexeme)
	}
}

func (p *Parser) parseExprList(end token.Kind) ([]ast.Expression, error) {
	var exprs []ast.Expression
	if p.at(end) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return exprs, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if p.at(token.COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(end); err != nil {
		return nil, err
	}
	return exprs, nil
}

func trimQuotes(lexeme string) string {
	if len(lexeme) >= 2 && lexeme[0] == '\'' && lexeme[len(lexeme)-1] == '\'' {
		return lexeme[1 : len(lexeme)-1]
	}
	return lexeme
}
