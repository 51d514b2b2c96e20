package parser

import (
	"strconv"

	"metscheck/internal/ast"
	"metscheck/internal/token"
)

// parseSqlTop parses the content of one backtick-quoted embedded-SQL span:
// a full statement (select/insert/update/delete/create unique index/alter
// table add foreign key) when the leading keyword names one, otherwise a
// bare SQL expression (used for scalar comparisons against `$upvariable`
// references and committed table state).
func (p *Parser) parseSqlTop() (ast.SqlExpression, error) {
	switch p.current.Kind {
	case token.SELECT:
		return p.parseSqlSelect()
	case token.INSERT:
		return p.parseSqlInsert()
	case token.UPDATE:
		return p.parseSqlUpdate()
	case token.DELETE:
		return p.parseSqlDelete()
	case token.CREATE:
		return p.parseSqlCreateUniqueIndex()
	case token.ALTER:
		return p.parseSqlAddForeignKey()
	default:
		return p.parseSqlOr()
	}
}

func (p *Parser) parseSqlSelect() (ast.SqlExpression, error) {
	if err := p.advance(); err != nil { // consume `select`
		return nil, err
	}

	expr := ast.SelectExpr{}
	if p.at(token.STAR) {
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for {
			if p.at(token.COUNT) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				if _, err := p.expect(token.LPAREN); err != nil {
					return nil, err
				}
				if _, err := p.expect(token.STAR); err != nil {
					return nil, err
				}
				if _, err := p.expect(token.RPAREN); err != nil {
					return nil, err
				}
				expr.Count = true
			} else {
				name, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				expr.Columns = append(expr.Columns, ast.Variable{Name: name.Lexeme})
			}
			if p.at(token.COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if expr.Count && len(expr.Columns) != 0 {
			return nil, p.errorf("aggregate misuse: count(*) cannot be combined with other projected columns")
		}
	}

	if _, err := p.expect(token.FROM); err != nil {
		return nil, err
	}
	from, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	expr.From = ast.Variable{Name: from.Lexeme}

	if p.at(token.WHERE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseSqlOr()
		if err != nil {
			return nil, err
		}
		expr.Condition = cond
	}

	if p.at(token.ORDER) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.BY); err != nil {
			return nil, err
		}
		for {
			term, err := p.parseSqlOr()
			if err != nil {
				return nil, err
			}
			expr.OrderBy = append(expr.OrderBy, ast.OrderTerm{Expr: term})
			if p.at(token.COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}

	if p.at(token.LIMIT) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		expr.Limit = &n
	}

	if p.at(token.OFFSET) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		expr.Offset = &n
	}

	if p.at(token.FOR) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.UPDATE); err != nil {
			return nil, err
		}
		expr.ForUpdate = true
	}

	return expr, nil
}

func (p *Parser) parseIntLiteral() (int, error) {
	t, err := p.expect(token.NUMBER)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(t.Lexeme)
	if err != nil {
		return 0, &Error{Message: "invalid integer: " + t.Lexeme, Position: t.Position}
	}
	return n, nil
}

func (p *Parser) parseSqlInsert() (ast.SqlExpression, error) {
	if err := p.advance(); err != nil { // consume `insert`
		return nil, err
	}
	if _, err := p.expect(token.INTO); err != nil {
		return nil, err
	}
	relation, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	expr := ast.InsertExpr{Relation: ast.Variable{Name: relation.Lexeme}}

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		expr.Columns = append(expr.Columns, ast.Variable{Name: col.Lexeme})
		if p.at(token.COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	if _, err := p.expect(token.VALUES); err != nil {
		return nil, err
	}
	for {
		tuple, err := p.parseSqlTuple()
		if err != nil {
			return nil, err
		}
		expr.Values = append(expr.Values, tuple)
		if p.at(token.COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	return expr, nil
}

func (p *Parser) parseSqlTuple() (ast.SqlExpression, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var values []ast.SqlExpression
	for {
		v, err := p.parseSqlOr()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.at(token.COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return ast.SqlTupleExpr{Values: values}, nil
}

func (p *Parser) parseSqlUpdate() (ast.SqlExpression, error) {
	if err := p.advance(); err != nil { // consume `update`
		return nil, err
	}
	relation, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	expr := ast.UpdateExpr{Relation: ast.Variable{Name: relation.Lexeme}}

	if _, err := p.expect(token.SET); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLONEQUAL); err != nil {
			return nil, err
		}
		value, err := p.parseSqlOr()
		if err != nil {
			return nil, err
		}
		expr.Assignments = append(expr.Assignments, ast.SqlAssignExpr{Column: ast.Variable{Name: col.Lexeme}, Value: value})
		if p.at(token.COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if p.at(token.WHERE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseSqlOr()
		if err != nil {
			return nil, err
		}
		expr.Condition = cond
	}

	return expr, nil
}

func (p *Parser) parseSqlDelete() (ast.SqlExpression, error) {
	if err := p.advance(); err != nil { // consume `delete`
		return nil, err
	}
	if _, err := p.expect(token.FROM); err != nil {
		return nil, err
	}
	relation, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	expr := ast.DeleteExpr{Relation: ast.Variable{Name: relation.Lexeme}}

	if p.at(token.WHERE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseSqlOr()
		if err != nil {
			return nil, err
		}
		expr.Condition = cond
	}

	return expr, nil
}

func (p *Parser) parseSqlCreateUniqueIndex() (ast.SqlExpression, error) {
	if err := p.advance(); err != nil { // consume `create`
		return nil, err
	}
	if _, err := p.expect(token.UNIQUE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.INDEX); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	relation, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	expr := ast.CreateUniqueIndexExpr{Relation: ast.Variable{Name: relation.Lexeme}}

	cols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}
	expr.Columns = cols
	return expr, nil
}

func (p *Parser) parseSqlAddForeignKey() (ast.SqlExpression, error) {
	if err := p.advance(); err != nil { // consume `alter`
		return nil, err
	}
	if _, err := p.expect(token.TABLE); err != nil {
		return nil, err
	}
	relation, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	expr := ast.AddForeignKeyExpr{Relation: ast.Variable{Name: relation.Lexeme}}

	if _, err := p.expect(token.ADD); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.CONSTRAINT); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FOREIGN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KEY); err != nil {
		return nil, err
	}

	cols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}
	expr.Columns = cols

	if _, err := p.expect(token.REFERENCES); err != nil {
		return nil, err
	}
	foreign, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	expr.ForeignRelation = ast.Variable{Name: foreign.Lexeme}

	fcols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}
	expr.ForeignColumns = fcols

	return expr, nil
}

func (p *Parser) parseColumnList() ([]ast.Variable, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var cols []ast.Variable
	for {
		col, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		cols = append(cols, ast.Variable{Name: col.Lexeme})
		if p.at(token.COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return cols, nil
}

// --- embedded-SQL expression precedence climb ---
// or -> and -> equality/in -> between -> relational -> additive ->
// multiplicative -> primary

func (p *Parser) parseSqlOr() (ast.SqlExpression, error) {
	left, err := p.parseSqlAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseSqlAnd()
		if err != nil {
			return nil, err
		}
		left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlOr, Right: right}
	}
	return left, nil
}

func (p *Parser) parseSqlAnd() (ast.SqlExpression, error) {
	left, err := p.parseSqlEquality()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseSqlEquality()
		if err != nil {
			return nil, err
		}
		left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlAnd, Right: right}
	}
	return left, nil
}

func (p *Parser) parseSqlEquality() (ast.SqlExpression, error) {
	left, err := p.parseSqlBetween()
	if err != nil {
		return nil, err
	}
	for p.at(token.EQUAL) || p.at(token.NOTEQUAL) || p.at(token.IN) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		if op == token.IN {
			right, err := p.parseSqlPrimary()
			if err != nil {
				return nil, err
			}
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlIn, Right: right}
			continue
		}
		right, err := p.parseSqlBetween()
		if err != nil {
			return nil, err
		}
		if op == token.EQUAL {
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlEqual, Right: right}
		} else {
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlNotEqual, Right: right}
		}
	}
	return left, nil
}

func (p *Parser) parseSqlBetween() (ast.SqlExpression, error) {
	left, err := p.parseSqlRelational()
	if err != nil {
		return nil, err
	}
	if p.at(token.BETWEEN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		low, err := p.parseSqlRelational()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.AND); err != nil {
			return nil, err
		}
		high, err := p.parseSqlRelational()
		if err != nil {
			return nil, err
		}
		return ast.SqlBetweenExpr{Target: left, Low: low, High: high}, nil
	}
	return left, nil
}

func (p *Parser) parseSqlRelational() (ast.SqlExpression, error) {
	left, err := p.parseSqlAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(token.LESS) || p.at(token.LESSEQUAL) || p.at(token.GREATER) || p.at(token.GREATEREQUAL) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseSqlAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.SqlBinaryExpr{Left: left, Operator: sqlRelOperator(op), Right: right}
	}
	return left, nil
}

func sqlRelOperator(k token.Kind) ast.SqlOperator {
	switch k {
	case token.LESS:
		return ast.SqlLess
	case token.LESSEQUAL:
		return ast.SqlLessEqual
	case token.GREATER:
		return ast.SqlGreater
	default:
		return ast.SqlGreaterEqual
	}
}

func (p *Parser) parseSqlAdditive() (ast.SqlExpression, error) {
	left, err := p.parseSqlMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseSqlMultiplicative()
		if err != nil {
			return nil, err
		}
		if op == token.PLUS {
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlAdd, Right: right}
		} else {
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlSubtract, Right: right}
		}
	}
	return left, nil
}

func (p *Parser) parseSqlMultiplicative() (ast.SqlExpression, error) {
	left, err := p.parseSqlPrimary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseSqlPrimary()
		if err != nil {
			return nil, err
		}
		switch op {
		case token.STAR:
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlMultiply, Right: right}
		case token.SLASH:
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlDivide, Right: right}
		case token.PERCENT:
			left = ast.SqlBinaryExpr{Left: left, Operator: ast.SqlRem, Right: right}
		}
	}
	return left, nil
}

func (p *Parser) parseSqlPrimary() (ast.SqlExpression, error) {
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
		return ast.SqlIntegerExpr{Value: int16(i)}, nil

	case token.STRING:
		t := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.SqlStringExpr{Value: trimQuotes(t.Lexeme)}, nil

	case token.DOLLAR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return ast.SqlUpVariableExpr{Name: ast.Variable{Name: name.Lexeme}}, nil

	case token.IDENT:
		t := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.SqlVarExpr{Name: ast.Variable{Name: t.Lexeme}}, nil

	case token.LBRACE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		var members []ast.SqlExpression
		if !p.at(token.RBRACE) {
			for {
				m, err := p.parseSqlOr()
				if err != nil {
					return nil, err
				}
				members = append(members, m)
				if p.at(token.COMMA) {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
		return ast.SqlSetExpr{Members: members}, nil

	case token.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		var values []ast.SqlExpression
		for {
			v, err := p.parseSqlOr()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.at(token.COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		if len(values) == 1 {
			return values[0], nil
		}
		return ast.SqlTupleExpr{Values: values}, nil

	default:
		return nil, p.errorf("unexpected token %s %q in sql expression", p.current.Kind, p.current.Lexeme)
	}
}
