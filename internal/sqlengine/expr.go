package sqlengine

import (
	"metscheck/internal/ast"
	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// evalSql evaluates an SQL expression. row is the current WHERE/UPDATE row
// context, or nil outside of one (a bare column reference is then an
// UnknownVariableError).
func evalSql(expr ast.SqlExpression, row *sqlstore.Row) (value.Value, error) {
	switch e := expr.(type) {
	case ast.SqlIntegerExpr:
		return value.Integer(e.Value), nil
	case ast.SqlStringExpr:
		return value.String(e.Value), nil
	case ast.SqlValueExpr:
		return e.Value, nil
	case ast.SqlVarExpr:
		if row == nil {
			return value.Nil, &UnknownVariableError{Name: e.Name.Name}
		}
		v, ok := row.Tuples[e.Name.Name]
		if !ok {
			return value.Nil, &UnknownVariableError{Name: e.Name.Name}
		}
		return v, nil
	case ast.SqlUpVariableExpr:
		return value.Nil, &UnknownVariableError{Name: "$" + e.Name.Name}
	case ast.SqlTupleExpr:
		elems := make([]value.Value, len(e.Values))
		for i, m := range e.Values {
			v, err := evalSql(m, row)
			if err != nil {
				return value.Nil, err
			}
			elems[i] = v
		}
		return value.Tuple(elems), nil
	case ast.SqlSetExpr:
		elems := make([]value.Value, len(e.Members))
		for i, m := range e.Members {
			v, err := evalSql(m, row)
			if err != nil {
				return value.Nil, err
			}
			elems[i] = v
		}
		return value.Set(elems), nil
	case ast.SqlBetweenExpr:
		target, err := evalSql(e.Target, row)
		if err != nil {
			return value.Nil, err
		}
		lo, err := evalSql(e.Low, row)
		if err != nil {
			return value.Nil, err
		}
		hi, err := evalSql(e.High, row)
		if err != nil {
			return value.Nil, err
		}
		return value.Bool(!target.Less(lo) && !hi.Less(target)), nil
	case ast.SqlBinaryExpr:
		return evalSqlBinary(e, row)
	default:
		return value.Nil, &TypeError{Expr: expr, Expected: "an evaluable expression"}
	}
}

func evalSqlBinary(e ast.SqlBinaryExpr, row *sqlstore.Row) (value.Value, error) {
	if e.Operator == ast.SqlAnd || e.Operator == ast.SqlOr {
		left, err := evalSql(e.Left, row)
		if err != nil {
			return value.Nil, err
		}
		lb, ok := left.AsBool()
		if !ok {
			return value.Nil, &TypeError{Expr: e.Left, Expected: "bool"}
		}
		if e.Operator == ast.SqlAnd && !lb {
			return value.Bool(false), nil
		}
		if e.Operator == ast.SqlOr && lb {
			return value.Bool(true), nil
		}
		right, err := evalSql(e.Right, row)
		if err != nil {
			return value.Nil, err
		}
		rb, ok := right.AsBool()
		if !ok {
			return value.Nil, &TypeError{Expr: e.Right, Expected: "bool"}
		}
		return value.Bool(rb), nil
	}

	left, err := evalSql(e.Left, row)
	if err != nil {
		return value.Nil, err
	}
	right, err := evalSql(e.Right, row)
	if err != nil {
		return value.Nil, err
	}

	switch e.Operator {
	case ast.SqlEqual:
		return value.Bool(left.Equal(right)), nil
	case ast.SqlNotEqual:
		return value.Bool(!left.Equal(right)), nil
	case ast.SqlLess:
		return value.Bool(left.Less(right)), nil
	case ast.SqlLessEqual:
		return value.Bool(left.Less(right) || left.Equal(right)), nil
	case ast.SqlGreater:
		return value.Bool(!left.Less(right) && !left.Equal(right)), nil
	case ast.SqlGreaterEqual:
		return value.Bool(!left.Less(right)), nil
	case ast.SqlIn:
		members, ok := right.AsSet()
		if !ok {
			return value.Nil, &TypeError{Expr: e.Right, Expected: "set"}
		}
		for _, m := range members {
			if m.Equal(left) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	}

	li, lok := left.AsInteger()
	ri, rok := right.AsInteger()
	if !lok {
		return value.Nil, &TypeError{Expr: e.Left, Expected: "integer"}
	}
	if !rok {
		return value.Nil, &TypeError{Expr: e.Right, Expected: "integer"}
	}
	switch e.Operator {
	case ast.SqlAdd:
		return value.Integer(li + ri), nil
	case ast.SqlSubtract:
		return value.Integer(li - ri), nil
	case ast.SqlMultiply:
		return value.Integer(li * ri), nil
	case ast.SqlDivide:
		if ri == 0 {
			return value.Nil, &TypeError{Expr: e.Right, Expected: "nonzero divisor"}
		}
		return value.Integer(li / ri), nil
	case ast.SqlRem:
		if ri == 0 {
			return value.Nil, &TypeError{Expr: e.Right, Expected: "nonzero divisor"}
		}
		return value.Integer(li % ri), nil
	}
	return value.Nil, &TypeError{Expr: e, Expected: "a recognized operator"}
}

func matches(cond ast.SqlExpression, row sqlstore.Row) (bool, error) {
	if cond == nil {
		return true, nil
	}
	v, err := evalSql(cond, &row)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, &TypeError{Expr: cond, Expected: "bool"}
	}
	return b, nil
}
