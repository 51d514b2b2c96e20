package sqlengine

import (
	"metscheck/internal/ast"
	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// interpretSelect evaluates a SELECT. Per the original engine, FOR UPDATE
// requests a row-update lock on every materialized row of the relation
// BEFORE the WHERE condition is applied, not just on matching rows: a
// query that locks more broadly than it reads.
func (db *Database) interpretSelect(txId TransactionId, e ast.SelectExpr) (value.Value, error) {
	rows := db.visibleRows(txId, e.From.Name)

	if e.ForUpdate {
		for _, r := range rows {
			if err := db.acquireLock(txId, Lock{Kind: LockRowUpdate, Relation: e.From.Name, Rid: r.Rid}); err != nil {
				return value.Nil, err
			}
		}
	}

	var matched []sqlstore.Row
	for _, r := range rows {
		ok, err := matches(e.Condition, r)
		if err != nil {
			return value.Nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	if e.Count {
		if len(e.Columns) != 0 {
			return value.Nil, &AggregateMisuseError{Expr: e}
		}
		return value.Integer(int16(len(matched))), nil
	}

	colNames := columnNames(e, db.table(e.From.Name))

	projected := make([]value.Value, len(matched))
	for i, r := range matched {
		v, ok := r.Project(colNames)
		if !ok {
			return value.Nil, &UnknownVariableError{Name: e.From.Name}
		}
		projected[i] = v
	}

	if len(e.OrderBy) > 0 {
		sortByOrder(matched, projected, e.OrderBy)
	}

	projected = applyLimitOffset(projected, e.Limit, e.Offset)

	return value.Set(projected), nil
}

// columnNames resolves the projected column list: the table's declared
// column order when the query selects `*` (no explicit columns).
func columnNames(e ast.SelectExpr, table *sqlstore.Table) []string {
	if len(e.Columns) == 0 {
		return table.Columns
	}
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

func sortByOrder(rows []sqlstore.Row, projected []value.Value, order []ast.OrderTerm) {
	type pair struct {
		row sqlstore.Row
		val value.Value
		key []value.Value
	}
	pairs := make([]pair, len(rows))
	for i := range rows {
		keys := make([]value.Value, len(order))
		for j, term := range order {
			k, err := evalSql(term.Expr, &rows[i])
			if err != nil {
				k = value.Nil
			}
			keys[j] = k
		}
		pairs[i] = pair{row: rows[i], val: projected[i], key: keys}
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && lessKeys(pairs[j].key, pairs[j-1].key); j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	for i, p := range pairs {
		rows[i] = p.row
		projected[i] = p.val
	}
}

func lessKeys(a, b []value.Value) bool {
	for i := range a {
		if a[i].Equal(b[i]) {
			continue
		}
		return a[i].Less(b[i])
	}
	return false
}

func applyLimitOffset(vals []value.Value, limit, offset *int) []value.Value {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start > len(vals) {
		return nil
	}
	vals = vals[start:]
	if limit != nil && *limit < len(vals) {
		vals = vals[:*limit]
	}
	return vals
}
