package sqlengine

import (
	"metscheck/internal/ast"
	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// interpretInsert evaluates an INSERT. Each value tuple becomes one new
// row buffered on the transaction's change list; a unique-index or
// foreign-key violation on any row aborts the whole statement without
// buffering a partial insert (spec.md §4.1).
func (db *Database) interpretInsert(txId TransactionId, e ast.InsertExpr) (value.Value, error) {
	table := db.table(e.Relation.Name)
	colNames := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		colNames[i] = c.Name
	}
	table.SeedColumns(colNames)

	tx := db.Transactions[txId]
	var newRows []sqlstore.Row

	for _, v := range e.Values {
		tuple, ok := v.(ast.SqlTupleExpr)
		if !ok {
			return value.Nil, &TypeError{Expr: v, Expected: "a value tuple"}
		}
		if len(tuple.Values) != len(colNames) {
			return value.Nil, &TypeError{Expr: v, Expected: "matching column count"}
		}
		row := sqlstore.Row{Tuples: make(map[string]value.Value, len(colNames)), Rid: db.allocRid()}
		for i, colExpr := range tuple.Values {
			val, err := evalSql(colExpr, nil)
			if err != nil {
				return value.Nil, err
			}
			row.Tuples[colNames[i]] = val
		}

		if db.uniqueConflictExcluding(txId, e.Relation.Name, row, 0) {
			return value.Nil, ErrUnicityViolation
		}
		if !db.foreignKeysSatisfied(txId, e.Relation.Name, row) {
			return value.Nil, ErrForeignKeyViolation
		}
		for _, idx := range table.Unique {
			if err := db.acquireLock(txId, Lock{Kind: LockUnique, Relation: e.Relation.Name, Unique: row.UniqueTuple(idx)}); err != nil {
				return value.Nil, err
			}
		}
		newRows = append(newRows, row)
	}

	for _, row := range newRows {
		tx.Changes = append(tx.Changes, Change{Kind: ChangeInsert, Relation: e.Relation.Name, Row: row})
	}
	return value.Nil, nil
}
