package sqlengine

import (
	"metscheck/internal/ast"
	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// interpretUpdate evaluates an UPDATE. Matching rows are locked for
// update, re-checked against unique/foreign-key constraints with their own
// prior identity excluded (so a row that doesn't change its unique column
// never conflicts with itself), then buffered as a delete of the old row
// plus an insert of the new one sharing the same RowId.
func (db *Database) interpretUpdate(txId TransactionId, e ast.UpdateExpr) (value.Value, error) {
	table := db.table(e.Relation.Name)
	rows := db.visibleRows(txId, e.Relation.Name)
	tx := db.Transactions[txId]

	var updated int16
	for _, r := range rows {
		ok, err := matches(e.Condition, r)
		if err != nil {
			return value.Nil, err
		}
		if !ok {
			continue
		}
		if err := db.acquireLock(txId, Lock{Kind: LockRowUpdate, Relation: e.Relation.Name, Rid: r.Rid}); err != nil {
			return value.Nil, err
		}

		next := r.Clone()
		for _, a := range e.Assignments {
			assign, ok := a.(ast.SqlAssignExpr)
			if !ok {
				return value.Nil, &TypeError{Expr: a, Expected: "a column assignment"}
			}
			val, err := evalSql(assign.Value, &next)
			if err != nil {
				return value.Nil, err
			}
			next.Tuples[assign.Column.Name] = val
		}

		if db.uniqueConflictExcluding(txId, e.Relation.Name, next, r.Rid) {
			return value.Nil, ErrUnicityViolation
		}
		if !db.foreignKeysSatisfied(txId, e.Relation.Name, next) {
			return value.Nil, ErrForeignKeyViolation
		}
		for _, idx := range table.Unique {
			if err := db.acquireLock(txId, Lock{Kind: LockUnique, Relation: e.Relation.Name, Unique: next.UniqueTuple(idx)}); err != nil {
				return value.Nil, err
			}
		}

		tx.Changes = append(tx.Changes,
			Change{Kind: ChangeDelete, Relation: e.Relation.Name, Row: sqlstore.Row{Rid: r.Rid}},
			Change{Kind: ChangeInsert, Relation: e.Relation.Name, Row: next},
		)
		updated++
	}
	return value.Integer(updated), nil
}
