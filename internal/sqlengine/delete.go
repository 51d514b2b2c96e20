package sqlengine

import (
	"metscheck/internal/ast"
	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// interpretDelete evaluates a DELETE. Matching rows are locked for update
// and buffered as deletes; every row in another relation that references a
// deleted row through a declared foreign key is transitively deleted too
// (cascade), guarded against revisiting the same row twice in one
// statement.
func (db *Database) interpretDelete(txId TransactionId, e ast.DeleteExpr) (value.Value, error) {
	rows := db.visibleRows(txId, e.Relation.Name)
	tx := db.Transactions[txId]

	type target struct {
		relation string
		rid      sqlstore.RowId
		row      sqlstore.Row
	}
	var queue []target
	visited := make(map[string]map[sqlstore.RowId]bool)
	mark := func(relation string, rid sqlstore.RowId) bool {
		if visited[relation] == nil {
			visited[relation] = make(map[sqlstore.RowId]bool)
		}
		if visited[relation][rid] {
			return false
		}
		visited[relation][rid] = true
		return true
	}

	var deleted int16
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
		if mark(e.Relation.Name, r.Rid) {
			queue = append(queue, target{relation: e.Relation.Name, rid: r.Rid, row: r})
			deleted++
		}
	}

	for i := 0; i < len(queue); i++ {
		t := queue[i]
		for _, child := range db.childRowsReferencing(txId, t.relation, t.row) {
			if !mark(child.Relation, child.Rid) {
				continue
			}
			if err := db.acquireLock(txId, Lock{Kind: LockRowUpdate, Relation: child.Relation, Rid: child.Rid}); err != nil {
				return value.Nil, err
			}
			var childRow sqlstore.Row
			for _, r := range db.visibleRows(txId, child.Relation) {
				if r.Rid == child.Rid {
					childRow = r
					break
				}
			}
			queue = append(queue, target{relation: child.Relation, rid: child.Rid, row: childRow})
		}
	}

	for _, t := range queue {
		tx.Changes = append(tx.Changes, Change{Kind: ChangeDelete, Relation: t.relation, Row: sqlstore.Row{Rid: t.rid}})
	}
	return value.Integer(deleted), nil
}
