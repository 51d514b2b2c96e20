package sqlengine

import "metscheck/internal/sqlstore"

// visibleRows returns the rows of relation visible to txId: the committed
// rows with that transaction's own buffered inserts/deletes applied on
// top. Other transactions' uncommitted changes are never visible (no
// dirty reads); a transaction always sees its own writes.
func (d *Database) visibleRows(txId TransactionId, relation string) []sqlstore.Row {
	table := d.table(relation)
	deleted := make(map[sqlstore.RowId]bool)
	var inserted []sqlstore.Row

	if tx, ok := d.Transactions[txId]; ok {
		for _, ch := range tx.Changes {
			if ch.Relation != relation {
				continue
			}
			switch ch.Kind {
			case ChangeDelete:
				deleted[ch.Row.Rid] = true
				kept := inserted[:0]
				for _, r := range inserted {
					if r.Rid != ch.Row.Rid {
						kept = append(kept, r)
					}
				}
				inserted = kept
			case ChangeInsert:
				inserted = append(inserted, ch.Row)
			}
		}
	}

	rows := make([]sqlstore.Row, 0, len(table.Rows)+len(inserted))
	for _, r := range table.Rows {
		if !deleted[r.Rid] {
			rows = append(rows, r)
		}
	}
	rows = append(rows, inserted...)
	return rows
}

// uniqueConflictExcluding reports whether row would duplicate an existing
// unique-index tuple visible to txId, ignoring the row identified by
// excludeRid (used by UPDATE to avoid a row conflicting with its own
// pre-update self when the update leaves the unique column unchanged).
func (d *Database) uniqueConflictExcluding(txId TransactionId, relation string, row sqlstore.Row, excludeRid sqlstore.RowId) bool {
	table := d.table(relation)
	if len(table.Unique) == 0 {
		return false
	}
	candidate := row
	visible := d.visibleRows(txId, relation)
	for _, idx := range table.Unique {
		want := candidate.UniqueTuple(idx)
		for _, other := range visible {
			if other.Rid == excludeRid || other.Rid == candidate.Rid {
				continue
			}
			if other.UniqueTuple(idx).Equal(want) {
				return true
			}
		}
	}
	return false
}

// foreignKeysSatisfied reports whether row's foreign-key-constrained
// columns (for relation) reference an existing parent row visible to
// txId, for every declared foreign key whose child side is relation.
func (d *Database) foreignKeysSatisfied(txId TransactionId, relation string, row sqlstore.Row) bool {
	for _, fk := range d.ForeignKeys {
		if fk.Relation != relation {
			continue
		}
		want, ok := row.Project(fk.Columns)
		if !ok {
			continue
		}
		found := false
		for _, parent := range d.visibleRows(txId, fk.ForeignRelation) {
			pv, ok := parent.Project(fk.ForeignColumns)
			if ok && pv.Equal(want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// childRowsReferencing returns, for every foreign key whose parent side is
// relation, the rids in the child relation that reference row (used to
// cascade deletes).
func (d *Database) childRowsReferencing(txId TransactionId, relation string, row sqlstore.Row) []struct {
	Relation string
	Rid      sqlstore.RowId
} {
	var out []struct {
		Relation string
		Rid      sqlstore.RowId
	}
	for _, fk := range d.ForeignKeys {
		if fk.ForeignRelation != relation {
			continue
		}
		want, ok := row.Project(fk.ForeignColumns)
		if !ok {
			continue
		}
		for _, child := range d.visibleRows(txId, fk.Relation) {
			cv, ok := child.Project(fk.Columns)
			if ok && cv.Equal(want) {
				out = append(out, struct {
					Relation string
					Rid      sqlstore.RowId
				}{Relation: fk.Relation, Rid: child.Rid})
			}
		}
	}
	return out
}
