// Package sqlstore implements the row-versioned table store that backs the
// transactional SQL engine: rows keyed by opaque RowId, tables with
// declared column order and unique indexes, and schema-level foreign keys.
//
// Grounded on spec.md §3/§4.1; table/index/foreign-key field shapes follow
// the teacher's internal/executor/schema_manager.go (TableSchema,
// ForeignKey, IndexInfo), repurposed from on-disk storage-engine schema
// metadata to this in-memory model.
package sqlstore

import "metscheck/internal/value"

// RowId is an opaque, process-wide monotonically increasing identifier
// assigned at insert time and preserved across updates (an update is
// modelled as delete-then-insert with the same RowId).
type RowId uint64

// Row is a single row: an ordered set of column bindings plus its RowId.
// Row values are never mutated in place — an "update" always produces a
// new Row sharing the old RowId.
type Row struct {
	Tuples map[string]value.Value
	Rid    RowId
}

// Clone returns a deep copy of the row's tuple map.
func (r Row) Clone() Row {
	clone := make(map[string]value.Value, len(r.Tuples))
	for k, v := range r.Tuples {
		clone[k] = v
	}
	return Row{Tuples: clone, Rid: r.Rid}
}

// Project returns the row's value at the given columns: a single Value
// when one column is requested, else a Tuple in requested order.
// Projecting an undeclared column is a model error (the caller must
// reference declared columns only, per spec.md §4.1).
func (r Row) Project(columns []string) (value.Value, bool) {
	if len(columns) == 1 {
		v, ok := r.Tuples[columns[0]]
		return v, ok
	}
	elems := make([]value.Value, len(columns))
	for i, c := range columns {
		v, ok := r.Tuples[c]
		if !ok {
			return value.Nil, false
		}
		elems[i] = v
	}
	return value.Tuple(elems), true
}

// UniqueTuple returns the row's values at a unique index's columns.
func (r Row) UniqueTuple(index UniqueIndex) value.Value {
	elems := make([]value.Value, len(index))
	for i, c := range index {
		elems[i] = r.Tuples[c]
	}
	return value.Tuple(elems)
}

// UniqueIndex is an ordered list of column names forming a unique
// constraint.
type UniqueIndex []string

// Table holds a table's declared column order, its committed rows
// (insertion order preserved — observable to SELECT without ORDER BY, and
// required for dedup convergence per spec.md §9), and its unique indexes.
type Table struct {
	Columns []string
	Rows    []Row
	Unique  []UniqueIndex
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	clone := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
		Unique:  make([]UniqueIndex, len(t.Unique)),
	}
	for i, r := range t.Rows {
		clone.Rows[i] = r.Clone()
	}
	for i, u := range t.Unique {
		clone.Unique[i] = append(UniqueIndex(nil), u...)
	}
	return clone
}

// SeedColumns sets the table's column order the first time it is inserted
// into, if not already set.
func (t *Table) SeedColumns(columns []string) {
	if len(t.Columns) == 0 {
		t.Columns = append([]string(nil), columns...)
	}
}

// ForeignKey is a schema-level constraint: (Relation.Columns) references
// (ForeignRelation.ForeignColumns). Held at the database level, not
// per-table, since either side may be declared in any order.
type ForeignKey struct {
	Relation        string
	Columns         []string
	ForeignRelation string
	ForeignColumns  []string
}
