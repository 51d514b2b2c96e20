package sqlengine

import (
	"metscheck/internal/ast"
	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// interpretCreateUniqueIndex declares a unique index on a table. Schema
// changes are applied immediately (not buffered per-transaction): the DSL
// models assume schema is set up once during init, before any process can
// observe a race on it.
func (db *Database) interpretCreateUniqueIndex(e ast.CreateUniqueIndexExpr) (value.Value, error) {
	table := db.table(e.Relation.Name)
	cols := make(sqlstore.UniqueIndex, len(e.Columns))
	for i, c := range e.Columns {
		cols[i] = c.Name
	}
	table.Unique = append(table.Unique, cols)
	return value.Nil, nil
}

// interpretAddForeignKey declares a schema-level foreign key constraint.
func (db *Database) interpretAddForeignKey(e ast.AddForeignKeyExpr) (value.Value, error) {
	cols := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		cols[i] = c.Name
	}
	fcols := make([]string, len(e.ForeignColumns))
	for i, c := range e.ForeignColumns {
		fcols[i] = c.Name
	}
	db.ForeignKeys = append(db.ForeignKeys, sqlstore.ForeignKey{
		Relation:        e.Relation.Name,
		Columns:         cols,
		ForeignRelation: e.ForeignRelation.Name,
		ForeignColumns:  fcols,
	})
	return value.Nil, nil
}
