package sqlengine

import (
	"metscheck/internal/ast"
	"metscheck/internal/value"
)

// Execute interprets a single embedded SQL expression. txId zero means no
// open transaction. For a read (SelectExpr) this means: see only committed
// rows, and any lock the expression would need is checked for conflicts
// but never held. For a write (InsertExpr/UpdateExpr/DeleteExpr) this means
// auto-commit: Execute opens a real transaction, runs the statement
// against it, and commits on success or discards it on error, so the
// caller never sees the synthetic transaction (spec.md §4.2's
// execute(expr, opt_tx) contract). The caller (internal/interpreter) is
// expected to have already reified any SqlUpVariableExpr into
// SqlValueExpr: Execute itself never resolves a DSL-local reference.
func (db *Database) Execute(txId TransactionId, expr ast.SqlExpression) (value.Value, error) {
	if txId != 0 {
		if _, ok := db.Transactions[txId]; !ok {
			return value.Nil, &UnknownVariableError{Name: "<no open transaction>"}
		}
	}
	switch e := expr.(type) {
	case ast.SelectExpr:
		return db.interpretSelect(txId, e)
	case ast.InsertExpr:
		return db.autoCommit(txId, func(tx TransactionId) (value.Value, error) { return db.interpretInsert(tx, e) })
	case ast.UpdateExpr:
		return db.autoCommit(txId, func(tx TransactionId) (value.Value, error) { return db.interpretUpdate(tx, e) })
	case ast.DeleteExpr:
		return db.autoCommit(txId, func(tx TransactionId) (value.Value, error) { return db.interpretDelete(tx, e) })
	case ast.CreateUniqueIndexExpr:
		return db.interpretCreateUniqueIndex(e)
	case ast.AddForeignKeyExpr:
		return db.interpretAddForeignKey(e)
	default:
		return evalSql(expr, nil)
	}
}

// autoCommit runs run against txId unchanged when txId already names an
// open transaction. When txId is the no-transaction sentinel (0), it opens
// a fresh transaction, runs run against it, and commits on success or
// aborts on failure — the auto-commit wrapper spec.md §4.2 requires for a
// DML statement issued outside any begin/commit pair.
func (db *Database) autoCommit(txId TransactionId, run func(TransactionId) (value.Value, error)) (value.Value, error) {
	if txId != 0 {
		return run(txId)
	}
	tx := db.OpenTransaction()
	v, err := run(tx)
	if err != nil {
		db.Abort(tx)
		return value.Nil, err
	}
	if commitErr := db.Commit(tx); commitErr != nil {
		return value.Nil, commitErr
	}
	return v, nil
}
