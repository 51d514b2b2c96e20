package interpreter

import (
	"testing"

	"metscheck/internal/ast"
	"metscheck/internal/modelstate"
	"metscheck/internal/value"
)

func TestBeginCommitUpdatesLocalAndTxState(t *testing.T) {
	s := modelstate.NewInitial(1)
	in := New(s, 0)

	name := ast.Variable{Name: "tx"}
	offset, err := in.Statement(ast.BeginStmt{Name: &name})
	if err != nil || offset != 1 {
		t.Fatalf("begin: offset=%d err=%v", offset, err)
	}
	next := in.NextState()
	if next.Txs[0].State != value.TxRunning {
		t.Errorf("expected running transaction, got %s", next.Txs[0].State)
	}

	in2 := New(next, 0)
	offset, err = in2.Statement(ast.CommitStmt{})
	if err != nil || offset != 1 {
		t.Fatalf("commit: offset=%d err=%v", offset, err)
	}
	committed := in2.NextState()
	if committed.Txs[0].State != value.TxCommitted {
		t.Errorf("expected committed transaction, got %s", committed.Txs[0].State)
	}
	local := committed.Locals["tx"]
	st, ok := local.AsTx()
	if !ok || st != value.TxCommitted {
		t.Errorf("expected local 'tx' to read back as committed, got %v", local)
	}
}

func TestIfStmtConditionMustBeBool(t *testing.T) {
	s := modelstate.NewInitial(1)
	in := New(s, 0)
	_, err := in.Statement(ast.IfStmt{Cond: ast.IntegerExpr{Value: 1}, ElseOffset: 2})
	if err == nil {
		t.Error("expected an error when the if condition is not a bool")
	}
}

func TestIfStmtBranches(t *testing.T) {
	s := modelstate.NewInitial(1)
	in := New(s, 0)
	trueCond := ast.BinaryExpr{Left: ast.IntegerExpr{Value: 1}, Operator: ast.OpEqual, Right: ast.IntegerExpr{Value: 1}}
	offset, err := in.Statement(ast.IfStmt{Cond: trueCond, ElseOffset: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offset != 1 {
		t.Errorf("true condition must advance by 1, got %d", offset)
	}

	falseCond := ast.BinaryExpr{Left: ast.IntegerExpr{Value: 1}, Operator: ast.OpEqual, Right: ast.IntegerExpr{Value: 2}}
	offset, err = in.Statement(ast.IfStmt{Cond: falseCond, ElseOffset: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offset != 5 {
		t.Errorf("false condition must jump by ElseOffset, got %d", offset)
	}
}

func TestLockedStatementBlocksRatherThanFails(t *testing.T) {
	s := modelstate.NewInitial(2)

	seed := s.Sql.OpenTransaction()
	_, err := s.Sql.Execute(seed, ast.InsertExpr{
		Relation: ast.Variable{Name: "accounts"},
		Columns:  []ast.Variable{{Name: "id"}},
		Values:   []ast.SqlExpression{ast.SqlTupleExpr{Values: []ast.SqlExpression{ast.SqlIntegerExpr{Value: 1}}}},
	})
	if err != nil {
		t.Fatalf("setup insert failed: %v", err)
	}
	if err := s.Sql.Commit(seed); err != nil {
		t.Fatalf("setup commit failed: %v", err)
	}

	txA := s.Sql.OpenTransaction()
	txB := s.Sql.OpenTransaction()
	s.Txs[0] = modelstate.TransactionInfo{Id: txA, State: value.TxRunning}
	s.Txs[1] = modelstate.TransactionInfo{Id: txB, State: value.TxRunning}

	update := ast.UpdateExpr{
		Relation:    ast.Variable{Name: "accounts"},
		Assignments: []ast.SqlExpression{ast.SqlAssignExpr{Column: ast.Variable{Name: "id"}, Value: ast.SqlIntegerExpr{Value: 2}}},
	}

	inA := New(s, 0)
	if _, err := inA.Statement(ast.ExpressionStmt{Expr: ast.SqlExpr{Sql: update}}); err != nil {
		t.Fatalf("first updater should not fail: %v", err)
	}
	s = inA.NextState()

	inB := New(s, 1)
	offset, err := inB.Statement(ast.ExpressionStmt{Expr: ast.SqlExpr{Sql: update}})
	if err != nil {
		t.Fatalf("a lock conflict must block, not fail the run: %v", err)
	}
	if offset != 0 {
		t.Errorf("expected offset 0 (blocked, retry), got %d", offset)
	}
	blocked := inB.NextState()
	if blocked.Processes[1].Kind != modelstate.ProcessLocked {
		t.Errorf("expected process 1 to be recorded as locked, got %s", blocked.Processes[1])
	}
}

func TestEventuallyPropertyEvaluatesExpression(t *testing.T) {
	s := modelstate.NewInitial(1)
	s.Locals["x"] = value.Integer(5)
	in := New(s, 0)

	cond := ast.BinaryExpr{Left: ast.VarExpr{Name: ast.Variable{Name: "x"}}, Operator: ast.OpEqual, Right: ast.IntegerExpr{Value: 5}}
	res, err := in.CheckProperty(ast.EventuallyProperty{Expr: cond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != PropertyEventually || !res.Held {
		t.Errorf("expected eventually property to hold, got %+v", res)
	}
}

func TestNeverPropertyNegatesExpression(t *testing.T) {
	s := modelstate.NewInitial(1)
	in := New(s, 0)
	res, err := in.CheckProperty(ast.NeverProperty{Expr: ast.BinaryExpr{
		Left: ast.IntegerExpr{Value: 1}, Operator: ast.OpEqual, Right: ast.IntegerExpr{Value: 2},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Held {
		t.Error("never(1 = 2) must hold since 1 = 2 is false")
	}
}

func TestDivisionByZeroReportsError(t *testing.T) {
	s := modelstate.NewInitial(1)
	in := New(s, 0)
	_, err := in.Statement(ast.ExpressionStmt{Expr: ast.BinaryExpr{
		Left: ast.IntegerExpr{Value: 1}, Operator: ast.OpDivide, Right: ast.IntegerExpr{Value: 0},
	}})
	if err == nil {
		t.Error("expected a division-by-zero error")
	}
}

func TestUnicityViolationRecoversAsNoOpAdvance(t *testing.T) {
	s := modelstate.NewInitial(1)
	_, err := s.Sql.Execute(0, ast.CreateUniqueIndexExpr{
		Relation: ast.Variable{Name: "accounts"},
		Columns:  []ast.Variable{{Name: "id"}},
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	insert := ast.InsertExpr{
		Relation: ast.Variable{Name: "accounts"},
		Columns:  []ast.Variable{{Name: "id"}},
		Values:   []ast.SqlExpression{ast.SqlTupleExpr{Values: []ast.SqlExpression{ast.SqlIntegerExpr{Value: 1}}}},
	}

	in := New(s, 0)
	if _, err := in.Statement(ast.ExpressionStmt{Expr: ast.SqlExpr{Sql: insert}}); err != nil {
		t.Fatalf("first insert should succeed: %v", err)
	}
	s = in.NextState()

	in2 := New(s, 0)
	offset, err := in2.Statement(ast.ExpressionStmt{Expr: ast.SqlExpr{Sql: insert}})
	if err != nil {
		t.Fatalf("a unique violation must be recovered as a no-op, not fail the run: %v", err)
	}
	if offset != 1 {
		t.Errorf("expected offset 1 (silent no-op advance), got %d", offset)
	}
}
