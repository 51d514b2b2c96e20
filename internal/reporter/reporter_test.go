package reporter

import (
	"strings"
	"testing"

	"metscheck/internal/ast"
	"metscheck/internal/explorer"
	"metscheck/internal/modelstate"
	"metscheck/internal/sqlengine"
	"metscheck/internal/value"
)

func TestSummaryNoCounterexample(t *testing.T) {
	mets := &ast.Mets{Processes: [][]ast.Statement{{ast.LatchStmt{}}}}
	report := &explorer.Report{StatesExplored: 5}

	out := Summary(mets, report)
	if !strings.Contains(out, "No counterexample found") {
		t.Errorf("expected a no-counterexample message, got %q", out)
	}
	if !strings.Contains(out, "States explored: 5") {
		t.Errorf("expected the explored-state count, got %q", out)
	}
}

func TestSummaryPropertyViolationWalksAncestorChain(t *testing.T) {
	root := modelstate.NewInitial(1)
	root.Locals["x"] = value.Integer(0)

	violated := root.Clone()
	violated.PC[0] = 1
	violated.Locals["x"] = value.Integer(1)
	violated.Ancestors = []*modelstate.State{root}

	mets := &ast.Mets{
		Processes: [][]ast.Statement{{
			ast.ExpressionStmt{Expr: ast.AssignExpr{Target: ast.Variable{Name: "x"}, Value: ast.IntegerExpr{Value: 1}}},
		}},
	}

	cond := ast.BinaryExpr{Left: ast.VarExpr{Name: ast.Variable{Name: "x"}}, Operator: ast.OpEqual, Right: ast.IntegerExpr{Value: 0}}
	report := &explorer.Report{
		StatesExplored: 3,
		Violation: &explorer.Violation{
			Kind:     explorer.ViolationProperty,
			Property: ast.AlwaysProperty{Expr: cond},
			State:    violated,
		},
	}

	out := Summary(mets, report)
	if !strings.Contains(out, "Following property was violated: always(x = 0)") {
		t.Errorf("expected the violated property to be named, got %q", out)
	}
	if !strings.Contains(out, "Local State {x: 0}") {
		t.Errorf("expected the initial frame's locals, got %q", out)
	}
	if !strings.Contains(out, "Local State {x: 1}") {
		t.Errorf("expected the violating frame's locals, got %q", out)
	}
	if !strings.Contains(out, "Process 0:") {
		t.Errorf("expected the fired statement to be attributed to process 0, got %q", out)
	}
	if !strings.Contains(out, "States explored: 3") {
		t.Errorf("expected the explored-state count, got %q", out)
	}
}

func TestSummaryIncludesTableContents(t *testing.T) {
	root := modelstate.NewInitial(1)
	tx := root.Sql.OpenTransaction()
	if _, err := root.Sql.Execute(tx, ast.InsertExpr{
		Relation: ast.Variable{Name: "accounts"},
		Columns:  []ast.Variable{{Name: "id"}},
		Values:   []ast.SqlExpression{ast.SqlTupleExpr{Values: []ast.SqlExpression{ast.SqlIntegerExpr{Value: 1}}}},
	}); err != nil {
		t.Fatalf("setup insert failed: %v", err)
	}
	if err := root.Sql.Commit(tx); err != nil {
		t.Fatalf("setup commit failed: %v", err)
	}

	mets := &ast.Mets{Processes: [][]ast.Statement{{ast.LatchStmt{}}}}
	report := &explorer.Report{
		StatesExplored: 1,
		Violation: &explorer.Violation{
			Kind:     explorer.ViolationProperty,
			Property: ast.NeverProperty{Expr: ast.IntegerExpr{Value: 1}},
			State:    root,
		},
	}

	out := Summary(mets, report)
	if !strings.Contains(out, "accounts: {(id: 1)}") {
		t.Errorf("expected the table dump to include the seeded row, got %q", out)
	}
}

func TestSummaryDeadlockListsHeldAndAwaitedLocks(t *testing.T) {
	s := modelstate.NewInitial(2)
	txA := s.Sql.OpenTransaction()
	txB := s.Sql.OpenTransaction()
	s.Txs[0] = modelstate.TransactionInfo{Id: txA, State: value.TxRunning}
	s.Txs[1] = modelstate.TransactionInfo{Id: txB, State: value.TxRunning}

	s.Sql.Transactions[txA].Locks = append(s.Sql.Transactions[txA].Locks,
		sqlengine.Lock{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 1, Holder: txA})
	s.Sql.Transactions[txB].Locks = append(s.Sql.Transactions[txB].Locks,
		sqlengine.Lock{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 2, Holder: txB})

	s.Processes[0] = modelstate.ProcessState{Kind: modelstate.ProcessLocked, Locked: modelstate.LockedOn{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 2}}
	s.Processes[1] = modelstate.ProcessState{Kind: modelstate.ProcessLocked, Locked: modelstate.LockedOn{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 1}}

	mets := &ast.Mets{Processes: [][]ast.Statement{{ast.LatchStmt{}}, {ast.LatchStmt{}}}}
	report := &explorer.Report{
		StatesExplored: 7,
		Violation: &explorer.Violation{
			Kind:  explorer.ViolationDeadlock,
			Cycle: map[int]bool{0: true, 1: true},
			State: s,
		},
	}

	out := Summary(mets, report)
	if !strings.Contains(out, "System ran into a deadlock:") {
		t.Errorf("expected a deadlock header, got %q", out)
	}
	if !strings.Contains(out, "Process 0 holds lock(s)") {
		t.Errorf("expected process 0's held locks to be reported, got %q", out)
	}
	if !strings.Contains(out, "Process 1 holds lock(s)") {
		t.Errorf("expected process 1's held locks to be reported, got %q", out)
	}
}

func TestAncestorChainOrdersRootFirst(t *testing.T) {
	root := modelstate.NewInitial(1)
	mid := root.Clone()
	mid.Ancestors = []*modelstate.State{root}
	leaf := mid.Clone()
	leaf.Ancestors = []*modelstate.State{mid}

	chain := ancestorChain(leaf)
	if len(chain) != 3 {
		t.Fatalf("expected 3 states in the chain, got %d", len(chain))
	}
	if chain[0] != root || chain[2] != leaf {
		t.Error("expected the chain to run from the initial state to the violating state")
	}
}
