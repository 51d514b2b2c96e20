package modelstate

import (
	"testing"

	"metscheck/internal/sqlengine"
	"metscheck/internal/value"
)

func TestHashIdenticalForDifferentMapIterationOrder(t *testing.T) {
	a := NewInitial(1)
	a.Locals["x"] = value.Integer(1)
	a.Locals["y"] = value.Integer(2)

	b := NewInitial(1)
	// insert in the opposite order — Go map iteration order would differ,
	// but the canonical hash must not
	b.Locals["y"] = value.Integer(2)
	b.Locals["x"] = value.Integer(1)

	if a.Hash() != b.Hash() {
		t.Errorf("states differing only in local-assignment order must hash identically:\n%s\n%s", a.Hash(), b.Hash())
	}
}

func TestHashDiffersForInFlightTransactionLocks(t *testing.T) {
	a := NewInitial(1)

	b := NewInitial(1)
	tx := b.Sql.OpenTransaction()
	b.Sql.Transactions[tx].Locks = append(b.Sql.Transactions[tx].Locks,
		sqlengine.Lock{Kind: sqlengine.LockRowUpdate, Relation: "accounts", Rid: 1, Holder: tx})

	if a.Hash() == b.Hash() {
		t.Error("an open transaction's held locks must be folded into the hash, not just committed table contents")
	}
}

func TestAppendAncestorsUnionsBackEdges(t *testing.T) {
	root1 := NewInitial(1)
	root2 := NewInitial(1)
	dedup := NewInitial(1)
	dedup.Ancestors = []*State{root1}

	other := NewInitial(1)
	other.Ancestors = []*State{root2}

	dedup.AppendAncestors(other)
	if len(dedup.Ancestors) != 2 {
		t.Fatalf("expected 2 ancestors after union, got %d", len(dedup.Ancestors))
	}
}

func TestUnlockLocksReleasesWhenNoTransactionHolds(t *testing.T) {
	s := NewInitial(2)
	s.Processes[0] = ProcessState{Kind: ProcessLocked, Locked: LockedOn{Kind: sqlengine.LockRowUpdate, Relation: "accounts", Rid: 1}}

	s.UnlockLocks()
	if s.Processes[0].Kind != ProcessRunning {
		t.Errorf("process blocked on a lock nobody holds must become Running, got %s", s.Processes[0])
	}
}

func TestUnlockLocksKeepsBlockedWhenStillHeld(t *testing.T) {
	s := NewInitial(2)
	tx := s.Sql.OpenTransaction()
	s.Sql.Transactions[tx].Locks = append(s.Sql.Transactions[tx].Locks, sqlengine.Lock{Kind: sqlengine.LockRowUpdate, Relation: "accounts", Rid: 1, Holder: tx})
	s.Processes[0] = ProcessState{Kind: ProcessLocked, Locked: LockedOn{Kind: sqlengine.LockRowUpdate, Relation: "accounts", Rid: 1}}

	s.UnlockLocks()
	if s.Processes[0].Kind != ProcessLocked {
		t.Errorf("process must stay locked while another transaction holds the conflicting lock, got %s", s.Processes[0])
	}
}

func TestUnlockLatchesReleasesOnlyWhenAllOthersFinishedOrLatching(t *testing.T) {
	s := NewInitial(3)
	s.Processes[0] = ProcessState{Kind: ProcessLatching}
	s.Processes[1] = ProcessState{Kind: ProcessRunning}
	s.Processes[2] = ProcessState{Kind: ProcessFinished}

	s.UnlockLatches()
	if s.Processes[0].Kind != ProcessLatching {
		t.Error("must not release a latch while any process is still Running")
	}

	s.Processes[1] = ProcessState{Kind: ProcessFinished}
	s.UnlockLatches()
	if s.Processes[0].Kind != ProcessRunning {
		t.Error("must release every latching process once the rest are latching or finished")
	}
}

func TestFindDeadlockDetectsTwoProcessCycle(t *testing.T) {
	s := NewInitial(2)
	txA := s.Sql.OpenTransaction()
	txB := s.Sql.OpenTransaction()
	s.Txs[0] = TransactionInfo{Id: txA, State: value.TxRunning}
	s.Txs[1] = TransactionInfo{Id: txB, State: value.TxRunning}

	s.Sql.Transactions[txA].Locks = append(s.Sql.Transactions[txA].Locks,
		sqlengine.Lock{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 1, Holder: txA})
	s.Sql.Transactions[txB].Locks = append(s.Sql.Transactions[txB].Locks,
		sqlengine.Lock{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 2, Holder: txB})

	// process 0 holds rid 1, waits on rid 2 (held by txB); process 1 holds
	// rid 2, waits on rid 1 (held by txA) — a classic two-process deadlock.
	s.Processes[0] = ProcessState{Kind: ProcessLocked, Locked: LockedOn{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 2}}
	s.Processes[1] = ProcessState{Kind: ProcessLocked, Locked: LockedOn{Kind: sqlengine.LockRowUpdate, Relation: "t", Rid: 1}}

	cycle := s.FindDeadlock()
	if cycle == nil {
		t.Fatal("expected a deadlock cycle to be detected")
	}
	if !cycle[0] || !cycle[1] {
		t.Errorf("expected both processes in the cycle, got %v", cycle)
	}
}

func TestFindDeadlockNilWhenNoCycle(t *testing.T) {
	s := NewInitial(2)
	s.Processes[0] = ProcessState{Kind: ProcessRunning}
	s.Processes[1] = ProcessState{Kind: ProcessRunning}
	if cycle := s.FindDeadlock(); cycle != nil {
		t.Errorf("expected no deadlock, got %v", cycle)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewInitial(1)
	s.Locals["x"] = value.Integer(1)
	clone := s.Clone()
	clone.Locals["x"] = value.Integer(2)
	if v, _ := s.Locals["x"].AsInteger(); v != 1 {
		t.Error("mutating a clone's locals must not affect the original state")
	}
}
