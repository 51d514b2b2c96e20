// Package modelstate defines the global state of one point in the
// explored system: program counters, per-process run state, transaction
// handles, the SQL engine's database, and DSL locals — plus the canonical
// hashing, deadlock detection, and lock/latch release the explorer needs
// to advance and deduplicate it.
//
// Grounded on original_source/src/state.rs (State, HashableState,
// ProcessState, TransactionInfo, find_deadlocks, unlock_locks,
// unlock_latches), with two deliberate departures from the original, both
// required to keep dedup sound:
//
//   - Hash sorts every iterated collection (tables, rows within a table,
//     locals, eventually flags) before folding it in. The original hashes
//     a Rust HashMap's iteration order directly, which is unstable across
//     runs and can make two structurally identical states hash
//     differently — silently defeating dedup (spec.md §9).
//   - Hash also folds in each open transaction's buffered changes and
//     held locks. The original's hash covers only committed table
//     contents, so two states that differ solely in an in-flight
//     transaction's uncommitted writes or locks would incorrectly
//     collapse into one visited entry.
package modelstate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"metscheck/internal/sqlengine"
	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// ProcessKind tags a process's run state.
type ProcessKind int

const (
	ProcessRunning ProcessKind = iota
	ProcessLatching
	ProcessLocked
	ProcessFinished
)

// LockedOn identifies the resource a blocked process is waiting on —
// a row (by relation+RowId) or a unique-index tuple (by relation+value) —
// without naming the holder, since the holder is recoverable from the
// database's own transaction/lock table.
type LockedOn struct {
	Kind     sqlengine.LockKind
	Relation string
	Rid      sqlstore.RowId
	Unique   value.Value
}

func (l LockedOn) hashKey() string {
	var b strings.Builder
	b.WriteString(l.Kind.String())
	b.WriteByte(':')
	b.WriteString(l.Relation)
	b.WriteByte(':')
	if l.Kind == sqlengine.LockUnique {
		b.WriteString(l.Unique.Hash())
	} else {
		b.WriteString(strconv.FormatUint(uint64(l.Rid), 10))
	}
	return b.String()
}

// ProcessState is one process's run state.
type ProcessState struct {
	Kind   ProcessKind
	Locked LockedOn // meaningful only when Kind == ProcessLocked
}

func (p ProcessState) String() string {
	switch p.Kind {
	case ProcessRunning:
		return "running"
	case ProcessLatching:
		return "latching"
	case ProcessFinished:
		return "finished"
	case ProcessLocked:
		return fmt.Sprintf("locked on %s %s", p.Locked.Kind, p.Locked.Relation)
	default:
		return "unknown"
	}
}

func (p ProcessState) hashKey() string {
	switch p.Kind {
	case ProcessRunning:
		return "running"
	case ProcessLatching:
		return "latching"
	case ProcessFinished:
		return "finished"
	case ProcessLocked:
		return "locked(" + p.Locked.hashKey() + ")"
	default:
		return "unknown"
	}
}

// TransactionInfo is a process's view of its own current transaction.
type TransactionInfo struct {
	Id    sqlengine.TransactionId
	Name  *string
	State value.TxState
}

// State is one node of the explored graph: the full snapshot needed to
// resume and to compare for equivalence with another node.
type State struct {
	PC         []int
	Processes  []ProcessState
	Txs        []TransactionInfo
	Sql        *sqlengine.Database
	Locals     map[string]value.Value
	Ancestors  []*State
	Eventually map[int]bool
}

// NewInitial returns the zeroed starting state for a model with the given
// number of processes.
func NewInitial(numProcesses int) *State {
	s := &State{
		PC:         make([]int, numProcesses),
		Processes:  make([]ProcessState, numProcesses),
		Txs:        make([]TransactionInfo, numProcesses),
		Sql:        sqlengine.NewDatabase(),
		Locals:     make(map[string]value.Value),
		Eventually: make(map[int]bool),
	}
	for i := range s.Txs {
		s.Txs[i] = TransactionInfo{Id: 0, State: value.TxNotExisting}
	}
	return s
}

// Clone returns a deep copy of the state, independent of s for every
// mutable field a statement step could touch.
func (s *State) Clone() *State {
	clone := &State{
		PC:         append([]int(nil), s.PC...),
		Processes:  append([]ProcessState(nil), s.Processes...),
		Txs:        append([]TransactionInfo(nil), s.Txs...),
		Sql:        s.Sql.Clone(),
		Locals:     make(map[string]value.Value, len(s.Locals)),
		Ancestors:  append([]*State(nil), s.Ancestors...),
		Eventually: make(map[int]bool, len(s.Eventually)),
	}
	for k, v := range s.Locals {
		clone.Locals[k] = v
	}
	for k, v := range s.Eventually {
		clone.Eventually[k] = v
	}
	return clone
}

// Hash returns a canonical string key for structural equivalence: two
// states that differ only in the arbitrary iteration order of their maps
// hash identically.
func (s *State) Hash() string {
	var b strings.Builder

	b.WriteString("pc:")
	for _, pc := range s.PC {
		b.WriteString(strconv.Itoa(pc))
		b.WriteByte(',')
	}

	b.WriteString("|proc:")
	for _, p := range s.Processes {
		b.WriteString(p.hashKey())
		b.WriteByte(',')
	}

	b.WriteString("|locals:")
	keys := make([]string, 0, len(s.Locals))
	for k := range s.Locals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.Locals[k].Hash())
		b.WriteByte(',')
	}

	b.WriteString("|eventually:")
	ekeys := make([]int, 0, len(s.Eventually))
	for k := range s.Eventually {
		ekeys = append(ekeys, k)
	}
	sort.Ints(ekeys)
	for _, k := range ekeys {
		b.WriteString(strconv.Itoa(k))
		b.WriteByte('=')
		b.WriteString(strconv.FormatBool(s.Eventually[k]))
		b.WriteByte(',')
	}

	b.WriteString("|sql:")
	b.WriteString(hashDatabase(s.Sql))

	return b.String()
}

func hashDatabase(db *sqlengine.Database) string {
	var b strings.Builder

	tables := make([]string, 0, len(db.Tables))
	for name := range db.Tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		table := db.Tables[name]
		rowHashes := make([]string, len(table.Rows))
		for i, r := range table.Rows {
			rowHashes[i] = hashRow(r)
		}
		sort.Strings(rowHashes)
		b.WriteString(name)
		b.WriteByte('[')
		for _, h := range rowHashes {
			b.WriteString(h)
			b.WriteByte(',')
		}
		b.WriteString("]")
	}

	txIds := make([]int, 0, len(db.Transactions))
	for id := range db.Transactions {
		txIds = append(txIds, int(id))
	}
	sort.Ints(txIds)
	b.WriteString("|tx:")
	for _, id := range txIds {
		tx := db.Transactions[sqlengine.TransactionId(id)]
		b.WriteString(strconv.Itoa(id))
		b.WriteByte('{')

		changeHashes := make([]string, len(tx.Changes))
		for i, ch := range tx.Changes {
			changeHashes[i] = strconv.Itoa(int(ch.Kind)) + ":" + ch.Relation + ":" + hashRow(ch.Row)
		}
		sort.Strings(changeHashes)
		for _, h := range changeHashes {
			b.WriteString(h)
			b.WriteByte(',')
		}

		lockHashes := make([]string, len(tx.Locks))
		for i, l := range tx.Locks {
			lockHashes[i] = LockedOn{Kind: l.Kind, Relation: l.Relation, Rid: l.Rid, Unique: l.Unique}.hashKey()
		}
		sort.Strings(lockHashes)
		for _, h := range lockHashes {
			b.WriteString(h)
			b.WriteByte(',')
		}
		b.WriteString("}")
	}

	fks := make([]string, len(db.ForeignKeys))
	for i, fk := range db.ForeignKeys {
		fks[i] = fk.Relation + ":" + strings.Join(fk.Columns, ",") + "->" + fk.ForeignRelation + ":" + strings.Join(fk.ForeignColumns, ",")
	}
	sort.Strings(fks)
	b.WriteString("|fk:")
	for _, h := range fks {
		b.WriteString(h)
		b.WriteByte(',')
	}

	return b.String()
}

func hashRow(r sqlstore.Row) string {
	cols := make([]string, 0, len(r.Tuples))
	for c := range r.Tuples {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	var b strings.Builder
	for _, c := range cols {
		b.WriteString(c)
		b.WriteByte(':')
		b.WriteString(r.Tuples[c].Hash())
		b.WriteByte(',')
	}
	return b.String()
}

// AppendAncestors merges another state's direct ancestor(s) into this
// already-visited state, preserving the back-edges BFS needs to
// reconstruct every path into a dedup target, not just the first found.
func (s *State) AppendAncestors(other *State) {
	s.Ancestors = append(s.Ancestors, other.Ancestors...)
}

// UnlockLocks moves any process blocked on a lock that no transaction
// holds anymore back to Running.
func (s *State) UnlockLocks() {
	for i, p := range s.Processes {
		if p.Kind != ProcessLocked {
			continue
		}
		if s.anyTransactionHolds(p.Locked) {
			continue
		}
		s.Processes[i] = ProcessState{Kind: ProcessRunning}
	}
}

func (s *State) anyTransactionHolds(target LockedOn) bool {
	for _, tx := range s.Sql.Transactions {
		for _, l := range tx.Locks {
			if l.Kind == target.Kind && l.Relation == target.Relation {
				if target.Kind == sqlengine.LockUnique {
					if l.Unique.Equal(target.Unique) {
						return true
					}
				} else if l.Rid == target.Rid {
					return true
				}
			}
		}
	}
	return false
}

// UnlockLatches releases every latching process to Running once all
// processes are either latching or finished.
func (s *State) UnlockLatches() {
	for _, p := range s.Processes {
		if p.Kind != ProcessLatching && p.Kind != ProcessFinished {
			return
		}
	}
	for i, p := range s.Processes {
		if p.Kind == ProcessLatching {
			s.Processes[i] = ProcessState{Kind: ProcessRunning}
		}
	}
}

// FindDeadlock walks the wait-for graph rooted at every process and
// returns the set of process indices forming a cycle, or nil if none.
func (s *State) FindDeadlock() map[int]bool {
	for i := range s.Processes {
		queue := []int{i}
		cycle := make(map[int]bool)
		for len(queue) > 0 {
			x := queue[0]
			queue = queue[1:]
			if s.Processes[x].Kind != ProcessLocked {
				continue
			}
			if cycle[x] {
				return cycle
			}
			cycle[x] = true
			target := s.Processes[x].Locked
			for txId, tx := range s.Sql.Transactions {
				if !txHolds(tx, target) {
					continue
				}
				for pc, info := range s.Txs {
					if info.Id == txId {
						queue = append(queue, pc)
					}
				}
			}
		}
	}
	return nil
}

func txHolds(tx *sqlengine.TransactionContext, target LockedOn) bool {
	for _, l := range tx.Locks {
		if l.Kind != target.Kind || l.Relation != target.Relation {
			continue
		}
		if target.Kind == sqlengine.LockUnique {
			if l.Unique.Equal(target.Unique) {
				return true
			}
		} else if l.Rid == target.Rid {
			return true
		}
	}
	return false
}
