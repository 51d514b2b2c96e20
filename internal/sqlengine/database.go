// Package sqlengine implements the transactional SQL engine: a row-versioned
// Database, per-transaction change buffers, and an Execute entry point that
// interprets embedded SQL expressions against it under read-committed
// isolation with explicit row/unique locks.
//
// Grounded on original_source/src/sql_interpreter.rs (Database,
// Transaction, interpret_select/insert/update/delete), re-expressed in the
// teacher's internal/executor idiom (a struct holding mutable table state
// plus small per-operation methods), adapted from an on-disk executor to an
// in-memory, fully-cloneable one since the explorer clones whole database
// states rather than mutating a single shared instance (spec.md §9).
package sqlengine

import (
	"fmt"

	"metscheck/internal/sqlstore"
	"metscheck/internal/value"
)

// TransactionId identifies an open transaction within a Database.
type TransactionId uint64

// Lock is a held or requested row/unique lock.
type Lock struct {
	Kind     LockKind
	Relation string
	// Rid identifies the locked row for LockRowUpdate/LockRowForKeyShare.
	Rid sqlstore.RowId
	// Unique identifies the locked tuple for LockUnique.
	Unique value.Value
	Holder TransactionId
}

func (l Lock) String() string {
	switch l.Kind {
	case LockUnique:
		return fmt.Sprintf("unique(%s, %s) held by tx%d", l.Relation, l.Unique, l.Holder)
	default:
		return fmt.Sprintf("%s(%s, rid=%d) held by tx%d", l.Kind, l.Relation, l.Rid, l.Holder)
	}
}

// conflicts reports whether two locks on the same resource exclude each
// other. Per spec.md §4.2: for-key-share locks held by distinct
// transactions never conflict with one another; every other pairing on
// the same resource does.
func (l Lock) conflicts(other Lock) bool {
	if l.Holder == other.Holder {
		return false
	}
	if l.Kind == LockUnique || other.Kind == LockUnique {
		return l.Kind == other.Kind && l.Relation == other.Relation && l.Unique.Equal(other.Unique)
	}
	if l.Relation != other.Relation || l.Rid != other.Rid {
		return false
	}
	if l.Kind == LockRowForKeyShare && other.Kind == LockRowForKeyShare {
		return false
	}
	return true
}

// ChangeKind distinguishes a transaction's buffered row mutations.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeDelete
)

// Change is one buffered row mutation, applied atomically at commit.
type Change struct {
	Kind     ChangeKind
	Relation string
	Row      sqlstore.Row
}

// TransactionContext holds one open transaction's buffered changes and the
// locks it has acquired, both discarded on abort and applied/released on
// commit.
type TransactionContext struct {
	Id      TransactionId
	Changes []Change
	Locks   []Lock
}

// Database is the full mutable state of the SQL engine: committed table
// contents, schema-level foreign keys, and the set of currently open
// transactions. A Database is cloned wholesale by the explorer whenever it
// forks a new model state (spec.md §9) rather than mutated through
// copy-on-write structures, mirroring the original's snapshot-per-state
// design.
type Database struct {
	Tables       map[string]*sqlstore.Table
	ForeignKeys  []sqlstore.ForeignKey
	Transactions map[TransactionId]*TransactionContext

	nextTx TransactionId
	nextRid sqlstore.RowId
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{
		Tables:       make(map[string]*sqlstore.Table),
		Transactions: make(map[TransactionId]*TransactionContext),
	}
}

// Clone returns a deep copy of the database, suitable for use as the SQL
// side of a forked model state.
func (d *Database) Clone() *Database {
	clone := &Database{
		Tables:       make(map[string]*sqlstore.Table, len(d.Tables)),
		ForeignKeys:  append([]sqlstore.ForeignKey(nil), d.ForeignKeys...),
		Transactions: make(map[TransactionId]*TransactionContext, len(d.Transactions)),
		nextTx:       d.nextTx,
		nextRid:      d.nextRid,
	}
	for name, t := range d.Tables {
		clone.Tables[name] = t.Clone()
	}
	for id, tx := range d.Transactions {
		clone.Transactions[id] = tx.clone()
	}
	return clone
}

func (tx *TransactionContext) clone() *TransactionContext {
	c := &TransactionContext{
		Id:      tx.Id,
		Changes: make([]Change, len(tx.Changes)),
		Locks:   append([]Lock(nil), tx.Locks...),
	}
	for i, ch := range tx.Changes {
		c.Changes[i] = Change{Kind: ch.Kind, Relation: ch.Relation, Row: ch.Row.Clone()}
	}
	return c
}

// OpenTransaction starts a new transaction and returns its id.
func (d *Database) OpenTransaction() TransactionId {
	d.nextTx++
	id := d.nextTx
	d.Transactions[id] = &TransactionContext{Id: id}
	return id
}

// Commit applies a transaction's buffered changes to the committed tables
// and releases its locks.
func (d *Database) Commit(id TransactionId) error {
	tx, ok := d.Transactions[id]
	if !ok {
		return fmt.Errorf("commit: unknown transaction %d", id)
	}
	for _, ch := range tx.Changes {
		table := d.table(ch.Relation)
		switch ch.Kind {
		case ChangeInsert:
			table.Rows = append(table.Rows, ch.Row)
		case ChangeDelete:
			for i, r := range table.Rows {
				if r.Rid == ch.Row.Rid {
					table.Rows = append(table.Rows[:i], table.Rows[i+1:]...)
					break
				}
			}
		}
	}
	delete(d.Transactions, id)
	return nil
}

// Abort discards a transaction's buffered changes and releases its locks.
func (d *Database) Abort(id TransactionId) error {
	if _, ok := d.Transactions[id]; !ok {
		return fmt.Errorf("abort: unknown transaction %d", id)
	}
	delete(d.Transactions, id)
	return nil
}

// table returns the named table, creating an empty one on first reference
// (a relation springs into existence the first time any statement names it).
func (d *Database) table(name string) *sqlstore.Table {
	t, ok := d.Tables[name]
	if !ok {
		t = &sqlstore.Table{}
		d.Tables[name] = t
	}
	return t
}

// allocRid returns a fresh, process-wide unique RowId.
func (d *Database) allocRid() sqlstore.RowId {
	d.nextRid++
	return d.nextRid
}

// acquireLock requests a lock on behalf of a transaction. If it conflicts
// with a lock held by a different transaction, it returns a *LockedError
// instead of granting it; the caller (the interpreter) recovers this into
// a process-blocked step rather than a fatal error.
//
// txId zero is the autocommit/property-check context (no open transaction):
// the requested lock is checked against every other transaction's held
// locks but never recorded, since there is no TransactionContext to hold
// it and nothing will ever need to release it.
func (d *Database) acquireLock(txId TransactionId, want Lock) error {
	want.Holder = txId
	for _, tx := range d.Transactions {
		for _, held := range tx.Locks {
			if held.conflicts(want) {
				return &LockedError{Lock: held}
			}
		}
	}
	tx, ok := d.Transactions[txId]
	if !ok {
		return nil
	}
	for _, held := range tx.Locks {
		if held.sameAs(want) {
			return nil
		}
	}
	tx.Locks = append(tx.Locks, want)
	return nil
}

// sameAs reports whether l and other name the identical lock (same kind,
// resource and holder) — used to avoid recording a redundant duplicate
// lock, not to detect conflicts between different transactions.
func (l Lock) sameAs(other Lock) bool {
	if l.Kind != other.Kind || l.Relation != other.Relation || l.Holder != other.Holder {
		return false
	}
	if l.Kind == LockUnique {
		return l.Unique.Equal(other.Unique)
	}
	return l.Rid == other.Rid
}
