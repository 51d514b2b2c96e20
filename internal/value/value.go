// Package value implements the tagged value domain that flows through the
// DSL interpreter and SQL engine: nil, booleans, 16-bit integers, strings,
// sets, tuples, scalar projections, and transaction handles.
package value

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInteger
	KindString
	KindSet
	KindTuple
	KindScalar
	KindTx
)

// TxState is the lifecycle of a transaction handle value.
type TxState int

const (
	TxNotExisting TxState = iota
	TxRunning
	TxAborted
	TxCommitted
)

func (s TxState) String() string {
	switch s {
	case TxRunning:
		return "running transaction"
	case TxAborted:
		return "aborted transaction"
	case TxCommitted:
		return "committed transaction"
	default:
		return "non started transaction"
	}
}

// Value is a single immutable value in the model's value domain.
//
// Sets and Tuples are insertion-ordered: equality and hashing are
// element-wise over that order, never canonicalized. Scalar wraps a
// single-element projection result so the interpreter's integer/bool/set
// assertions can transparently unwrap it (spec.md §4.3).
type Value struct {
	kind    Kind
	boolean bool
	integer int16
	str     string
	tx      TxState
	set     []Value
	tuple   []Value
	scalar  *Value
}

// Nil is the singleton absence-of-value.
var Nil = Value{kind: KindNil}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Integer constructs a 16-bit signed integer value.
func Integer(i int16) Value { return Value{kind: KindInteger, integer: i} }

// String constructs a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Tx constructs a transaction-handle value.
func Tx(state TxState) Value { return Value{kind: KindTx, tx: state} }

// Set constructs a set value, preserving member order as given.
func Set(members []Value) Value { return Value{kind: KindSet, set: members} }

// Tuple constructs a tuple value, preserving element order as given.
func Tuple(elems []Value) Value { return Value{kind: KindTuple, tuple: elems} }

// Scalar wraps a single value as a scalar projection.
func Scalar(v Value) Value { return Value{kind: KindScalar, scalar: &v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool reports the boolean payload and whether v is (or unwraps to) a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.boolean, true
	}
	if v.kind == KindScalar && v.scalar != nil {
		return v.scalar.AsBool()
	}
	return false, false
}

// AsInteger reports the integer payload and whether v is (or unwraps to) an integer.
func (v Value) AsInteger() (int16, bool) {
	if v.kind == KindInteger {
		return v.integer, true
	}
	if v.kind == KindScalar && v.scalar != nil {
		return v.scalar.AsInteger()
	}
	return 0, false
}

// AsString reports the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind == KindString {
		return v.str, true
	}
	if v.kind == KindScalar && v.scalar != nil {
		return v.scalar.AsString()
	}
	return "", false
}

// AsSet reports the set payload and whether v is (or unwraps to) a set.
func (v Value) AsSet() ([]Value, bool) {
	if v.kind == KindSet {
		return v.set, true
	}
	if v.kind == KindScalar && v.scalar != nil {
		return v.scalar.AsSet()
	}
	return nil, false
}

// AsTuple reports the tuple payload and whether v is (or unwraps to) a tuple.
func (v Value) AsTuple() ([]Value, bool) {
	if v.kind == KindTuple {
		return v.tuple, true
	}
	if v.kind == KindScalar && v.scalar != nil {
		return v.scalar.AsTuple()
	}
	return nil, false
}

// AsTx reports the transaction-state payload.
func (v Value) AsTx() (TxState, bool) {
	if v.kind == KindTx {
		return v.tx, true
	}
	return 0, false
}

// Equal is structural equality: same variant, same (ordered) payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.boolean == other.boolean
	case KindInteger:
		return v.integer == other.integer
	case KindString:
		return v.str == other.str
	case KindTx:
		return v.tx == other.tx
	case KindScalar:
		return v.scalar.Equal(*other.scalar)
	case KindSet, KindTuple:
		a, b := v.elems(), other.elems()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) elems() []Value {
	if v.kind == KindSet {
		return v.set
	}
	return v.tuple
}

// Less defines the natural ordering used by ORDER BY and the default select
// comparator: integers order numerically, strings lexicographically, tuples
// and sets element-wise, booleans false < true; cross-kind comparisons order
// by Kind to keep the relation total.
func (v Value) Less(other Value) bool {
	if v.kind != other.kind {
		return v.kind < other.kind
	}
	switch v.kind {
	case KindBool:
		return !v.boolean && other.boolean
	case KindInteger:
		return v.integer < other.integer
	case KindString:
		return v.str < other.str
	case KindTx:
		return v.tx < other.tx
	case KindScalar:
		return v.scalar.Less(*other.scalar)
	case KindSet, KindTuple:
		a, b := v.elems(), other.elems()
		for i := 0; i < len(a) && i < len(b); i++ {
			if a[i].Equal(b[i]) {
				continue
			}
			return a[i].Less(b[i])
		}
		return len(a) < len(b)
	}
	return false
}

// Hash produces a string key stable across process runs for structural
// equality: used only to build the sorted, canonical state hash key (see
// internal/modelstate), never exposed to models.
func (v Value) Hash() string {
	var b strings.Builder
	v.writeHash(&b)
	return b.String()
}

func (v Value) writeHash(b *strings.Builder) {
	switch v.kind {
	case KindNil:
		b.WriteString("nil")
	case KindBool:
		fmt.Fprintf(b, "b%v", v.boolean)
	case KindInteger:
		fmt.Fprintf(b, "i%d", v.integer)
	case KindString:
		fmt.Fprintf(b, "s%q", v.str)
	case KindTx:
		fmt.Fprintf(b, "t%d", v.tx)
	case KindScalar:
		b.WriteString("c(")
		v.scalar.writeHash(b)
		b.WriteByte(')')
	case KindSet:
		b.WriteString("{")
		for i, e := range v.set {
			if i > 0 {
				b.WriteByte(',')
			}
			e.writeHash(b)
		}
		b.WriteString("}")
	case KindTuple:
		b.WriteString("(")
		for i, e := range v.tuple {
			if i > 0 {
				b.WriteByte(',')
			}
			e.writeHash(b)
		}
		b.WriteString(")")
	}
}

// String renders a Value the way the model's trace reporter shows it.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindInteger:
		return fmt.Sprintf("%d", v.integer)
	case KindString:
		return fmt.Sprintf("'%s'", v.str)
	case KindTx:
		return v.tx.String()
	case KindScalar:
		return v.scalar.String()
	case KindSet:
		parts := make([]string, len(v.set))
		for i, e := range v.set {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindTuple:
		parts := make([]string, len(v.tuple))
		for i, e := range v.tuple {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ",") + ")"
	}
	return "?"
}

// SortValues stable-sorts a slice of values by the natural ordering.
func SortValues(vals []Value, less func(a, b Value) bool) {
	sort.SliceStable(vals, func(i, j int) bool { return less(vals[i], vals[j]) })
}
