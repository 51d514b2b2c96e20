package sqlengine

import (
	"fmt"

	"github.com/pkg/errors"

	"metscheck/internal/ast"
)

// LockKind distinguishes the three lock variants the engine tracks.
type LockKind int

const (
	LockRowUpdate LockKind = iota
	LockRowForKeyShare
	LockUnique
)

func (k LockKind) String() string {
	switch k {
	case LockRowUpdate:
		return "row-update"
	case LockRowForKeyShare:
		return "row-for-key-share"
	case LockUnique:
		return "unique"
	default:
		return "unknown-lock"
	}
}

// LockedError reports that a requested lock conflicts with one held by
// another transaction; the DSL interpreter recovers this into a
// process-blocked signal (spec.md §4.3/§7) rather than failing the run.
type LockedError struct {
	Lock Lock
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("locked: %s", e.Lock)
}

// ErrUnicityViolation is returned when an insert or update would duplicate
// a unique-index tuple visible to the transaction (a committed row or one
// the same transaction already wrote). Recovered by the interpreter as a
// statement no-op (offset 1).
var ErrUnicityViolation = errors.New("unique constraint violation")

// ErrForeignKeyViolation is returned when an insert or update references a
// parent row that does not exist. Recovered the same way as
// ErrUnicityViolation.
var ErrForeignKeyViolation = errors.New("foreign key constraint violation")

// TypeError reports an expression that evaluated to a value of the wrong
// kind for its context (e.g. `+` on a non-integer).
type TypeError struct {
	Expr     ast.SqlExpression
	Expected string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: %s: expected %s", e.Expr, e.Expected)
}

// UnknownVariableError reports a bare column reference outside of any
// WHERE/UPDATE row context.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable: %s", e.Name)
}

// AggregateMisuseError reports count(*) combined with non-count columns.
// The parser already rejects this at parse time; the engine re-checks
// defensively for any SelectExpr built directly rather than parsed
// (spec.md §9).
type AggregateMisuseError struct {
	Expr ast.SqlExpression
}

func (e *AggregateMisuseError) Error() string {
	return fmt.Sprintf("aggregate misuse: %s", e.Expr)
}
