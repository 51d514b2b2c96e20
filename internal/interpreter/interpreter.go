// Package interpreter walks one process's DSL statements and expressions
// against a modelstate.State, producing the next state and the process's
// step offset, and evaluates top-level properties against a state without
// mutating it permanently.
//
// Grounded on original_source/src/interpreter.rs (Interpreter,
// priv_statement/statement's SqlEngineError recovery, reify_up_variable)
// translated almost one-to-one: the explorer steps exactly one statement
// of exactly one runnable process per generated successor, so Interpreter
// is scoped to a single process index at a time rather than the whole
// model.
package interpreter

import (
	"github.com/pkg/errors"

	"metscheck/internal/ast"
	"metscheck/internal/modelstate"
	"metscheck/internal/sqlengine"
	"metscheck/internal/value"
)

// PropertyKind distinguishes the two ways a property result is folded
// into the explored state: a safety check that must hold at every state,
// or a liveness flag that must become true at some state along every run.
type PropertyKind int

const (
	PropertyAlways PropertyKind = iota
	PropertyEventually
)

// PropertyResult is the outcome of evaluating one property at one state.
type PropertyResult struct {
	Kind PropertyKind
	Held bool
}

// Error wraps a failure encountered while interpreting a statement or
// expression, carrying the offending node for diagnostics.
type Error struct {
	Node string
	err  error
}

func (e *Error) Error() string { return e.Node + ": " + e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

func wrap(node fmterStringer, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Node: node.String(), err: err}
}

type fmterStringer interface{ String() string }

// Interpreter steps a single process's statements against a state,
// accumulating the next state until the caller asks for it.
type Interpreter struct {
	idx      int
	checking bool
	state    *modelstate.State
	next     *modelstate.State
}

// New creates an Interpreter bound to state for process idx.
func New(state *modelstate.State, idx int) *Interpreter {
	return &Interpreter{idx: idx, state: state, next: state.Clone()}
}

// NextState returns the accumulated next state and resets the
// interpreter's working copy back to a fresh clone of the original state,
// so each runnable process starts its own successor from the same base.
func (in *Interpreter) NextState() *modelstate.State {
	next := in.next
	in.next = in.state.Clone()
	return next
}

// CheckProperty evaluates a top-level property statement against the
// interpreter's original (not yet stepped) state.
func (in *Interpreter) CheckProperty(property ast.Statement) (PropertyResult, error) {
	in.checking = true
	defer func() { in.checking = false }()

	switch p := property.(type) {
	case ast.AlwaysProperty:
		v, err := in.interpretExpr(p.Expr)
		if err != nil {
			return PropertyResult{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return PropertyResult{}, &Error{Node: p.String(), err: errors.New("always: expression did not evaluate to a bool")}
		}
		return PropertyResult{Kind: PropertyAlways, Held: b}, nil
	case ast.NeverProperty:
		v, err := in.interpretExpr(p.Expr)
		if err != nil {
			return PropertyResult{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return PropertyResult{}, &Error{Node: p.String(), err: errors.New("never: expression did not evaluate to a bool")}
		}
		return PropertyResult{Kind: PropertyAlways, Held: !b}, nil
	case ast.EventuallyProperty:
		v, err := in.interpretExpr(p.Expr)
		if err != nil {
			return PropertyResult{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return PropertyResult{}, &Error{Node: p.String(), err: errors.New("eventually: expression did not evaluate to a bool")}
		}
		return PropertyResult{Kind: PropertyEventually, Held: b}, nil
	default:
		return PropertyResult{}, errors.Errorf("unsupported property statement: %s", property)
	}
}

// Statement interprets one DSL statement and returns the offset to add to
// the process's program counter: 0 means the process is now blocked
// (re-try this same statement once unblocked), 1 means advance normally,
// and any larger value implements an if/else branch skip.
//
// A SQL unique or foreign-key violation is recovered here as a silent
// no-op advance (offset 1): the statement simply had no effect, matching
// how a model author reasons about a constrained insert/update that could
// not apply. A row or unique lock conflict instead blocks the process
// (offset 0) rather than failing the run.
func (in *Interpreter) Statement(statement ast.Statement) (int, error) {
	offset, err := in.privStatement(statement)
	if err == nil {
		return offset, nil
	}
	if errors.Is(err, sqlengine.ErrUnicityViolation) || errors.Is(err, sqlengine.ErrForeignKeyViolation) {
		return 1, nil
	}
	var locked *sqlengine.LockedError
	if errors.As(err, &locked) {
		in.next.Processes[in.idx] = modelstate.ProcessState{
			Kind: modelstate.ProcessLocked,
			Locked: modelstate.LockedOn{
				Kind:     locked.Lock.Kind,
				Relation: locked.Lock.Relation,
				Rid:      locked.Lock.Rid,
				Unique:   locked.Lock.Unique,
			},
		}
		return 0, nil
	}
	return 0, err
}

func (in *Interpreter) privStatement(statement ast.Statement) (int, error) {
	switch s := statement.(type) {
	case ast.BeginStmt:
		var name *string
		if s.Name != nil {
			n := s.Name.Name
			name = &n
		}
		id := in.next.Sql.OpenTransaction()
		in.next.Txs[in.idx] = modelstate.TransactionInfo{Id: id, Name: name, State: value.TxRunning}
		if name != nil {
			in.next.Locals[*name] = value.Tx(value.TxRunning)
		}
		return 1, nil

	case ast.CommitStmt:
		info := in.next.Txs[in.idx]
		if info.State == value.TxRunning {
			if err := in.next.Sql.Commit(info.Id); err != nil {
				return 0, wrap(s, err)
			}
			info.State = value.TxCommitted
			if info.Name != nil {
				in.next.Locals[*info.Name] = value.Tx(value.TxCommitted)
			}
			in.next.Txs[in.idx] = info
		}
		return 1, nil

	case ast.AbortStmt:
		info := in.next.Txs[in.idx]
		if info.State == value.TxRunning {
			if err := in.next.Sql.Abort(info.Id); err != nil {
				return 0, wrap(s, err)
			}
			info.State = value.TxAborted
			if info.Name != nil {
				in.next.Locals[*info.Name] = value.Tx(value.TxAborted)
			}
			in.next.Txs[in.idx] = info
		}
		return 1, nil

	case ast.ExpressionStmt:
		if _, err := in.interpretExpr(s.Expr); err != nil {
			return 0, err
		}
		return 1, nil

	case ast.LatchStmt:
		in.next.Processes[in.idx] = modelstate.ProcessState{Kind: modelstate.ProcessLatching}
		return 1, nil

	case ast.IfStmt:
		v, err := in.interpretExpr(s.Cond)
		if err != nil {
			return 0, err
		}
		b, ok := v.AsBool()
		if !ok {
			return 0, &Error{Node: s.String(), err: errors.New("if: condition did not evaluate to a bool")}
		}
		if !b {
			return s.ElseOffset, nil
		}
		return 1, nil

	case ast.ElseStmt:
		return s.EndOffset, nil

	default:
		return 0, errors.Errorf("unexpected statement in process body: %s", statement)
	}
}

func (in *Interpreter) interpretExpr(expr ast.Expression) (value.Value, error) {
	switch e := expr.(type) {
	case ast.SqlExpr:
		reified, err := in.reifyUpVariable(e.Sql)
		if err != nil {
			return value.Nil, err
		}
		return in.next.Sql.Execute(in.runningTx(), reified)

	case ast.AssignExpr:
		v, err := in.interpretExpr(e.Value)
		if err != nil {
			return value.Nil, err
		}
		in.next.Locals[e.Target.Name] = v
		return value.Nil, nil

	case ast.BinaryExpr:
		return in.interpretBinary(e)

	case ast.VarExpr:
		if v, ok := in.state.Locals[e.Name.Name]; ok {
			return v, nil
		}
		return value.Tx(value.TxNotExisting), nil

	case ast.IntegerExpr:
		return value.Integer(e.Value), nil

	case ast.StringExpr:
		return value.String(e.Value), nil

	case ast.SetExpr:
		members := make([]value.Value, len(e.Members))
		for i, m := range e.Members {
			v, err := in.interpretExpr(m)
			if err != nil {
				return value.Nil, err
			}
			members[i] = v
		}
		return value.Set(members), nil

	case ast.TupleExpr:
		members := make([]value.Value, len(e.Members))
		for i, m := range e.Members {
			v, err := in.interpretExpr(m)
			if err != nil {
				return value.Nil, err
			}
			members[i] = v
		}
		return value.Tuple(members), nil

	case ast.MemberExpr:
		v, err := in.interpretExpr(e.CallSite)
		if err != nil {
			return value.Nil, err
		}
		state, ok := v.AsTx()
		if !ok {
			return value.Nil, &Error{Node: e.String(), err: errors.New("member access on a non-transaction value")}
		}
		switch state {
		case value.TxAborted:
			return value.Bool(e.Member.Name == "aborted"), nil
		case value.TxCommitted:
			return value.Bool(e.Member.Name == "committed"), nil
		default:
			return value.Bool(false), nil
		}

	case ast.ScalarExpr:
		inner, err := in.interpretExpr(e.Inner)
		if err != nil {
			return value.Nil, err
		}
		return value.Scalar(inner), nil

	default:
		return value.Nil, errors.Errorf("unexpected expression: %s", expr)
	}
}

func (in *Interpreter) interpretBinary(e ast.BinaryExpr) (value.Value, error) {
	switch e.Operator {
	case ast.OpEqual, ast.OpNotEqual:
		left, err := in.interpretExpr(e.Left)
		if err != nil {
			return value.Nil, err
		}
		right, err := in.interpretExpr(e.Right)
		if err != nil {
			return value.Nil, err
		}
		if e.Operator == ast.OpEqual {
			return value.Bool(left.Equal(right)), nil
		}
		return value.Bool(!left.Equal(right)), nil

	case ast.OpIncluded:
		left, err := in.interpretExpr(e.Left)
		if err != nil {
			return value.Nil, err
		}
		right, err := in.interpretExpr(e.Right)
		if err != nil {
			return value.Nil, err
		}
		members, ok := right.AsSet()
		if !ok {
			return value.Nil, &Error{Node: e.String(), err: errors.New("in: right side is not a set")}
		}
		for _, m := range members {
			if m.Equal(left) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil

	case ast.OpAnd, ast.OpOr:
		left, err := in.assertBool(e.Left)
		if err != nil {
			return value.Nil, err
		}
		right, err := in.assertBool(e.Right)
		if err != nil {
			return value.Nil, err
		}
		if e.Operator == ast.OpAnd {
			return value.Bool(left && right), nil
		}
		return value.Bool(left || right), nil

	default:
		left, err := in.assertInteger(e.Left)
		if err != nil {
			return value.Nil, err
		}
		right, err := in.assertInteger(e.Right)
		if err != nil {
			return value.Nil, err
		}
		switch e.Operator {
		case ast.OpAdd:
			return value.Integer(left + right), nil
		case ast.OpSubtract:
			return value.Integer(left - right), nil
		case ast.OpMultiply:
			return value.Integer(left * right), nil
		case ast.OpDivide:
			if right == 0 {
				return value.Nil, &Error{Node: e.String(), err: errors.New("division by zero")}
			}
			return value.Integer(left / right), nil
		case ast.OpRem:
			if right == 0 {
				return value.Nil, &Error{Node: e.String(), err: errors.New("division by zero")}
			}
			return value.Integer(left % right), nil
		case ast.OpLess:
			return value.Bool(left < right), nil
		case ast.OpLessEqual:
			return value.Bool(left <= right), nil
		case ast.OpGreater:
			return value.Bool(left > right), nil
		case ast.OpGreaterEqual:
			return value.Bool(left >= right), nil
		default:
			return value.Nil, errors.Errorf("unrecognized operator: %s", e.Operator)
		}
	}
}

func (in *Interpreter) assertInteger(expr ast.Expression) (int16, error) {
	v, err := in.interpretExpr(expr)
	if err != nil {
		return 0, err
	}
	i, ok := v.AsInteger()
	if !ok {
		return 0, &Error{Node: expr.String(), err: errors.New("expected an integer")}
	}
	return i, nil
}

func (in *Interpreter) assertBool(expr ast.Expression) (bool, error) {
	v, err := in.interpretExpr(expr)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, &Error{Node: expr.String(), err: errors.New("expected a bool")}
	}
	return b, nil
}

// reifyUpVariable walks an SQL expression tree, replacing every $name
// up-variable reference with the DSL local's current value — the SQL
// engine never resolves a DSL local itself.
func (in *Interpreter) reifyUpVariable(expr ast.SqlExpression) (ast.SqlExpression, error) {
	switch e := expr.(type) {
	case ast.SelectExpr:
		cond, err := in.reifyCond(e.Condition)
		if err != nil {
			return nil, err
		}
		e.Condition = cond
		return e, nil

	case ast.UpdateExpr:
		cond, err := in.reifyCond(e.Condition)
		if err != nil {
			return nil, err
		}
		e.Condition = cond
		assignments := make([]ast.SqlExpression, len(e.Assignments))
		for i, a := range e.Assignments {
			r, err := in.reifyUpVariable(a)
			if err != nil {
				return nil, err
			}
			assignments[i] = r
		}
		e.Assignments = assignments
		return e, nil

	case ast.DeleteExpr:
		cond, err := in.reifyCond(e.Condition)
		if err != nil {
			return nil, err
		}
		e.Condition = cond
		return e, nil

	case ast.InsertExpr:
		values := make([]ast.SqlExpression, len(e.Values))
		for i, v := range e.Values {
			r, err := in.reifyUpVariable(v)
			if err != nil {
				return nil, err
			}
			values[i] = r
		}
		e.Values = values
		return e, nil

	case ast.SqlBinaryExpr:
		left, err := in.reifyUpVariable(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.reifyUpVariable(e.Right)
		if err != nil {
			return nil, err
		}
		e.Left, e.Right = left, right
		return e, nil

	case ast.SqlBetweenExpr:
		target, err := in.reifyUpVariable(e.Target)
		if err != nil {
			return nil, err
		}
		lo, err := in.reifyUpVariable(e.Low)
		if err != nil {
			return nil, err
		}
		hi, err := in.reifyUpVariable(e.High)
		if err != nil {
			return nil, err
		}
		e.Target, e.Low, e.High = target, lo, hi
		return e, nil

	case ast.SqlTupleExpr:
		values := make([]ast.SqlExpression, len(e.Values))
		for i, v := range e.Values {
			r, err := in.reifyUpVariable(v)
			if err != nil {
				return nil, err
			}
			values[i] = r
		}
		e.Values = values
		return e, nil

	case ast.SqlSetExpr:
		members := make([]ast.SqlExpression, len(e.Members))
		for i, v := range e.Members {
			r, err := in.reifyUpVariable(v)
			if err != nil {
				return nil, err
			}
			members[i] = r
		}
		e.Members = members
		return e, nil

	case ast.SqlAssignExpr:
		v, err := in.reifyUpVariable(e.Value)
		if err != nil {
			return nil, err
		}
		e.Value = v
		return e, nil

	case ast.SqlUpVariableExpr:
		v, ok := in.state.Locals[e.Name.Name]
		if !ok {
			v = value.Nil
		}
		return ast.SqlValueExpr{Value: v}, nil

	default:
		return expr, nil
	}
}

func (in *Interpreter) reifyCond(cond ast.SqlExpression) (ast.SqlExpression, error) {
	if cond == nil {
		return nil, nil
	}
	return in.reifyUpVariable(cond)
}

// runningTx returns the current transaction id for the process being
// stepped, or 0 (autocommit/no transaction) while checking a property —
// mirroring the original's suppression of the calling process's
// transaction context during property evaluation.
func (in *Interpreter) runningTx() sqlengine.TransactionId {
	if in.checking {
		return 0
	}
	info := in.next.Txs[in.idx]
	if info.State != value.TxRunning {
		return 0
	}
	return info.Id
}
