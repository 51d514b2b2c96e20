// Package explorer runs the bounded breadth-first exploration of a
// parsed model: one queue of frontier states, one visited set keyed by
// canonical hash, and one successor generated per runnable process per
// dequeued state.
//
// Grounded on original_source/src/engine.rs (private_model_checker,
// init_state) near one-to-one: a Rc<RefCell<State>> graph shared between
// the visited map and the queue becomes a *modelstate.State shared the
// same way through Go pointers — safe without synchronization because,
// per the model's single-threaded exploration loop, only one goroutine
// ever touches the graph.
package explorer

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"metscheck/internal/ast"
	"metscheck/internal/interpreter"
	"metscheck/internal/modelstate"
)

// ViolationKind distinguishes why exploration stopped early.
type ViolationKind int

const (
	ViolationNone ViolationKind = iota
	ViolationProperty
	ViolationDeadlock
)

// Violation describes why a run ended before exhausting the frontier.
type Violation struct {
	Kind     ViolationKind
	Property ast.Statement      // set when Kind == ViolationProperty
	Cycle    map[int]bool       // set when Kind == ViolationDeadlock
	State    *modelstate.State
}

// Report summarizes one exploration run.
type Report struct {
	StatesExplored int
	Violation      *Violation
}

// Limits bounds an exploration run so a non-terminating or explosively
// large model can't run forever (spec.md §5).
type Limits struct {
	MaxStates int
	MaxQueue  int
}

// Explore runs bounded BFS over mets starting from its initial state,
// stopping at the first property violation or deadlock, or once the
// frontier is exhausted, or once a configured limit is hit.
func Explore(ctx context.Context, mets *ast.Mets, limits Limits, log *zap.Logger, metrics *Metrics) (*Report, error) {
	initial, err := initState(mets)
	if err != nil {
		return nil, errors.Wrap(err, "computing initial state")
	}

	queue := []*modelstate.State{initial}
	visited := make(map[string]*modelstate.State)
	statesExplored := 0

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		state := queue[0]
		queue = queue[1:]

		hash := state.Hash()
		if existing, ok := visited[hash]; ok {
			existing.AppendAncestors(state)
			continue
		}
		visited[hash] = state

		if limits.MaxStates > 0 && statesExplored >= limits.MaxStates {
			log.Warn("state limit reached, stopping exploration", zap.Int("limit", limits.MaxStates))
			return &Report{StatesExplored: statesExplored}, nil
		}

		violation, err := checkProperties(mets, state)
		if err != nil {
			return nil, errors.Wrap(err, "checking properties")
		}
		if violation != nil {
			return &Report{StatesExplored: statesExplored, Violation: violation}, nil
		}

		statesExplored++
		if metrics != nil {
			metrics.StatesExplored.Inc()
			metrics.QueueDepth.Set(float64(len(queue)))
		}
		if statesExplored%1000 == 0 {
			log.Info("exploring", zap.Int("states_explored", statesExplored), zap.Int("queue_depth", len(queue)))
		}

		isFinal := true
		for idx, process := range mets.Processes {
			if state.Processes[idx].Kind != modelstate.ProcessRunning {
				continue
			}
			isFinal = false

			in := interpreter.New(state, idx)
			offset, err := in.Statement(process[state.PC[idx]])
			if err != nil {
				return nil, errors.Wrapf(err, "process %d, statement %d", idx, state.PC[idx])
			}
			next := in.NextState()
			next.PC[idx] += offset
			next.Ancestors = []*modelstate.State{state}
			if next.PC[idx] == len(process) {
				next.Processes[idx] = modelstate.ProcessState{Kind: modelstate.ProcessFinished}
			}

			if cycle := next.FindDeadlock(); cycle != nil {
				return &Report{
					StatesExplored: statesExplored,
					Violation: &Violation{Kind: ViolationDeadlock, Cycle: cycle, State: next},
				}, nil
			}

			next.UnlockLocks()
			next.UnlockLatches()

			if limits.MaxQueue > 0 && len(queue) >= limits.MaxQueue {
				log.Warn("queue limit reached, stopping exploration", zap.Int("limit", limits.MaxQueue))
				return &Report{StatesExplored: statesExplored}, nil
			}
			queue = append(queue, next)
		}

		if isFinal {
			if id, ok := firstUnmetEventually(state); ok {
				return &Report{
					StatesExplored: statesExplored,
					Violation: &Violation{Kind: ViolationProperty, Property: mets.Properties[id], State: state},
				}, nil
			}
		}
	}

	return &Report{StatesExplored: statesExplored}, nil
}

func initState(mets *ast.Mets) (*modelstate.State, error) {
	state := modelstate.NewInitial(len(mets.Processes))
	in := interpreter.New(state, 0)
	for _, stmt := range mets.Init {
		if _, err := in.Statement(stmt); err != nil {
			return nil, err
		}
	}
	return in.NextState(), nil
}

// checkProperties evaluates every declared property against state,
// folding Eventually results into state.Eventually and short-circuiting
// on the first Always/Never violation.
func checkProperties(mets *ast.Mets, state *modelstate.State) (*Violation, error) {
	for id, property := range mets.Properties {
		in := interpreter.New(state, 0)
		res, err := in.CheckProperty(property)
		if err != nil {
			return nil, err
		}
		switch res.Kind {
		case interpreter.PropertyAlways:
			if !res.Held {
				return &Violation{Kind: ViolationProperty, Property: property, State: state}, nil
			}
		case interpreter.PropertyEventually:
			if _, ok := state.Eventually[id]; !ok {
				state.Eventually[id] = false
			}
			if res.Held {
				state.Eventually[id] = true
			}
		}
	}
	return nil, nil
}

func firstUnmetEventually(state *modelstate.State) (int, bool) {
	for id, held := range state.Eventually {
		if !held {
			return id, true
		}
	}
	return 0, false
}
