// Package reporter renders a finished exploration Report into the
// human-readable trace a model author reads: the violated property or
// deadlock, then one frame per state along the shortest ancestor path
// back to the initial state, each frame showing the statement that fired,
// the locals (when any are set), and the full table contents.
//
// Grounded on original_source/src/reporter.rs (summary, sql_summary)
// near one-to-one; re-expressed with strings.Builder in place of String
// push_str, the teacher's preferred text-building idiom.
package reporter

import (
	"fmt"
	"sort"
	"strings"

	"metscheck/internal/ast"
	"metscheck/internal/explorer"
	"metscheck/internal/modelstate"
	"metscheck/internal/sqlengine"
	"metscheck/internal/value"
)

// Summary renders a full textual report for one exploration run.
func Summary(mets *ast.Mets, report *explorer.Report) string {
	var b strings.Builder

	if report.Violation == nil {
		b.WriteString("No counterexample found")
		fmt.Fprintf(&b, "\nStates explored: %d", report.StatesExplored)
		return b.String()
	}

	v := report.Violation
	var state *modelstate.State
	switch v.Kind {
	case explorer.ViolationProperty:
		fmt.Fprintf(&b, "Following property was violated: %s\n", v.Property)
		b.WriteString("The following counterexample was found:\n")
		state = v.State
	case explorer.ViolationDeadlock:
		b.WriteString("System ran into a deadlock:\n")
		writeDeadlock(&b, v)
		state = v.State
	}

	traces := ancestorChain(state)

	last := traces[0]
	writeLocals(&b, last.Locals)
	b.WriteString(sqlSummary(last.Sql))

	for _, trace := range traces[1:] {
		for idx := range trace.PC {
			if trace.PC[idx] != last.PC[idx] {
				stmt := mets.Processes[idx][last.PC[idx]]
				fmt.Fprintf(&b, "Process %d: %s\n", idx, stmt)
				break
			}
		}
		writeLocals(&b, trace.Locals)
		b.WriteString(sqlSummary(trace.Sql))
		last = trace
	}

	fmt.Fprintf(&b, "\nStates explored: %d", report.StatesExplored)
	return b.String()
}

func writeDeadlock(b *strings.Builder, v *explorer.Violation) {
	procs := make([]int, 0, len(v.Cycle))
	for p := range v.Cycle {
		procs = append(procs, p)
	}
	sort.Ints(procs)
	for _, p := range procs {
		info := v.State.Txs[p]
		context, ok := v.State.Sql.Transactions[info.Id]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "Process %d holds lock(s) %v and waits for %s\n", p, context.Locks, v.State.Processes[p])
	}
}

func writeLocals(b *strings.Builder, locals map[string]value.Value) {
	if len(locals) == 0 {
		return
	}
	keys := make([]string, 0, len(locals))
	for k := range locals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("Local State {")
	for i, k := range keys {
		fmt.Fprintf(b, "%s: %s", k, locals[k])
		if i < len(keys)-1 {
			b.WriteString(", ")
		}
	}
	b.WriteString("}\n")
}

func ancestorChain(state *modelstate.State) []*modelstate.State {
	var traces []*modelstate.State
	current := state
	for {
		traces = append(traces, current)
		if len(current.Ancestors) == 0 {
			break
		}
		current = current.Ancestors[0]
	}
	for i, j := 0, len(traces)-1; i < j; i, j = i+1, j-1 {
		traces[i], traces[j] = traces[j], traces[i]
	}
	return traces
}

func sqlSummary(db *sqlengine.Database) string {
	var b strings.Builder
	names := make([]string, 0, len(db.Tables))
	for name := range db.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		table := db.Tables[name]
		fmt.Fprintf(&b, "%s: {", name)
		for i, row := range table.Rows {
			b.WriteByte('(')
			cols := table.Columns
			if len(cols) == 0 {
				cols = sortedStringKeys(row.Tuples)
			}
			for j, col := range cols {
				fmt.Fprintf(&b, "%s: %s", col, row.Tuples[col])
				if j < len(cols)-1 {
					b.WriteString(", ")
				}
			}
			b.WriteByte(')')
			if i < len(table.Rows)-1 {
				b.WriteString(", ")
			}
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func sortedStringKeys(m map[string]value.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
