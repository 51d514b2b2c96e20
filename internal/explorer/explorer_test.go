package explorer

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"metscheck/internal/ast"
	"metscheck/internal/parser"
)

func mustParse(t *testing.T, source string) *ast.Mets {
	t.Helper()
	mets, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("unexpected parse error: %v\nsource:\n%s", err, source)
	}
	return mets
}

func TestExploreAlwaysSafetyViolationIsReported(t *testing.T) {
	src := "init do\nlet done := 0\nend\nprocess do\nlet done := 1\nend\nalways(done = 0)\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Violation == nil {
		t.Fatal("expected a safety violation once done becomes 1")
	}
	if report.Violation.Kind != ViolationProperty {
		t.Errorf("expected a property violation, got kind %v", report.Violation.Kind)
	}
}

func TestExploreEventuallyViolationWhenNeverReached(t *testing.T) {
	src := "init do\nlet y := 1\nend\nprocess do\nlet z := 2\nend\neventually(y = 2)\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Violation == nil {
		t.Fatal("expected a liveness violation since y never reaches 2")
	}
	if report.Violation.Kind != ViolationProperty {
		t.Errorf("expected a property violation, got kind %v", report.Violation.Kind)
	}
}

func TestExploreNoViolationWhenEventuallyIsSatisfied(t *testing.T) {
	src := "init do\nlet w := 5\nend\nprocess do\nlet w := 10\nend\neventually(w = 10)\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Violation != nil {
		t.Fatalf("expected no violation, got %+v", report.Violation)
	}
	if report.StatesExplored == 0 {
		t.Error("expected at least one state to be explored")
	}
}

func TestExploreRecoversUniqueViolationAsNoOp(t *testing.T) {
	src := "init do\n" +
		"`create unique index on accounts(id)`\n" +
		"end\n" +
		"process do\n" +
		"begin\n" +
		"`insert into accounts(id) values (1)`\n" +
		"`insert into accounts(id) values (1)`\n" +
		"commit\n" +
		"let done := 1\n" +
		"end\n" +
		"eventually(done = 1)\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("a colliding insert must be recovered as a no-op, not fail the run: %v", err)
	}
	if report.Violation != nil {
		t.Fatalf("expected no violation, got %+v", report.Violation)
	}
}

func TestExploreForeignKeyCascadeDeleteViaCommit(t *testing.T) {
	src := "init do\n" +
		"`alter table orders add constraint foreign key (account_id) references accounts(id)`\n" +
		"begin\n" +
		"`insert into accounts(id) values (1)`\n" +
		"`insert into orders(account_id) values (1)`\n" +
		"commit\n" +
		"end\n" +
		"process do\n" +
		"begin\n" +
		"`delete from accounts where id = 1`\n" +
		"commit\n" +
		"let done := 1\n" +
		"end\n" +
		"eventually(`select count(*) from orders` = 0)\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Violation != nil {
		t.Fatalf("deleting the parent must cascade to the child, got %+v", report.Violation)
	}
}

func TestExploreResolvesLockConflictWithoutDeadlock(t *testing.T) {
	src := "init do\n" +
		"begin\n" +
		"`insert into accounts(id) values (1)`\n" +
		"commit\n" +
		"end\n" +
		"process do\n" +
		"begin\n" +
		"`select id from accounts where id = 1 for update`\n" +
		"commit\n" +
		"end\n" +
		"process do\n" +
		"begin\n" +
		"`select id from accounts where id = 1 for update`\n" +
		"commit\n" +
		"end\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Violation != nil {
		t.Fatalf("a single contested row can never deadlock, got %+v", report.Violation)
	}
}

func TestExploreDetectsDeadlockAcrossTwoRows(t *testing.T) {
	src := "init do\n" +
		"begin\n" +
		"`insert into accounts(id) values (1)`\n" +
		"`insert into branches(id) values (2)`\n" +
		"commit\n" +
		"end\n" +
		"process do\n" +
		"begin\n" +
		"`select id from accounts where id = 1 for update`\n" +
		"`select id from branches where id = 2 for update`\n" +
		"commit\n" +
		"end\n" +
		"process do\n" +
		"begin\n" +
		"`select id from branches where id = 2 for update`\n" +
		"`select id from accounts where id = 1 for update`\n" +
		"commit\n" +
		"end\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Violation == nil || report.Violation.Kind != ViolationDeadlock {
		t.Fatalf("expected a deadlock, got %+v", report.Violation)
	}
}

func TestExploreStopsAtMaxStates(t *testing.T) {
	src := "init do\nlet n := 0\nend\nprocess do\nlet n := 1\nend\n"
	mets := mustParse(t, src)

	report, err := Explore(context.Background(), mets, Limits{MaxStates: 1}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.StatesExplored != 1 {
		t.Errorf("expected exploration to stop at the configured limit, got %d states explored", report.StatesExplored)
	}
}
