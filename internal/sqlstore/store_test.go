package sqlstore

import (
	"testing"

	"metscheck/internal/value"
)

func TestProjectSingleColumnReturnsBareValue(t *testing.T) {
	row := Row{Tuples: map[string]value.Value{"id": value.Integer(1), "balance": value.Integer(100)}}
	v, ok := row.Project([]string{"id"})
	if !ok {
		t.Fatal("expected the column to be found")
	}
	n, ok := v.AsInteger()
	if !ok || n != 1 {
		t.Errorf("expected a bare integer 1, got %v", v)
	}
}

func TestProjectMultipleColumnsReturnsTupleInOrder(t *testing.T) {
	row := Row{Tuples: map[string]value.Value{"id": value.Integer(1), "balance": value.Integer(100)}}
	v, ok := row.Project([]string{"balance", "id"})
	if !ok {
		t.Fatal("expected the columns to be found")
	}
	tuple, ok := v.AsTuple()
	if !ok || len(tuple) != 2 {
		t.Fatalf("expected a 2-element tuple, got %v", v)
	}
	if n, _ := tuple[0].AsInteger(); n != 100 {
		t.Errorf("expected balance first, got %v", tuple[0])
	}
	if n, _ := tuple[1].AsInteger(); n != 1 {
		t.Errorf("expected id second, got %v", tuple[1])
	}
}

func TestProjectUndeclaredColumnFails(t *testing.T) {
	row := Row{Tuples: map[string]value.Value{"id": value.Integer(1)}}
	if _, ok := row.Project([]string{"missing"}); ok {
		t.Error("expected projecting an undeclared column to fail")
	}
	if _, ok := row.Project([]string{"id", "missing"}); ok {
		t.Error("expected projecting an undeclared column within a tuple to fail")
	}
}

func TestCloneRowIsIndependent(t *testing.T) {
	row := Row{Tuples: map[string]value.Value{"id": value.Integer(1)}, Rid: 7}
	clone := row.Clone()
	clone.Tuples["id"] = value.Integer(2)
	if n, _ := row.Tuples["id"].AsInteger(); n != 1 {
		t.Error("mutating a clone's tuples must not affect the original row")
	}
	if clone.Rid != 7 {
		t.Errorf("expected the clone to keep the same RowId, got %d", clone.Rid)
	}
}

func TestCloneTableIsIndependent(t *testing.T) {
	table := &Table{
		Columns: []string{"id"},
		Rows:    []Row{{Tuples: map[string]value.Value{"id": value.Integer(1)}, Rid: 1}},
		Unique:  []UniqueIndex{{"id"}},
	}
	clone := table.Clone()
	clone.Rows[0].Tuples["id"] = value.Integer(99)
	clone.Columns[0] = "changed"

	if n, _ := table.Rows[0].Tuples["id"].AsInteger(); n != 1 {
		t.Error("mutating a clone's rows must not affect the original table")
	}
	if table.Columns[0] != "id" {
		t.Error("mutating a clone's columns must not affect the original table")
	}
}

func TestSeedColumnsOnlySetsOnce(t *testing.T) {
	table := &Table{}
	table.SeedColumns([]string{"id", "balance"})
	table.SeedColumns([]string{"ignored"})
	if len(table.Columns) != 2 || table.Columns[0] != "id" {
		t.Errorf("expected the first seeded column order to stick, got %v", table.Columns)
	}
}

func TestUniqueTupleProjectsIndexColumns(t *testing.T) {
	row := Row{Tuples: map[string]value.Value{"a": value.Integer(1), "b": value.Integer(2)}}
	v := row.UniqueTuple(UniqueIndex{"b", "a"})
	tuple, ok := v.AsTuple()
	if !ok || len(tuple) != 2 {
		t.Fatalf("expected a 2-element tuple, got %v", v)
	}
	if n, _ := tuple[0].AsInteger(); n != 2 {
		t.Errorf("expected b first, got %v", tuple[0])
	}
}
