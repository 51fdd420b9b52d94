package aggregation

import (
	"testing"

	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// groupedInput builds the (string, int) tuples (a,10), (a,20), (b,30).
func groupedInput(t *testing.T) (iterator.DbIterator, *tuple.TupleDescription) {
	t.Helper()

	td, err := tuple.NewTupleDesc(
		[]types.Type{types.StringType, types.IntType},
		[]string{"name", "value"},
	)
	if err != nil {
		t.Fatalf("failed to create tuple desc: %v", err)
	}

	rows := []struct {
		name  string
		value int32
	}{
		{"a", 10},
		{"a", 20},
		{"b", 30},
	}

	tuples := make([]*tuple.Tuple, len(rows))
	for i, row := range rows {
		tup := tuple.NewTuple(td)
		tup.SetField(0, types.NewStringField(row.name))
		tup.SetField(1, types.NewIntField(row.value))
		tuples[i] = tup
	}

	return iterator.NewSliceIterator(td, tuples), td
}

// groupResults drains an aggregate into a map from group name to value.
func groupResults(t *testing.T, agg *Aggregate) map[string]int32 {
	t.Helper()

	result := make(map[string]int32)
	for {
		hasNext, err := agg.HasNext()
		if err != nil {
			t.Fatalf("iterator error: %v", err)
		}
		if !hasNext {
			return result
		}
		tup, err := agg.Next()
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		group, _ := tup.GetField(0)
		value, _ := tup.GetField(1)
		result[group.String()] = value.(*types.IntField).Value
	}
}

func TestAggregate_GroupBy(t *testing.T) {
	tests := []struct {
		op       Op
		expected map[string]int32
	}{
		{Sum, map[string]int32{"a": 30, "b": 30}},
		{Avg, map[string]int32{"a": 15, "b": 30}},
		{Count, map[string]int32{"a": 2, "b": 1}},
		{Min, map[string]int32{"a": 10, "b": 30}},
		{Max, map[string]int32{"a": 20, "b": 30}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			child, _ := groupedInput(t)
			agg, err := NewAggregate(child, 1, 0, tt.op)
			if err != nil {
				t.Fatalf("failed to create aggregate: %v", err)
			}
			if err := agg.Open(); err != nil {
				t.Fatalf("open failed: %v", err)
			}
			defer agg.Close()

			got := groupResults(t, agg)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d groups, got %d", len(tt.expected), len(got))
			}
			for group, want := range tt.expected {
				if got[group] != want {
					t.Errorf("%s(%s): expected %d, got %d", tt.op, group, want, got[group])
				}
			}
		})
	}
}

func TestAggregate_NoGrouping(t *testing.T) {
	child, _ := groupedInput(t)
	agg, err := NewAggregate(child, 1, NoGrouping, Sum)
	if err != nil {
		t.Fatalf("failed to create aggregate: %v", err)
	}
	if err := agg.Open(); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer agg.Close()

	hasNext, _ := agg.HasNext()
	if !hasNext {
		t.Fatal("expected one result tuple")
	}
	tup, _ := agg.Next()
	value, _ := tup.GetField(0)
	if value.(*types.IntField).Value != 60 {
		t.Errorf("expected SUM 60, got %v", value)
	}

	hasNext, _ = agg.HasNext()
	if hasNext {
		t.Error("ungrouped aggregate should produce a single tuple")
	}
}

func TestAggregate_OutputFieldName(t *testing.T) {
	child, _ := groupedInput(t)
	agg, err := NewAggregate(child, 1, 0, Sum)
	if err != nil {
		t.Fatalf("failed to create aggregate: %v", err)
	}

	td := agg.GetTupleDesc()
	if td.NumFields() != 2 {
		t.Fatalf("expected 2 output fields, got %d", td.NumFields())
	}
	groupName, _ := td.GetFieldName(0)
	aggName, _ := td.GetFieldName(1)
	if groupName != "name" {
		t.Errorf("expected group column name, got %q", groupName)
	}
	if aggName != "SUM(value)" {
		t.Errorf("expected aggregate column SUM(value), got %q", aggName)
	}
}

func TestAggregate_StringCount(t *testing.T) {
	child, _ := groupedInput(t)
	agg, err := NewAggregate(child, 0, NoGrouping, Count)
	if err != nil {
		t.Fatalf("failed to create string count aggregate: %v", err)
	}
	if err := agg.Open(); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer agg.Close()

	tup, err := agg.Next()
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	value, _ := tup.GetField(0)
	if value.(*types.IntField).Value != 3 {
		t.Errorf("expected COUNT 3, got %v", value)
	}
}

func TestAggregate_StringRejectsNonCount(t *testing.T) {
	for _, op := range []Op{Min, Max, Sum, Avg} {
		child, _ := groupedInput(t)
		if _, err := NewAggregate(child, 0, NoGrouping, op); err == nil {
			t.Errorf("string aggregation with %s should be rejected", op)
		}
	}
}

func TestIntegerAggregator_MergeDirectly(t *testing.T) {
	agg, err := NewIntegerAggregator(NoGrouping, 0, 0, Min)
	if err != nil {
		t.Fatalf("failed to create aggregator: %v", err)
	}

	td, _ := tuple.NewTupleDesc([]types.Type{types.IntType}, nil)
	for _, v := range []int32{5, -3, 7} {
		tup := tuple.NewTuple(td)
		tup.SetField(0, types.NewIntField(v))
		if err := agg.Merge(tup); err != nil {
			t.Fatalf("merge failed: %v", err)
		}
	}

	it := agg.Iterator()
	it.Open()
	tup, err := it.Next()
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	value, _ := tup.GetField(0)
	if value.(*types.IntField).Value != -3 {
		t.Errorf("expected MIN -3, got %v", value)
	}
}
