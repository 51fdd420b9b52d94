package aggregation

import (
	"fmt"
	"sync"

	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// noGroupKey is the internal map key used when aggregating without
// grouping.
const noGroupKey = ""

// IntegerAggregator aggregates an integer field with MIN/MAX/SUM/AVG/COUNT.
// For AVG both the running sum and the count are kept per group, and the
// integer division happens when results are read.
type IntegerAggregator struct {
	gbField     int
	gbFieldType types.Type
	aField      int
	op          Op
	groupVals   map[string]types.Field
	aggregates  map[string]int32
	counts      map[string]int32
	keys        []string
	tupleDesc   *tuple.TupleDescription
	mutex       sync.Mutex
}

// NewIntegerAggregator creates an integer aggregator. gbField is the index
// of the grouping field, or NoGrouping.
func NewIntegerAggregator(gbField int, gbFieldType types.Type, aField int, op Op) (*IntegerAggregator, error) {
	agg := &IntegerAggregator{
		gbField:     gbField,
		gbFieldType: gbFieldType,
		aField:      aField,
		op:          op,
		groupVals:   make(map[string]types.Field),
		aggregates:  make(map[string]int32),
		counts:      make(map[string]int32),
	}

	td, err := agg.createTupleDesc()
	if err != nil {
		return nil, fmt.Errorf("error creating IntegerAggregator: %w", err)
	}
	agg.tupleDesc = td
	return agg, nil
}

func (ia *IntegerAggregator) createTupleDesc() (*tuple.TupleDescription, error) {
	if ia.gbField == NoGrouping {
		return tuple.NewTupleDesc(
			[]types.Type{types.IntType},
			[]string{"aggValue"},
		)
	}
	return tuple.NewTupleDesc(
		[]types.Type{ia.gbFieldType, types.IntType},
		[]string{"groupValue", "aggValue"},
	)
}

func (ia *IntegerAggregator) GetTupleDesc() *tuple.TupleDescription {
	return ia.tupleDesc
}

// Merge folds one tuple into the grouped state.
func (ia *IntegerAggregator) Merge(t *tuple.Tuple) error {
	ia.mutex.Lock()
	defer ia.mutex.Unlock()

	key := noGroupKey
	var groupField types.Field
	if ia.gbField != NoGrouping {
		var err error
		groupField, err = t.GetField(ia.gbField)
		if err != nil {
			return fmt.Errorf("failed to get grouping field: %w", err)
		}
		key = groupField.String()
	}

	aggField, err := t.GetField(ia.aField)
	if err != nil {
		return fmt.Errorf("failed to get aggregate field: %w", err)
	}
	intField, ok := aggField.(*types.IntField)
	if !ok {
		return fmt.Errorf("aggregate field is not an integer")
	}
	value := intField.Value

	if _, seen := ia.counts[key]; !seen {
		ia.keys = append(ia.keys, key)
		ia.groupVals[key] = groupField
		switch ia.op {
		case Min, Max:
			ia.aggregates[key] = value
		}
	}
	ia.counts[key]++

	switch ia.op {
	case Min:
		if value < ia.aggregates[key] {
			ia.aggregates[key] = value
		}
	case Max:
		if value > ia.aggregates[key] {
			ia.aggregates[key] = value
		}
	case Sum, Avg:
		if ia.counts[key] > 1 {
			ia.aggregates[key] += value
		} else {
			ia.aggregates[key] = value
		}
	case Count:
		ia.aggregates[key] = ia.counts[key]
	default:
		return fmt.Errorf("unsupported operation: %v", ia.op)
	}
	return nil
}

// Iterator returns the aggregation results, one tuple per group in first-
// seen order. AVG is finalized here as sum divided by count.
func (ia *IntegerAggregator) Iterator() iterator.DbIterator {
	ia.mutex.Lock()
	defer ia.mutex.Unlock()

	tuples := make([]*tuple.Tuple, 0, len(ia.keys))
	for _, key := range ia.keys {
		value := ia.aggregates[key]
		if ia.op == Avg {
			value /= ia.counts[key]
		}

		t := tuple.NewTuple(ia.tupleDesc)
		if ia.gbField == NoGrouping {
			t.SetField(0, types.NewIntField(value))
		} else {
			t.SetField(0, ia.groupVals[key])
			t.SetField(1, types.NewIntField(value))
		}
		tuples = append(tuples, t)
	}

	return iterator.NewSliceIterator(ia.tupleDesc, tuples)
}
