package aggregation

import (
	"fmt"
	"sync"

	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// StringAggregator aggregates a string field. Only COUNT is meaningful for
// strings; any other operation is rejected at construction.
type StringAggregator struct {
	gbField     int
	gbFieldType types.Type
	aField      int
	groupVals   map[string]types.Field
	counts      map[string]int32
	keys        []string
	tupleDesc   *tuple.TupleDescription
	mutex       sync.Mutex
}

// NewStringAggregator creates a string aggregator for COUNT. Other
// operations return an error.
func NewStringAggregator(gbField int, gbFieldType types.Type, aField int, op Op) (*StringAggregator, error) {
	if op != Count {
		return nil, fmt.Errorf("string aggregator only supports COUNT, got %s", op)
	}

	agg := &StringAggregator{
		gbField:     gbField,
		gbFieldType: gbFieldType,
		aField:      aField,
		groupVals:   make(map[string]types.Field),
		counts:      make(map[string]int32),
	}

	td, err := agg.createTupleDesc()
	if err != nil {
		return nil, fmt.Errorf("error creating StringAggregator: %w", err)
	}
	agg.tupleDesc = td
	return agg, nil
}

func (sa *StringAggregator) createTupleDesc() (*tuple.TupleDescription, error) {
	if sa.gbField == NoGrouping {
		return tuple.NewTupleDesc(
			[]types.Type{types.IntType},
			[]string{"aggValue"},
		)
	}
	return tuple.NewTupleDesc(
		[]types.Type{sa.gbFieldType, types.IntType},
		[]string{"groupValue", "aggValue"},
	)
}

func (sa *StringAggregator) GetTupleDesc() *tuple.TupleDescription {
	return sa.tupleDesc
}

// Merge counts one tuple into its group. The string value itself only
// matters for existence.
func (sa *StringAggregator) Merge(t *tuple.Tuple) error {
	sa.mutex.Lock()
	defer sa.mutex.Unlock()

	key := noGroupKey
	var groupField types.Field
	if sa.gbField != NoGrouping {
		var err error
		groupField, err = t.GetField(sa.gbField)
		if err != nil {
			return fmt.Errorf("failed to get grouping field: %w", err)
		}
		key = groupField.String()
	}

	aggField, err := t.GetField(sa.aField)
	if err != nil {
		return fmt.Errorf("failed to get aggregate field: %w", err)
	}
	if _, ok := aggField.(*types.StringField); !ok {
		return fmt.Errorf("aggregate field is not a string")
	}

	if _, seen := sa.counts[key]; !seen {
		sa.keys = append(sa.keys, key)
		sa.groupVals[key] = groupField
	}
	sa.counts[key]++
	return nil
}

// Iterator returns the per-group counts in first-seen order.
func (sa *StringAggregator) Iterator() iterator.DbIterator {
	sa.mutex.Lock()
	defer sa.mutex.Unlock()

	tuples := make([]*tuple.Tuple, 0, len(sa.keys))
	for _, key := range sa.keys {
		t := tuple.NewTuple(sa.tupleDesc)
		if sa.gbField == NoGrouping {
			t.SetField(0, types.NewIntField(sa.counts[key]))
		} else {
			t.SetField(0, sa.groupVals[key])
			t.SetField(1, types.NewIntField(sa.counts[key]))
		}
		tuples = append(tuples, t)
	}

	return iterator.NewSliceIterator(sa.tupleDesc, tuples)
}
