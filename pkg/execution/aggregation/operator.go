package aggregation

import (
	"fmt"

	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// Aggregate is the operator wrapping an aggregator: on Open it drains its
// child into the aggregator, then serves the aggregator's result iterator.
// The output schema is (aggValue) without grouping or (groupValue,
// aggValue) with grouping, and the aggregate column is named
// "<OP>(<child field name>)".
type Aggregate struct {
	child      iterator.DbIterator
	aField     int
	gField     int
	op         Op
	aggregator Aggregator
	results    iterator.DbIterator
	opened     bool
}

// NewAggregate creates the aggregate operator. The aggregator variant is
// chosen by the type of the aggregated child field.
func NewAggregate(child iterator.DbIterator, aField, gField int, op Op) (*Aggregate, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}

	childDesc := child.GetTupleDesc()
	if childDesc == nil {
		return nil, fmt.Errorf("child tuple description cannot be nil")
	}
	if aField < 0 || aField >= childDesc.NumFields() {
		return nil, fmt.Errorf("invalid aggregate field index: %d", aField)
	}
	if gField != NoGrouping && (gField < 0 || gField >= childDesc.NumFields()) {
		return nil, fmt.Errorf("invalid group field index: %d", gField)
	}

	var gbFieldType types.Type
	if gField != NoGrouping {
		gbFieldType = childDesc.Types[gField]
	}

	var aggregator Aggregator
	var err error
	switch childDesc.Types[aField] {
	case types.IntType:
		aggregator, err = NewIntegerAggregator(gField, gbFieldType, aField, op)
	case types.StringType:
		aggregator, err = NewStringAggregator(gField, gbFieldType, aField, op)
	default:
		err = fmt.Errorf("unsupported field type for aggregation: %v", childDesc.Types[aField])
	}
	if err != nil {
		return nil, err
	}

	return &Aggregate{
		child:      child,
		aField:     aField,
		gField:     gField,
		op:         op,
		aggregator: aggregator,
	}, nil
}

// Open drains the child into the aggregator and opens the result iterator.
func (agg *Aggregate) Open() error {
	if agg.opened {
		return fmt.Errorf("aggregate operator already opened")
	}

	if err := agg.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}

	for {
		hasNext, err := agg.child.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			break
		}

		t, err := agg.child.Next()
		if err != nil {
			return err
		}
		if err := agg.aggregator.Merge(t); err != nil {
			return err
		}
	}

	agg.results = agg.aggregator.Iterator()
	if err := agg.results.Open(); err != nil {
		return err
	}
	agg.opened = true
	return nil
}

func (agg *Aggregate) HasNext() (bool, error) {
	if !agg.opened {
		return false, fmt.Errorf("aggregate operator not opened")
	}
	return agg.results.HasNext()
}

func (agg *Aggregate) Next() (*tuple.Tuple, error) {
	if !agg.opened {
		return nil, fmt.Errorf("aggregate operator not opened")
	}
	return agg.results.Next()
}

func (agg *Aggregate) Rewind() error {
	if !agg.opened {
		return fmt.Errorf("aggregate operator not opened")
	}
	return agg.results.Rewind()
}

func (agg *Aggregate) Close() error {
	if agg.child != nil {
		agg.child.Close()
	}
	if agg.results != nil {
		agg.results.Close()
		agg.results = nil
	}
	agg.opened = false
	return nil
}

// GetTupleDesc names the aggregate column after the operation and the
// child's field name, e.g. "SUM(amount)".
func (agg *Aggregate) GetTupleDesc() *tuple.TupleDescription {
	childDesc := agg.child.GetTupleDesc()
	aName, _ := childDesc.GetFieldName(agg.aField)
	aggName := fmt.Sprintf("%s(%s)", agg.op, aName)

	if agg.gField == NoGrouping {
		td, _ := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{aggName})
		return td
	}

	gName, _ := childDesc.GetFieldName(agg.gField)
	td, _ := tuple.NewTupleDesc(
		[]types.Type{childDesc.Types[agg.gField], types.IntType},
		[]string{gName, aggName},
	)
	return td
}

func (agg *Aggregate) GetChildren() []iterator.DbIterator {
	return []iterator.DbIterator{agg.child}
}

func (agg *Aggregate) SetChildren(children []iterator.DbIterator) error {
	if len(children) != 1 {
		return fmt.Errorf("aggregate expects exactly one child, got %d", len(children))
	}
	agg.child = children[0]
	return nil
}
