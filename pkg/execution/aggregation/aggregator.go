// Package aggregation implements grouped streaming aggregation: aggregators
// fold tuples into per-group accumulators, and the Aggregate operator
// exposes the results as a regular iterator.
package aggregation

import (
	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
)

// NoGrouping is the group field index meaning "aggregate over all tuples".
const NoGrouping = -1

// Op is an aggregate operation.
type Op int

const (
	Min Op = iota
	Max
	Sum
	Avg
	Count
)

func (op Op) String() string {
	switch op {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	default:
		return "UNKNOWN"
	}
}

// Aggregator folds tuples into grouped aggregation state.
type Aggregator interface {
	// Merge processes one tuple into the aggregate, grouping as configured.
	Merge(t *tuple.Tuple) error

	// Iterator returns an iterator over the aggregate results: one tuple
	// per group, either (aggValue) or (groupValue, aggValue).
	Iterator() iterator.DbIterator

	// GetTupleDesc describes the result tuples.
	GetTupleDesc() *tuple.TupleDescription
}
