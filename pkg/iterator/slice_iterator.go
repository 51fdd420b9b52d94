package iterator

import (
	"fmt"

	"tupledb/pkg/tuple"
)

// SliceIterator is a DbIterator over an in-memory slice of tuples.
// It backs aggregator results and test fixtures.
type SliceIterator struct {
	tupleDesc *tuple.TupleDescription
	tuples    []*tuple.Tuple
	position  int
	opened    bool
}

// NewSliceIterator creates an iterator over the given tuples.
func NewSliceIterator(td *tuple.TupleDescription, tuples []*tuple.Tuple) *SliceIterator {
	return &SliceIterator{
		tupleDesc: td,
		tuples:    tuples,
		position:  0,
	}
}

func (it *SliceIterator) Open() error {
	it.position = 0
	it.opened = true
	return nil
}

func (it *SliceIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not opened")
	}
	return it.position < len(it.tuples), nil
}

func (it *SliceIterator) Next() (*tuple.Tuple, error) {
	if !it.opened {
		return nil, fmt.Errorf("iterator not opened")
	}
	if it.position >= len(it.tuples) {
		return nil, fmt.Errorf("no more tuples")
	}
	t := it.tuples[it.position]
	it.position++
	return t, nil
}

func (it *SliceIterator) Rewind() error {
	if !it.opened {
		return fmt.Errorf("iterator not opened")
	}
	it.position = 0
	return nil
}

func (it *SliceIterator) Close() error {
	it.opened = false
	return nil
}

func (it *SliceIterator) GetTupleDesc() *tuple.TupleDescription {
	return it.tupleDesc
}

func (it *SliceIterator) GetChildren() []DbIterator {
	return nil
}

func (it *SliceIterator) SetChildren(children []DbIterator) error {
	if len(children) > 0 {
		return fmt.Errorf("slice iterator has no children")
	}
	return nil
}
