// Package execution implements the volcano-style operators of the query
// engine: tuples are pulled one at a time through trees of DbIterators.
package execution

import (
	"fmt"

	"tupledb/pkg/tuple"
)

// ReadNextFunc produces the next tuple from an operator's underlying
// source, or nil when the source is exhausted.
type ReadNextFunc func() (*tuple.Tuple, error)

// BaseIterator implements the caching HasNext/Next protocol shared by all
// operators: HasNext looks ahead by fetching and caching one tuple, Next
// consumes the cached tuple or fetches directly.
type BaseIterator struct {
	nextTuple    *tuple.Tuple
	opened       bool
	readNextFunc ReadNextFunc
}

// NewBaseIterator creates a base iterator around the given read function.
func NewBaseIterator(readNextFunc ReadNextFunc) *BaseIterator {
	return &BaseIterator{readNextFunc: readNextFunc}
}

func (it *BaseIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not opened")
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return false, err
		}
	}
	return it.nextTuple != nil, nil
}

func (it *BaseIterator) Next() (*tuple.Tuple, error) {
	if !it.opened {
		return nil, fmt.Errorf("iterator not opened")
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return nil, err
		}
		if it.nextTuple == nil {
			return nil, fmt.Errorf("no more tuples")
		}
	}

	result := it.nextTuple
	it.nextTuple = nil
	return result, nil
}

// MarkOpened marks the iterator ready for iteration.
func (it *BaseIterator) MarkOpened() {
	it.opened = true
}

// ClearCache drops the cached lookahead tuple, used by Rewind.
func (it *BaseIterator) ClearCache() {
	it.nextTuple = nil
}

func (it *BaseIterator) Close() error {
	it.nextTuple = nil
	it.opened = false
	return nil
}
