// Package iterator defines the pull-based iteration contracts shared by the
// execution operators and the storage layer.
package iterator

import "tupledb/pkg/tuple"

// TupleIterator captures the minimal iteration methods shared by all
// iterator types in the system.
type TupleIterator interface {
	// HasNext reports whether another tuple is available without consuming it.
	HasNext() (bool, error)

	// Next returns the next tuple and advances the iterator.
	Next() (*tuple.Tuple, error)
}

// DbIterator is the operator-level iterator contract. Every execution
// operator implements it: tuples are pulled one at a time through Next,
// and operators compose into trees via GetChildren/SetChildren.
type DbIterator interface {
	TupleIterator

	// Open initializes the iterator. Must be called before iteration.
	Open() error

	// Rewind resets the iterator to the beginning of its sequence.
	Rewind() error

	// Close releases resources and marks the iterator closed.
	Close() error

	// GetTupleDesc returns the schema of the tuples this iterator produces.
	GetTupleDesc() *tuple.TupleDescription

	// GetChildren returns the child operators feeding this one, or nil for
	// leaf iterators.
	GetChildren() []DbIterator

	// SetChildren replaces the child operators. Leaf iterators return an
	// error when given a non-empty child list.
	SetChildren(children []DbIterator) error
}

// DbFileIterator is the storage-level cursor over the tuples of a database
// file. It carries no schema; that is known to the file itself.
type DbFileIterator interface {
	TupleIterator

	Open() error
	Rewind() error
	Close() error
}
