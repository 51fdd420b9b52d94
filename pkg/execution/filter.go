package execution

import (
	"fmt"

	"tupledb/pkg/iterator"
	"tupledb/pkg/tuple"
)

// Filter streams its child's tuples, returning only those satisfying the
// predicate. The output schema is the child's.
type Filter struct {
	base      *BaseIterator
	predicate *Predicate
	child     iterator.DbIterator
}

// NewFilter creates a filter over the given child.
func NewFilter(predicate *Predicate, child iterator.DbIterator) (*Filter, error) {
	if predicate == nil {
		return nil, fmt.Errorf("predicate cannot be nil")
	}
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}

	f := &Filter{
		predicate: predicate,
		child:     child,
	}
	f.base = NewBaseIterator(f.readNext)
	return f, nil
}

func (f *Filter) Open() error {
	if err := f.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}
	f.base.MarkOpened()
	return nil
}

func (f *Filter) Close() error {
	if f.child != nil {
		f.child.Close()
	}
	return f.base.Close()
}

func (f *Filter) GetTupleDesc() *tuple.TupleDescription {
	return f.child.GetTupleDesc()
}

func (f *Filter) HasNext() (bool, error)      { return f.base.HasNext() }
func (f *Filter) Next() (*tuple.Tuple, error) { return f.base.Next() }

func (f *Filter) readNext() (*tuple.Tuple, error) {
	for {
		hasNext, err := f.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			return nil, nil
		}

		t, err := f.child.Next()
		if err != nil {
			return nil, err
		}

		passes, err := f.predicate.Filter(t)
		if err != nil {
			return nil, err
		}
		if passes {
			return t, nil
		}
	}
}

func (f *Filter) Rewind() error {
	if err := f.child.Rewind(); err != nil {
		return err
	}
	f.base.ClearCache()
	return nil
}

func (f *Filter) GetChildren() []iterator.DbIterator {
	return []iterator.DbIterator{f.child}
}

func (f *Filter) SetChildren(children []iterator.DbIterator) error {
	if len(children) != 1 {
		return fmt.Errorf("filter expects exactly one child, got %d", len(children))
	}
	f.child = children[0]
	return nil
}
