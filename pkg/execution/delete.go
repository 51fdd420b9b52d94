package execution

import (
	"fmt"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/iterator"
	"tupledb/pkg/memory"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// Delete drains its child on the first Next call, deleting every tuple the
// child produces (located by its RecordID) through the buffer pool, and
// produces a single one-field tuple holding the number of deleted records.
type Delete struct {
	base     *BaseIterator
	ps       *memory.PageStore
	tid      *transaction.TransactionID
	child    iterator.DbIterator
	resultTD *tuple.TupleDescription
	done     bool
}

// NewDelete creates the delete operator.
func NewDelete(ps *memory.PageStore, tid *transaction.TransactionID, child iterator.DbIterator) (*Delete, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}

	resultTD, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"deleted"})
	if err != nil {
		return nil, err
	}

	op := &Delete{
		ps:       ps,
		tid:      tid,
		child:    child,
		resultTD: resultTD,
	}
	op.base = NewBaseIterator(op.readNext)
	return op, nil
}

func (op *Delete) Open() error {
	if err := op.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}
	op.done = false
	op.base.MarkOpened()
	return nil
}

func (op *Delete) Close() error {
	if op.child != nil {
		op.child.Close()
	}
	return op.base.Close()
}

func (op *Delete) GetTupleDesc() *tuple.TupleDescription {
	return op.resultTD
}

func (op *Delete) HasNext() (bool, error)      { return op.base.HasNext() }
func (op *Delete) Next() (*tuple.Tuple, error) { return op.base.Next() }

func (op *Delete) readNext() (*tuple.Tuple, error) {
	if op.done {
		return nil, nil
	}

	count := int32(0)
	for {
		hasNext, err := op.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}

		t, err := op.child.Next()
		if err != nil {
			return nil, err
		}
		if err := op.ps.DeleteTuple(op.tid, t); err != nil {
			return nil, err
		}
		count++
	}

	op.done = true
	result := tuple.NewTuple(op.resultTD)
	if err := result.SetField(0, types.NewIntField(count)); err != nil {
		return nil, err
	}
	return result, nil
}

func (op *Delete) Rewind() error {
	if err := op.child.Rewind(); err != nil {
		return err
	}
	op.done = false
	op.base.ClearCache()
	return nil
}

func (op *Delete) GetChildren() []iterator.DbIterator {
	return []iterator.DbIterator{op.child}
}

func (op *Delete) SetChildren(children []iterator.DbIterator) error {
	if len(children) != 1 {
		return fmt.Errorf("delete expects exactly one child, got %d", len(children))
	}
	op.child = children[0]
	return nil
}
