package execution

import (
	"fmt"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/iterator"
	"tupledb/pkg/memory"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// Insert drains its child on the first Next call, inserting every tuple
// into the target table through the buffer pool, and produces a single
// one-field tuple holding the number of inserted records.
type Insert struct {
	base     *BaseIterator
	ps       *memory.PageStore
	tid      *transaction.TransactionID
	child    iterator.DbIterator
	tableID  primitives.TableID
	resultTD *tuple.TupleDescription
	done     bool
}

// NewInsert creates the insert operator. The child's schema must match the
// target table's schema.
func NewInsert(ps *memory.PageStore, tid *transaction.TransactionID, child iterator.DbIterator, tableID primitives.TableID) (*Insert, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}

	tableDesc, err := ps.Tables().GetTupleDesc(tableID)
	if err != nil {
		return nil, err
	}
	if !child.GetTupleDesc().Equals(tableDesc) {
		return nil, page.NewDbError(page.CodeSchemaMismatch,
			"child schema does not match table schema")
	}

	resultTD, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"inserted"})
	if err != nil {
		return nil, err
	}

	op := &Insert{
		ps:       ps,
		tid:      tid,
		child:    child,
		tableID:  tableID,
		resultTD: resultTD,
	}
	op.base = NewBaseIterator(op.readNext)
	return op, nil
}

func (op *Insert) Open() error {
	if err := op.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}
	op.done = false
	op.base.MarkOpened()
	return nil
}

func (op *Insert) Close() error {
	if op.child != nil {
		op.child.Close()
	}
	return op.base.Close()
}

func (op *Insert) GetTupleDesc() *tuple.TupleDescription {
	return op.resultTD
}

func (op *Insert) HasNext() (bool, error)      { return op.base.HasNext() }
func (op *Insert) Next() (*tuple.Tuple, error) { return op.base.Next() }

func (op *Insert) readNext() (*tuple.Tuple, error) {
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
		if err := op.ps.InsertTuple(op.tid, op.tableID, t); err != nil {
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

func (op *Insert) Rewind() error {
	if err := op.child.Rewind(); err != nil {
		return err
	}
	op.done = false
	op.base.ClearCache()
	return nil
}

func (op *Insert) GetChildren() []iterator.DbIterator {
	return []iterator.DbIterator{op.child}
}

func (op *Insert) SetChildren(children []iterator.DbIterator) error {
	if len(children) != 1 {
		return fmt.Errorf("insert expects exactly one child, got %d", len(children))
	}
	op.child = children[0]
	return nil
}
