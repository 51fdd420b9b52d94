package execution

import (
	"fmt"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/iterator"
	"tupledb/pkg/memory"
	"tupledb/pkg/primitives"
	"tupledb/pkg/tuple"
)

// SeqScan is the leaf operator: a sequential scan over the tuples of one
// table, fetching pages through the buffer pool with read-only permission.
type SeqScan struct {
	ps       *memory.PageStore
	tid      *transaction.TransactionID
	tableID  primitives.TableID
	fileIter iterator.DbFileIterator
	opened   bool
}

// NewSeqScan creates a scan of the given table on behalf of tid.
func NewSeqScan(ps *memory.PageStore, tid *transaction.TransactionID, tableID primitives.TableID) (*SeqScan, error) {
	if ps == nil {
		return nil, fmt.Errorf("page store cannot be nil")
	}
	if _, err := ps.Tables().GetDbFile(tableID); err != nil {
		return nil, err
	}

	return &SeqScan{
		ps:      ps,
		tid:     tid,
		tableID: tableID,
	}, nil
}

func (s *SeqScan) Open() error {
	dbFile, err := s.ps.Tables().GetDbFile(s.tableID)
	if err != nil {
		return err
	}

	s.fileIter = dbFile.Iterator(s.tid, s.ps)
	if err := s.fileIter.Open(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *SeqScan) HasNext() (bool, error) {
	if !s.opened {
		return false, fmt.Errorf("seq scan not opened")
	}
	return s.fileIter.HasNext()
}

func (s *SeqScan) Next() (*tuple.Tuple, error) {
	if !s.opened {
		return nil, fmt.Errorf("seq scan not opened")
	}
	return s.fileIter.Next()
}

func (s *SeqScan) Rewind() error {
	if !s.opened {
		return fmt.Errorf("seq scan not opened")
	}
	return s.fileIter.Rewind()
}

func (s *SeqScan) Close() error {
	if s.fileIter != nil {
		s.fileIter.Close()
		s.fileIter = nil
	}
	s.opened = false
	return nil
}

func (s *SeqScan) GetTupleDesc() *tuple.TupleDescription {
	dbFile, err := s.ps.Tables().GetDbFile(s.tableID)
	if err != nil {
		return nil
	}
	return dbFile.GetTupleDesc()
}

func (s *SeqScan) GetChildren() []iterator.DbIterator {
	return nil
}

func (s *SeqScan) SetChildren(children []iterator.DbIterator) error {
	if len(children) > 0 {
		return fmt.Errorf("seq scan has no children")
	}
	return nil
}
