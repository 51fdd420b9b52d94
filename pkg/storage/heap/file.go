package heap

import (
	"fmt"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/iterator"
	"tupledb/pkg/logging"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// HeapFile stores the tuples of one table as an ordered sequence of heap
// pages in a single OS file. It implements page.DbFile. Page n lives at
// byte offset n * PageSize; the page count is the file length divided by
// the page size.
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription
}

// NewHeapFile opens (or creates) a heap file backed by the given path.
func NewHeapFile(path primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	baseFile, err := page.NewBaseFile(path)
	if err != nil {
		return nil, err
	}

	return &HeapFile{
		BaseFile:  baseFile,
		tupleDesc: td,
	}, nil
}

// GetTupleDesc returns the schema of the tuples stored in this file.
func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// ReadPage reads the specified page from disk. Reading a page that does not
// exist is an error; callers create new pages through AddTuple.
func (hf *HeapFile) ReadPage(pid primitives.PageID) (page.Page, error) {
	if pid.GetTableID() != hf.GetID() {
		return nil, fmt.Errorf("page %s does not belong to table %d", pid, hf.GetID())
	}

	data, err := hf.ReadPageData(pid.PageNo())
	if err != nil {
		return nil, err
	}
	return NewHeapPage(pid, data, hf.tupleDesc)
}

// WritePage writes the page image to its slot in the file, extending the
// file when the page number is past the current end.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}
	return hf.WritePageData(p.GetID().PageNo(), p.GetPageData())
}

// AddTuple inserts a tuple into the first page with a free slot, probing
// existing pages through the buffer pool in read-write mode. Pages that
// turn out to be full are unlocked again before moving on, so concurrent
// readers are not starved by a probing writer. If every page is full, a
// fresh page is allocated, filled, and written to disk.
func (hf *HeapFile) AddTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool page.PageFetcher) ([]page.Page, error) {
	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for i := 0; i < numPages; i++ {
		pid := primitives.NewPageID(hf.GetID(), primitives.PageNumber(i))
		p, err := pool.GetPage(tid, pid, page.ReadWrite)
		if err != nil {
			return nil, err
		}

		hp, ok := p.(*HeapPage)
		if !ok {
			return nil, fmt.Errorf("unexpected page type in heap file %d", hf.GetID())
		}

		if hp.GetNumEmptySlots() > 0 {
			if err := hp.InsertTuple(t); err != nil {
				return nil, err
			}
			return []page.Page{hp}, nil
		}

		// Full page: give the lock back so others can keep reading it.
		pool.ReleasePage(tid, pid)
	}

	pid := primitives.NewPageID(hf.GetID(), primitives.PageNumber(numPages))
	hp, err := NewEmptyHeapPage(pid, hf.tupleDesc)
	if err != nil {
		return nil, err
	}
	if err := hp.InsertTuple(t); err != nil {
		return nil, err
	}
	if err := hf.WritePage(hp); err != nil {
		return nil, err
	}

	logging.GetLogger().Debug("heap file grew",
		"table", hf.GetID(), "pages", numPages+1)
	return []page.Page{hp}, nil
}

// DeleteTuple removes the tuple identified by its RecordID, fetching the
// owning page through the buffer pool in read-write mode.
func (hf *HeapFile) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool page.PageFetcher) (page.Page, error) {
	if t == nil || t.RecordID == nil {
		return nil, page.NewDbError(page.CodeInvalidSlot, "tuple has no record ID")
	}

	p, err := pool.GetPage(tid, t.RecordID.PageID, page.ReadWrite)
	if err != nil {
		return nil, err
	}

	hp, ok := p.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type in heap file %d", hf.GetID())
	}

	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	return hp, nil
}

// Iterator returns a cursor over all tuples in the file. The page count is
// snapshotted when the cursor is opened; pages appended afterwards are not
// visible to it.
func (hf *HeapFile) Iterator(tid *transaction.TransactionID, pool page.PageFetcher) iterator.DbFileIterator {
	return NewFileIterator(hf, tid, pool)
}
