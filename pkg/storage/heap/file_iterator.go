package heap

import (
	"fmt"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// FileIterator is a restartable cursor over every tuple in a heap file.
// Pages are fetched lazily through the buffer pool with read-only
// permission. The page count is captured at Open, so the cursor has
// snapshot-at-open semantics with respect to file growth.
type FileIterator struct {
	file     *HeapFile
	tid      *transaction.TransactionID
	pool     page.PageFetcher
	numPages int
	pageNo   int
	pageIter *PageIterator
	opened   bool
}

// NewFileIterator creates a cursor for the given file and transaction.
func NewFileIterator(file *HeapFile, tid *transaction.TransactionID, pool page.PageFetcher) *FileIterator {
	return &FileIterator{
		file: file,
		tid:  tid,
		pool: pool,
	}
}

// Open captures the current page count and positions the cursor before the
// first tuple.
func (it *FileIterator) Open() error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}

	it.numPages = numPages
	it.pageNo = -1
	it.pageIter = nil
	it.opened = true
	return nil
}

// HasNext advances through pages lazily until a tuple is found or the
// snapshotted page count is exhausted.
func (it *FileIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not opened")
	}

	for {
		if it.pageIter != nil {
			hasNext, err := it.pageIter.HasNext()
			if err != nil {
				return false, err
			}
			if hasNext {
				return true, nil
			}
		}

		if it.pageNo+1 >= it.numPages {
			return false, nil
		}
		if err := it.loadPage(it.pageNo + 1); err != nil {
			return false, err
		}
	}
}

// Next returns the next tuple in the file.
func (it *FileIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, fmt.Errorf("no more tuples")
	}
	return it.pageIter.Next()
}

// Rewind restarts the cursor from page 0.
func (it *FileIterator) Rewind() error {
	if err := it.Close(); err != nil {
		return err
	}
	return it.Open()
}

// Close releases the cursor's state. Locks are held until the transaction
// completes, not released here.
func (it *FileIterator) Close() error {
	if it.pageIter != nil {
		it.pageIter.Close()
		it.pageIter = nil
	}
	it.opened = false
	return nil
}

// loadPage fetches the given page through the buffer pool and opens a
// per-page cursor on it.
func (it *FileIterator) loadPage(pageNo int) error {
	pid := primitives.NewPageID(it.file.GetID(), primitives.PageNumber(pageNo))
	p, err := it.pool.GetPage(it.tid, pid, page.ReadOnly)
	if err != nil {
		return err
	}

	hp, ok := p.(*HeapPage)
	if !ok {
		return fmt.Errorf("unexpected page type in heap file %d", it.file.GetID())
	}

	it.pageNo = pageNo
	it.pageIter = NewPageIterator(hp)
	return it.pageIter.Open()
}
