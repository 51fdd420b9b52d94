// Package page defines the page and file abstractions shared between the
// storage layer and the buffer pool.
package page

import (
	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/iterator"
	"tupledb/pkg/primitives"
	"tupledb/pkg/tuple"
)

// DefaultPageSize is the number of bytes per page, including the header.
const DefaultPageSize = 4096

// PageSize is the active page size. It is a variable only so that tests can
// shrink pages to force multi-page tables; production code never changes it.
var PageSize = DefaultPageSize

// SetPageSize overrides the page size. ONLY FOR TESTING.
func SetPageSize(size int) {
	PageSize = size
}

// ResetPageSize restores the default page size. ONLY FOR TESTING.
func ResetPageSize() {
	PageSize = DefaultPageSize
}

// Permissions is the access level requested when fetching a page.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

// Page is a fixed-size in-memory image of an on-disk page. A page is dirty
// when a transaction has modified it and the change has not been flushed;
// the before-image holds the last committed content for rollback and
// write-ahead logging.
type Page interface {
	// GetID returns the identifier of this page.
	GetID() primitives.PageID

	// IsDirty returns the transaction that dirtied the page, or nil if the
	// page is clean.
	IsDirty() *transaction.TransactionID

	// MarkDirty marks the page dirty on behalf of tid, or clean when dirty
	// is false.
	MarkDirty(dirty bool, tid *transaction.TransactionID)

	// GetPageData serializes the page into a PageSize-byte image.
	GetPageData() []byte

	// GetBeforeImage returns a page holding the state captured by the last
	// SetBeforeImage call.
	GetBeforeImage() Page

	// SetBeforeImage captures the current content as the new rollback and
	// logging baseline.
	SetBeforeImage()
}

// PageFetcher is the slice of the buffer pool the storage layer needs:
// fetching pages under a lock, and the early-release hook used by the heap
// file insert probe. Passing it explicitly keeps the pool a regular service
// instead of a process-wide singleton.
type PageFetcher interface {
	GetPage(tid *transaction.TransactionID, pid primitives.PageID, perm Permissions) (Page, error)
	ReleasePage(tid *transaction.TransactionID, pid primitives.PageID)
}

// DbFile is a page-addressable database file holding the tuples of one
// table.
type DbFile interface {
	// ReadPage reads the given page from disk, bypassing any cache.
	ReadPage(pid primitives.PageID) (Page, error)

	// WritePage writes the page image to its location on disk, extending
	// the file if needed.
	WritePage(p Page) error

	// AddTuple inserts a tuple on behalf of tid, fetching candidate pages
	// through pool. Returns every page modified by the insertion.
	AddTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool PageFetcher) ([]Page, error)

	// DeleteTuple removes the tuple identified by its RecordID and returns
	// the modified page.
	DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple, pool PageFetcher) (Page, error)

	// Iterator returns a cursor over all tuples in the file, fetching pages
	// through pool with read-only permission.
	Iterator(tid *transaction.TransactionID, pool PageFetcher) iterator.DbFileIterator

	// GetID returns the table ID of this file.
	GetID() primitives.TableID

	// GetTupleDesc returns the schema of the tuples stored in this file.
	GetTupleDesc() *tuple.TupleDescription

	// NumPages returns the current number of pages in the file.
	NumPages() (int, error)

	// Close releases the underlying file handle.
	Close() error
}
