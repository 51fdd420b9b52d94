package memory

import (
	"fmt"
	"sync"
	"time"

	"tupledb/pkg/concurrency/lock"
	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/log"
	"tupledb/pkg/logging"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

const (
	// DefaultPoolPages is the default buffer pool capacity in pages.
	DefaultPoolPages = 50

	// DefaultLockTimeout is how long a transaction waits for a page lock
	// before it is aborted.
	DefaultLockTimeout = 100 * time.Millisecond

	// lockRetryInterval is the pause between lock acquisition attempts.
	lockRetryInterval = time.Millisecond
)

// PageStore is the buffer pool: a bounded LRU cache of pages with
// integrated page-level locking, dirty tracking, and write-ahead logging.
// It is the only path through which the rest of the system touches pages.
//
// The pool is NO-STEAL: dirty pages are never evicted or written to disk
// before their transaction commits, and abort is a matter of re-reading the
// on-disk image. The exception is a page the heap file appends on insert
// overflow: it is written to disk holding the new tuple before it enters
// the pool, so an abort does not remove that tuple.
type PageStore struct {
	tables       *TableManager
	cache        PageCache
	locks        *lock.Manager
	logFile      *log.LogFile
	maxPages     int
	lockTimeout  time.Duration
	mutex        sync.Mutex
	begun        map[*transaction.TransactionID]struct{}
	commitBroken bool
}

// NewPageStore creates a buffer pool with the given capacity. logFile may
// be nil, in which case no write-ahead records are produced.
func NewPageStore(tables *TableManager, maxPages int, logFile *log.LogFile) *PageStore {
	if maxPages <= 0 {
		maxPages = DefaultPoolPages
	}
	return &PageStore{
		tables:      tables,
		cache:       NewLRUPageCache(maxPages),
		locks:       lock.NewManager(),
		logFile:     logFile,
		maxPages:    maxPages,
		lockTimeout: DefaultLockTimeout,
		begun:       make(map[*transaction.TransactionID]struct{}),
	}
}

// SetLockTimeout overrides the lock wait deadline. Used by tests to tighten
// or relax the abort window.
func (ps *PageStore) SetLockTimeout(d time.Duration) {
	ps.lockTimeout = d
}

// Tables returns the catalog this pool reads table files from.
func (ps *PageStore) Tables() *TableManager {
	return ps.tables
}

// GetPage retrieves a page on behalf of tid with the given permission.
//
// The page lock is acquired first: shared for read-only, exclusive for
// read-write. The lock manager itself never blocks, so waiting is a polling
// loop here; a transaction that cannot acquire the lock within the timeout
// is aborted. Once locked, the page is served from the cache when present
// (refreshing its recency) or read from disk, evicting the least recently
// used clean page if the pool is full.
func (ps *PageStore) GetPage(tid *transaction.TransactionID, pid primitives.PageID, perm page.Permissions) (page.Page, error) {
	mode := lock.Shared
	if perm == page.ReadWrite {
		mode = lock.Exclusive
	}

	deadline := time.Now().Add(ps.lockTimeout)
	for !ps.locks.Acquire(tid, pid, mode) {
		if time.Now().After(deadline) {
			logging.GetLogger().Debug("lock wait timed out",
				"tid", tid.String(), "page", pid.String(), "mode", mode.String())
			return nil, &transaction.AbortedError{
				TID:    tid,
				Reason: fmt.Sprintf("timed out waiting for %s lock on %s", mode, pid),
			}
		}
		time.Sleep(lockRetryInterval)
	}

	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if p, exists := ps.cache.Get(pid); exists {
		return p, nil
	}

	if ps.cache.Size() >= ps.maxPages {
		if err := ps.evictPageLocked(); err != nil {
			return nil, err
		}
	}

	dbFile, err := ps.tables.GetDbFile(pid.GetTableID())
	if err != nil {
		return nil, fmt.Errorf("table for page %s not found: %w", pid, err)
	}

	p, err := dbFile.ReadPage(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to read page from disk: %w", err)
	}

	if err := ps.cache.Put(pid, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReleasePage drops tid's lock on a single page before the transaction
// ends. This breaks strict two-phase locking and is only safe for pages
// the transaction has not modified; the heap file uses it to let go of
// full pages during its insert probe.
func (ps *PageStore) ReleasePage(tid *transaction.TransactionID, pid primitives.PageID) {
	ps.locks.Release(tid, pid)
}

// HoldsLock reports whether tid holds a lock on the given page.
func (ps *PageStore) HoldsLock(tid *transaction.TransactionID, pid primitives.PageID) bool {
	return ps.locks.Holds(tid, pid)
}

// InsertTuple adds a tuple to the given table. Every page the insertion
// modified is marked dirty and (re-)installed at the head of the cache,
// including pages that were not cached before, such as freshly appended
// ones.
func (ps *PageStore) InsertTuple(tid *transaction.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	if err := ps.ensureBegun(tid); err != nil {
		return err
	}

	dbFile, err := ps.tables.GetDbFile(tableID)
	if err != nil {
		return fmt.Errorf("table with ID %d not found: %w", tableID, err)
	}

	modified, err := dbFile.AddTuple(tid, t, ps)
	if err != nil {
		return err
	}

	return ps.installDirty(tid, modified)
}

// DeleteTuple removes a tuple from its table. The owning page is marked
// dirty and refreshed in the cache.
func (ps *PageStore) DeleteTuple(tid *transaction.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return page.NewDbError(page.CodeInvalidSlot, "tuple has no record ID")
	}

	if err := ps.ensureBegun(tid); err != nil {
		return err
	}

	tableID := t.RecordID.PageID.GetTableID()
	dbFile, err := ps.tables.GetDbFile(tableID)
	if err != nil {
		return fmt.Errorf("table with ID %d not found: %w", tableID, err)
	}

	modified, err := dbFile.DeleteTuple(tid, t, ps)
	if err != nil {
		return err
	}

	return ps.installDirty(tid, []page.Page{modified})
}

// FlushPage writes the page to disk if it is dirty, after logging its
// before/after images and forcing the log (write-ahead order).
func (ps *PageStore) FlushPage(pid primitives.PageID) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	return ps.flushPageLocked(pid)
}

// FlushAllPages flushes every dirty page in the cache. Breaks NO-STEAL when
// uncommitted transactions have dirty pages, so it is only for shutdown and
// tests.
func (ps *PageStore) FlushAllPages() error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	for _, pid := range ps.cache.Keys() {
		if err := ps.flushPageLocked(pid); err != nil {
			return err
		}
	}
	return nil
}

// FlushPages flushes every page dirtied by tid and advances those pages'
// before-images to the newly committed content, establishing the rollback
// baseline for future transactions.
func (ps *PageStore) FlushPages(tid *transaction.TransactionID) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	return ps.flushPagesLocked(tid)
}

// TransactionComplete commits or aborts a transaction and releases all of
// its locks.
//
// Commit flushes the transaction's dirty pages (logging first). Abort
// restores every page the transaction dirtied from its on-disk image, so
// in-memory state matches the last committed state.
func (ps *PageStore) TransactionComplete(tid *transaction.TransactionID, commit bool) error {
	defer ps.locks.ReleaseAll(tid)

	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	_, began := ps.begun[tid]
	delete(ps.begun, tid)

	if commit {
		if ps.commitBroken {
			return page.NewDbError(page.CodeCommitBroken,
				"log failure occurred; refusing further commits")
		}
		if err := ps.flushPagesLocked(tid); err != nil {
			return err
		}
		if ps.logFile != nil && began {
			if err := ps.logFile.LogCommit(tid); err != nil {
				ps.commitBroken = true
				return fmt.Errorf("failed to log commit: %w", err)
			}
			if err := ps.logFile.Force(); err != nil {
				ps.commitBroken = true
				return fmt.Errorf("failed to force log: %w", err)
			}
		}
		return nil
	}

	if err := ps.restorePagesLocked(tid); err != nil {
		return err
	}
	if ps.logFile != nil && began {
		if err := ps.logFile.LogAbort(tid); err != nil {
			logging.GetLogger().Warn("failed to log abort", "tid", tid.String(), "error", err)
		}
	}
	return nil
}

// DiscardPage removes a page from the cache without flushing it.
func (ps *PageStore) DiscardPage(pid primitives.PageID) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	ps.cache.Remove(pid)
}

// CachedPages returns the number of pages currently cached.
func (ps *PageStore) CachedPages() int {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	return ps.cache.Size()
}

// CachedPageIDs returns the cached page IDs in LRU order, least recently
// used first.
func (ps *PageStore) CachedPageIDs() []primitives.PageID {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	return ps.cache.Keys()
}

// evictPageLocked frees one cache slot under the NO-STEAL policy: walk from
// the least recently used end and discard the first clean page. If every
// page is dirty the pool cannot make room.
func (ps *PageStore) evictPageLocked() error {
	for _, pid := range ps.cache.Keys() {
		p, exists := ps.cache.Peek(pid)
		if !exists {
			continue
		}
		if p.IsDirty() != nil {
			continue
		}
		ps.cache.Remove(pid)
		return nil
	}
	return page.NewDbError(page.CodeBufferFull, "all pages are dirty")
}

// flushPageLocked logs and writes a single dirty page. A log failure here
// poisons the store: later commits are refused, since write-ahead ordering
// can no longer be guaranteed.
func (ps *PageStore) flushPageLocked(pid primitives.PageID) error {
	p, exists := ps.cache.Peek(pid)
	if !exists {
		return nil
	}

	dirtier := p.IsDirty()
	if dirtier == nil {
		return nil
	}

	if ps.logFile != nil {
		if err := ps.logFile.LogWrite(dirtier, p.GetBeforeImage(), p); err != nil {
			ps.commitBroken = true
			return fmt.Errorf("failed to log page update: %w", err)
		}
		if err := ps.logFile.Force(); err != nil {
			ps.commitBroken = true
			return fmt.Errorf("failed to force log: %w", err)
		}
	}

	dbFile, err := ps.tables.GetDbFile(pid.GetTableID())
	if err != nil {
		return fmt.Errorf("table for page %s not found: %w", pid, err)
	}
	if err := dbFile.WritePage(p); err != nil {
		return fmt.Errorf("failed to write page %s: %w", pid, err)
	}

	p.MarkDirty(false, nil)
	return nil
}

// flushPagesLocked flushes tid's dirty pages. The flush happens first, so
// the log record carries the pre-transaction before-image; only then is the
// page's before-image advanced to the committed content.
func (ps *PageStore) flushPagesLocked(tid *transaction.TransactionID) error {
	for _, pid := range ps.cache.Keys() {
		p, exists := ps.cache.Peek(pid)
		if !exists || p.IsDirty() != tid {
			continue
		}
		if err := ps.flushPageLocked(pid); err != nil {
			return err
		}
		p.SetBeforeImage()
	}
	return nil
}

// restorePagesLocked replaces every page dirtied by tid with a fresh read
// of its on-disk image. Because of NO-STEAL the disk never saw the
// transaction's changes to pages it fetched through the pool, so those are
// undone; a page appended on insert overflow was written with its new tuple
// and is re-read with it.
func (ps *PageStore) restorePagesLocked(tid *transaction.TransactionID) error {
	for _, pid := range ps.cache.Keys() {
		p, exists := ps.cache.Peek(pid)
		if !exists || p.IsDirty() != tid {
			continue
		}

		dbFile, err := ps.tables.GetDbFile(pid.GetTableID())
		if err != nil {
			ps.cache.Remove(pid)
			continue
		}

		restored, err := dbFile.ReadPage(pid)
		if err != nil {
			ps.cache.Remove(pid)
			continue
		}
		if err := ps.cache.Put(pid, restored); err != nil {
			return err
		}
	}
	return nil
}

// installDirty marks the modified pages dirty for tid and installs them at
// the head of the cache, evicting if a brand-new page would overflow it.
func (ps *PageStore) installDirty(tid *transaction.TransactionID, pages []page.Page) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	for _, p := range pages {
		p.MarkDirty(true, tid)

		pid := p.GetID()
		if _, cached := ps.cache.Peek(pid); !cached && ps.cache.Size() >= ps.maxPages {
			if err := ps.evictPageLocked(); err != nil {
				return err
			}
		}
		if err := ps.cache.Put(pid, p); err != nil {
			return err
		}
	}
	return nil
}

// ensureBegun logs a BEGIN record the first time a transaction modifies
// data.
func (ps *PageStore) ensureBegun(tid *transaction.TransactionID) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if _, exists := ps.begun[tid]; exists {
		return nil
	}
	if ps.logFile != nil {
		if err := ps.logFile.LogBegin(tid); err != nil {
			return fmt.Errorf("failed to log begin: %w", err)
		}
	}
	ps.begun[tid] = struct{}{}
	return nil
}
