package memory

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/heap"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// newStoreFixture creates a heap file pre-populated with numPages pages of
// one tuple each, registered in a catalog behind a PageStore of the given
// capacity.
func newStoreFixture(t *testing.T, numPages, poolPages int) (*heap.HeapFile, *PageStore) {
	t.Helper()

	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.IntType},
		[]string{"a", "b"},
	)
	if err != nil {
		t.Fatalf("failed to create tuple desc: %v", err)
	}

	path := primitives.Filepath(filepath.Join(t.TempDir(), "store_test.dat"))
	hf, err := heap.NewHeapFile(path, td)
	if err != nil {
		t.Fatalf("failed to create heap file: %v", err)
	}
	t.Cleanup(func() { hf.Close() })

	for i := 0; i < numPages; i++ {
		pid := primitives.NewPageID(hf.GetID(), primitives.PageNumber(i))
		hp, err := heap.NewEmptyHeapPage(pid, td)
		if err != nil {
			t.Fatalf("failed to create page: %v", err)
		}
		tup := tuple.NewTuple(td)
		tup.SetField(0, types.NewIntField(int32(i)))
		tup.SetField(1, types.NewIntField(int32(i*10)))
		if err := hp.InsertTuple(tup); err != nil {
			t.Fatalf("failed to seed page %d: %v", i, err)
		}
		if err := hf.WritePage(hp); err != nil {
			t.Fatalf("failed to write page %d: %v", i, err)
		}
	}

	tables := NewTableManager()
	if err := tables.AddTable(hf, "store_test", ""); err != nil {
		t.Fatalf("failed to register table: %v", err)
	}

	return hf, NewPageStore(tables, poolPages, nil)
}

func storePID(hf *heap.HeapFile, n int) primitives.PageID {
	return primitives.NewPageID(hf.GetID(), primitives.PageNumber(n))
}

func TestGetPage_CachesAndReturnsSamePage(t *testing.T) {
	hf, ps := newStoreFixture(t, 1, 5)
	tid := transaction.NewTransactionID()

	p1, err := ps.GetPage(tid, storePID(hf, 0), page.ReadOnly)
	if err != nil {
		t.Fatalf("get page failed: %v", err)
	}
	p2, err := ps.GetPage(tid, storePID(hf, 0), page.ReadOnly)
	if err != nil {
		t.Fatalf("get page failed: %v", err)
	}
	if p1 != p2 {
		t.Error("repeated GetPage should return the cached page")
	}
	if ps.CachedPages() != 1 {
		t.Errorf("expected 1 cached page, got %d", ps.CachedPages())
	}
}

func TestGetPage_LRUEviction(t *testing.T) {
	hf, ps := newStoreFixture(t, 3, 2)
	tid := transaction.NewTransactionID()

	// Access p0, p1, p2 in order with capacity 2: p0 is evicted.
	for i := 0; i < 3; i++ {
		if _, err := ps.GetPage(tid, storePID(hf, i), page.ReadOnly); err != nil {
			t.Fatalf("get page %d failed: %v", i, err)
		}
	}

	cached := ps.CachedPageIDs()
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached pages, got %d", len(cached))
	}
	if cached[0] != storePID(hf, 1) || cached[1] != storePID(hf, 2) {
		t.Errorf("expected pages 1 and 2 resident, got %v", cached)
	}

	// Re-accessing p0 evicts p1, the least recently used.
	if _, err := ps.GetPage(tid, storePID(hf, 0), page.ReadOnly); err != nil {
		t.Fatalf("get page 0 failed: %v", err)
	}
	cached = ps.CachedPageIDs()
	if cached[0] != storePID(hf, 2) || cached[1] != storePID(hf, 0) {
		t.Errorf("expected pages 2 and 0 resident after revisiting 0, got %v", cached)
	}
}

func TestGetPage_LockTimeoutAborts(t *testing.T) {
	hf, ps := newStoreFixture(t, 1, 5)
	ps.SetLockTimeout(30 * time.Millisecond)

	t1 := transaction.NewTransactionID()
	t2 := transaction.NewTransactionID()

	if _, err := ps.GetPage(t1, storePID(hf, 0), page.ReadWrite); err != nil {
		t.Fatalf("t1 should acquire exclusive lock: %v", err)
	}

	start := time.Now()
	_, err := ps.GetPage(t2, storePID(hf, 0), page.ReadOnly)
	elapsed := time.Since(start)

	var aborted *transaction.AbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("expected AbortedError, got %v", err)
	}
	if aborted.TID != t2 {
		t.Error("the waiting transaction should be the one aborted")
	}
	if elapsed < 30*time.Millisecond {
		t.Errorf("abort fired before the timeout: %v", elapsed)
	}

	// T1 is unaffected and can still commit.
	if err := ps.TransactionComplete(t1, true); err != nil {
		t.Errorf("t1 commit failed: %v", err)
	}

	// After the abort completes, the page is lockable again.
	if err := ps.TransactionComplete(t2, false); err != nil {
		t.Fatalf("t2 abort failed: %v", err)
	}
	t3 := transaction.NewTransactionID()
	if _, err := ps.GetPage(t3, storePID(hf, 0), page.ReadWrite); err != nil {
		t.Errorf("page should be free after locks released: %v", err)
	}
}

func TestTransactionComplete_AbortRestoresPages(t *testing.T) {
	hf, ps := newStoreFixture(t, 1, 5)
	td := hf.GetTupleDesc()

	diskBefore, err := hf.ReadPage(storePID(hf, 0))
	if err != nil {
		t.Fatalf("read page failed: %v", err)
	}
	imageBefore := diskBefore.GetPageData()

	tid := transaction.NewTransactionID()
	tup := tuple.NewTuple(td)
	tup.SetField(0, types.NewIntField(777))
	tup.SetField(1, types.NewIntField(888))
	if err := ps.InsertTuple(tid, hf.GetID(), tup); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := ps.TransactionComplete(tid, false); err != nil {
		t.Fatalf("abort failed: %v", err)
	}

	// In-memory image equals the on-disk image again.
	t2 := transaction.NewTransactionID()
	restored, err := ps.GetPage(t2, storePID(hf, 0), page.ReadOnly)
	if err != nil {
		t.Fatalf("get page failed: %v", err)
	}
	if !bytes.Equal(restored.GetPageData(), imageBefore) {
		t.Error("aborted page should match the pre-update image")
	}
	if restored.IsDirty() != nil {
		t.Error("restored page should be clean")
	}

	// Disk image is unchanged.
	diskAfter, err := hf.ReadPage(storePID(hf, 0))
	if err != nil {
		t.Fatalf("read page failed: %v", err)
	}
	if !bytes.Equal(diskAfter.GetPageData(), imageBefore) {
		t.Error("disk image must not change on abort")
	}
}

func TestTransactionComplete_CommitFlushes(t *testing.T) {
	hf, ps := newStoreFixture(t, 1, 5)
	td := hf.GetTupleDesc()

	tid := transaction.NewTransactionID()
	tup := tuple.NewTuple(td)
	tup.SetField(0, types.NewIntField(42))
	tup.SetField(1, types.NewIntField(43))
	if err := ps.InsertTuple(tid, hf.GetID(), tup); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := ps.TransactionComplete(tid, true); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	// No cached page may still name tid as dirtier.
	for _, pid := range ps.CachedPageIDs() {
		p, _ := ps.GetPage(transaction.NewTransactionID(), pid, page.ReadOnly)
		if p.IsDirty() == tid {
			t.Errorf("page %v still dirty for committed transaction", pid)
		}
	}

	// The committed tuple is on disk.
	disk, err := hf.ReadPage(storePID(hf, 0))
	if err != nil {
		t.Fatalf("read page failed: %v", err)
	}
	hp := disk.(*heap.HeapPage)
	if len(hp.GetTuples()) != 2 {
		t.Errorf("expected 2 tuples on disk after commit, got %d", len(hp.GetTuples()))
	}
}

func TestEvictPage_RefusesWhenAllDirty(t *testing.T) {
	hf, ps := newStoreFixture(t, 2, 1)
	ps.SetLockTimeout(30 * time.Millisecond)
	td := hf.GetTupleDesc()

	// Dirty the single cache slot.
	tid := transaction.NewTransactionID()
	tup := tuple.NewTuple(td)
	tup.SetField(0, types.NewIntField(5))
	tup.SetField(1, types.NewIntField(6))
	if err := ps.InsertTuple(tid, hf.GetID(), tup); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// Fetching another page needs an eviction, but the only resident page
	// is dirty and NO-STEAL forbids evicting it.
	_, err := ps.GetPage(tid, storePID(hf, 1), page.ReadOnly)
	var dbErr *page.DbError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DbError, got %v", err)
	}
	if dbErr.Code != page.CodeBufferFull {
		t.Errorf("expected %s, got %s", page.CodeBufferFull, dbErr.Code)
	}

	// After commit the page is clean and eviction succeeds.
	if err := ps.TransactionComplete(tid, true); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := ps.GetPage(transaction.NewTransactionID(), storePID(hf, 1), page.ReadOnly); err != nil {
		t.Errorf("eviction should succeed once pages are clean: %v", err)
	}
}

func TestHoldsLock(t *testing.T) {
	hf, ps := newStoreFixture(t, 1, 5)
	tid := transaction.NewTransactionID()

	if ps.HoldsLock(tid, storePID(hf, 0)) {
		t.Error("no lock should be held before GetPage")
	}
	if _, err := ps.GetPage(tid, storePID(hf, 0), page.ReadOnly); err != nil {
		t.Fatalf("get page failed: %v", err)
	}
	if !ps.HoldsLock(tid, storePID(hf, 0)) {
		t.Error("lock should be held after GetPage")
	}

	ps.ReleasePage(tid, storePID(hf, 0))
	if ps.HoldsLock(tid, storePID(hf, 0)) {
		t.Error("lock should be gone after ReleasePage")
	}
}

func TestDiscardPage(t *testing.T) {
	hf, ps := newStoreFixture(t, 1, 5)
	tid := transaction.NewTransactionID()

	ps.GetPage(tid, storePID(hf, 0), page.ReadOnly)
	ps.DiscardPage(storePID(hf, 0))

	if ps.CachedPages() != 0 {
		t.Errorf("expected empty cache after discard, got %d", ps.CachedPages())
	}
}

func TestGetPage_UpgradeThenConflict(t *testing.T) {
	hf, ps := newStoreFixture(t, 1, 5)
	ps.SetLockTimeout(30 * time.Millisecond)

	t1 := transaction.NewTransactionID()
	t2 := transaction.NewTransactionID()

	// T1 acquires shared, then upgrades to exclusive.
	if _, err := ps.GetPage(t1, storePID(hf, 0), page.ReadOnly); err != nil {
		t.Fatalf("shared acquisition failed: %v", err)
	}
	if _, err := ps.GetPage(t1, storePID(hf, 0), page.ReadWrite); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}

	// T2 is shut out until T1 completes.
	if _, err := ps.GetPage(t2, storePID(hf, 0), page.ReadOnly); err == nil {
		t.Fatal("t2 should not acquire shared lock during t1's exclusive hold")
	}
	ps.TransactionComplete(t2, false)

	if err := ps.TransactionComplete(t1, true); err != nil {
		t.Fatalf("t1 commit failed: %v", err)
	}
	t3 := transaction.NewTransactionID()
	if _, err := ps.GetPage(t3, storePID(hf, 0), page.ReadOnly); err != nil {
		t.Errorf("page should be lockable after t1 committed: %v", err)
	}
}
