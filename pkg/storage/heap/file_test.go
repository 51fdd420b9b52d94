package heap

import (
	"path/filepath"
	"testing"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/memory"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

// newTestTable creates a heap file registered in a fresh catalog with a
// buffer pool in front of it.
func newTestTable(t *testing.T, poolPages int) (*HeapFile, *memory.PageStore) {
	t.Helper()

	td := intPairDesc(t)
	path := primitives.Filepath(filepath.Join(t.TempDir(), "test_table.dat"))
	hf, err := NewHeapFile(path, td)
	if err != nil {
		t.Fatalf("failed to create heap file: %v", err)
	}
	t.Cleanup(func() { hf.Close() })

	tables := memory.NewTableManager()
	if err := tables.AddTable(hf, "test_table", ""); err != nil {
		t.Fatalf("failed to register table: %v", err)
	}

	return hf, memory.NewPageStore(tables, poolPages, nil)
}

func scanAll(t *testing.T, hf *HeapFile, ps *memory.PageStore, tid *transaction.TransactionID) []*tuple.Tuple {
	t.Helper()

	iter := hf.Iterator(tid, ps)
	if err := iter.Open(); err != nil {
		t.Fatalf("failed to open iterator: %v", err)
	}
	defer iter.Close()

	var result []*tuple.Tuple
	for {
		hasNext, err := iter.HasNext()
		if err != nil {
			t.Fatalf("iterator error: %v", err)
		}
		if !hasNext {
			break
		}
		tup, err := iter.Next()
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		result = append(result, tup)
	}
	return result
}

func TestHeapFile_EmptyFile(t *testing.T) {
	hf, _ := newTestTable(t, 10)

	numPages, err := hf.NumPages()
	if err != nil {
		t.Fatalf("num pages failed: %v", err)
	}
	if numPages != 0 {
		t.Errorf("expected 0 pages, got %d", numPages)
	}

	if _, err := hf.ReadPage(primitives.NewPageID(hf.GetID(), 0)); err == nil {
		t.Error("reading a page past EOF should fail")
	}
}

func TestHeapFile_AddTupleCreatesPage(t *testing.T) {
	hf, ps := newTestTable(t, 10)
	tid := transaction.NewTransactionID()

	if err := ps.InsertTuple(tid, hf.GetID(), intPair(t, hf.GetTupleDesc(), 1, 100)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	numPages, _ := hf.NumPages()
	if numPages != 1 {
		t.Errorf("expected 1 page after first insert, got %d", numPages)
	}

	if err := ps.TransactionComplete(tid, true); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	tuples := scanAll(t, hf, ps, transaction.NewTransactionID())
	if len(tuples) != 1 {
		t.Fatalf("expected 1 tuple, got %d", len(tuples))
	}
}

func TestHeapFile_GrowsAcrossPages(t *testing.T) {
	page.SetPageSize(256)
	defer page.ResetPageSize()

	hf, ps := newTestTable(t, 10)
	td := hf.GetTupleDesc()
	tid := transaction.NewTransactionID()

	perPage := (page.PageSize * 8) / (td.GetSize()*8 + 1)
	total := perPage + 3

	for i := 0; i < total; i++ {
		if err := ps.InsertTuple(tid, hf.GetID(), intPair(t, td, int32(i), int32(i*10))); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}
	if err := ps.TransactionComplete(tid, true); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	numPages, _ := hf.NumPages()
	if numPages != 2 {
		t.Errorf("expected 2 pages for %d tuples (%d per page), got %d", total, perPage, numPages)
	}

	// Round-trip law: scanning yields exactly what was inserted.
	tuples := scanAll(t, hf, ps, transaction.NewTransactionID())
	if len(tuples) != total {
		t.Errorf("expected %d tuples, got %d", total, len(tuples))
	}

	seen := make(map[int32]bool)
	for _, tup := range tuples {
		seen[fieldInt(t, tup, 0)] = true
	}
	for i := 0; i < total; i++ {
		if !seen[int32(i)] {
			t.Errorf("tuple with key %d missing from scan", i)
		}
	}
}

func TestHeapFile_InsertThenDeleteLeavesTableUnchanged(t *testing.T) {
	hf, ps := newTestTable(t, 10)
	td := hf.GetTupleDesc()

	tid := transaction.NewTransactionID()
	ps.InsertTuple(tid, hf.GetID(), intPair(t, td, 1, 1))
	ps.TransactionComplete(tid, true)

	scanTID := transaction.NewTransactionID()
	before := len(scanAll(t, hf, ps, scanTID))
	ps.TransactionComplete(scanTID, true)

	tid2 := transaction.NewTransactionID()
	extra := intPair(t, td, 99, 99)
	if err := ps.InsertTuple(tid2, hf.GetID(), extra); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := ps.DeleteTuple(tid2, extra); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	ps.TransactionComplete(tid2, true)

	after := len(scanAll(t, hf, ps, transaction.NewTransactionID()))
	if after != before {
		t.Errorf("insert-then-delete should leave %d tuples, got %d", before, after)
	}
}

func TestHeapFile_IteratorSnapshotAtOpen(t *testing.T) {
	hf, ps := newTestTable(t, 10)
	td := hf.GetTupleDesc()

	tid := transaction.NewTransactionID()
	ps.InsertTuple(tid, hf.GetID(), intPair(t, td, 1, 1))
	ps.TransactionComplete(tid, true)

	iter := hf.Iterator(transaction.NewTransactionID(), ps)
	if err := iter.Open(); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer iter.Close()

	// Append a page after the cursor was opened; it must stay invisible.
	newPID := primitives.NewPageID(hf.GetID(), 1)
	hp, _ := NewEmptyHeapPage(newPID, td)
	hp.InsertTuple(intPair(t, td, 2, 2))
	if err := hf.WritePage(hp); err != nil {
		t.Fatalf("write page failed: %v", err)
	}

	count := 0
	for {
		hasNext, err := iter.HasNext()
		if err != nil {
			t.Fatalf("iterator error: %v", err)
		}
		if !hasNext {
			break
		}
		if _, err := iter.Next(); err != nil {
			t.Fatalf("next failed: %v", err)
		}
		count++
	}
	if count != 1 {
		t.Errorf("iterator should only see the snapshot page, got %d tuples", count)
	}
}

func TestHeapFile_IteratorRewind(t *testing.T) {
	hf, ps := newTestTable(t, 10)
	td := hf.GetTupleDesc()

	tid := transaction.NewTransactionID()
	for i := 0; i < 3; i++ {
		ps.InsertTuple(tid, hf.GetID(), intPair(t, td, int32(i), 0))
	}
	ps.TransactionComplete(tid, true)

	iter := hf.Iterator(transaction.NewTransactionID(), ps)
	if err := iter.Open(); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer iter.Close()

	iter.Next()
	if err := iter.Rewind(); err != nil {
		t.Fatalf("rewind failed: %v", err)
	}

	count := 0
	for {
		hasNext, _ := iter.HasNext()
		if !hasNext {
			break
		}
		iter.Next()
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 tuples after rewind, got %d", count)
	}
}

// fieldInt extracts an int field value for assertions.
func fieldInt(t *testing.T, tup *tuple.Tuple, i int) int32 {
	t.Helper()
	f, err := tup.GetField(i)
	if err != nil {
		t.Fatalf("get field failed: %v", err)
	}
	intField, ok := f.(*types.IntField)
	if !ok {
		t.Fatalf("field %d is not an int", i)
	}
	return intField.Value
}
