package heap

import (
	"bytes"
	"fmt"
	"sync"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// HeapPage is a tuple-slotted page with a bitmap header. The first
// ceil(slots/8) bytes of the page are a bitmap marking used slots; the rest
// of the page is an array of fixed-size tuple slots. The slot count is the
// largest n with n*(tupleSize*8 + 1) <= PageSize*8, so the bitmap and the
// slots always fit together.
type HeapPage struct {
	pageID    primitives.PageID
	tupleDesc *tuple.TupleDescription
	header    []byte
	tuples    []*tuple.Tuple
	numSlots  int
	dirtier   *transaction.TransactionID
	oldData   []byte
	mutex     sync.RWMutex
}

// NewEmptyHeapPage creates a fresh all-empty page for the given schema.
func NewEmptyHeapPage(pid primitives.PageID, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, page.PageSize), td)
}

// NewHeapPage deserializes a page image into a HeapPage.
func NewHeapPage(pid primitives.PageID, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != page.PageSize {
		return nil, fmt.Errorf("invalid page data size: expected %d, got %d", page.PageSize, len(data))
	}

	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		oldData:   make([]byte, page.PageSize),
	}

	hp.numSlots = slotsPerPage(td)
	hp.header = make([]byte, headerSize(hp.numSlots))
	hp.tuples = make([]*tuple.Tuple, hp.numSlots)

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	copy(hp.oldData, data)
	return hp, nil
}

// slotsPerPage computes how many tuple slots fit on a page: each slot costs
// its tuple size in bits plus one header bit.
func slotsPerPage(td *tuple.TupleDescription) int {
	tupleSize := td.GetSize()
	return (page.PageSize * 8) / (tupleSize*8 + 1)
}

// headerSize is the number of header bytes needed for the given slot count.
func headerSize(numSlots int) int {
	return (numSlots + 7) / 8
}

// GetID returns the page identifier.
func (hp *HeapPage) GetID() primitives.PageID {
	return hp.pageID
}

// IsDirty returns the transaction that dirtied the page, or nil.
func (hp *HeapPage) IsDirty() *transaction.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

// MarkDirty records the dirtying transaction, or clears it.
func (hp *HeapPage) MarkDirty(dirty bool, tid *transaction.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// NumSlots returns the total number of tuple slots on this page.
func (hp *HeapPage) NumSlots() int {
	return hp.numSlots
}

// GetNumEmptySlots returns the count of unoccupied tuple slots.
func (hp *HeapPage) GetNumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	empty := 0
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// GetPageData serializes the page into a PageSize-byte image:
// the slot bitmap followed by the fixed-size slots.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	data := make([]byte, page.PageSize)
	copy(data, hp.header)

	tupleSize := hp.tupleDesc.GetSize()
	base := len(hp.header)
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) || hp.tuples[i] == nil {
			continue
		}
		offset := base + i*tupleSize
		buf := bytes.NewBuffer(data[offset:offset])
		if err := hp.tuples[i].Serialize(buf); err != nil {
			continue
		}
	}

	return data
}

// GetBeforeImage returns a page holding the last captured before-image.
func (hp *HeapPage) GetBeforeImage() page.Page {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	before, _ := NewHeapPage(hp.pageID, hp.oldData, hp.tupleDesc)
	return before
}

// SetBeforeImage captures the current content as the new rollback baseline.
func (hp *HeapPage) SetBeforeImage() {
	data := hp.GetPageData()
	hp.mutex.Lock()
	hp.oldData = data
	hp.mutex.Unlock()
}

// InsertTuple places the tuple in the first empty slot and assigns its
// RecordID.
func (hp *HeapPage) InsertTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.tupleDesc) {
		return page.NewDbError(page.CodeSchemaMismatch, "tuple schema does not match page schema")
	}

	for i := 0; i < hp.numSlots; i++ {
		if hp.isSlotUsed(i) {
			continue
		}
		hp.setSlotUsed(i, true)
		hp.tuples[i] = t
		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		return nil
	}

	return page.NewDbError(page.CodePageFull, "no empty slot on page %s", hp.pageID)
}

// DeleteTuple clears the slot referenced by the tuple's RecordID.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	rid := t.RecordID
	if rid == nil {
		return page.NewDbError(page.CodeInvalidSlot, "tuple has no record ID")
	}
	if rid.PageID != hp.pageID {
		return page.NewDbError(page.CodeInvalidSlot, "tuple is not on page %s", hp.pageID)
	}
	if rid.SlotNo < 0 || rid.SlotNo >= hp.numSlots || !hp.isSlotUsed(rid.SlotNo) {
		return page.NewDbError(page.CodeInvalidSlot, "slot %d is not in use", rid.SlotNo)
	}

	hp.setSlotUsed(rid.SlotNo, false)
	hp.tuples[rid.SlotNo] = nil
	t.RecordID = nil
	return nil
}

// GetTuples returns all tuples currently stored on this page.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	result := make([]*tuple.Tuple, 0, hp.numSlots)
	for i := 0; i < hp.numSlots; i++ {
		if hp.isSlotUsed(i) && hp.tuples[i] != nil {
			result = append(result, hp.tuples[i])
		}
	}
	return result
}

// GetTupleDesc returns the schema of tuples on this page.
func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	return hp.tupleDesc
}

// parsePageData reconstructs the bitmap and tuples from a page image.
func (hp *HeapPage) parsePageData(data []byte) error {
	copy(hp.header, data[:len(hp.header)])

	tupleSize := hp.tupleDesc.GetSize()
	base := len(hp.header)
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			continue
		}

		offset := base + i*tupleSize
		if offset+tupleSize > len(data) {
			return fmt.Errorf("invalid page data: slot %d extends past page end", i)
		}

		t, err := tuple.ReadTuple(bytes.NewReader(data[offset:offset+tupleSize]), hp.tupleDesc)
		if err != nil {
			return fmt.Errorf("failed to read tuple at slot %d: %w", i, err)
		}

		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		hp.tuples[i] = t
	}
	return nil
}

// isSlotUsed checks the header bit for the given slot.
// Must be called with the lock held.
func (hp *HeapPage) isSlotUsed(i int) bool {
	if i < 0 || i >= hp.numSlots {
		return false
	}
	return hp.header[i/8]&(1<<(i%8)) != 0
}

// setSlotUsed sets or clears the header bit for the given slot.
// Must be called with the lock held.
func (hp *HeapPage) setSlotUsed(i int, used bool) {
	if used {
		hp.header[i/8] |= 1 << (i % 8)
	} else {
		hp.header[i/8] &^= 1 << (i % 8)
	}
}
