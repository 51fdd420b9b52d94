package tuple

import (
	"fmt"

	"tupledb/pkg/primitives"
)

// RecordID is a reference to a specific tuple slot on a specific page.
// A tuple gains a RecordID once it is stored, and loses it when deleted.
type RecordID struct {
	PageID primitives.PageID
	SlotNo int
}

// NewRecordID creates a record ID for the given page and slot.
func NewRecordID(pid primitives.PageID, slotNo int) *RecordID {
	return &RecordID{PageID: pid, SlotNo: slotNo}
}

func (rid *RecordID) Equals(other *RecordID) bool {
	if other == nil {
		return false
	}
	return rid.PageID == other.PageID && rid.SlotNo == other.SlotNo
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(page=%s, slot=%d)", rid.PageID, rid.SlotNo)
}
