package primitives

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// PageID uniquely identifies a page as a (table, page number) pair.
// It is a value type with structural equality, so it can be used directly
// as a map key in the buffer pool and the lock manager.
type PageID struct {
	Table  TableID
	Number PageNumber
}

// NewPageID creates a page ID for the given table and page number.
func NewPageID(table TableID, number PageNumber) PageID {
	return PageID{Table: table, Number: number}
}

// GetTableID returns the table this page belongs to.
func (pid PageID) GetTableID() TableID {
	return pid.Table
}

// PageNo returns the page number within the table.
func (pid PageID) PageNo() PageNumber {
	return pid.Number
}

// Serialize returns the page ID as a fixed 16-byte representation.
func (pid PageID) Serialize() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(pid.Table))
	binary.BigEndian.PutUint64(buf[8:16], uint64(pid.Number)) // #nosec G115
	return buf
}

// Equals checks structural equality with another page ID.
func (pid PageID) Equals(other PageID) bool {
	return pid == other
}

// HashCode returns a hash code for this page ID.
func (pid PageID) HashCode() HashCode {
	return HashCode(xxhash.Sum64(pid.Serialize()))
}

func (pid PageID) String() string {
	return fmt.Sprintf("PageID(table=%d, page=%d)", pid.Table, pid.Number)
}
