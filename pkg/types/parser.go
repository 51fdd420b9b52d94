package types

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseField reads a single field of the given type from r.
// The reader must be positioned at the start of the field's fixed-size slot.
func ParseField(r io.Reader, fieldType Type) (Field, error) {
	switch fieldType {
	case IntType:
		buf := make([]byte, IntSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read int field: %w", err)
		}
		return NewIntField(int32(binary.BigEndian.Uint32(buf))), nil // #nosec G115

	case StringType:
		buf := make([]byte, StringSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read string field: %w", err)
		}
		length := binary.BigEndian.Uint32(buf[0:4])
		if length > StringMaxSize {
			return nil, fmt.Errorf("invalid string length %d exceeds maximum %d", length, StringMaxSize)
		}
		return NewStringField(string(buf[4 : 4+length])), nil

	default:
		return nil, fmt.Errorf("unknown field type: %v", fieldType)
	}
}
