package types

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"tupledb/pkg/primitives"
)

// StringField represents a variable-length string field stored in a
// fixed-size slot of StringSize bytes: a 4-byte length followed by
// StringMaxSize bytes of data.
type StringField struct {
	Value string
}

// NewStringField creates a string field, truncating the value to
// StringMaxSize bytes if necessary.
func NewStringField(value string) *StringField {
	if len(value) > StringMaxSize {
		value = value[:StringMaxSize]
	}
	return &StringField{Value: value}
}

func (f *StringField) Serialize(w io.Writer) error {
	buf := make([]byte, StringSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(f.Value))) // #nosec G115
	copy(buf[4:], f.Value)
	_, err := w.Write(buf)
	return err
}

func (f *StringField) Compare(op Predicate, other Field) (bool, error) {
	otherField, ok := other.(*StringField)
	if !ok {
		return false, fmt.Errorf("cannot compare string field with %v", other.Type())
	}
	return compareOrdered(f.Value, otherField.Value, op)
}

func (f *StringField) Type() Type {
	return StringType
}

func (f *StringField) Equals(other Field) bool {
	otherField, ok := other.(*StringField)
	if !ok {
		return false
	}
	return f.Value == otherField.Value
}

func (f *StringField) Hash() (primitives.HashCode, error) {
	return primitives.HashCode(xxhash.Sum64String(f.Value)), nil
}

func (f *StringField) String() string {
	return f.Value
}
