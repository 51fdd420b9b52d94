package types

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"tupledb/pkg/primitives"
)

// IntField represents a 32-bit signed integer field.
type IntField struct {
	Value int32
}

func NewIntField(value int32) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	buf := make([]byte, IntSize)
	binary.BigEndian.PutUint32(buf, uint32(f.Value)) // #nosec G115
	_, err := w.Write(buf)
	return err
}

func (f *IntField) Compare(op Predicate, other Field) (bool, error) {
	otherField, ok := other.(*IntField)
	if !ok {
		return false, fmt.Errorf("cannot compare int field with %v", other.Type())
	}
	return compareOrdered(f.Value, otherField.Value, op)
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) Equals(other Field) bool {
	otherField, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == otherField.Value
}

func (f *IntField) Hash() (primitives.HashCode, error) {
	buf := make([]byte, IntSize)
	binary.BigEndian.PutUint32(buf, uint32(f.Value)) // #nosec G115
	return primitives.HashCode(xxhash.Sum64(buf)), nil
}

func (f *IntField) String() string {
	return strconv.FormatInt(int64(f.Value), 10)
}

func compareOrdered[T int32 | string](a, b T, op Predicate) (bool, error) {
	switch op {
	case Equals:
		return a == b, nil
	case LessThan:
		return a < b, nil
	case GreaterThan:
		return a > b, nil
	case LessThanOrEqual:
		return a <= b, nil
	case GreaterThanOrEqual:
		return a >= b, nil
	case NotEqual:
		return a != b, nil
	default:
		return false, fmt.Errorf("unsupported predicate: %v", op)
	}
}
