package tuple

import (
	"fmt"
	"io"
	"strings"

	"tupledb/pkg/types"
)

// Tuple represents a row of data: an ordered sequence of typed fields
// together with the schema they conform to. RecordID identifies where the
// tuple is stored and is nil for tuples that are not on any page.
type Tuple struct {
	TupleDesc *TupleDescription
	fields    []types.Field
	RecordID  *RecordID
}

// NewTuple creates a new tuple with the given schema and unset fields.
func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField assigns the ith field. The field's type must match the schema.
func (t *Tuple) SetField(i int, field types.Field) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}

	expectedType, _ := t.TupleDesc.TypeAtIndex(i)
	if field.Type() != expectedType {
		return fmt.Errorf("field type mismatch: expected %v, got %v", expectedType, field.Type())
	}

	t.fields[i] = field
	return nil
}

// GetField returns the value of the ith field.
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Serialize writes all fields of the tuple to w in schema order.
func (t *Tuple) Serialize(w io.Writer) error {
	for i, field := range t.fields {
		if field == nil {
			return fmt.Errorf("cannot serialize tuple with unset field %d", i)
		}
		if err := field.Serialize(w); err != nil {
			return fmt.Errorf("failed to serialize field %d: %w", i, err)
		}
	}
	return nil
}

// ReadTuple deserializes a single tuple with the given schema from r.
func ReadTuple(r io.Reader, td *TupleDescription) (*Tuple, error) {
	t := NewTuple(td)
	for i := 0; i < td.NumFields(); i++ {
		fieldType, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}

		field, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, err
		}

		if err := t.SetField(i, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Equals reports whether two tuples have the same schema and field values.
// Record IDs are not considered.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || !t.TupleDesc.Equals(other.TupleDesc) {
		return false
	}
	for i, field := range t.fields {
		if field == nil || other.fields[i] == nil {
			if field != other.fields[i] {
				return false
			}
			continue
		}
		if !field.Equals(other.fields[i]) {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, field := range t.fields {
		if field != nil {
			parts[i] = field.String()
		} else {
			parts[i] = "null"
		}
	}
	return strings.Join(parts, "\t")
}
