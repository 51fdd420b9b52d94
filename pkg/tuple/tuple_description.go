package tuple

import (
	"fmt"
	"strings"

	"tupledb/pkg/types"
)

// TupleDescription describes the schema of a tuple: the type of each field
// in order, plus optional field names.
type TupleDescription struct {
	Types      []types.Type
	FieldNames []string
}

// NewTupleDesc creates a new TupleDescription given field types and optional
// field names. If fieldNames is nil, fields have no names.
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, fmt.Errorf("must provide at least one field type")
	}

	typesCopy := make([]types.Type, len(fieldTypes))
	copy(typesCopy, fieldTypes)

	var namesCopy []string
	if fieldNames != nil {
		if len(fieldNames) != len(fieldTypes) {
			return nil, fmt.Errorf("field names length (%d) must match field types length (%d)",
				len(fieldNames), len(fieldTypes))
		}
		namesCopy = make([]string, len(fieldNames))
		copy(namesCopy, fieldNames)
	}

	return &TupleDescription{
		Types:      typesCopy,
		FieldNames: namesCopy,
	}, nil
}

// NumFields returns the number of fields in this schema.
func (td *TupleDescription) NumFields() int {
	return len(td.Types)
}

// TypeAtIndex returns the type of the ith field.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.Types) {
		return 0, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	return td.Types[i], nil
}

// GetFieldName returns the name of the ith field, or the empty string if no
// names were provided.
func (td *TupleDescription) GetFieldName(i int) (string, error) {
	if i < 0 || i >= len(td.Types) {
		return "", fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	if td.FieldNames == nil {
		return "", nil
	}
	return td.FieldNames[i], nil
}

// GetSize returns the serialized size in bytes of a tuple with this schema.
func (td *TupleDescription) GetSize() int {
	size := 0
	for _, t := range td.Types {
		size += t.Size()
	}
	return size
}

// Equals reports whether two schemas have identical field types.
// Field names are not considered.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil || len(td.Types) != len(other.Types) {
		return false
	}
	for i, t := range td.Types {
		if t != other.Types[i] {
			return false
		}
	}
	return true
}

// Combine concatenates two schemas into a new one, used when merging tuples.
func Combine(td1, td2 *TupleDescription) *TupleDescription {
	combined := &TupleDescription{
		Types: append(append([]types.Type{}, td1.Types...), td2.Types...),
	}
	if td1.FieldNames != nil || td2.FieldNames != nil {
		names := make([]string, 0, len(combined.Types))
		for i := range td1.Types {
			name, _ := td1.GetFieldName(i)
			names = append(names, name)
		}
		for i := range td2.Types {
			name, _ := td2.GetFieldName(i)
			names = append(names, name)
		}
		combined.FieldNames = names
	}
	return combined
}

func (td *TupleDescription) String() string {
	parts := make([]string, len(td.Types))
	for i, t := range td.Types {
		name, _ := td.GetFieldName(i)
		if name == "" {
			parts[i] = t.String()
		} else {
			parts[i] = fmt.Sprintf("%s(%s)", name, t)
		}
	}
	return strings.Join(parts, ", ")
}
