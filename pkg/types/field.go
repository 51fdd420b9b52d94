package types

import (
	"io"

	"tupledb/pkg/primitives"
)

// Field is a single typed value inside a tuple. Implementations are the
// tagged variants of the type system: IntField and StringField.
type Field interface {
	// Serialize writes the field to w in its fixed-size on-disk form.
	Serialize(w io.Writer) error

	// Compare evaluates `this op other` and reports the result.
	Compare(op Predicate, other Field) (bool, error)

	// Type returns the data type tag of this field.
	Type() Type

	// Equals reports whether other holds the same type and value.
	Equals(other Field) bool

	// Hash returns a hash code for grouping and lookups.
	Hash() (primitives.HashCode, error)

	String() string
}
