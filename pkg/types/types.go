package types

// Type identifies the data type of a field.
type Type int

const (
	IntType Type = iota
	StringType
)

const (
	// IntSize is the serialized size of an integer field in bytes.
	IntSize = 4

	// StringMaxSize is the maximum number of bytes a string field may hold.
	// Strings are stored as a 4-byte length followed by StringMaxSize bytes
	// of data, so every string field occupies the same amount of space.
	StringMaxSize = 128

	// StringSize is the serialized size of a string field in bytes.
	StringSize = 4 + StringMaxSize
)

// String returns a string representation of the type.
func (t Type) String() string {
	switch t {
	case IntType:
		return "INT_TYPE"
	case StringType:
		return "STRING_TYPE"
	default:
		return "UNKNOWN_TYPE"
	}
}

// Size returns the number of bytes a serialized field of this type occupies.
func (t Type) Size() int {
	switch t {
	case IntType:
		return IntSize
	case StringType:
		return StringSize
	default:
		return 0
	}
}
