// Package arrowcol implements the column mutation kernel: a closed set
// of typed, buffer-backed arrays and the splice algorithms that append,
// insert, update, and delete elements by producing a fresh array rather
// than mutating the old one in place.
package arrowcol

import "fmt"

// DataType is the closed set of type tags the kernel understands.
// Union (and any tag outside this set that a caller constructs by hand)
// is a passthrough: the kernel can report it but never splices it.
type DataType int

const (
	Int32 DataType = iota
	Int64
	Float32
	Float64
	Boolean
	Date32
	Date64
	Utf8
	Union
)

func (t DataType) String() string {
	switch t {
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Boolean:
		return "Boolean"
	case Date32:
		return "Date32"
	case Date64:
		return "Date64"
	case Utf8:
		return "Utf8"
	case Union:
		return "Union"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// FixedWidth returns the element width in bytes for fixed-width type
// tags, and false for variable-width or passthrough tags.
func (t DataType) FixedWidth() (int, bool) {
	switch t {
	case Int32, Float32, Date32:
		return 4, true
	case Int64, Float64, Date64:
		return 8, true
	case Boolean:
		return 1, true
	default:
		return 0, false
	}
}

// Buffer is an immutable byte region. Nothing in this package mutates a
// Buffer's backing array after construction; every operation that needs
// different bytes allocates a new Buffer.
type Buffer struct {
	data []byte
}

// NewBuffer wraps data as a Buffer. The caller must not retain a
// mutable reference to data afterwards.
func NewBuffer(data []byte) Buffer {
	return Buffer{data: data}
}

// Bytes returns the buffer's contents.
func (b Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes in the buffer.
func (b Buffer) Len() int {
	return len(b.data)
}

// Field describes one column of a Schema.
type Field struct {
	Name     string
	Type     DataType
	Nullable bool
}

// Schema is an ordered sequence of fields.
type Schema struct {
	Fields []Field
}

// IndexOf returns the position of name within the schema, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a schema with a copy of the field slice, so appending a
// field to the clone never aliases the original.
func (s *Schema) Clone() *Schema {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	return &Schema{Fields: fields}
}
