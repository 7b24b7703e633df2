package arrowcol

import (
	"encoding/binary"
	"math"

	"github.com/colbase/colbase/internal/dberrors"
)

// Array is the typed, buffer-backed column the mutation kernel operates
// on. Two concrete shapes implement it: FixedWidthArray for the
// fixed-width primitive types and StringArray for Utf8.
type Array interface {
	Len() int
	IsNull(i int) bool
	Value(i int) any
	DataType() DataType
	Buffers() []Buffer
}

// FixedWidthArray stores length*width bytes in a single data buffer
// plus an optional null bitmap.
type FixedWidthArray struct {
	dt     DataType
	width  int
	data   Buffer
	nulls  nullBitmap
	length int
}

func (a *FixedWidthArray) Len() int          { return a.length }
func (a *FixedWidthArray) DataType() DataType { return a.dt }
func (a *FixedWidthArray) Buffers() []Buffer  { return []Buffer{a.data} }

func (a *FixedWidthArray) IsNull(i int) bool {
	return a.nulls.isNull(i)
}

func (a *FixedWidthArray) Value(i int) any {
	if a.IsNull(i) {
		return nil
	}
	return decodeElement(a.dt, a.data.Bytes()[i*a.width:(i+1)*a.width])
}

func decodeElement(dt DataType, b []byte) any {
	switch dt {
	case Int32, Date32:
		return int32(binary.LittleEndian.Uint32(b))
	case Int64, Date64:
		return int64(binary.LittleEndian.Uint64(b))
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case Boolean:
		return b[0] != 0
	default:
		return nil
	}
}

func encodeElement(dt DataType, v any) ([]byte, error) {
	w, ok := dt.FixedWidth()
	if !ok {
		return nil, dberrors.NewErrDataType("", dt.String(), "fixed-width")
	}
	buf := make([]byte, w)
	switch dt {
	case Int32, Date32:
		val, err := toInt32(v)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(buf, uint32(val))
	case Int64, Date64:
		val, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint64(buf, uint64(val))
	case Float32:
		val, err := toFloat32(v)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(val))
	case Float64:
		val, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint64(buf, math.Float64bits(val))
	case Boolean:
		val, ok := v.(bool)
		if !ok {
			return nil, dberrors.NewErrDataType("", "Boolean", "?")
		}
		if val {
			buf[0] = 1
		}
	default:
		return nil, dberrors.NewErrDataType("", dt.String(), "fixed-width")
	}
	return buf, nil
}

func toInt32(v any) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int64:
		return int32(n), nil
	case int:
		return int32(n), nil
	}
	return 0, dberrors.NewErrDataType("", "Int32", "?")
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	}
	return 0, dberrors.NewErrDataType("", "Int64", "?")
}

func toFloat32(v any) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	}
	return 0, dberrors.NewErrDataType("", "Float32", "?")
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	return 0, dberrors.NewErrDataType("", "Float64", "?")
}

// NewFixedWidthArray builds a FixedWidthArray of dt from values (each
// element matching the Go type decodeElement/encodeElement expects) and
// a parallel validity slice (true = valid). valid may be nil, meaning
// every row is valid.
func NewFixedWidthArray(dt DataType, values []any, valid []bool) (*FixedWidthArray, error) {
	w, ok := dt.FixedWidth()
	if !ok {
		return nil, dberrors.NewErrDataType("", dt.String(), "fixed-width")
	}
	buf := make([]byte, len(values)*w)
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		eb, err := encodeElement(dt, v)
		if err != nil {
			return nil, err
		}
		copy(buf[i*w:(i+1)*w], eb)
	}
	var nulls nullBitmap
	if valid != nil {
		nulls = bitmapFromValid(valid)
	}
	return &FixedWidthArray{dt: dt, width: w, data: NewBuffer(buf), nulls: nulls, length: len(values)}, nil
}

// StringArray stores Utf8 data as a values buffer plus int32 offsets
// (length+1 entries) and an optional null bitmap.
type StringArray struct {
	values  Buffer
	offsets []int32
	nulls   nullBitmap
	length  int
}

func (a *StringArray) Len() int          { return a.length }
func (a *StringArray) DataType() DataType { return Utf8 }

func (a *StringArray) Buffers() []Buffer {
	offBytes := make([]byte, len(a.offsets)*4)
	for i, o := range a.offsets {
		binary.LittleEndian.PutUint32(offBytes[i*4:i*4+4], uint32(o))
	}
	return []Buffer{a.values, NewBuffer(offBytes)}
}

func (a *StringArray) IsNull(i int) bool {
	return a.nulls.isNull(i)
}

func (a *StringArray) Value(i int) any {
	if a.IsNull(i) {
		return nil
	}
	return string(a.values.Bytes()[a.offsets[i]:a.offsets[i+1]])
}

// NewStringArray builds a StringArray from string values and an
// optional validity slice. A null row's string content is ignored.
func NewStringArray(values []string, valid []bool) *StringArray {
	offsets := make([]int32, len(values)+1)
	var data []byte
	for i, s := range values {
		if valid == nil || valid[i] {
			data = append(data, s...)
		}
		offsets[i+1] = int32(len(data))
	}
	var nulls nullBitmap
	if valid != nil {
		nulls = bitmapFromValid(valid)
	}
	return &StringArray{values: NewBuffer(data), offsets: offsets, nulls: nulls, length: len(values)}
}

// stringValues decodes every element of a, using ok=false for nulls.
func stringValues(a *StringArray) ([]string, []bool) {
	n := a.Len()
	vals := make([]string, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if a.IsNull(i) {
			valid[i] = false
			continue
		}
		vals[i] = a.Value(i).(string)
		valid[i] = true
	}
	return vals, valid
}
