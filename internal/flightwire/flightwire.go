// Package flightwire converts between this repository's closed
// arrowcol/batch representation and the github.com/apache/arrow-go/v18
// arrow.RecordBatch type that crosses the Arrow Flight RPC boundary.
// Shared by internal/flightsrv and internal/flightclient so both sides
// of the wire use the same field-by-field mapping.
package flightwire

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
)

// ArrowType maps a closed DataType to its Arrow equivalent.
func ArrowType(dt arrowcol.DataType) (arrow.DataType, error) {
	switch dt {
	case arrowcol.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case arrowcol.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case arrowcol.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case arrowcol.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case arrowcol.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case arrowcol.Date32:
		return arrow.FixedWidthTypes.Date32, nil
	case arrowcol.Date64:
		return arrow.FixedWidthTypes.Date64, nil
	case arrowcol.Utf8:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, dberrors.NewErrDataType("", dt.String(), "arrow-representable")
	}
}

// ArrowSchema converts a closed Schema into its Arrow equivalent.
func ArrowSchema(schema *arrowcol.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(schema.Fields))
	for i, f := range schema.Fields {
		at, err := ArrowType(f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: f.Name, Type: at, Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord builds an arrow.RecordBatch from b, encoding each closed
// array into its Arrow-builder equivalent.
func ToRecord(alloc memory.Allocator, b *batch.Batch) (arrow.RecordBatch, error) {
	schema, err := ArrowSchema(b.Schema)
	if err != nil {
		return nil, err
	}

	cols := make([]arrow.Array, len(b.Columns))
	for i, col := range b.Columns {
		arr, err := toArrowArray(alloc, b.Schema.Fields[i].Type, col)
		if err != nil {
			return nil, err
		}
		cols[i] = arr
	}
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	return array.NewRecordBatch(schema, cols, int64(b.NumRows())), nil
}

func toArrowArray(alloc memory.Allocator, dt arrowcol.DataType, col arrowcol.Array) (arrow.Array, error) {
	at, err := ArrowType(dt)
	if err != nil {
		return nil, err
	}
	bldr := array.NewBuilder(alloc, at)
	defer bldr.Release()

	n := col.Len()
	switch b := bldr.(type) {
	case *array.Int32Builder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(col.Value(i).(int32))
		}
	case *array.Int64Builder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(col.Value(i).(int64))
		}
	case *array.Float32Builder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(col.Value(i).(float32))
		}
	case *array.Float64Builder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(col.Value(i).(float64))
		}
	case *array.BooleanBuilder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(col.Value(i).(bool))
		}
	case *array.Date32Builder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Date32(col.Value(i).(int32)))
		}
	case *array.Date64Builder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Date64(col.Value(i).(int64)))
		}
	case *array.StringBuilder:
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(col.Value(i).(string))
		}
	default:
		return nil, dberrors.NewErrDataType("", dt.String(), "supported Arrow builder")
	}

	return bldr.NewArray(), nil
}

// FromRecord decodes an arrow.RecordBatch back into this repository's
// closed batch.Batch representation.
func FromRecord(rec arrow.RecordBatch) (*batch.Batch, error) {
	schema := rec.Schema()
	fields := make([]arrowcol.Field, schema.NumFields())
	cols := make([]arrowcol.Array, schema.NumFields())

	for i := 0; i < schema.NumFields(); i++ {
		af := schema.Field(i)
		dt, err := closedType(af.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrowcol.Field{Name: af.Name, Type: dt, Nullable: af.Nullable}

		arr, err := fromArrowArray(dt, rec.Column(i))
		if err != nil {
			return nil, err
		}
		cols[i] = arr
	}

	return batch.New(&arrowcol.Schema{Fields: fields}, cols)
}

// SchemaFromArrow converts an Arrow schema back into this repository's
// closed Schema, the inverse of ArrowSchema.
func SchemaFromArrow(schema *arrow.Schema) (*arrowcol.Schema, error) {
	fields := make([]arrowcol.Field, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		af := schema.Field(i)
		dt, err := closedType(af.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = arrowcol.Field{Name: af.Name, Type: dt, Nullable: af.Nullable}
	}
	return &arrowcol.Schema{Fields: fields}, nil
}

func closedType(at arrow.DataType) (arrowcol.DataType, error) {
	switch at.ID() {
	case arrow.INT32:
		return arrowcol.Int32, nil
	case arrow.INT64:
		return arrowcol.Int64, nil
	case arrow.FLOAT32:
		return arrowcol.Float32, nil
	case arrow.FLOAT64:
		return arrowcol.Float64, nil
	case arrow.BOOL:
		return arrowcol.Boolean, nil
	case arrow.DATE32:
		return arrowcol.Date32, nil
	case arrow.DATE64:
		return arrowcol.Date64, nil
	case arrow.STRING:
		return arrowcol.Utf8, nil
	default:
		return 0, dberrors.NewErrDataType("", at.Name(), "representable closed DataType")
	}
}

func fromArrowArray(dt arrowcol.DataType, arr arrow.Array) (arrowcol.Array, error) {
	n := arr.Len()
	if dt == arrowcol.Utf8 {
		sa := arr.(*array.String)
		values := make([]string, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			valid[i] = !sa.IsNull(i)
			if valid[i] {
				values[i] = sa.Value(i)
			}
		}
		return arrowcol.NewStringArray(values, valid), nil
	}

	values := make([]any, n)
	valid := make([]bool, n)
	switch a := arr.(type) {
	case *array.Int32:
		for i := 0; i < n; i++ {
			valid[i] = !a.IsNull(i)
			if valid[i] {
				values[i] = a.Value(i)
			}
		}
	case *array.Int64:
		for i := 0; i < n; i++ {
			valid[i] = !a.IsNull(i)
			if valid[i] {
				values[i] = a.Value(i)
			}
		}
	case *array.Float32:
		for i := 0; i < n; i++ {
			valid[i] = !a.IsNull(i)
			if valid[i] {
				values[i] = a.Value(i)
			}
		}
	case *array.Float64:
		for i := 0; i < n; i++ {
			valid[i] = !a.IsNull(i)
			if valid[i] {
				values[i] = a.Value(i)
			}
		}
	case *array.Boolean:
		for i := 0; i < n; i++ {
			valid[i] = !a.IsNull(i)
			if valid[i] {
				values[i] = a.Value(i)
			}
		}
	case *array.Date32:
		for i := 0; i < n; i++ {
			valid[i] = !a.IsNull(i)
			if valid[i] {
				values[i] = int32(a.Value(i))
			}
		}
	case *array.Date64:
		for i := 0; i < n; i++ {
			valid[i] = !a.IsNull(i)
			if valid[i] {
				values[i] = int64(a.Value(i))
			}
		}
	default:
		return nil, dberrors.NewErrDataType("", dt.String(), "supported Arrow array")
	}
	return arrowcol.NewFixedWidthArray(dt, values, valid)
}
