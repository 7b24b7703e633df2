package table

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
	pq "github.com/parquet-go/parquet-go"
)

// dataTypeToNode maps a closed DataType to its Parquet leaf node,
// wrapping it Optional when the field is nullable.
func dataTypeToNode(f arrowcol.Field) (pq.Node, error) {
	var node pq.Node
	switch f.Type {
	case arrowcol.Int32, arrowcol.Date32:
		node = pq.Leaf(pq.Int32Type)
	case arrowcol.Int64, arrowcol.Date64:
		node = pq.Leaf(pq.Int64Type)
	case arrowcol.Float32:
		node = pq.Leaf(pq.FloatType)
	case arrowcol.Float64:
		node = pq.Leaf(pq.DoubleType)
	case arrowcol.Boolean:
		node = pq.Leaf(pq.BooleanType)
	case arrowcol.Utf8:
		node = pq.String()
	default:
		return nil, dberrors.NewErrDataType(f.Name, f.Type.String(), "parquet-representable")
	}
	if f.Nullable {
		node = pq.Optional(node)
	}
	return node, nil
}

func nodeToDataType(field pq.Field) (arrowcol.DataType, error) {
	if !field.Leaf() {
		return 0, dberrors.NewErrDataType(field.Name(), "leaf", "group")
	}
	t := field.Type()
	switch t.Kind() {
	case pq.Boolean:
		return arrowcol.Boolean, nil
	case pq.Int32:
		return arrowcol.Int32, nil
	case pq.Int64:
		return arrowcol.Int64, nil
	case pq.Float:
		return arrowcol.Float32, nil
	case pq.Double:
		return arrowcol.Float64, nil
	case pq.ByteArray:
		return arrowcol.Utf8, nil
	default:
		return 0, dberrors.NewErrDataType(field.Name(), "?", "unsupported parquet kind")
	}
}

func schemaToParquet(tableName string, schema *arrowcol.Schema) (*pq.Schema, error) {
	group := make(pq.Group)
	for _, f := range schema.Fields {
		node, err := dataTypeToNode(f)
		if err != nil {
			return nil, err
		}
		group[f.Name] = node
	}
	return pq.NewSchema(tableName, group), nil
}

func schemaFromParquet(pqSchema *pq.Schema) (*arrowcol.Schema, error) {
	fields := pqSchema.Fields()
	out := &arrowcol.Schema{Fields: make([]arrowcol.Field, 0, len(fields))}
	for _, f := range fields {
		dt, err := nodeToDataType(f)
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, arrowcol.Field{Name: f.Name(), Type: dt, Nullable: f.Optional()})
	}
	return out, nil
}

// ExportParquetFile writes the table's current batch to path as a
// native Parquet file.
func (t *Table) ExportParquetFile(path string) error {
	t.mu.RLock()
	b := t.batch
	t.mu.RUnlock()

	pqSchema, err := schemaToParquet(t.Name, b.Schema)
	if err != nil {
		return dberrors.NewErrTableExport(t.Name, err.Error())
	}

	f, err := os.Create(path)
	if err != nil {
		return dberrors.NewErrTableExport(t.Name, err.Error())
	}
	defer f.Close()

	writer := pq.NewGenericWriter[map[string]any](f, pqSchema)
	rows := batchToParquetMaps(b)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return dberrors.NewErrTableExport(t.Name, err.Error())
		}
	}
	if err := writer.Close(); err != nil {
		return dberrors.NewErrTableExport(t.Name, err.Error())
	}
	return nil
}

func batchToParquetMaps(b *batch.Batch) []map[string]any {
	rows := make([]map[string]any, b.NumRows())
	for i := range rows {
		row := make(map[string]any, len(b.Columns))
		for ci, f := range b.Schema.Fields {
			row[f.Name] = b.Columns[ci].Value(i)
		}
		rows[i] = row
	}
	return rows
}

// ImportParquetFile reads a native Parquet file into memory and
// returns the schema and per-column values needed to build a batch.
func ImportParquetFile(path string) (*arrowcol.Schema, [][]any, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, dberrors.NewErrTableImport(path, err.Error())
	}
	defer f.Close()
	return importParquetReader(f, path)
}

// ImportParquetBytes reads a native Parquet byte blob, as used by
// load_table_bytes.
func ImportParquetBytes(name string, data []byte) (*arrowcol.Schema, [][]any, []int, error) {
	r := &bytesReaderAt{data: data}
	return importParquetReader(r, name)
}

type bytesReaderAt struct{ data []byte }

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

type sizedReaderAt interface {
	io.ReaderAt
}

func importParquetReader(r sizedReaderAt, label string) (*arrowcol.Schema, [][]any, []int, error) {
	var size int64
	switch v := r.(type) {
	case *os.File:
		stat, err := v.Stat()
		if err != nil {
			return nil, nil, nil, dberrors.NewErrTableImport(label, err.Error())
		}
		size = stat.Size()
	case *bytesReaderAt:
		size = int64(len(v.data))
	default:
		return nil, nil, nil, dberrors.NewErrTableImport(label, "unsupported reader")
	}

	pf, err := pq.OpenFile(r, size)
	if err != nil {
		return nil, nil, nil, dberrors.NewErrTableImport(label, err.Error())
	}

	schema, err := schemaFromParquet(pf.Schema())
	if err != nil {
		return nil, nil, nil, dberrors.NewErrTableImport(label, err.Error())
	}

	reader := pq.NewReader(pf)
	defer reader.Close()

	cols := make([][]any, len(schema.Fields))
	nullCounts := make([]int, len(schema.Fields))
	pqRows := make([]pq.Row, 128)
	for {
		n, err := reader.ReadRows(pqRows)
		for i := 0; i < n; i++ {
			row := pqRows[i]
			for ci := range schema.Fields {
				if ci >= len(row) {
					cols[ci] = append(cols[ci], nil)
					nullCounts[ci]++
					continue
				}
				v := row[ci]
				if v.IsNull() {
					cols[ci] = append(cols[ci], nil)
					nullCounts[ci]++
					continue
				}
				cols[ci] = append(cols[ci], parquetValueToGo(schema.Fields[ci].Type, v))
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, nil, dberrors.NewErrTableImport(label, err.Error())
		}
	}
	return schema, cols, nullCounts, nil
}

func parquetValueToGo(dt arrowcol.DataType, v pq.Value) any {
	switch dt {
	case arrowcol.Int32, arrowcol.Date32:
		return v.Int32()
	case arrowcol.Int64, arrowcol.Date64:
		return v.Int64()
	case arrowcol.Float32:
		return v.Float()
	case arrowcol.Float64:
		return v.Double()
	case arrowcol.Boolean:
		return v.Boolean()
	case arrowcol.Utf8:
		return string(v.ByteArray())
	default:
		return fmt.Sprintf("%v", v)
	}
}

// BuildBatchFromParquet assembles a batch.Batch from the output of
// ImportParquetFile/ImportParquetBytes.
func BuildBatchFromParquet(schema *arrowcol.Schema, cols [][]any, nullCounts []int) (*batch.Batch, error) {
	arrays := make([]arrowcol.Array, len(schema.Fields))
	for i, f := range schema.Fields {
		var valid []bool
		if nullCounts[i] > 0 {
			valid = make([]bool, len(cols[i]))
			for j, v := range cols[i] {
				valid[j] = v != nil
			}
		}
		if f.Type == arrowcol.Utf8 {
			strs := make([]string, len(cols[i]))
			for j, v := range cols[i] {
				if s, ok := v.(string); ok {
					strs[j] = s
				}
			}
			arrays[i] = arrowcol.NewStringArray(strs, valid)
			continue
		}
		arr, err := arrowcol.NewFixedWidthArray(f.Type, normalizeForWidth(f.Type, cols[i]), valid)
		if err != nil {
			return nil, err
		}
		arrays[i] = arr
	}
	return batch.New(schema, arrays)
}

// normalizeForWidth replaces nil placeholders (null rows) with a
// zero value so NewFixedWidthArray's per-row encode step never sees a
// nil for a row the validity slice already marks invalid.
func normalizeForWidth(dt arrowcol.DataType, vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i] = v
			continue
		}
		switch dt {
		case arrowcol.Int32, arrowcol.Date32:
			out[i] = int32(0)
		case arrowcol.Int64, arrowcol.Date64:
			out[i] = int64(0)
		case arrowcol.Float32:
			out[i] = float32(0)
		case arrowcol.Float64:
			out[i] = float64(0)
		case arrowcol.Boolean:
			out[i] = false
		}
	}
	return out
}

// TableNameFromPath derives a table name from a Parquet file's stem.
func TableNameFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
