// Package browserbinding implements the thin adapter a WASM/browser
// front-end binds against: one named in-memory database, Parquet-byte
// loading, and query execution serialized as plain strings a
// JavaScript boundary can carry without needing to understand Arrow.
package browserbinding

import (
	"fmt"

	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/engine"
	"github.com/colbase/colbase/internal/parquetio"
	"github.com/colbase/colbase/internal/query"
)

// SchemaField mirrors one column of a table's schema, serialized for
// a browser client (get_schemas).
type SchemaField struct {
	Name     string
	DataType string
	Nullable bool
}

// TableSchema is one table's name plus its fields, the unit get_schemas
// returns per registered table.
type TableSchema struct {
	TableName string
	Fields    []SchemaField
}

// Binding owns one named in-memory database plus the engine driving
// its queries, the unit of state a browser client constructs via New.
type Binding struct {
	db  *database.Database
	eng *engine.Engine
}

// New creates an empty, named database with its own engine.
func New(name string) *Binding {
	eng := engine.New()
	return &Binding{db: database.New(name, eng), eng: eng}
}

// ReadFile registers tableName from an in-memory Parquet byte blob,
// replacing read_file's file-bytes argument.
func (b *Binding) ReadFile(tableName string, data []byte) error {
	return parquetio.LoadTableBytes(b.db, tableName, data)
}

// Query runs sql and serializes its result as rows of strings, the
// header row (column names) first, with a nil entry standing in for
// each NULL cell.
func (b *Binding) Query(sql string) ([][]*string, error) {
	df, err := query.Query(b.db, b.eng, sql)
	if err != nil {
		return nil, err
	}
	got, err := df.Materialize()
	if err != nil {
		return nil, err
	}
	return serializeBatch(got)
}

// QueryPaginated runs sql bounded to one page and serializes its
// result the same way Query does, alongside the page's metadata.
func (b *Binding) QueryPaginated(sql string, page, pageSize int64, includeTotalCount bool) ([][]*string, *query.PaginationInfo, error) {
	df, info, err := query.PaginatedQuery(b.db, b.eng, sql, page, pageSize, includeTotalCount)
	if err != nil {
		return nil, nil, err
	}
	got, err := df.Materialize()
	if err != nil {
		return nil, nil, err
	}
	rows, err := serializeBatch(got)
	if err != nil {
		return nil, nil, err
	}
	return rows, info, nil
}

// GetTables lists every table name currently registered.
func (b *Binding) GetTables() []string {
	return b.db.TableNames()
}

// GetSchemas returns every registered table's schema.
func (b *Binding) GetSchemas() ([]TableSchema, error) {
	names := b.db.TableNames()
	out := make([]TableSchema, 0, len(names))
	for _, name := range names {
		tbl, err := b.db.GetTable(name)
		if err != nil {
			return nil, err
		}
		schema := tbl.Batch().Schema
		fields := make([]SchemaField, len(schema.Fields))
		for i, f := range schema.Fields {
			fields[i] = SchemaField{Name: f.Name, DataType: f.Type.String(), Nullable: f.Nullable}
		}
		out = append(out, TableSchema{TableName: name, Fields: fields})
	}
	return out, nil
}

// RemoveTable deregisters a table from both the database and the
// engine's view of it.
func (b *Binding) RemoveTable(name string) error {
	return b.db.RemoveTable(name)
}

// serializeBatch renders b as [][]*string: the header row (field
// names) first, then one row per b row with each NULL cell
// represented as a nil pointer.
func serializeBatch(b *batch.Batch) ([][]*string, error) {
	header := make([]*string, len(b.Schema.Fields))
	for i, f := range b.Schema.Fields {
		name := f.Name
		header[i] = &name
	}

	rows := make([][]*string, 0, b.NumRows()+1)
	rows = append(rows, header)

	for r := 0; r < b.NumRows(); r++ {
		row := make([]*string, len(b.Columns))
		for c, col := range b.Columns {
			if col.IsNull(r) {
				continue
			}
			s := fmt.Sprint(col.Value(r))
			row[c] = &s
		}
		rows = append(rows, row)
	}
	return rows, nil
}
