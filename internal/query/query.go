// Package query implements the SQL entry point: compile text to a
// plan, dispatch DML to internal/dml or return a lazy dataframe for
// SELECT, and paginate.
package query

import (
	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/dml"
	"github.com/colbase/colbase/internal/plan"
)

// Engine is the narrow view internal/query needs of the external SQL
// engine: compile text to a plan, and run a plan to a single result
// batch. internal/engine implements this.
type Engine interface {
	Compile(sql string) (plan.Node, error)
	ExecutePlan(node plan.Node) (*batch.Batch, error)
}

// Dataframe is a lazy SELECT result (a plan node plus the engine that
// can run it) or a literal, already-materialized result (the
// synthesized count row a DML statement produces).
type Dataframe struct {
	node    plan.Node
	exec    Engine
	literal *batch.Batch
}

// Materialize runs the dataframe to completion and returns its single
// result batch.
func (df *Dataframe) Materialize() (*batch.Batch, error) {
	if df.literal != nil {
		return df.literal, nil
	}
	return df.exec.ExecutePlan(df.node)
}

// Clone returns an independent handle to the same dataframe; re-running
// one clone's Materialize does not affect the other's, since neither
// the plan tree nor exec is mutated by execution.
func (df *Dataframe) Clone() *Dataframe {
	cloned := *df
	return &cloned
}

// WithOffsetLimit returns a new dataframe bounded to at most limit rows
// starting at offset. For a lazy SELECT dataframe this wraps the plan
// in a Limit node; for an already-materialized literal it slices rows
// directly.
func (df *Dataframe) WithOffsetLimit(offset, limit int64) (*Dataframe, error) {
	if df.literal != nil {
		sliced, err := sliceRows(df.literal, offset, limit)
		if err != nil {
			return nil, err
		}
		return &Dataframe{literal: sliced}, nil
	}
	return &Dataframe{node: plan.NewLimit(df.node, limit, offset), exec: df.exec}, nil
}

// Query compiles sql and, for a DML root, dispatches to the matching
// executor and returns its synthesized count dataframe; otherwise it
// returns the planner's dataframe unchanged.
func Query(db *database.Database, eng Engine, sql string) (*Dataframe, error) {
	node, err := eng.Compile(sql)
	if err != nil {
		return nil, err
	}

	dmlNode, ok := node.(*plan.Dml)
	if !ok {
		return &Dataframe{node: node, exec: eng}, nil
	}

	var n int64
	var alias string
	switch dmlNode.Kind {
	case plan.DmlInsert:
		alias = "count"
		n, err = dml.ExecuteInsert(db, dmlNode.TableName, dmlNode, eng)
	case plan.DmlUpdate:
		alias = "updated_rows"
		n, err = dml.ExecuteUpdate(db, dmlNode.TableName, dmlNode)
	case plan.DmlDelete:
		alias = "deleted_rows"
		n, err = dml.ExecuteDelete(db, dmlNode.TableName, dmlNode)
	default:
		return nil, dberrors.NewErrQuery("query", "unrecognized DML kind")
	}
	if err != nil {
		return nil, err
	}

	literal, err := synthesizeCountBatch(alias, n)
	if err != nil {
		return nil, err
	}
	return &Dataframe{literal: literal}, nil
}

func synthesizeCountBatch(alias string, n int64) (*batch.Batch, error) {
	schema := &arrowcol.Schema{Fields: []arrowcol.Field{{Name: alias, Type: arrowcol.Int64}}}
	col, err := arrowcol.NewFixedWidthArray(arrowcol.Int64, []any{n}, nil)
	if err != nil {
		return nil, err
	}
	return batch.New(schema, []arrowcol.Array{col})
}

// PaginationInfo describes one page of a paginated query's results.
type PaginationInfo struct {
	Page            int64
	PageSize        int64
	RowsInPage      int64
	TotalRows       *int64
	TotalPages      *int64
	HasNextPage     bool
	HasPreviousPage bool
}

// PaginatedQuery executes sql, optionally computing the total row
// count, then bounds the result to one page. page is zero-based.
func PaginatedQuery(db *database.Database, eng Engine, sql string, page, pageSize int64, includeTotalCount bool) (*Dataframe, *PaginationInfo, error) {
	if pageSize <= 0 {
		return nil, nil, dberrors.NewErrQuery("paginate", "page_size must be positive")
	}

	base, err := Query(db, eng, sql)
	if err != nil {
		return nil, nil, err
	}

	var totalRows *int64
	if includeTotalCount {
		full, err := base.Clone().Materialize()
		if err != nil {
			return nil, nil, err
		}
		t := int64(full.NumRows())
		totalRows = &t
	}

	offset := page * pageSize
	paged, err := base.WithOffsetLimit(offset, pageSize)
	if err != nil {
		return nil, nil, err
	}
	pagedBatch, err := paged.Materialize()
	if err != nil {
		return nil, nil, err
	}
	rowsInPage := int64(pagedBatch.NumRows())

	var totalPages *int64
	var hasNext bool
	if totalRows != nil {
		tp := (*totalRows + pageSize - 1) / pageSize
		totalPages = &tp
		hasNext = (page+1)*pageSize < *totalRows
	} else {
		hasNext = rowsInPage == pageSize
	}

	info := &PaginationInfo{
		Page:            page,
		PageSize:        pageSize,
		RowsInPage:      rowsInPage,
		TotalRows:       totalRows,
		TotalPages:      totalPages,
		HasNextPage:     hasNext,
		HasPreviousPage: page > 0,
	}
	return paged, info, nil
}

// sliceRows rebuilds b restricted to rows [offset, offset+limit); a
// limit of zero or less keeps every row from offset on. Each column is
// reconstructed element-by-element via the array constructors
// (no kernel splice: this is a read path, not a mutation).
func sliceRows(b *batch.Batch, offset, limit int64) (*batch.Batch, error) {
	n := int64(b.NumRows())
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return emptyLike(b)
	}
	end := offset + limit
	if limit <= 0 || end > n {
		end = n
	}

	cols := make([]arrowcol.Array, len(b.Columns))
	for i, col := range b.Columns {
		sliced, err := sliceColumn(col, int(offset), int(end))
		if err != nil {
			return nil, err
		}
		cols[i] = sliced
	}
	return batch.New(b.Schema, cols)
}

func emptyLike(b *batch.Batch) (*batch.Batch, error) {
	cols := make([]arrowcol.Array, len(b.Columns))
	for i, col := range b.Columns {
		sliced, err := sliceColumn(col, 0, 0)
		if err != nil {
			return nil, err
		}
		cols[i] = sliced
	}
	return batch.New(b.Schema, cols)
}

func sliceColumn(col arrowcol.Array, start, end int) (arrowcol.Array, error) {
	if col.DataType() == arrowcol.Utf8 {
		values := make([]string, 0, end-start)
		valid := make([]bool, 0, end-start)
		for i := start; i < end; i++ {
			if col.IsNull(i) {
				values = append(values, "")
				valid = append(valid, false)
				continue
			}
			values = append(values, col.Value(i).(string))
			valid = append(valid, true)
		}
		return arrowcol.NewStringArray(values, valid), nil
	}

	values := make([]any, 0, end-start)
	valid := make([]bool, 0, end-start)
	for i := start; i < end; i++ {
		if col.IsNull(i) {
			values = append(values, nil)
			valid = append(valid, false)
			continue
		}
		values = append(values, col.Value(i))
		valid = append(valid, true)
	}
	return arrowcol.NewFixedWidthArray(col.DataType(), values, valid)
}
