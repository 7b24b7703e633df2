package engine

import (
	"fmt"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
)

// aggregateBatch computes items over b, grouped by groupBy (scalar,
// whole-batch aggregation when groupBy is empty).
func aggregateBatch(b *batch.Batch, groupBy []string, items []plan.AggregationItem) (*batch.Batch, error) {
	if len(groupBy) == 0 {
		return aggregateGroup(b, nil, groupBy, items)
	}

	groupIdx := make([]int, len(groupBy))
	for i, name := range groupBy {
		idx := b.Schema.IndexOf(name)
		if idx < 0 {
			return nil, dberrors.NewErrQuery("aggregate", "unknown GROUP BY column "+name)
		}
		groupIdx[i] = idx
	}

	order := make([]string, 0)
	groups := make(map[string][]int)
	for row := 0; row < b.NumRows(); row++ {
		key := groupKey(b, groupIdx, row)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	var result *batch.Batch
	for _, key := range order {
		sub, err := selectRows(b, groups[key])
		if err != nil {
			return nil, err
		}
		g, err := aggregateGroup(sub, groupIdx, groupBy, items)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = g
			continue
		}
		result, err = concatBatches(result, g)
		if err != nil {
			return nil, err
		}
	}
	if result == nil {
		return aggregateGroup(b, groupIdx, groupBy, items)
	}
	return result, nil
}

func groupKey(b *batch.Batch, groupIdx []int, row int) string {
	key := ""
	for _, idx := range groupIdx {
		col := b.Columns[idx]
		if col.IsNull(row) {
			key += "\x00N\x1f"
			continue
		}
		key += fmt.Sprintf("%v\x1f", col.Value(row))
	}
	return key
}

// aggregateGroup computes one output row: the GROUP BY columns' shared
// value (taken from row 0, since every row of sub shares it) followed
// by each aggregation item.
func aggregateGroup(sub *batch.Batch, groupIdx []int, groupBy []string, items []plan.AggregationItem) (*batch.Batch, error) {
	fields := make([]arrowcol.Field, 0, len(groupIdx)+len(items))
	cols := make([]arrowcol.Array, 0, len(groupIdx)+len(items))

	for i, idx := range groupIdx {
		col := sub.Columns[idx]
		single, err := gatherColumn(col, sub.Schema.Fields[idx].Type, []int{0})
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrowcol.Field{Name: groupBy[i], Type: sub.Schema.Fields[idx].Type, Nullable: true})
		cols = append(cols, single)
	}

	for _, item := range items {
		value, dt, err := computeAggregate(sub, item)
		if err != nil {
			return nil, err
		}
		col, err := broadcastLiteral(value, dt, 1)
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrowcol.Field{Name: item.Alias, Type: dt, Nullable: false})
		cols = append(cols, col)
	}

	return batch.New(&arrowcol.Schema{Fields: fields}, cols)
}

// computeAggregate evaluates one aggregation item over every row of b.
func computeAggregate(b *batch.Batch, item plan.AggregationItem) (any, arrowcol.DataType, error) {
	if item.Function == "COUNT" {
		if item.Column == "*" {
			return int64(b.NumRows()), arrowcol.Int64, nil
		}
		idx := b.Schema.IndexOf(item.Column)
		if idx < 0 {
			return nil, 0, dberrors.NewErrQuery("aggregate", "unknown column "+item.Column)
		}
		col := b.Columns[idx]
		var count int64
		for i := 0; i < col.Len(); i++ {
			if !col.IsNull(i) {
				count++
			}
		}
		return count, arrowcol.Int64, nil
	}

	idx := b.Schema.IndexOf(item.Column)
	if idx < 0 {
		return nil, 0, dberrors.NewErrQuery("aggregate", "unknown column "+item.Column)
	}
	col := b.Columns[idx]
	dt := col.DataType()

	switch item.Function {
	case "SUM", "AVG":
		var sum float64
		var count int64
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				continue
			}
			sum += asFloat(col.Value(i))
			count++
		}
		if item.Function == "SUM" {
			return sum, arrowcol.Float64, nil
		}
		if count == 0 {
			return 0.0, arrowcol.Float64, nil
		}
		return sum / float64(count), arrowcol.Float64, nil

	case "MIN", "MAX":
		var best any
		haveBest := false
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				continue
			}
			v := col.Value(i)
			if !haveBest {
				best = v
				haveBest = true
				continue
			}
			if item.Function == "MIN" && numericLess(dt, v, best) {
				best = v
			}
			if item.Function == "MAX" && numericLess(dt, best, v) {
				best = v
			}
		}
		return best, dt, nil

	default:
		return nil, 0, dberrors.NewErrQuery("aggregate", "unsupported aggregate function "+item.Function)
	}
}

func numericLess(dt arrowcol.DataType, a, b any) bool {
	if dt == arrowcol.Utf8 {
		as, _ := a.(string)
		bs, _ := b.(string)
		return as < bs
	}
	return asFloat(a) < asFloat(b)
}
