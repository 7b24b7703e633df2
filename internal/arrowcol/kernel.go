package arrowcol

import "github.com/colbase/colbase/internal/dberrors"

// Append concatenates data at the tail of arr, producing a new array.
func Append(arr Array, data Array) (Array, error) {
	return splice(arr, data, -1, opAppend)
}

// Insert splices data into arr such that its first element lands at
// rowIndex.
func Insert(arr Array, rowIndex int, data Array) (Array, error) {
	return splice(arr, data, rowIndex, opInsert)
}

// Update replaces the single element at rowIndex with data's only
// element. data must have exactly one row.
func Update(arr Array, rowIndex int, data Array) (Array, error) {
	if data.Len() != 1 {
		return nil, dberrors.NewErrQuery("update", "replacement data must have exactly one row")
	}
	return splice(arr, data, rowIndex, opUpdate)
}

// Delete removes the element at rowIndex.
func Delete(arr Array, rowIndex int) (Array, error) {
	return splice(arr, nil, rowIndex, opDelete)
}

type spliceOp int

const (
	opAppend spliceOp = iota
	opInsert
	opUpdate
	opDelete
)

func splice(arr Array, data Array, rowIndex int, op spliceOp) (Array, error) {
	switch a := arr.(type) {
	case *FixedWidthArray:
		var d *FixedWidthArray
		if data != nil {
			fd, ok := data.(*FixedWidthArray)
			if !ok || fd.dt != a.dt {
				return nil, dberrors.NewErrDataType("", a.dt.String(), "?")
			}
			d = fd
		}
		return fixedSplice(a, d, rowIndex, op)
	case *StringArray:
		var d *StringArray
		if data != nil {
			sd, ok := data.(*StringArray)
			if !ok {
				return nil, dberrors.NewErrDataType("", Utf8.String(), "?")
			}
			d = sd
		}
		return stringSplice(a, d, rowIndex, op)
	default:
		return nil, dberrors.NewErrDataType("", "", "unsupported array kind")
	}
}

func fixedSplice(a *FixedWidthArray, d *FixedWidthArray, rowIndex int, op spliceOp) (*FixedWidthArray, error) {
	w := a.width
	switch op {
	case opAppend:
		rowIndex = a.length
	case opUpdate, opDelete:
		if rowIndex < 0 || rowIndex >= a.length {
			return nil, dberrors.NewErrColumnIndexOutOfBounds(rowIndex, a.length)
		}
	default: // opInsert
		if rowIndex < 0 || rowIndex > a.length {
			return nil, dberrors.NewErrColumnIndexOutOfBounds(rowIndex, a.length)
		}
	}

	byteOff := rowIndex * w
	src := a.data.Bytes()
	head := src[:byteOff]

	switch op {
	case opAppend, opInsert:
		tail := src[byteOff:]
		newBuf := make([]byte, 0, len(head)+d.data.Len()+len(tail))
		newBuf = append(newBuf, head...)
		newBuf = append(newBuf, d.data.Bytes()...)
		newBuf = append(newBuf, tail...)
		length := a.length + d.length
		nulls := spliceBitmap(a.nulls, rowIndex, d.nulls, d.length, rowIndex, length)
		return &FixedWidthArray{dt: a.dt, width: w, data: NewBuffer(newBuf), nulls: nulls, length: length}, nil
	case opUpdate:
		tail := src[byteOff+w:]
		newBuf := make([]byte, 0, len(head)+w+len(tail))
		newBuf = append(newBuf, head...)
		newBuf = append(newBuf, d.data.Bytes()...)
		newBuf = append(newBuf, tail...)
		nulls := spliceBitmap(a.nulls, rowIndex, d.nulls, 1, rowIndex+1, a.length)
		return &FixedWidthArray{dt: a.dt, width: w, data: NewBuffer(newBuf), nulls: nulls, length: a.length}, nil
	default: // opDelete
		tail := src[byteOff+w:]
		newBuf := make([]byte, 0, len(head)+len(tail))
		newBuf = append(newBuf, head...)
		newBuf = append(newBuf, tail...)
		length := a.length - 1
		nulls := spliceBitmap(a.nulls, rowIndex, nil, 0, rowIndex+1, length)
		return &FixedWidthArray{dt: a.dt, width: w, data: NewBuffer(newBuf), nulls: nulls, length: length}, nil
	}
}

func stringSplice(a *StringArray, d *StringArray, rowIndex int, op spliceOp) (*StringArray, error) {
	vals, valid := stringValues(a)
	switch op {
	case opAppend:
		rowIndex = len(vals)
	case opUpdate, opDelete:
		if rowIndex < 0 || rowIndex >= len(vals) {
			return nil, dberrors.NewErrColumnIndexOutOfBounds(rowIndex, len(vals))
		}
	default: // opInsert
		if rowIndex < 0 || rowIndex > len(vals) {
			return nil, dberrors.NewErrColumnIndexOutOfBounds(rowIndex, len(vals))
		}
	}

	switch op {
	case opAppend, opInsert:
		dvals, dvalid := stringValues(d)
		newVals := make([]string, 0, len(vals)+len(dvals))
		newValid := make([]bool, 0, len(vals)+len(dvals))
		newVals = append(newVals, vals[:rowIndex]...)
		newValid = append(newValid, valid[:rowIndex]...)
		newVals = append(newVals, dvals...)
		newValid = append(newValid, dvalid...)
		newVals = append(newVals, vals[rowIndex:]...)
		newValid = append(newValid, valid[rowIndex:]...)
		return NewStringArray(newVals, newValid), nil
	case opUpdate:
		dvals, dvalid := stringValues(d)
		newVals := append([]string{}, vals...)
		newValid := append([]bool{}, valid...)
		newVals[rowIndex] = dvals[0]
		newValid[rowIndex] = dvalid[0]
		return NewStringArray(newVals, newValid), nil
	default: // opDelete
		newVals := make([]string, 0, len(vals)-1)
		newValid := make([]bool, 0, len(vals)-1)
		newVals = append(newVals, vals[:rowIndex]...)
		newValid = append(newValid, valid[:rowIndex]...)
		newVals = append(newVals, vals[rowIndex+1:]...)
		newValid = append(newValid, valid[rowIndex+1:]...)
		return NewStringArray(newVals, newValid), nil
	}
}
