// Package dberrors defines the error kinds returned across columndb's
// public surface: one struct per kind, each with a constructor and an
// Error() string, following the same shape the rest of the database
// layer uses for its own error returns.
package dberrors

import "fmt"

// ErrCreateDatabase is returned when a database or table cannot be
// created; table.New and table.NewWithBatch return it for a name that
// contains whitespace.
type ErrCreateDatabase struct {
	Name   string
	Reason string
}

func (e *ErrCreateDatabase) Error() string {
	return fmt.Sprintf("create database %q: %s", e.Name, e.Reason)
}

// NewErrCreateDatabase builds an ErrCreateDatabase.
func NewErrCreateDatabase(name, reason string) *ErrCreateDatabase {
	return &ErrCreateDatabase{Name: name, Reason: reason}
}

// ErrCreateRecordBatch is returned when a batch cannot be constructed,
// for example when column lengths disagree.
type ErrCreateRecordBatch struct {
	Reason string
}

func (e *ErrCreateRecordBatch) Error() string {
	return fmt.Sprintf("create record batch: %s", e.Reason)
}

// NewErrCreateRecordBatch builds an ErrCreateRecordBatch.
func NewErrCreateRecordBatch(reason string) *ErrCreateRecordBatch {
	return &ErrCreateRecordBatch{Reason: reason}
}

// ErrArrayData is returned when an array's backing buffer is malformed
// (wrong length, misaligned offsets, corrupt validity bitmap).
type ErrArrayData struct {
	Column string
	Reason string
}

func (e *ErrArrayData) Error() string {
	return fmt.Sprintf("array data for column %q: %s", e.Column, e.Reason)
}

// NewErrArrayData builds an ErrArrayData.
func NewErrArrayData(column, reason string) *ErrArrayData {
	return &ErrArrayData{Column: column, Reason: reason}
}

// ErrDataType is returned when a value's type does not match (or
// cannot be coerced to) the data type of its target column.
type ErrDataType struct {
	Column   string
	Expected string
	Got      string
}

func (e *ErrDataType) Error() string {
	return fmt.Sprintf("column %q expects type %s, got %s", e.Column, e.Expected, e.Got)
}

// NewErrDataType builds an ErrDataType.
func NewErrDataType(column, expected, got string) *ErrDataType {
	return &ErrDataType{Column: column, Expected: expected, Got: got}
}

// ErrColumnIndexOutOfBounds is returned when a column or row index is
// outside the bounds of a batch or array.
type ErrColumnIndexOutOfBounds struct {
	Index int
	Len   int
}

func (e *ErrColumnIndexOutOfBounds) Error() string {
	return fmt.Sprintf("index %d out of bounds (len %d)", e.Index, e.Len)
}

// NewErrColumnIndexOutOfBounds builds an ErrColumnIndexOutOfBounds.
func NewErrColumnIndexOutOfBounds(index, length int) *ErrColumnIndexOutOfBounds {
	return &ErrColumnIndexOutOfBounds{Index: index, Len: length}
}

// ErrTableAlreadyExists is returned when registering a table name that
// is already present in a database.
type ErrTableAlreadyExists struct {
	TableName string
}

func (e *ErrTableAlreadyExists) Error() string {
	return fmt.Sprintf("table %q already exists", e.TableName)
}

// NewErrTableAlreadyExists builds an ErrTableAlreadyExists.
func NewErrTableAlreadyExists(tableName string) *ErrTableAlreadyExists {
	return &ErrTableAlreadyExists{TableName: tableName}
}

// ErrTableNotFound is returned when a referenced table is not
// registered in the database.
type ErrTableNotFound struct {
	TableName string
}

func (e *ErrTableNotFound) Error() string {
	return fmt.Sprintf("table %q not found", e.TableName)
}

// NewErrTableNotFound builds an ErrTableNotFound.
func NewErrTableNotFound(tableName string) *ErrTableNotFound {
	return &ErrTableNotFound{TableName: tableName}
}

// ErrTableImport is returned when loading a table from Parquet fails.
type ErrTableImport struct {
	Path   string
	Reason string
}

func (e *ErrTableImport) Error() string {
	return fmt.Sprintf("import table from %q: %s", e.Path, e.Reason)
}

// NewErrTableImport builds an ErrTableImport.
func NewErrTableImport(path, reason string) *ErrTableImport {
	return &ErrTableImport{Path: path, Reason: reason}
}

// ErrTableExport is returned when writing a table to Parquet fails.
type ErrTableExport struct {
	Path   string
	Reason string
}

func (e *ErrTableExport) Error() string {
	return fmt.Sprintf("export table to %q: %s", e.Path, e.Reason)
}

// NewErrTableExport builds an ErrTableExport.
func NewErrTableExport(path, reason string) *ErrTableExport {
	return &ErrTableExport{Path: path, Reason: reason}
}

// ErrQuery is returned for any failure in parsing, planning, or
// executing a query that doesn't fit a more specific kind above.
type ErrQuery struct {
	Stage  string
	Reason string
}

func (e *ErrQuery) Error() string {
	return fmt.Sprintf("query failed at %s: %s", e.Stage, e.Reason)
}

// NewErrQuery builds an ErrQuery.
func NewErrQuery(stage, reason string) *ErrQuery {
	return &ErrQuery{Stage: stage, Reason: reason}
}
