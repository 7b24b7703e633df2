// Package parquetio implements the directory-of-Parquet-files
// persistence layer: loading a database from a directory (or an
// in-memory byte blob) and saving one back out, one file per table.
package parquetio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/table"
)

// LoadDatabase scans dir for .parquet files, building one table per
// file (name derived from the file's stem via
// table.TableNameFromPath) and registering each with eng. Non-.parquet
// entries are ignored.
func LoadDatabase(dir string, eng database.EngineContext) (*database.Database, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, dberrors.NewErrTableImport(dir, err.Error())
	}

	name := filepath.Base(dir)
	db := database.New(name, eng)

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".parquet") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := loadTableFile(db, path); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func loadTableFile(db *database.Database, path string) error {
	schema, cols, nullCounts, err := table.ImportParquetFile(path)
	if err != nil {
		return err
	}
	b, err := table.BuildBatchFromParquet(schema, cols, nullCounts)
	if err != nil {
		return err
	}
	tbl, err := table.NewWithBatch(table.TableNameFromPath(path), b)
	if err != nil {
		return err
	}
	if err := db.AddTable(tbl); err != nil {
		return err
	}
	return db.AddTableContext(tbl.Name)
}

// LoadTableBytes registers name as a table in db, whose batch is read
// from the in-memory Parquet byte blob data.
func LoadTableBytes(db *database.Database, name string, data []byte) error {
	schema, cols, nullCounts, err := table.ImportParquetBytes(name, data)
	if err != nil {
		return err
	}
	b, err := table.BuildBatchFromParquet(schema, cols, nullCounts)
	if err != nil {
		return err
	}
	tbl, err := table.NewWithBatch(name, b)
	if err != nil {
		return err
	}
	if err := db.AddTable(tbl); err != nil {
		return err
	}
	return db.AddTableContext(tbl.Name)
}

// SaveDatabase writes every table currently registered in db to dir,
// one <table_name>.parquet file per table, creating dir if it does not
// already exist.
func SaveDatabase(db *database.Database, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dberrors.NewErrTableExport(dir, err.Error())
	}
	for _, name := range db.TableNames() {
		tbl, err := db.GetTable(name)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name+".parquet")
		if err := tbl.ExportParquetFile(path); err != nil {
			return err
		}
	}
	return nil
}
