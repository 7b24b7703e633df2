// Package database implements the table registry: a name-to-table map
// guarded by a lock, plus the hooks that keep an external SQL engine's
// view of each table in sync with its current batch.
package database

import (
	"sync"

	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/table"
)

// EngineContext is the narrow view internal/database needs of the
// external SQL engine: register and deregister a table's current
// batch so SELECTs observe it.
type EngineContext interface {
	RegisterTable(name string, b *batch.Batch) error
	Deregister(name string) error
}

// Database owns a table collection and a handle to the external
// engine used for planning and SELECT execution.
type Database struct {
	Name string

	mu     sync.RWMutex
	tables map[string]*table.Table
	Engine EngineContext
}

// New creates an empty database with the given engine context.
func New(name string, engine EngineContext) *Database {
	return &Database{Name: name, tables: make(map[string]*table.Table), Engine: engine}
}

// AddTable registers t under its own name, failing if the name is
// already taken.
func (d *Database) AddTable(t *table.Table) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tables[t.Name]; exists {
		return dberrors.NewErrTableAlreadyExists(t.Name)
	}
	d.tables[t.Name] = t
	return nil
}

// GetTable returns a shared handle to the named table.
func (d *Database) GetTable(name string) (*table.Table, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	if !ok {
		return nil, dberrors.NewErrTableNotFound(name)
	}
	return t, nil
}

// GetMutTable returns the named table for writing. It is the same
// lookup as GetTable: Table itself guards its batch with its own lock,
// and the registry lock is released before returning, so it does not
// stop another goroutine from removing the table while it is in use.
func (d *Database) GetMutTable(name string) (*table.Table, error) {
	return d.GetTable(name)
}

// RemoveTable deregisters the table from the engine (ignoring any
// engine error) and removes it from the registry.
func (d *Database) RemoveTable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; !ok {
		return dberrors.NewErrTableNotFound(name)
	}
	if d.Engine != nil {
		_ = d.Engine.Deregister(name)
	}
	delete(d.tables, name)
	return nil
}

// AddTableContext idempotently deregisters, then registers a
// snapshot of the table's current batch with the engine so SELECTs
// observe it.
func (d *Database) AddTableContext(name string) error {
	t, err := d.GetTable(name)
	if err != nil {
		return err
	}
	if d.Engine == nil {
		return nil
	}
	_ = d.Engine.Deregister(name)
	return d.Engine.RegisterTable(name, t.Batch())
}

// AddAllTableContexts applies AddTableContext to every registered
// table.
func (d *Database) AddAllTableContexts() error {
	d.mu.RLock()
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	d.mu.RUnlock()

	for _, name := range names {
		if err := d.AddTableContext(name); err != nil {
			return err
		}
	}
	return nil
}

// TableNames returns the registered table names in no particular
// order.
func (d *Database) TableNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	return names
}

// Clone produces a new Database holding the same *table.Table values
// in a copy of this one's map, with a fresh, empty engine context: no
// tables are pre-registered in the clone. Adding or removing a table
// in one database does not affect the other's map.
func (d *Database) Clone(newEngine EngineContext) *Database {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cloned := &Database{Name: d.Name, tables: make(map[string]*table.Table, len(d.tables)), Engine: newEngine}
	for name, t := range d.tables {
		cloned.tables[name] = t
	}
	return cloned
}
