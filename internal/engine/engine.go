// Package engine implements the SQL engine columndb's core expects:
// compiling text to the closed internal/plan node set via the TiDB
// parser, and running a compiled plan against the tables currently
// registered with it. Parsing and plan building happen in a single
// pass straight from the AST, with no intermediate statement
// representation.
package engine

import (
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
)

// Engine holds the TiDB SQL parser plus a registry of each table's
// current batch, mirroring the data an external engine context needs
// to plan and run SELECTs without re-reading the table package
// directly. internal/database.Database drives RegisterTable/Deregister
// after every write so this registry never observes a stale batch.
type Engine struct {
	parser *parser.Parser

	mu      sync.RWMutex
	batches map[string]*batch.Batch
}

// New builds an empty Engine.
func New() *Engine {
	return &Engine{parser: parser.New(), batches: make(map[string]*batch.Batch)}
}

// RegisterTable installs b as the current snapshot for name, so a
// subsequent Compile+ExecutePlan observes it. Satisfies
// internal/database.EngineContext.
func (e *Engine) RegisterTable(name string, b *batch.Batch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches[name] = b
	return nil
}

// Deregister removes name's snapshot. Satisfies
// internal/database.EngineContext. Deregistering a name that was never
// registered is not an error.
func (e *Engine) Deregister(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.batches, name)
	return nil
}

// tableBatch returns the registered snapshot for name.
func (e *Engine) tableBatch(name string) (*batch.Batch, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.batches[name]
	if !ok {
		return nil, dberrors.NewErrTableNotFound(name)
	}
	return b, nil
}

// tableSchema returns the registered schema for name, used to expand a
// `SELECT *` at plan-build time.
func (e *Engine) tableSchema(name string) (*arrowcol.Schema, error) {
	b, err := e.tableBatch(name)
	if err != nil {
		return nil, err
	}
	return b.Schema, nil
}

// Compile parses sql and builds the first statement it contains into a
// plan.Node. Satisfies internal/query.Engine and internal/dml's
// PlanExecutor dependency (via ExecutePlan in exec.go).
func (e *Engine) Compile(sql string) (plan.Node, error) {
	stmts, _, err := e.parser.Parse(sql, "", "")
	if err != nil {
		return nil, dberrors.NewErrQuery("parse", err.Error())
	}
	if len(stmts) == 0 {
		return nil, dberrors.NewErrQuery("parse", "no statements found")
	}

	switch stmt := stmts[0].(type) {
	case *ast.SelectStmt:
		return e.buildSelect(stmt)
	case *ast.InsertStmt:
		return e.buildInsert(stmt)
	case *ast.UpdateStmt:
		return e.buildUpdate(stmt)
	case *ast.DeleteStmt:
		return e.buildDelete(stmt)
	default:
		return nil, dberrors.NewErrQuery("compile", "unsupported statement kind")
	}
}
