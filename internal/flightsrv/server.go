// Package flightsrv implements the server side of the Arrow Flight RPC
// surface: get_schema and do_get only, every other Flight method left
// Unimplemented. do_get's ticket bytes are the SQL text to execute; the
// response stream carries the result schema first, then the IPC-encoded
// record batches.
package flightsrv

import (
	"context"
	"log"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/flightwire"
	"github.com/colbase/colbase/internal/query"
)

// Server answers get_schema/do_get against db, compiling and running
// do_get SQL through eng. Every other Flight method returns
// Unimplemented via the embedded flight.BaseFlightServer.
type Server struct {
	flight.BaseFlightServer
	db       *database.Database
	eng      query.Engine
	refTable string
	alloc    memory.Allocator
}

// New builds a Server over db and eng. refTable names the table whose
// schema a get_schema command returns; pass "" to resolve it lazily to
// the database's only table.
func New(db *database.Database, eng query.Engine, refTable string) *Server {
	return &Server{db: db, eng: eng, refTable: refTable, alloc: memory.NewGoAllocator()}
}

// Register installs a Server on grpcServer.
func Register(grpcServer *grpc.Server, db *database.Database, eng query.Engine, refTable string) {
	flight.RegisterFlightServiceServer(grpcServer, New(db, eng, refTable))
}

func (s *Server) referenceTable() (string, error) {
	if s.refTable != "" {
		return s.refTable, nil
	}
	names := s.db.TableNames()
	if len(names) != 1 {
		return "", status.Errorf(codes.FailedPrecondition, "no reference table configured and %d tables registered", len(names))
	}
	return names[0], nil
}

// GetSchema answers the get_schema command with the reference table's
// current schema in IPC form. A descriptor whose command bytes name a
// table directly resolves that table instead.
func (s *Server) GetSchema(ctx context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	reqID := uuid.New().String()
	name := string(desc.Cmd)
	log.Printf("flightsrv get_schema[%s] cmd=%q", reqID, name)
	if name == "" || name == "get_schema" {
		ref, err := s.referenceTable()
		if err != nil {
			return nil, err
		}
		name = ref
	}
	tbl, err := s.db.GetTable(name)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "table %q not found: %v", name, err)
	}

	schema, err := flightwire.ArrowSchema(tbl.Batch().Schema)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "convert schema: %v", err)
	}
	return &flight.SchemaResult{Schema: flight.SerializeSchema(schema, s.alloc)}, nil
}

// DoGet executes the ticket's bytes as SQL and streams the result: the
// schema message first, then the IPC-encoded record batches. An empty
// result set is an error, so a client always receives at least one
// data message after the schema.
func (s *Server) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	reqID := uuid.New().String()
	if !utf8.Valid(tkt.Ticket) {
		return status.Error(codes.InvalidArgument, "ticket is not valid UTF-8")
	}
	sql := string(tkt.Ticket)
	log.Printf("flightsrv do_get[%s] sql=%q", reqID, sql)

	df, err := query.Query(s.db, s.eng, sql)
	if err != nil {
		return status.Errorf(codes.Internal, "query %q: %v", sql, err)
	}
	result, err := df.Materialize()
	if err != nil {
		return status.Errorf(codes.Internal, "query %q: %v", sql, err)
	}
	if result.NumRows() == 0 {
		return status.Errorf(codes.Internal, "query %q returned no rows", sql)
	}

	rec, err := flightwire.ToRecord(s.alloc, result)
	if err != nil {
		return status.Errorf(codes.Internal, "convert batch: %v", err)
	}
	defer rec.Release()

	w := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(s.alloc))
	defer w.Close()
	if err := w.Write(rec); err != nil {
		return status.Errorf(codes.Internal, "write record: %v", err)
	}
	return nil
}
