// Package flightclient implements the client side of the Flight RPC
// surface internal/flightsrv exposes: get_schema and do_get only. The
// schema travels as the first stream message; every later message is a
// record batch decoded against it.
package flightclient

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/flightwire"
)

// getSchemaCmd is the command the server's GetSchema recognizes as
// "the reference table's schema".
const getSchemaCmd = "get_schema"

// Client holds a gRPC connection to a flightsrv.Server.
type Client struct {
	conn   *grpc.ClientConn
	client flight.FlightServiceClient
	alloc  memory.Allocator
}

// Dial opens an insecure gRPC connection to addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial flight server %s: %w", addr, err)
	}
	return NewFromConn(conn), nil
}

// NewFromConn builds a Client over an already-established gRPC
// connection, letting callers supply their own dialer (e.g. an
// in-memory bufconn listener in tests) instead of Dial's addr-based
// one.
func NewFromConn(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, client: flight.NewFlightServiceClient(conn), alloc: memory.NewGoAllocator()}
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Schema fetches the server's reference-table schema.
func (c *Client) Schema(ctx context.Context) (*arrowcol.Schema, error) {
	return c.schemaFor(ctx, getSchemaCmd)
}

// TableSchema fetches name's schema from the server.
func (c *Client) TableSchema(ctx context.Context, name string) (*arrowcol.Schema, error) {
	return c.schemaFor(ctx, name)
}

func (c *Client) schemaFor(ctx context.Context, cmd string) (*arrowcol.Schema, error) {
	res, err := c.client.GetSchema(ctx, &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: []byte(cmd)})
	if err != nil {
		return nil, fmt.Errorf("get_schema %s: %w", cmd, err)
	}
	schema, err := flight.DeserializeSchema(res.Schema, c.alloc)
	if err != nil {
		return nil, fmt.Errorf("decode schema for %s: %w", cmd, err)
	}
	return flightwire.SchemaFromArrow(schema)
}

// Query executes sql on the server via do_get and decodes every record
// batch the stream carries. The schema travels as the stream's first
// message; each data message decodes against it.
func (c *Client) Query(ctx context.Context, sql string) ([]*batch.Batch, error) {
	stream, err := c.client.DoGet(ctx, &flight.Ticket{Ticket: []byte(sql)})
	if err != nil {
		return nil, fmt.Errorf("do_get %q: %w", sql, err)
	}

	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("open record reader for %q: %w", sql, err)
	}
	defer reader.Release()

	var batches []*batch.Batch
	for reader.Next() {
		rec := reader.RecordBatch()
		b, err := flightwire.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("decode batch for %q: %w", sql, err)
		}
		batches = append(batches, b)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read stream for %q: %w", sql, err)
	}
	return batches, nil
}
