// Command columndb starts the columnar store's Arrow Flight RPC
// server, optionally pre-loading a directory of Parquet files and
// persisting the database back to disk on shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"google.golang.org/grpc"

	"github.com/colbase/colbase/internal/config"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/engine"
	"github.com/colbase/colbase/internal/flightsrv"
	"github.com/colbase/colbase/internal/parquetio"
)

type options struct {
	Config   string `long:"config" description:"JSON config file (defaults: COLUMNDB_CONFIG env var, ./config.json, /etc/columndb/config.json)" value-name:"path"`
	Host     string `long:"host" description:"override the configured listen host"`
	Port     int    `long:"port" description:"override the configured listen port"`
	DataDir  string `long:"data-dir" description:"directory of .parquet files to load at startup" value-name:"dir"`
	SaveDir  string `long:"save-dir" description:"directory to write .parquet files to on shutdown" value-name:"dir"`
	Name     string `long:"name" description:"database name" default:"columndb"`
	RefTable string `long:"ref-table" description:"table whose schema the Flight get_schema command answers with (defaults to the database's only table)"`
	Version  bool   `long:"version" description:"print the version and exit"`
}

var version = "dev"

func parseOptions(args []string) *options {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	return &opts
}

func main() {
	opts := parseOptions(os.Args[1:])

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}

	eng := engine.New()
	var db *database.Database
	if opts.DataDir != "" {
		db, err = parquetio.LoadDatabase(opts.DataDir, eng)
		if err != nil {
			log.Fatalf("load data dir %s: %v", opts.DataDir, err)
		}
	} else {
		db = database.New(opts.Name, eng)
	}

	listener, err := net.Listen("tcp", cfg.GetListenAddress())
	if err != nil {
		log.Fatalf("listen on %s: %v", cfg.GetListenAddress(), err)
	}

	grpcServer := grpc.NewServer()
	flightsrv.Register(grpcServer, db, eng, opts.RefTable)

	log.Printf("columndb listening on %s (database %q)", cfg.GetListenAddress(), db.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("serve error: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutting down")
		grpcServer.GracefulStop()
	}

	if opts.SaveDir != "" {
		if err := parquetio.SaveDatabase(db, opts.SaveDir); err != nil {
			log.Fatalf("save data dir %s: %v", opts.SaveDir, err)
		}
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	if opts.Config != "" {
		return config.LoadConfig(opts.Config)
	}
	return config.LoadConfigOrDefault(), nil
}
