// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database/memdb"

	"github.com/ava-labs/tracevm/render"
	"github.com/ava-labs/tracevm/tracevm"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := getConfig(os.Args[1:])
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if cfg.printVersion {
		fmt.Printf("%s@%s\n", tracevm.Name, tracevm.Version)
		os.Exit(0)
	}

	lvl, err := log.LvlFromString(cfg.logLevel)
	if err != nil {
		fmt.Printf("couldn't parse log level: %s\n", err)
		os.Exit(1)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	if err := run(cfg); err != nil {
		log.Error("tracevm exited with an error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	server, err := tracevm.New(cfg.server, memdb.New())
	if err != nil {
		return err
	}
	server.Subscribe(&render.LogView{Log: log.New("module", "view")})
	if cfg.console {
		server.Subscribe(&render.Counters{W: os.Stdout})
		server.Subscribe(&render.FlowDiagram{W: os.Stdout})
		server.Subscribe(&render.StatePanel{W: os.Stdout})
		server.Subscribe(&render.StorageTable{W: os.Stdout})
	}

	mux := http.NewServeMux()
	handlers, err := server.CreateHandlers()
	if err != nil {
		return err
	}
	staticHandlers, err := server.CreateStaticHandlers()
	if err != nil {
		return err
	}
	for _, m := range []map[string]http.Handler{handlers, staticHandlers} {
		for path, handler := range m {
			mux.Handle(path, handler)
		}
	}

	addr := net.JoinHostPort(cfg.httpHost, strconv.Itoa(int(cfg.httpPort)))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("HTTP API listening", "addr", addr)
		errs <- httpServer.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		log.Info("received signal, shutting down", "signal", sig)
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = server.Shutdown()
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("HTTP server didn't shut down cleanly", "err", err)
	}
	return server.Shutdown()
}
