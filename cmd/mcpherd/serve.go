package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcpherd/mcpherd"
	"github.com/mcpherd/mcpherd/internal/history"
	"github.com/mcpherd/mcpherd/internal/logger"
)

// runServe wires the daemon: config store, logger, metrics, history
// sinks, and the HTTP API, then blocks until SIGINT/SIGTERM.
func runServe(flags *ServeFlags) error {
	log := logger.New(logger.Config{Level: flags.LogLevel, File: flags.LogFile})

	mgr, err := mcpherd.NewManagerFromFile(flags.ConfigPath, log)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if err := mcpherd.RegisterMetricsDefault(); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	sinks, closers, err := buildHistorySinks(flags)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()
	if len(sinks) > 0 {
		mgr.SetHistorySinks(sinks...)
	}

	srv, err := mgr.NewHTTPServer(flags.Listen, flags.BasePath)
	if err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	log.Info("daemon listening", "addr", flags.Listen, "base_path", flags.BasePath, "servers", len(mgr.Servers()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())

	// Stop managed servers first so their monitors can reap them, then
	// close the API.
	for _, id := range mgr.Servers() {
		if st := mgr.Status(id); st.State == mcpherd.StateRunning || st.State == mcpherd.StateStarting {
			if _, err := mgr.Stop(id); err != nil {
				log.Warn("stop during shutdown failed", "id", id, "error", err)
			}
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func buildHistorySinks(flags *ServeFlags) ([]history.Sink, []func() error, error) {
	var sinks []history.Sink
	var closers []func() error
	if flags.HistoryDSN != "" {
		s, err := history.NewSQLSinkFromDSN(flags.HistoryDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open history store: %w", err)
		}
		sinks = append(sinks, s)
		closers = append(closers, s.Close)
	}
	if flags.ClickHouse != "" {
		s, err := history.NewClickHouseSink(flags.ClickHouse, "mcpherd_history")
		if err != nil {
			return nil, nil, fmt.Errorf("open clickhouse history: %w", err)
		}
		sinks = append(sinks, s)
		closers = append(closers, s.Close)
	}
	if flags.OpenSearch != "" {
		sinks = append(sinks, history.NewOpenSearchSink(flags.OpenSearch, flags.OSIndex))
	}
	return sinks, closers, nil
}
