// Glance daemon - samples the screen, interprets it, and serves the shell API.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glancelog/glance/internal/analysis"
	"github.com/glancelog/glance/internal/artifact"
	"github.com/glancelog/glance/internal/capture"
	"github.com/glancelog/glance/internal/config"
	"github.com/glancelog/glance/internal/gate"
	"github.com/glancelog/glance/internal/logbuf"
	"github.com/glancelog/glance/internal/screen"
	"github.com/glancelog/glance/internal/server"
	"github.com/glancelog/glance/internal/store"
	"github.com/glancelog/glance/internal/synthesis"
)

func main() {
	cfg := config.Load()

	// Log to stdout and to the in-memory ring behind /api/logs.
	logs := logbuf.New(logbuf.DefaultCapacity)
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stdout, logs), &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open store", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	artifacts, err := artifact.NewStore(cfg.DataDir)
	if err != nil {
		slog.Error("failed to prepare artifact dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	source := screen.NewSource(cfg.CaptureTimeout)
	defer source.Close()

	client := analysis.NewClient(analysis.DefaultTimeout)
	sched := capture.New(st, source, client, gate.New(), artifacts)
	summaries := synthesis.NewGenerator(st, client)

	srv := server.New(st, sched, summaries, artifacts, logs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resume automatic capture if it was enabled last run. A missing API
	// key is not fatal; the shell can configure one and start it later.
	if settings, err := st.Settings(ctx); err != nil {
		slog.Error("failed to load settings", "error", err)
	} else if settings.AutoCaptureEnabled {
		if err := sched.Start(ctx); err != nil {
			slog.Warn("auto capture not resumed", "error", err)
		}
	}

	stopCh := make(chan struct{})
	go summaries.RunDaily(stopCh)

	httpServer := newHTTPServer(cfg.HTTPAddr, srv.Handler())

	go func() {
		slog.Info("glance daemon starting", "http", cfg.HTTPAddr, "data", cfg.DataDir)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()
	close(stopCh)
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// newHTTPServer bounds reading the request but sets no write deadline:
// trigger and summary handlers hold the response open for the length of an
// interpretation call, which the analysis client timeout bounds instead.
func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     h,
		ReadTimeout: 10 * time.Second,
	}
}
