package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rtsp2hls/internal/bridge"
	"rtsp2hls/internal/platform/config"
	"rtsp2hls/internal/platform/limiter"
	"rtsp2hls/internal/platform/logger"
	"rtsp2hls/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

// Exit codes: configuration and startup problems exit 1, fatal runtime
// conditions exit 2. Recovery is left to the external process supervisor
// that restarts the whole unit.
const (
	exitConfig  = 1
	exitRuntime = 2
)

func main() {
	_ = config.Load()

	log := logger.New(
		config.GetEnv("LOG_LEVEL", "info"),
		config.GetEnv("LOG_FORMAT", "json"),
	)

	cfg, err := config.New()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(exitConfig)
	}

	met := metrics.New()

	// Every component that detects an unrecoverable condition reports it
	// here; termination happens in exactly one place below.
	failures := make(chan bridge.Failure, 1)

	trans := bridge.NewTranscoder(cfg.Source, cfg.TempDir, cfg.VerifyTLS, log)
	handle, err := trans.Start(failures)
	if err != nil {
		log.Error("cannot start transcoder", "error", err)
		os.Exit(exitConfig)
	}
	defer handle.Stop()

	watchCtx, stopWatchdog := context.WithCancel(context.Background())
	defer stopWatchdog()
	period := bridge.SegmentDuration * time.Duration(cfg.Grace)
	wd := bridge.NewWatchdog(cfg.TempDir, period, handle, log, met)
	go wd.Run(watchCtx, failures)

	h := bridge.NewHandler(cfg.TempDir, log, met)
	health := bridge.NewHealth(cfg.TempDir, handle, log)
	updateGauges := func() {
		met.SetSegmentsCurrent(bridge.CountFragments(cfg.TempDir))
		alive, _ := handle.IsAlive()
		met.SetTranscoderUp(alive)
	}
	r := newRouter(log, met, cfg.MaxConn, h, health, updateGauges)

	srv := &http.Server{Addr: cfg.Listen, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			handle.Stop()
			os.Exit(exitConfig)
		}
	}()

	log.Info("bridge started",
		"listen", cfg.Listen,
		"segment_dir", cfg.TempDir,
		"grace", cfg.Grace,
		"maxconn", cfg.MaxConn,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case f := <-failures:
		if f.Err != nil {
			log.Error(f.Kind.String(), "error", f.Err)
		} else {
			log.Error(f.Kind.String())
		}
		handle.Stop()
		os.Exit(exitRuntime)
	case sig := <-sigCh:
		log.Info("shutdown signal received, draining connections", "signal", sig.String())
	}

	stopWatchdog()
	handle.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// newRouter assembles the HTTP surface: streaming routes, health, metrics,
// and the middleware stack (request IDs, request logging, request metrics,
// connection cap).
func newRouter(log *slog.Logger, met *metrics.Metrics, maxConn int, h *bridge.Handler, health http.Handler, updateGauges func()) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.RequestID())
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(limiter.Middleware(int64(maxConn)))
	r.Method(http.MethodGet, "/metrics", met.Handler(updateGauges))
	r.Method(http.MethodGet, "/healthz", health)
	h.Register(r)
	return r
}
