package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	backendhttp "github.com/pribylovaa/go-social-client/internal/backend/http"
	"github.com/pribylovaa/go-social-client/internal/backend/service"
	"github.com/pribylovaa/go-social-client/internal/backend/storage"
	"github.com/pribylovaa/go-social-client/internal/backend/storage/memory"
	"github.com/pribylovaa/go-social-client/internal/backend/storage/minio"
	"github.com/pribylovaa/go-social-client/internal/backend/storage/postgres"
	"github.com/pribylovaa/go-social-client/internal/config"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting mock-backend", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	store, closeStore, err := openStorage(rootCtx, cfg.Backend, log)
	if err != nil {
		log.Error("storage_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	svc := service.New(store, cfg.Backend)

	if !cfg.Backend.SkipSeed {
		if err := svc.Seed(logctx.Into(rootCtx, log)); err != nil {
			log.Error("seed_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	apiHandler := backendhttp.NewRouter(svc, backendhttp.Options{
		Logger:     log,
		Timeout:    cfg.Backend.Timeout,
		BasePath:   "/api",
		Registerer: reg,
	})

	// HTTP readiness/liveness/metrics на отдельном порту.
	var ready int32 // 0 — not ready; 1 — ready
	opsAddr := cfg.Metrics.Addr()

	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	opsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	opsSrv := &http.Server{
		Addr:              opsAddr,
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("ops_listen_start", slog.String("addr", opsAddr))
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops_serve_failed", slog.String("err", err.Error()))
		}
	}()

	httpAddr := cfg.Backend.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("backend_ready", slog.Bool("seeded", !cfg.Backend.SkipSeed))

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops_shutdown_incomplete", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

// openStorage выбирает хранилище по конфигу; при заданном S3 медиа уходят в MinIO.
func openStorage(ctx context.Context, cfg config.BackendConfig, log *slog.Logger) (storage.Storage, func(), error) {
	var (
		st      storage.Storage
		closeFn func()
	)

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pg, err := postgres.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}

		st, closeFn = pg, pg.Close
	default:
		mem := memory.New()
		st, closeFn = mem, mem.Close
	}

	log.Info("storage_ready", slog.String("driver", cfg.Storage.Driver))

	if cfg.S3.Enabled() {
		media, err := minio.New(ctx, cfg.S3)
		if err != nil {
			closeFn()
			return nil, nil, err
		}

		st = minio.WithMedia(st, media)
		log.Info("media_storage_ready", slog.String("bucket", cfg.S3.Bucket))
	}

	return st, closeFn, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
