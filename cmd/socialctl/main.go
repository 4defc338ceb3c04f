package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	backendhttp "github.com/pribylovaa/go-social-client/internal/backend/http"
	"github.com/pribylovaa/go-social-client/internal/backend/service"
	"github.com/pribylovaa/go-social-client/internal/backend/storage/memory"
	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/config"
	"github.com/pribylovaa/go-social-client/internal/events"
	"github.com/pribylovaa/go-social-client/internal/mockapi"
	"github.com/pribylovaa/go-social-client/internal/services"
	"github.com/pribylovaa/go-social-client/internal/session"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	exitOK    = 0
	exitErr   = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	fs := flag.NewFlagSet("socialctl", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "path to config file")
	fs.Usage = func() { usage(fs.Output()) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		return exitUsage
	}

	args := fs.Args()
	if len(args) == 0 {
		usage(os.Stderr)
		return exitUsage
	}

	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.minArgs {
		usage(os.Stderr)
		return exitUsage
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitErr
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitErr
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logctx.Into(ctx, log)

	a, closeApp, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("app_init_failed", slog.String("err", err.Error()))
		return exitErr
	}
	defer closeApp()

	expired, unsubscribe := a.bus.Subscribe()
	defer unsubscribe()

	out, err := cmd.run(ctx, a, args[1:])

	select {
	case <-expired:
		fmt.Fprintln(os.Stderr, "session expired, please log in again")
	default:
	}

	if err != nil {
		log.Debug("command_failed", slog.String("command", args[0]), slog.String("err", err.Error()))
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitErr
	}

	if out != nil {
		if err := printJSON(os.Stdout, out); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return exitErr
		}
	}

	return exitOK
}

// app — собранные зависимости одной команды.
type app struct {
	api   client.API
	store session.Store
	bus   *events.Bus
	svc   *services.Services
}

// newApp выбирает реальный HTTP-клиент или in-process mockapi по api.use_mock.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, func(), error) {
	const op = "socialctl.newApp"

	store, closeStore, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	cleanup := func() {
		if cerr := closeStore(); cerr != nil {
			log.Warn("session_close_failed", slog.String("err", cerr.Error()))
		}
	}

	bus := events.NewBus()

	var api client.API
	if cfg.API.UseMock {
		handler, err := inProcessBackend(ctx, cfg.Backend, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		api = mockapi.New(handler, store, mockapi.WithLogger(log))
		log.Debug("api_mode", slog.String("mode", "mock"))
	} else {
		opts := client.OptionsFromConfig(cfg.API)
		opts.Store = store
		opts.Bus = bus
		opts.Logger = log

		c, err := client.New(opts)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		api = c
		log.Debug("api_mode", slog.String("mode", "http"), slog.String("base_url", cfg.API.BaseURL))
	}

	return &app{
		api:   api,
		store: store,
		bus:   bus,
		svc:   services.New(api, store, cfg.API, log),
	}, cleanup, nil
}

// inProcessBackend поднимает dev-бэкенд в памяти процесса с демо-данными.
func inProcessBackend(ctx context.Context, cfg config.BackendConfig, log *slog.Logger) (http.Handler, error) {
	svc := service.New(memory.New(), cfg)
	if !cfg.SkipSeed {
		if err := svc.Seed(ctx); err != nil {
			return nil, err
		}
	}

	return backendhttp.NewRouter(svc, backendhttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeout,
		BasePath: "/api",
	}), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return nil
}

// errUsage — неверные аргументы команды.
var errUsage = errors.New("invalid arguments, run socialctl without arguments for help")

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
