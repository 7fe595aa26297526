package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pockettune/radiosync/internal/api"
	"github.com/pockettune/radiosync/internal/config"
	"github.com/pockettune/radiosync/internal/engine"
	"github.com/pockettune/radiosync/internal/kvstore"
	"github.com/pockettune/radiosync/internal/library"
	"github.com/pockettune/radiosync/internal/netmon"
	"github.com/pockettune/radiosync/internal/queue"
	"github.com/pockettune/radiosync/internal/remote"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Path to configuration file (TOML)")
	userID := flag.String("user", "", "Authenticated user id (from the identity provider)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("starting radiosync daemon")

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *userID == "" {
		slog.Error("a user id is required (-user)")
		os.Exit(1)
	}

	// Open local storage
	slog.Info("opening local storage", "driver", cfg.Storage.Driver, "dsn", cfg.Storage.DSN)
	store, err := kvstore.OpenWithConfig(cfg.Storage)
	if err != nil {
		slog.Error("failed to open local storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Remote document store client
	client, err := remote.NewClient(cfg.Remote.BaseURL,
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithUserAgent(cfg.Remote.UserAgent))
	if err != nil {
		slog.Error("failed to build remote client", "error", err)
		os.Exit(1)
	}

	// Connectivity prober, aimed at the remote host unless overridden
	probeCfg := cfg.Probe
	if probeCfg.Address == "" {
		probeCfg.Address = probeAddress(cfg.Remote.BaseURL)
	}
	monitor := netmon.NewProber(probeCfg, logger)
	monitor.Start()
	defer monitor.Shutdown()
	slog.Info("connectivity prober started", "address", probeCfg.Address, "online", monitor.Online())

	// Sync engine and local station library
	pending := queue.New(store, cfg.Sync.QueueKey, logger)
	eng, err := engine.New(cfg.Sync, client, pending, monitor, logger)
	if err != nil {
		slog.Error("failed to build sync engine", "error", err)
		os.Exit(1)
	}
	lib := library.New(store, "", eng, *userID, logger)
	handler := api.NewHandler(lib, eng, *userID, logger)

	// React to connectivity restoration with a queue drain and full resync
	stopListener := eng.StartNetworkListener(*userID, handler.Resync())
	defer stopListener()

	// Initial reconciliation pass for the signed-in user
	go handler.Resync()(context.Background())

	// Local HTTP API
	var server *http.Server
	if cfg.HTTP.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)
		server = &http.Server{
			Addr:    addr,
			Handler: api.NewRouter(handler),
		}
		go func() {
			slog.Info("http api listening", "address", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server failed", "error", err)
				os.Exit(1)
			}
		}()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown incomplete", "error", err)
		}
	}

	eng.Reset()
	slog.Info("shutdown complete")
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// probeAddress derives a host:port dial target from the remote base URL.
func probeAddress(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return u.Host + ":443"
	}
	return u.Host + ":80"
}
