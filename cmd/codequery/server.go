package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"codequery/internal/api"
	"codequery/internal/config"
	"codequery/internal/data"
	"codequery/internal/gateway"
	"codequery/internal/logger"
	"codequery/internal/query"
	"codequery/internal/service"
	"codequery/internal/settings"
)

// runServer serves until SIGINT/SIGTERM or until stop is closed.
func runServer(stop <-chan struct{}, interactive bool) error {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	l, err := logger.Init(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer l.Sync()
	log := zap.S().Named("server")
	log.Infow("starting codequery", "exeDir", cfg.ExeDir, "settingsDir", cfg.SettingsDir)

	// 3. Settings, repaired and loaded before the first request
	store := newSettingsStore(cfg)
	loaded := store.Reload(context.Background())
	log.Infow("settings ready",
		"targets", store.Targets(),
		"source", store.Source(),
		"connections", len(loaded.Connections),
		"products", len(loaded.Products),
	)

	// 4. Export journal
	opts := []service.Option{service.WithTimeout(cfg.QueryTimeout)}
	if cfg.HistoryDB != "" {
		db, err := data.InitDB(cfg.HistoryDB)
		if err != nil {
			log.Warnw("export journal disabled", "path", cfg.HistoryDB, "error", err)
		} else {
			defer db.Close()
			opts = append(opts, service.WithHistory(data.NewHistoryRepo(db)))
		}
	}

	// 5. Services and handlers
	gw := gateway.New(gateway.Options{SSLMode: cfg.SSLMode, ConnectTimeout: cfg.ConnectTimeout})
	reports := service.NewReportService(gw, query.NewBuilder(), opts...)
	handler := api.NewHandler(reports, store)
	if cfg.RateLimit > 0 {
		handler.WithRateLimiter(api.NewRateLimiter(float64(cfg.RateLimit), cfg.RateBurst))
	}
	router := api.NewRouter(handler, cfg.DistPath)

	// 6. Start Server
	ln, port, err := listen(cfg.Port, cfg.PortScanAttempts)
	if err != nil {
		log.Errorw("server startup failed", "error", err)
		return err
	}
	if port != cfg.Port {
		log.Warnw("configured port busy, using next free port", "configured", cfg.Port, "port", port)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server listening", "port", port)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	url := fmt.Sprintf("http://localhost:%d", port)
	if interactive && !cfg.SuppressAutoOpen {
		if err := browser.OpenURL(url); err != nil {
			log.Warnw("failed to open browser", "url", url, "error", err)
		}
	}

	// Graceful shutdown channel
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-signals:
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			log.Errorw("server failed", "error", err)
			return err
		}
	}
	log.Infow("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server shutdown error", "error", err)
	}
	log.Infow("server stopped")
	return nil
}

func newSettingsStore(cfg *config.Config) *settings.Store {
	return settings.NewStore(afero.NewOsFs(), settings.Targets(cfg.SettingsFile, cfg.ExeDir, cfg.SettingsDir))
}

// listen binds the first free port in [port, port+attempts).
func listen(port, attempts int) (net.Listener, int, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port+i))
		if err == nil {
			return ln, port + i, nil
		}
		if !isAddrInUse(err) {
			return nil, 0, err
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d: %w", port, port+attempts-1, lastErr)
}
