package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/api"
	"github.com/orbitwatch/orbitwatch/internal/auth"
	"github.com/orbitwatch/orbitwatch/internal/catalog"
	"github.com/orbitwatch/orbitwatch/internal/config"
	"github.com/orbitwatch/orbitwatch/internal/conjunction"
	"github.com/orbitwatch/orbitwatch/internal/httputil"
	"github.com/orbitwatch/orbitwatch/internal/metrics"
	"github.com/orbitwatch/orbitwatch/internal/propagation"
	"github.com/orbitwatch/orbitwatch/internal/risk"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search orbitwatch.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	store := catalog.NewStore()
	loader := catalog.NewLoader(
		catalog.NewFetcher(cfg.Catalog.BaseURL, cfg.Catalog.FetchTimeout, logger),
		catalog.NewCache(cfg.Catalog.CacheDir, cfg.Catalog.CacheTTL),
		store,
		cfg.Catalog.Groups,
		logger,
	)

	prop := propagation.NewPropagator(propagation.WGS72(), propagation.NewtonOptions{
		Tolerance: cfg.Propagation.NewtonTolerance,
		MaxIter:   cfg.Propagation.NewtonMaxIter,
	})

	table, err := risk.NewTable(cfg.Risk.CriticalKm, cfg.Risk.WarningKm)
	if err != nil {
		logger.Error("invalid risk thresholds", "error", err)
		os.Exit(1)
	}
	analyzer := conjunction.NewAnalyzer(prop, conjunction.Options{
		CoarseStep:      cfg.Conjunction.CoarseStep,
		RefineTolerance: cfg.Conjunction.RefineTolerance,
		MaxRefineIter:   cfg.Conjunction.MaxRefineIter,
	}, table)

	limiter := httputil.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst,
		cfg.Server.TrustProxy, []string{"/healthz", "/readyz", "/metrics"}, logger)

	authCfg := auth.Config{Enabled: cfg.Auth.Token != "", Token: cfg.Auth.Token}

	srv := api.NewServer(cfg.Server.Addr, logger, api.Deps{
		Auth:     authCfg,
		Limiter:  limiter,
		Store:    store,
		Loader:   loader,
		Prop:     prop,
		Fleet:    propagation.NewFleetPool(0, logger),
		Analyzer: analyzer,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial load: the remote source first, cached files as fallback. A
	// failure here is survivable: the server starts unready and the
	// refresh ticker keeps retrying.
	loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	n, err := loader.Refresh(loadCtx)
	cancel()
	if err != nil {
		metrics.IncCatalogFetchFailures()
		logger.Warn("initial catalog load failed, starting unready", "error", err)
	} else {
		metrics.SetCatalogObjects(n)
		logger.Info("catalog loaded", "objects", n, "groups", cfg.Catalog.Groups)
	}

	// Periodic catalog refresh.
	go func() {
		ticker := time.NewTicker(cfg.Catalog.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := loader.Refresh(ctx)
				if err != nil {
					metrics.IncCatalogFetchFailures()
					logger.Warn("catalog refresh failed", "error", err)
					continue
				}
				metrics.SetCatalogObjects(n)
				logger.Info("catalog refreshed", "objects", n)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Snapshot age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Addr,
			"auth_enabled", authCfg.Enabled,
			"groups", cfg.Catalog.Groups,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
