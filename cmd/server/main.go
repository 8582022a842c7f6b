package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"statbridge/internal/cache"
	"statbridge/internal/fetch"
	"statbridge/internal/platform/config"
	"statbridge/internal/platform/httpserver"
	"statbridge/internal/platform/logger"
	"statbridge/internal/platform/metrics"
	"statbridge/internal/platform/redis"
	"statbridge/internal/region"
	"statbridge/internal/routing"
	"statbridge/internal/series/service"
	httptransport "statbridge/internal/transport/http"
)

// frontTTL bounds how long the in-process tier may serve a response that
// the shared Redis tier also holds.
const frontTTL = time.Minute

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "statbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	responses := cache.NewMemory[[]byte](cache.WithName("responses"), cache.WithRecorder(m))
	responses.StartJanitor(ctx, cfg.Cache.CleanupInterval)
	var store cache.Store = cache.NewMemoryStore(responses)

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		shared, err := cache.NewRedis(rc.Client, cache.WithPrefix("statbridge:"))
		if err != nil {
			return err
		}
		store = cache.NewTiered(store, shared, frontTTL, log)
		log.Info("shared response cache enabled")
	}

	client := fetch.NewClient(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithPolicy(fetch.Policy{
			Tries:          cfg.Fetch.Retries,
			BaseDelay:      cfg.Fetch.BaseDelay,
			RateLimitFloor: cfg.Fetch.RateLimitFloor,
		}),
		fetch.WithCache(store, cfg.Cache.TTL),
		fetch.WithLogger(log),
		fetch.WithRecorder(m),
	)

	crosswalk := region.New()
	if err := crosswalk.Ready(); err != nil {
		return err
	}

	registry, err := buildRegistry(catalog, client, cfg.Circuit, log, m)
	if err != nil {
		return err
	}

	aliases := buildAliases(catalog, log)
	policy := routing.NewPolicy(routingConfig(catalog, crosswalk),
		routing.WithLogger(log),
		routing.WithRecorder(m),
	)

	results := cache.NewMemory[service.Result](cache.WithName("series"), cache.WithRecorder(m))
	results.StartJanitor(ctx, cfg.Cache.CleanupInterval)
	svc := service.New(registry, policy, aliases, crosswalk,
		service.WithLogger(log),
		service.WithCache(results, cfg.Cache.TTL),
		service.WithConversionRecorder(m),
		service.WithIndicators(indicators(catalog)),
	)

	handler := httptransport.NewHandler(svc, aliases, crosswalk, registry, log)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Logger:   log,
		Latency:  m,
		Gatherer: reg,
		// Every candidate may spend its full retry budget.
		RequestTimeout: time.Duration(cfg.Fetch.Retries+1) * cfg.Fetch.Timeout,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting statbridge",
			"addr", cfg.Server.Addr,
			"providers", len(registry.All()),
			"indicators", len(catalog.Indicators),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
