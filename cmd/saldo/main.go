package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/backend"
	"saldo/internal/cli"
	apphttp "saldo/internal/http"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/recurrence"
	"saldo/internal/store"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("SALDO_LOG_LEVEL"), os.Getenv("SALDO_LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	st := store.New(
		store.WithLogger(logger.With(applog.FieldComponent, applog.ComponentStore)),
		store.WithHistoryLimit(cfg.History.MaxItems))

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backendCfg.Versions = st

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	state, err := result.Gateway.LoadState(ctx)
	if err != nil {
		logger.Error("Failed to load stored state", "error", err)
		os.Exit(1)
	}
	st.Load(state)
	logger.Info("State loaded",
		"accounts", len(state.Accounts),
		"active_account_id", st.ActiveAccountID())

	flusher := store.NewFlusher(st, result.Persister, cfg.Persist.Debounce, logger)
	st.OnChange(flusher.MarkDirty)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Store:        st,
		Aggregator:   ledger.NewViewAggregator(logger),
		ServerExpander: recurrence.NewExpander(
			recurrence.WithIDStyle(recurrence.ServerIDs),
			recurrence.WithCap(cfg.Recurrence.Cap),
			recurrence.WithLogger(logger)),
		HorizonMonths: cfg.Recurrence.HorizonMonths,
		Readiness:     result.Gateway,
		RateLimit: ratelimit.Config{
			RPS:             cfg.RateLimit.RPS,
			Burst:           cfg.RateLimit.Burst,
			CleanupInterval: ratelimit.DefaultConfig().CleanupInterval,
			IdleTTL:         ratelimit.DefaultConfig().IdleTTL,
		},
		CacheSize: cfg.Cache.Size,
		CacheTTL:  cfg.Cache.TTL,
		Logger:    logger,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting saldo server",
			"addr", cfg.Addr(),
			"backend", cfg.Storage.Backend,
			"sync", cfg.AMQP.URL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		// In-flight requests have drained, so this write sees every mutation.
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer flushCancel()
		return flusher.Close(flushCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
