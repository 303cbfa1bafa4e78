package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/islandman/hotel-listing/internal/api"
	"github.com/islandman/hotel-listing/internal/api/handler"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), rt)
		},
	}
}

func serve(parent context.Context, rt *cliState) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log := rt.cfg, rt.log
	var hooks cleanup
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hooks.run(shutdownCtx)
	}()

	store, err := openStore(ctx, cfg, log, cfg.DB.AutoMigrate)
	if err != nil {
		return err
	}
	hooks.add(func(context.Context) { _ = store.Close() })

	readiness := map[string]handler.Pinger{"database": store}

	principals, probes, err := openIdentityStore(ctx, cfg, store, log, &hooks)
	if err != nil {
		return err
	}
	for name, p := range probes {
		readiness[name] = p
	}

	limiter, probes, err := openLimiterStore(ctx, cfg, log, &hooks)
	if err != nil {
		return err
	}
	for name, p := range probes {
		readiness[name] = p
	}
	rules, err := cfg.RateLimit.Rules()
	if err != nil {
		return err
	}

	auth, tokens, err := newAuthService(cfg, principals)
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		Auth:           auth,
		Tokens:         tokens,
		Units:          store,
		RateLimitStore: limiter,
		RateLimitRules: rules,
		Cache:          cfg.Cache.Policy(),
		Readiness:      readiness,
		ExposeMetrics:  true,
		Log:            log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
