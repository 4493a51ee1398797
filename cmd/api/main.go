package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"closetapi/bootstrap"
	"closetapi/config"
	"closetapi/controllers"
	"closetapi/logging"
	"closetapi/metrics"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.Env)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	flush, err := bootstrap.InitSentry(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init sentry")
	}
	defer flush()
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	stylist, err := bootstrap.NewStylist(ctx, cfg, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build stylist")
	}
	defer stylist.Close()

	deps := controllers.ServerDeps{
		Stylist:   stylist,
		Metrics:   registry,
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
	}
	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if store != nil {
		if cfg.JWTSecret == "" {
			log.Fatal().Msg("JWT_SECRET is required when a database is configured")
		}
		deps.Store = store
	} else {
		log.Warn().Msg("DB_HOST not set, profile routes are disabled")
	}

	e := controllers.SetupServer(deps)
	e.Debug = cfg.IsLocal()

	go func() {
		log.Info().Str("address", cfg.Address).Str("provider", cfg.LLMProvider).Msg("starting api")
		if err := e.Start(cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
