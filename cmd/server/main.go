package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vn.io.arda/directory/internal/application"
	"vn.io.arda/directory/internal/config"
	"vn.io.arda/directory/internal/infrastructure/keycloak"
	transporthttp "vn.io.arda/directory/internal/transport/http"
	"vn.io.arda/directory/internal/transport/mw"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("env", cfg.Server.Env).
		Str("port", cfg.Server.Port).
		Str("realm", cfg.Keycloak.Realm).
		Msg("starting directory gateway")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── IdP Client (Keycloak Admin API) ──────────────────────────────────────
	idp := keycloak.New(
		cfg.Keycloak.BaseURL,
		cfg.Keycloak.Realm,
		cfg.Keycloak.ClientID,
		cfg.Keycloak.ClientSecret,
	)

	// ── Application Service ──────────────────────────────────────────────────
	svc := application.NewService(idp)

	// ── HTTP Server ──────────────────────────────────────────────────────────
	guard, err := mw.NewGuard(ctx, cfg.Keycloak.BaseURL, cfg.Keycloak.Realm)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up bearer guard")
	}
	limiter := mw.NewRateLimiter(cfg.RateLimit.RegisterInterval, cfg.RateLimit.RegisterBurst)

	handler := transporthttp.NewHandler(svc)
	router := transporthttp.NewRouter(handler, guard, limiter, cfg.CORS.AllowOrigins)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("directory gateway stopped")
}
