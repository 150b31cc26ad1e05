package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mockexchange-dash/internal/cfg"
	"mockexchange-dash/internal/exchange/mockx"
	"mockexchange-dash/internal/metrics"
	"mockexchange-dash/internal/refresh"
	"mockexchange-dash/internal/storage"
	"mockexchange-dash/internal/web"
)

func main() {
	setupLogging()

	// A local .env is a convenience, not a requirement.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	client := mockx.NewREST(c.APIURL, c.APIKey, c.RESTTimeout)

	history := initializeHistory(c)
	if history != nil {
		defer history.Close()
	}

	refresher := refresh.New(c, client, m, history)
	// Warm up synchronously so the first page render already has data.
	refresher.RefreshNow(ctx)
	go refresher.Run(ctx)

	server := web.NewServer(c, refresher, m, history)
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("dashboard server start failed")
	}

	log.Info().
		Str("api", c.APIURL).
		Str("quote", c.QuoteAsset).
		Dur("interval", c.RefreshInterval).
		Int("port", c.ListenPort).
		Msg("dashboard running")

	waitForShutdown(cancel)

	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("dashboard server stop failed")
	}
}

func setupLogging() {
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// initializeHistory opens the equity history store if DATA_PATH is
// configured. A broken store disables the equity chart, nothing else.
func initializeHistory(c cfg.Settings) *storage.History {
	if c.DataPath == "" {
		return nil
	}
	history, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("history initialization failed, continuing without persistence")
		return nil
	}
	return history
}

func waitForShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info().Msg("shutdown signal received")
	cancel()
}
