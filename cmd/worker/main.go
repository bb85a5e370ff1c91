package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/bitkub-trader/internal/config"
	"github.com/ksred/bitkub-trader/internal/database"
	"github.com/ksred/bitkub-trader/internal/engine"
	"github.com/ksred/bitkub-trader/internal/market"
	"github.com/ksred/bitkub-trader/internal/store"
)

func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main runs the trading cycle worker. Multiple workers may point at the same
// database; the lease in the store guarantees only one executes a cycle per
// tick window. Failing to reach the store at startup is fatal; everything
// after that is contained per cycle.
func main() {
	cfg := config.Load()

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	processor := engine.NewProcessor(
		store.NewDatabase(db),
		market.NewBitkubClient(),
		cfg.WorkerInterval,
	)

	// Ticks are synchronous, so cancelling the context lets an in-flight
	// cycle finish and release its lease before Start returns.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor.Start(ctx)

	zlog.Info().Msg("Worker exiting")
}
