package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/app"
	"github.com/lueurxax/event-scout/internal/platform/config"
	db "github.com/lueurxax/event-scout/internal/storage"
)

const usage = "usage: %s --mode=[worker|bot|ingest|recommend|profile] [--user=NAME] [--interests=\"AI, robotics\"]"

var errUsage = errors.New("invalid arguments")

func main() {
	// Registered first so it runs after every other deferred cleanup.
	var exitCode int
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	mode := flag.String("mode", "", "Service mode (worker, bot, ingest, recommend, profile)")
	user := flag.String("user", "", "Profile username (recommend, profile)")
	interests := flag.String("interests", "", "Comma-separated interests (ingest, profile)")

	flag.Parse()

	if err := checkArgs(*mode, *interests); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := db.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to run migrations")

		exitCode = 1

		return
	}

	application := app.New(cfg, database, &logger)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *user, *interests); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Error().Err(err).Msg("application error")

		exitCode = 1
	}
}

// checkArgs validates the flag combination before anything is opened.
func checkArgs(mode, interests string) error {
	switch mode {
	case "worker", "bot", "recommend", "profile":
		return nil
	case "ingest":
		if interests != "" {
			return nil
		}
	}

	return fmt.Errorf("%w: "+usage, errUsage, os.Args[0])
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode, user, interests string) error {
	if err := checkArgs(mode, interests); err != nil {
		return err
	}

	switch mode {
	case "worker":
		return application.RunWorker(ctx)
	case "bot":
		return application.RunBot(ctx)
	case "ingest":
		stats, err := application.Ingest(ctx, interests)
		if err != nil {
			return err
		}

		return printJSON(stats)
	case "recommend":
		recs, err := application.Recommend(ctx, user)
		if err != nil {
			return err
		}

		return printJSON(recs)
	default:
		return application.SaveProfile(ctx, user, interests)
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = fmt.Fprintln(os.Stdout, string(out))

	return err
}
