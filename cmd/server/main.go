package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/example/registry/internal/config"
	"github.com/example/registry/internal/database"
	"github.com/example/registry/internal/handlers"
	"github.com/example/registry/internal/routes"
	"github.com/example/registry/internal/services"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.IsProduction() {
		log = zerolog.New(os.Stdout).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	notifier := services.NewOTPNotifier(cfg, log)
	if _, logOnly := notifier.(*services.LogNotifier); logOnly && cfg.TwoFactorEnabled && cfg.IsProduction() {
		log.Fatal().Msg("two-factor login needs SMS or SMTP settings in production")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Residency Registry",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg, log, routes.Dependencies{Notifier: notifier})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.AppPort).Msg("starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("fiber.Listen error")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
